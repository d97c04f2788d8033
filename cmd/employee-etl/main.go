package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"etlkit/internal/domain"
	"etlkit/internal/etl"
	_ "etlkit/internal/etl/sources" // register file sources
	"etlkit/internal/service"
	"etlkit/internal/storage"
)

var (
	pattern      *string
	output       *string
	dest         *string
	destHost     *string
	destPort     *int
	destDB       *string
	destUser     *string
	destPassword *string
	mode         *string
	schedule     *string
	watch        *bool
	runsDB       *string
)

// usage example:
//
//	employee-etl --input "./employee_data/*.csv" --out clean_employee_master.csv
//	employee-etl --input "./employee_data/*.csv" --dest mysql --dest-host 127.0.0.1 \
//	    --dest-db hr --dest-user root --dest-password secret --out employee_master
//	employee-etl --input "./employee_data/*.csv" --watch
func init() {
	pattern = flag.String("input", "./employee_data/*.csv", "glob pattern of source CSV files")
	output = flag.String("out", "clean_employee_master.csv", "output path (csv) or table/collection name")
	dest = flag.String("dest", "csv", "destination: csv, sqlite, mysql, postgres, mongodb")
	destHost = flag.String("dest-host", "127.0.0.1", "destination host (or sqlite file path)")
	destPort = flag.Int("dest-port", 0, "destination port (0 = driver default)")
	destDB = flag.String("dest-db", "", "destination database name")
	destUser = flag.String("dest-user", "", "destination user")
	destPassword = flag.String("dest-password", "", "destination password")
	mode = flag.String("mode", "replace", "sync mode: replace or append")
	schedule = flag.String("schedule", "", "cron expression to re-run the merge")
	watch = flag.Bool("watch", false, "re-run the merge when the input directory changes")
	runsDB = flag.String("runs-db", "", "optional sqlite file for run history")

	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(out, "\nRegistered source types:\n")
		for _, spec := range etl.ListSources() {
			fmt.Fprintf(out, "  %-10s %s (config: %s)\n", spec.Type, spec.Label, strings.Join(spec.ConfigKeys, ", "))
		}
	}

	flag.Parse()
}

func main() {
	os.Exit(run())
}

func run() int {
	destination, err := buildDestination()
	if err != nil {
		log.Printf("bad destination config: %v", err)
		return 1
	}

	job := &etl.MergeJob{
		ID:            "employee-etl",
		Name:          "employee master merge",
		Pattern:       *pattern,
		OutputTarget:  *output,
		RenameMapping: etl.DefaultEmployeeRenames,
		NumericColumn: "Salary",
		Mode:          etl.SyncMode(*mode),
	}
	switch {
	case *schedule != "":
		job.TriggerType = "schedule"
		job.TriggerConfig = *schedule
	case *watch:
		job.TriggerType = "file_watch"
	default:
		job.TriggerType = "manual"
	}

	var runs *storage.RunStore
	if *runsDB != "" {
		db, err := storage.New(*runsDB)
		if err != nil {
			log.Printf("open run history: %v", err)
			return 1
		}
		defer db.Close()
		runs = storage.NewRunStore(db)
	}

	svc := service.NewMergeService(&etl.Engine{Dest: destination}, runs)
	svc.AddJob(job)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := svc.RunJob(ctx, job.ID)
	if err != nil {
		log.Printf("merge failed: %v", err)
		return 1
	}
	for _, w := range result.Warnings {
		log.Printf("warning: %s", w)
	}
	log.Printf("employee master dataset saved to %s (%d rows in, %d rows out, %s)",
		*output, result.RowsRead, result.RowsWritten, result.Duration.Round(time.Millisecond))

	if job.TriggerType == "manual" {
		return 0
	}

	svc.StartTriggers(ctx)
	log.Printf("trigger %q active, press Ctrl+C to stop", job.TriggerType)
	<-ctx.Done()

	svc.Stop()
	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	svc.WaitRunning(waitCtx)
	return 0
}

func buildDestination() (etl.Destination, error) {
	switch *dest {
	case "csv":
		return &etl.CSVWriter{}, nil
	case "sqlite":
		return &etl.DatabaseWriter{Conn: &domain.DatabaseConnection{
			Driver: domain.DatabaseDriverSQLite,
			Host:   *destHost,
		}}, nil
	case "mysql", "postgres":
		return &etl.DatabaseWriter{Conn: &domain.DatabaseConnection{
			Driver:   domain.DatabaseDriver(*dest),
			Host:     *destHost,
			Port:     *destPort,
			Database: *destDB,
			Username: *destUser,
			Password: *destPassword,
		}}, nil
	case "mongodb":
		return &etl.MongoWriter{Conn: &domain.DatabaseConnection{
			Driver:   domain.DatabaseDriverMongoDB,
			Host:     *destHost,
			Port:     *destPort,
			Database: *destDB,
			Username: *destUser,
			Password: *destPassword,
		}}, nil
	default:
		return nil, fmt.Errorf("unknown destination %q", *dest)
	}
}
