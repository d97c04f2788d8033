package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"etlkit/internal/dataset"
	"etlkit/internal/session"
)

var (
	dataPath      *string
	checkpointDir *string
)

func init() {
	dataPath = flag.String("data", "./data/customers.csv", "path of the customers CSV file")
	checkpointDir = flag.String("checkpoint-dir",
		filepath.Join(os.TempDir(), "etlkit_checkpoints"), "directory for dataset checkpoints")

	flag.Parse()
}

// Exit codes: 0 success, 1 session-creation failure, 2 file not found,
// 3 any other read failure.
func main() {
	os.Exit(run())
}

func run() int {
	sess, err := session.New(session.Config{
		AppName:              "session-demo",
		MaxTaskFailures:      3,
		ExcludeFailedWorkers: true,
		CheckpointDir:        *checkpointDir,
	})
	if err != nil {
		log.Printf("failed to create session: %v", err)
		return 1
	}
	// The session is released on every exit path, including failures below.
	defer sess.Close()

	ctx := context.Background()

	ds, err := sess.ReadCSV(ctx, *dataPath)
	if err != nil {
		var notFound *session.PathNotFoundError
		if errors.As(err, &notFound) {
			log.Printf("file error: %v", notFound)
			return 2
		}
		log.Printf("error reading csv: %v", err)
		return 3
	}

	printSchema(ds)
	printRecords(ds.Preview(5), ds.Schema)

	uniqueCustomers := dataset.SafeDistinctCount(ds, "customer_id")
	fmt.Printf("unique customers count: %d\n", uniqueCustomers)

	ckpt, err := sess.Checkpoint(ds)
	if err != nil {
		log.Printf("checkpoint failed: %v", err)
		return 3
	}
	count, err := ckpt.Count()
	if err != nil {
		log.Printf("checkpoint count failed: %v", err)
		return 3
	}
	fmt.Printf("checkpointed dataset count: %d\n", count)

	if err := sess.RegisterView(ctx, "customers", ds); err != nil {
		log.Printf("register view failed: %v", err)
		return 3
	}

	if result := sess.SafeQuery(ctx, "SELECT * FROM customers WHERE age > 30"); result != nil {
		printRecords(result.Preview(5), result.Schema)
	}

	// A broken query: logs the diagnostic and yields the no-result value.
	_ = sess.SafeQuery(ctx, "SELECT * FROM nonexistent_table")

	return 0
}

func printSchema(ds *dataset.Dataset) {
	fmt.Println("schema:")
	for _, f := range ds.Schema.Fields {
		fmt.Printf("  %s: %s\n", f.Name, f.Type)
	}
}

func printRecords(records []dataset.Record, schema *dataset.Schema) {
	names := schema.FieldNames()
	for _, rec := range records {
		for i, name := range names {
			if i > 0 {
				fmt.Print(", ")
			}
			v := rec.Data[name]
			if v == nil {
				v = "null"
			}
			fmt.Printf("%s=%v", name, v)
		}
		fmt.Println()
	}
}
