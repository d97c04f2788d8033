package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"etlkit/internal/dbclient"
	"etlkit/internal/domain"
)

var dbPath *string

func init() {
	dbPath = flag.String("db", "movies.db", "path of the sqlite database file")
	flag.Parse()
}

func main() {
	conn, err := dbclient.NewConnector(&domain.DatabaseConnection{
		Driver: domain.DatabaseDriverSQLite,
		Host:   *dbPath,
	})
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()

	if _, err := conn.Execute(ctx,
		"CREATE TABLE IF NOT EXISTS movie (title TEXT, year INTEGER, score REAL)", 0); err != nil {
		log.Fatalf("create table: %v", err)
	}

	if _, err := conn.WriteRows(ctx, "movie",
		[]string{"title", "year", "score"},
		[][]any{{"Title", 2025, 9.5}}); err != nil {
		log.Fatalf("insert: %v", err)
	}

	page, err := conn.Execute(ctx, "SELECT title, year, score FROM movie", 0)
	if err != nil {
		log.Fatalf("select: %v", err)
	}
	for _, row := range page.Rows {
		fmt.Println(row)
	}
}
