package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gitlab.com/dirk.krummacker/contacts-store/internal/config"
	"gitlab.com/dirk.krummacker/contacts-store/internal/store"
)

// Creates the contacts schema and then executes an optional SQL file, for example to seed test
// data.
//
// Usage example on the command line:
// > DBPATH=contacts.db go run main.go -file=../../scripts/seed.sql
// > DBDRIVER=mysql DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go run main.go
func main() {
	configPtr := flag.String("config", "", "the YAML configuration file")
	filePtr := flag.String("file", "", "the sql file to execute after creating the schema")
	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load configuration:", err)
		os.Exit(1)
	}
	logger := cfg.Logging.NewLogger(os.Stderr)

	ctx := context.Background()
	s, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN(), store.WithLogger(logger))
	if err != nil {
		logger.Error("could not open contacts store", "error", err)
		os.Exit(1)
	}
	defer s.Close()
	if *filePtr == "" {
		return
	}

	readFile, err := os.Open(*filePtr) // nosemgrep
	if err != nil {
		logger.Error("could not open sql file", "file", *filePtr, "error", err)
		os.Exit(1)
	}
	defer readFile.Close()

	count, err := s.ExecScript(ctx, readFile)
	if err != nil {
		logger.Error("could not execute sql file", "file", *filePtr, "error", err)
		os.Exit(1)
	}
	logger.Info("executed sql file", "file", *filePtr, "statements", count)
}
