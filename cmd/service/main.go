package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"gitlab.com/dirk.krummacker/contacts-store/internal/config"
	"gitlab.com/dirk.krummacker/contacts-store/internal/service"
	"gitlab.com/dirk.krummacker/contacts-store/internal/store"
)

// Usage example on the command line:
// > PORT=8080 DBPATH=/var/lib/contacts/contacts.db GIN_MODE=release GIN_LOGGING=OFF go run main.go
// > DBDRIVER=mysql DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go run main.go -config=contacts.yaml
func main() {
	configPtr := flag.String("config", "", "the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load configuration:", err)
		os.Exit(1)
	}
	logger := cfg.Logging.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	s, err := store.Open(context.Background(), cfg.Database.Driver, cfg.Database.DSN(), store.WithLogger(logger))
	if err != nil {
		logger.Error("could not open contacts store", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	service.SetupStore(s, logger)
	router := service.SetupHttpRouter(cfg.Server.GinLogging)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("serving contacts", "addr", addr)
	if err := router.Run(addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
