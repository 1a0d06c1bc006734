package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/EmpoweredVote/geobase/internal/config"
	"github.com/EmpoweredVote/geobase/internal/db"
	"github.com/EmpoweredVote/geobase/internal/logger"
	"github.com/EmpoweredVote/geobase/internal/ranges"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("geobase-schema")

func main() {
	var (
		configPath = flag.String("config", os.Getenv("GEOBASE_CONFIG"), "path to YAML config (optional)")
		kind       = flag.String("kind", "", "engine kind to emit DDL for (default: the connection's own)")
	)
	flag.Parse()

	config.LoadEnvFiles()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if err := logger.Init(cfg.Log.File, cfg.Log.Level); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatalf("DB connection error: %v", err)
	}
	if err := db.EnsureTableSchema(gdb, cfg.Store.Table); err != nil {
		log.Fatalf("Error creating schema: %v", err)
	}

	store, err := ranges.New(ranges.Config{
		Conn:   db.NewConn(gdb),
		Table:  cfg.Store.Table,
		Decode: cfg.Store.Decode,
	})
	if err != nil {
		log.Fatal(err)
	}

	k := *kind
	if k == "" {
		k = store.Kind()
	}
	if err := store.CreateSchema(context.Background(), k); err != nil {
		log.Fatalf("Error creating table: %v", err)
	}

	n, err := store.Count(context.Background())
	if err != nil {
		log.Fatalf("Error counting ranges: %v", err)
	}
	fmt.Printf("✓ Table %s ready (%s, %d ranges)\n", store.Table(), k, n)
}
