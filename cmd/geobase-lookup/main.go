package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/EmpoweredVote/geobase/internal/config"
	"github.com/EmpoweredVote/geobase/internal/db"
	"github.com/EmpoweredVote/geobase/internal/logger"
	"github.com/EmpoweredVote/geobase/internal/lookup"
	"github.com/EmpoweredVote/geobase/internal/ranges"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("geobase-lookup")

func main() {
	configPath := flag.String("config", os.Getenv("GEOBASE_CONFIG"), "path to YAML config (optional)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: geobase-lookup [-config file] ADDRESS...")
		os.Exit(2)
	}

	config.LoadEnvFiles()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if err := logger.InitConsoleLog("WARNING"); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatalf("DB connection error: %v", err)
	}
	store, err := ranges.New(ranges.Config{
		Conn:   db.NewConn(gdb),
		Table:  cfg.Store.Table,
		Decode: cfg.Store.Decode,
	})
	if err != nil {
		log.Fatal(err)
	}
	engine := lookup.New(store)

	exit := 0
	for _, addr := range flag.Args() {
		recs, err := engine.Lookup(context.Background(), addr)
		if errors.Is(err, lookup.ErrInvalidAddress) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", addr, err)
			exit = 1
			continue
		}
		if err != nil {
			log.Fatalf("Query error: %v", err)
		}

		fmt.Printf("=== %s (%d) ===\n", addr, len(recs))
		for _, r := range recs {
			fmt.Printf("  - %s - %s | %s\n", r.Start, r.End, describe(r))
		}
		fmt.Println()
	}
	os.Exit(exit)
}

func describe(r ranges.Record) string {
	var parts []string
	for _, s := range []*string{r.City, r.Region, r.FederalDistrict, r.Status} {
		if s != nil && *s != "" {
			parts = append(parts, *s)
		}
	}
	if r.Latitude != nil && r.Longitude != nil {
		parts = append(parts, fmt.Sprintf("(%.6f, %.6f)", *r.Latitude, *r.Longitude))
	}
	if len(parts) == 0 {
		return "no location"
	}
	return strings.Join(parts, ", ")
}
