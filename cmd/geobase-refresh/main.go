package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/EmpoweredVote/geobase/internal/config"
	"github.com/EmpoweredVote/geobase/internal/db"
	"github.com/EmpoweredVote/geobase/internal/logger"
	"github.com/EmpoweredVote/geobase/internal/refresh"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("geobase-refresh")

func main() {
	var (
		configPath   = flag.String("config", os.Getenv("GEOBASE_CONFIG"), "path to YAML config (optional)")
		archive      = flag.String("archive", "", "local .zip or .tar.gz distribution; downloaded when empty")
		url          = flag.String("url", "", "distribution URL (default: refresh.source_url)")
		charset      = flag.String("charset", refresh.DefaultCharset, "encoding of the distribution text files")
		mode         = flag.String("mode", string(refresh.ModeMerge), "merge | replace")
		confirm      = flag.Bool("confirm", false, "DANGER: required by -mode=replace, which deletes every range first")
		createSchema = flag.Bool("create-schema", false, "create the range table before importing")
		dryRun       = flag.Bool("dry-run", false, "parse + validate only; no DB writes")
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

	m, err := refresh.ParseMode(*mode)
	if err != nil {
		flag.Usage()
		os.Exit(2)
	}

	src := refresh.Source{Archive: *archive, URL: *url, Charset: *charset}
	if src.Archive == "" && src.URL == "" {
		src.URL = cfg.Refresh.SourceURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Refresh.Timeout)
	defer cancel()

	runID := refresh.NewRunID()
	recs, err := refresh.Load(ctx, runID, src)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Loaded %d ranges\n", len(recs))

	if *dryRun {
		fmt.Println("Dry run complete. No changes made.")
		return
	}

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatalf("DB connection error: %v", err)
	}

	stats, err := refresh.Run(ctx, gdb, runID, refresh.Config{
		Table:        cfg.Store.Table,
		Decode:       cfg.Store.Decode,
		Mode:         m,
		Confirm:      *confirm,
		CreateSchema: *createSchema,
	}, recs)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Done: parsed=%d inserted=%d updated=%d deleted=%d\n",
		stats.Parsed, stats.Inserted, stats.Updated, stats.Deleted)
}
