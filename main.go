package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/EmpoweredVote/geobase/internal/api"
	"github.com/EmpoweredVote/geobase/internal/config"
	"github.com/EmpoweredVote/geobase/internal/db"
	"github.com/EmpoweredVote/geobase/internal/logger"
	"github.com/EmpoweredVote/geobase/internal/middleware"
	"github.com/EmpoweredVote/geobase/internal/ranges"
	"github.com/go-chi/chi/v5"
	"github.com/op/go-logging"
	"golang.org/x/time/rate"
)

var log = logging.MustGetLogger("geobase")

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	configPath := flag.String("config", os.Getenv("GEOBASE_CONFIG"), "path to YAML config (optional)")
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
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.EnsureTableSchema(gdb, cfg.Store.Table); err != nil {
		log.Fatalf("Failed to ensure schema for %s: %v", cfg.Store.Table, err)
	}

	store, err := ranges.New(ranges.Config{
		Conn:   db.NewConn(gdb),
		Table:  cfg.Store.Table,
		Decode: cfg.Store.Decode,
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to create range table: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.HTTP.AllowedOrigins))
	r.Use(middleware.RateLimit(rate.NewLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst)))
	r.Get("/", RootHandler)

	r.Mount("/geo", api.SetupRoutes(api.NewHandler(store), cfg.HTTP.AdminTokenHash))

	log.Infof("Server listening on %s...", cfg.HTTP.Addr())

	if err := http.ListenAndServe(cfg.HTTP.Addr(), r); err != nil {
		log.Fatal(err)
	}
}
