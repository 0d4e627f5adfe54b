package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whr-rank/internal/api"
	"whr-rank/internal/config"
	"whr-rank/internal/csvio"
	"whr-rank/internal/db"
	"whr-rank/internal/logger"
	"whr-rank/internal/report"
	"whr-rank/internal/tune"
	"whr-rank/internal/whr"

	"github.com/joho/godotenv"
)

var version = "dev"

const usage = `usage: whr-rank [flags] <command> [args]

commands:
  import <games.csv>   append a CSV game archive to the database
  fit                  fit ratings over the whole archive and store the run
  eval <games.csv>     score held-out games against the latest stored run
  tune                 holdout-search the w2 prior across candidate values
  serve                run the HTTP API

flags:`

func main() {
	// Local .env for double-clicked binaries and dev runs; never overrides
	// real env vars.
	_ = godotenv.Load()

	dbPath := flag.String("db", envOrDefault("WHR_DB", "whr.db"), "SQLite database path")
	host := flag.String("host", "127.0.0.1", "HTTP host for serve")
	port := flag.Int("port", 13380, "HTTP port for serve")
	w2 := flag.Float64("w2", 0, "override the Brownian prior variance (elo^2/step)")
	virtualGames := flag.Int("virtual-games", 0, "override the first-day anchor draws")
	maxIters := flag.Int("iters", -1, "fixed sweep count instead of convergence (-1 = use config)")
	verbose := flag.Bool("verbose", false, "print per-sweep convergence deltas")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logger.Banner(version)

	database, err := db.Open(*dbPath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	cfg := database.LoadConfig()
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "w2":
			cfg.W2 = *w2
		case "virtual-games":
			cfg.VirtualGames = *virtualGames
		case "iters":
			cfg.MaxIterations = *maxIters
		case "verbose":
			cfg.Verbose = *verbose
		}
	})

	command := flag.Arg(0)
	if command == "" {
		command = "fit"
	}

	switch command {
	case "import":
		runImport(database, flag.Arg(1))
	case "fit":
		runFit(database, cfg)
	case "eval":
		runEval(database, flag.Arg(1))
	case "tune":
		runTune(database, cfg)
	case "serve":
		runServe(database, cfg, *host, *port)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func runImport(database *db.DB, path string) {
	if path == "" {
		logger.Error("Import", "No archive file given")
		os.Exit(2)
	}
	games, err := csvio.ReadGamesFile(path)
	if err != nil {
		logger.Error("Import", err.Error())
		os.Exit(1)
	}
	n, err := database.InsertGames(games)
	if err != nil {
		logger.Error("Import", err.Error())
		os.Exit(1)
	}
	logger.Success("Import", fmt.Sprintf("Appended %d games from %s", n, path))
}

func runFit(database *db.DB, cfg *config.Config) {
	games, err := database.LoadGames()
	if err != nil {
		logger.Error("Fit", err.Error())
		os.Exit(1)
	}
	if len(games) == 0 {
		logger.Error("Fit", "Archive is empty; run import first")
		os.Exit(1)
	}

	base := whr.New(cfg.W2, cfg.VirtualGames)
	base.CreateGames(games)

	start := time.Now()
	sweeps := 0
	if cfg.MaxIterations > 0 {
		base.Iterate(cfg.MaxIterations)
		sweeps = cfg.MaxIterations
	} else {
		sweeps = base.IterateUntilConverge(cfg.Verbose)
	}
	elapsed := time.Since(start)

	ratings := base.OrderedRatings()
	run := db.FitRun{
		W2:            cfg.W2,
		VirtualGames:  cfg.VirtualGames,
		Sweeps:        sweeps,
		GameCount:     base.GameCount(),
		LogLikelihood: base.LogLikelihood(),
	}
	id, err := database.SaveRun(run, ratings)
	if err != nil {
		logger.Error("Fit", err.Error())
		os.Exit(1)
	}

	base.PrintOrderedRatings(os.Stdout)
	report.Print(report.Summarize(ratings))
	logger.Section("Fit")
	logger.Stats("Run", id)
	logger.Stats("Games", run.GameCount)
	logger.Stats("Sweeps", sweeps)
	logger.Stats("Log-likelihood", fmt.Sprintf("%.4f", run.LogLikelihood))
	logger.Stats("Elapsed", elapsed.Round(time.Millisecond))
}

func runEval(database *db.DB, path string) {
	if path == "" {
		logger.Error("Eval", "No holdout file given")
		os.Exit(2)
	}
	games, err := csvio.ReadGamesFile(path)
	if err != nil {
		logger.Error("Eval", err.Error())
		os.Exit(1)
	}
	run, err := database.LatestRun()
	if err != nil {
		logger.Error("Eval", err.Error())
		os.Exit(1)
	}
	if run == nil {
		logger.Error("Eval", "No stored fit run; run fit first")
		os.Exit(1)
	}
	ratings, err := database.RatingsForRun(run.ID)
	if err != nil {
		logger.Error("Eval", err.Error())
		os.Exit(1)
	}
	ev := whr.NewEvaluateFromRatings(ratings)
	logger.Section("Holdout evaluation")
	logger.Stats("Run", run.ID)
	logger.Stats("Games", len(games))
	logger.Stats("Ave log-likelihood", fmt.Sprintf("%.4f", ev.AveLogLikelihood(games, true)))
}

func runTune(database *db.DB, cfg *config.Config) {
	games, err := database.LoadGames()
	if err != nil {
		logger.Error("Tune", err.Error())
		os.Exit(1)
	}
	train, holdout := tune.Split(games, cfg.TuneHoldoutFraction)
	results, err := tune.Sweep(context.Background(), train, holdout, cfg.TuneCandidates, cfg.VirtualGames)
	if err != nil {
		logger.Error("Tune", err.Error())
		os.Exit(1)
	}
	logger.Section("w2 holdout search")
	logger.Stats("Train / holdout", fmt.Sprintf("%d / %d games", len(train), len(holdout)))
	for _, r := range results {
		logger.Stats(fmt.Sprintf("w2=%g", r.W2),
			fmt.Sprintf("LL %.4f over %d games (%d sweeps)", r.HoldoutLL, r.Scored, r.Sweeps))
	}
	best := tune.Best(results)
	logger.Success("Tune", fmt.Sprintf("Best w2 = %g (holdout LL %.4f)", best.W2, best.HoldoutLL))
}

func runServe(database *db.DB, cfg *config.Config, host string, port int) {
	srv := api.NewServer(cfg, database)
	addr := fmt.Sprintf("%s:%d", host, port)
	logger.Server(addr)

	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}

	// Graceful shutdown on SIGINT / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("Server", "Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server", fmt.Sprintf("Shutdown error: %v", err))
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server", fmt.Sprintf("Failed: %v", err))
		os.Exit(1)
	}
	logger.Info("Server", "Stopped")
}
