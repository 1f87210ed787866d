package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/artifact"
	"github.com/openhoops/match-predictor/internal/config"
	"github.com/openhoops/match-predictor/internal/datasource"
	"github.com/openhoops/match-predictor/internal/features"
	"github.com/openhoops/match-predictor/internal/models"
	"github.com/openhoops/match-predictor/internal/predictor"
	"github.com/openhoops/match-predictor/internal/report"
)

func main() {
	source := flag.String("source", "csv", "where game logs come from: csv, sqlite or postgres")
	input := flag.String("input", "data/games.csv", "CSV file, SQLite path or Postgres URL")
	season := flag.String("season", "", "season to train on (database sources only, e.g. 2023-24)")
	cfgPath := flag.String("config", "", "YAML file with training hyperparameters")
	out := flag.String("out", "models/match_predictor", "artifact base path")
	reportPath := flag.String("report", "", "write an HTML training report to this path")
	verbose := flag.Bool("v", false, "log every epoch")
	flag.Parse()

	var (
		logger *zap.Logger
		err    error
	)
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(*source, *input, *season, *cfgPath, *out, *reportPath, logger); err != nil {
		logger.Sugar().Errorw("Training failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(source, input, season, cfgPath, out, reportPath string, logger *zap.Logger) error {
	sugar := logger.Sugar()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadTrainingConfig(cfgPath)
	if err != nil {
		return err
	}

	games, err := loadGames(ctx, source, input, season)
	if err != nil {
		return err
	}
	sugar.Infow("Loaded game logs", "source", source, "rows", len(games))

	art, res, err := predictor.NewTrainer(cfg, logger).Train(ctx, features.FrameFromRecords(games))
	if err != nil {
		return err
	}

	if err := artifact.Save(art, out); err != nil {
		return err
	}
	sugar.Infow("Artifact saved",
		"network", artifact.NetworkPath(out),
		"encoders", artifact.EncodersPath(out),
		"version", art.Version,
	)

	if reportPath != "" {
		in := report.Input{
			Title:    "Match predictor " + art.Version,
			History:  res.History,
			Test:     res.Test,
			WinRates: report.WinRates(games),
		}
		if err := report.WriteFile(reportPath, in, report.DefaultChartConfig()); err != nil {
			return err
		}
		sugar.Infow("Report written", "path", reportPath)
	}

	fmt.Printf("Training accuracy: %.4f\n", res.TrainAccuracy)
	fmt.Printf("Test accuracy:     %.4f\n", res.Test.Accuracy)
	if res.StoppedEarly {
		fmt.Printf("Stopped early; best epoch %d of %d\n", res.BestEpoch, len(res.History))
	}
	fmt.Println()
	fmt.Print(res.Test.String())
	return nil
}

func loadGames(ctx context.Context, source, input, season string) ([]models.GameRecord, error) {
	if source != "csv" && season == "" {
		return nil, fmt.Errorf("-season is required for the %s source", source)
	}
	switch source {
	case "csv":
		return datasource.LoadCSVFile(input)

	case "sqlite":
		store, err := datasource.OpenSQLiteStore(input)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.GamesBySeason(ctx, season)

	case "postgres":
		pg, err := pgxpool.New(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer pg.Close()
		return datasource.NewPgStore(pg).GamesBySeason(ctx, season)

	default:
		return nil, fmt.Errorf("unknown source %q (use csv, sqlite or postgres)", source)
	}
}
