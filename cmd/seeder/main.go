package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/openhoops/match-predictor/internal/datasource"
	"github.com/openhoops/match-predictor/internal/models"
	"github.com/openhoops/match-predictor/internal/synth"
)

const defaultAPIURL = "http://localhost:8080/api/v1/games"

func main() {
	teams := flag.Int("teams", 30, "number of teams")
	rounds := flag.Int("rounds", 60, "games per team")
	seed := flag.Int64("seed", 42, "random seed")
	year := flag.Int("year", 2023, "season start year")
	apiURL := flag.String("api", "", "POST the rows to this ingestion endpoint (e.g. "+defaultAPIURL+")")
	csvPath := flag.String("csv", "", "write the rows to this CSV file")
	sqlitePath := flag.String("sqlite", "", "insert the rows into this SQLite snapshot")
	flag.Parse()

	if *apiURL == "" && *csvPath == "" && *sqlitePath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass at least one of -api, -csv or -sqlite")
		os.Exit(2)
	}

	cfg := synth.DefaultLeagueConfig()
	cfg.Teams = *teams
	cfg.Rounds = *rounds
	cfg.Seed = *seed
	cfg.StartYear = *year
	cfg.StartDate = time.Date(*year, 10, 24, 0, 0, 0, 0, time.UTC)

	lg, err := synth.Generate(cfg)
	if err != nil {
		log.Fatalf("Failed to generate league: %v", err)
	}
	fmt.Printf("Generated %d rows for %d teams\n", len(lg.Games), len(lg.Teams))

	if *csvPath != "" {
		if err := writeCSV(*csvPath, lg.Games); err != nil {
			log.Fatalf("Failed to write CSV: %v", err)
		}
		fmt.Printf("Wrote %s\n", *csvPath)
	}

	if *sqlitePath != "" {
		store, err := datasource.OpenSQLiteStore(*sqlitePath)
		if err != nil {
			log.Fatalf("Failed to open SQLite snapshot: %v", err)
		}
		n, err := store.InsertGames(context.Background(), lg.Games)
		store.Close()
		if err != nil {
			log.Fatalf("Failed to insert rows: %v", err)
		}
		fmt.Printf("Inserted %d rows into %s\n", n, *sqlitePath)
	}

	if *apiURL != "" {
		if err := post(*apiURL, lg.Games); err != nil {
			log.Fatalf("Ingestion failed: %v", err)
		}
	}
}

func writeCSV(path string, games []models.GameRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := datasource.WriteCSV(f, games); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func post(url string, games []models.GameRecord) error {
	payload, err := json.Marshal(games)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %s\n", resp.Status)
	fmt.Printf("Response: %s\n", string(body))

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
