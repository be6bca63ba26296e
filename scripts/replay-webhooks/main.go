// Package main provides a CLI tool that replays call events from a CSV file against a running
// callhub /webhook endpoint. Every payload is signed with the Retell API key, so this exercises
// the same verification path as real provider deliveries.
//
// CSV columns: event, call_id, data (optional JSON object merged into "data").
//
// Usage:
//
//	go run ./scripts/replay-webhooks -file events.csv -api-url http://localhost:8000
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/formbricks/callhub/pkg/retell"
)

// Config holds the CLI configuration
type Config struct {
	FilePath   string
	APIBaseURL string
	APIKey     string
	DelayMS    int
	DryRun     bool
	Unsigned   bool
}

// Stats tracks replay statistics
type Stats struct {
	TotalRows  int
	Skipped    int
	Accepted   int
	Rejected   int
	FailedPost int
}

const (
	colEvent  = 0
	colCallID = 1
	colData   = 2
)

var errMissingEvent = errors.New("missing required field: event")

func main() {
	// RETELL__API_KEY may come from the same .env the server reads.
	_ = godotenv.Load()

	cfg := parseFlags()

	if cfg.FilePath == "" {
		fmt.Println("Error: -file is required")
		flag.Usage()
		os.Exit(1)
	}

	if cfg.APIKey == "" && !cfg.Unsigned {
		fmt.Println("Error: -api-key (or RETELL__API_KEY) is required unless -unsigned is set")
		flag.Usage()
		os.Exit(1)
	}

	fmt.Printf("Callhub webhook replay\n")
	fmt.Printf("   API URL: %s\n", cfg.APIBaseURL)
	fmt.Printf("   CSV File: %s\n", cfg.FilePath)
	if cfg.DryRun {
		fmt.Printf("   DRY RUN MODE - payloads are printed, not sent\n")
	}
	fmt.Println()

	stats, err := replayCSV(cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Replay Summary")
	fmt.Printf("   Total rows:      %d\n", stats.TotalRows)
	fmt.Printf("   Skipped:         %d\n", stats.Skipped)
	fmt.Printf("   Accepted (200):  %d\n", stats.Accepted)
	fmt.Printf("   Rejected (401):  %d\n", stats.Rejected)
	fmt.Printf("   Failed:          %d\n", stats.FailedPost)

	if stats.FailedPost > 0 {
		os.Exit(1)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.FilePath, "file", "", "Path to CSV file of events (required)")
	flag.StringVar(&cfg.APIBaseURL, "api-url", "http://localhost:8000", "Callhub base URL")
	flag.StringVar(&cfg.APIKey, "api-key", os.Getenv("RETELL__API_KEY"), "Retell API key used to sign payloads")
	flag.IntVar(&cfg.DelayMS, "delay", 100, "Delay in milliseconds between requests")
	flag.BoolVar(&cfg.DryRun, "dry-run", false, "Parse CSV but don't send anything")
	flag.BoolVar(&cfg.Unsigned, "unsigned", false, "Send without a signature header (expects 401)")

	flag.Parse()

	return cfg
}

func replayCSV(cfg Config) (Stats, error) {
	stats := Stats{}

	file, err := os.Open(cfg.FilePath)
	if err != nil {
		return stats, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}

	for rowNum := 2; ; rowNum++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			fmt.Printf("   Row %d: error reading: %v\n", rowNum, err)
			stats.Skipped++

			continue
		}

		stats.TotalRows++

		payload, err := buildPayload(row)
		if err != nil {
			fmt.Printf("   [SKIP] Row %d: %v\n", rowNum, err)
			stats.Skipped++

			continue
		}

		if cfg.DryRun {
			fmt.Printf("   [DRY] Row %d: %s\n", rowNum, payload)
			stats.Accepted++

			continue
		}

		status, err := postEvent(client, cfg, payload)

		switch {
		case err != nil:
			fmt.Printf("   Row %d: %v\n", rowNum, err)
			stats.FailedPost++
		case status == http.StatusOK:
			fmt.Printf("   Row %d: %s accepted\n", rowNum, strings.TrimSpace(row[colEvent]))
			stats.Accepted++
		case status == http.StatusUnauthorized:
			fmt.Printf("   Row %d: %s rejected\n", rowNum, strings.TrimSpace(row[colEvent]))
			stats.Rejected++
		default:
			fmt.Printf("   Row %d: unexpected status %d\n", rowNum, status)
			stats.FailedPost++
		}

		time.Sleep(time.Duration(cfg.DelayMS) * time.Millisecond)
	}

	return stats, nil
}

// buildPayload turns a CSV row into {"event": ..., "data": {..., "call_id": ...}}.
func buildPayload(row []string) ([]byte, error) {
	event := strings.TrimSpace(safeGet(row, colEvent))
	if event == "" {
		return nil, errMissingEvent
	}

	data := map[string]any{}

	if raw := strings.TrimSpace(safeGet(row, colData)); raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, fmt.Errorf("invalid data JSON: %w", err)
		}
	}

	if callID := strings.TrimSpace(safeGet(row, colCallID)); callID != "" {
		data["call_id"] = callID
	}

	payload, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return payload, nil
}

func postEvent(client *http.Client, cfg Config, payload []byte) (int, error) {
	url := strings.TrimSuffix(cfg.APIBaseURL, "/") + "/webhook"

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if !cfg.Unsigned {
		signature, err := retell.Sign(payload, cfg.APIKey, time.Now())
		if err != nil {
			return 0, fmt.Errorf("sign payload: %w", err)
		}

		req.Header.Set(retell.SignatureHeader, signature)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func safeGet(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}

	return ""
}
