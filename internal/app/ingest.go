package app

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/cli"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/ingest"
	payloadschema "github.com/Bitstream73/QuoteLog02-sub000/schema"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	payload := fs.String("payload", "", "Quote batch payload JSON")
	payloadFile := fs.String("payload-file", "", "Path to quote batch JSON file (overrides --payload)")
	formatRaw := fs.String("format", outputFormatTable, "Output format: table or json")

	if ok, code := parseFlags(fs, args); !ok {
		return code
	}

	format, err := parseOutputFormat(*formatRaw, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	payloadJSON, err := loadJSONInput(*payload, *payloadFile, "payload")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
	}
	batch, err := payloadschema.ValidateQuoteBatchPayload(payloadJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
	}

	rt, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	pool, err := connectPool(rt.cfg, 10*time.Second)
	if err != nil {
		rt.logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer pool.Close()

	svcs, err := newServices(rt.cfg, pool, rt.logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build services: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := svcs.ingest.IngestBatch(ctx, batch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	if format == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
			return 1
		}
	} else if err := printIngestTable(result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}

	if result.Failed > 0 {
		return 1
	}
	return 0
}

func printIngestTable(result ingest.BatchResult) error {
	fmt.Printf(
		"run_id=%s article_id=%d inserted=%d duplicates=%d queued=%d failed=%d\n",
		result.RunID,
		result.Article.ArticleID,
		result.Inserted,
		result.Duplicates,
		result.Queued,
		result.Failed,
	)

	rows := make([][]string, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		quoteID, outcome := "", ""
		if c.Quote != nil {
			quoteID = strconv.FormatInt(c.Quote.ID, 10)
			outcome = "new"
			if c.Quote.IsDuplicate {
				outcome = strings.ToLower(c.Quote.Relationship)
			}
		}
		if c.Error != "" {
			outcome = "error: " + c.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(c.Index),
			truncateForTable(c.Speaker, 32),
			c.Resolution,
			formatOptionalID(c.PersonID),
			formatOptionalID(c.QueueItemID),
			quoteID,
			truncateForTable(outcome, 60),
		})
	}
	return writeTable([]string{"#", "SPEAKER", "RESOLUTION", "PERSON", "QUEUE", "QUOTE", "OUTCOME"}, rows)
}

func loadJSONInput(inlineValue, filePath, label string) (json.RawMessage, error) {
	if path := strings.TrimSpace(filePath); path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s file %q: %w", label, path, err)
		}
		trimmed := strings.TrimSpace(string(payload))
		if trimmed == "" {
			return nil, fmt.Errorf("%s file %q is empty", label, path)
		}
		return json.RawMessage(trimmed), nil
	}

	trimmed := strings.TrimSpace(inlineValue)
	if trimmed == "" {
		return nil, fmt.Errorf("%s JSON is empty", label)
	}
	return json.RawMessage(trimmed), nil
}

func formatOptionalID(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
