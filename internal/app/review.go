package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/cli"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/review"
)

const reviewUsage = "usage: quotelog review <list|merge|reject|skip|batch> [flags]"

func runReview(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, reviewUsage)
		return 2
	}
	action := strings.ToLower(strings.TrimSpace(args[0]))
	switch action {
	case "list", "merge", "reject", "skip", "batch":
	case "help", "-h", "--help":
		fmt.Fprintln(os.Stderr, reviewUsage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown review action: %s\n%s\n", args[0], reviewUsage)
		return 2
	}

	fs := flag.NewFlagSet("review "+action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")
	id := fs.Int64("id", 0, "Queue item id (merge, reject, skip)")
	idsRaw := fs.String("ids", "", "Comma-separated queue item ids (batch)")
	batchAction := fs.String("action", "", "Batch action: merge or reject")
	reviewer := fs.String("reviewer", "cli", "Reviewer name recorded on resolved items")
	limit := fs.Int("limit", 50, "Rows per page (list)")
	offset := fs.Int("offset", 0, "Rows to skip (list)")
	formatRaw := fs.String("format", outputFormatTable, "Output format: table or json")

	if ok, code := parseFlags(fs, args[1:]); !ok {
		return code
	}

	format, err := parseOutputFormat(*formatRaw, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	var ids []int64
	switch action {
	case "merge", "reject", "skip":
		if *id <= 0 {
			fmt.Fprintln(os.Stderr, "--id must be a positive integer")
			return 2
		}
	case "batch":
		ids, err = parseIDList(*idsRaw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "--ids: %v\n", err)
			return 2
		}
		normalized := strings.ToLower(strings.TrimSpace(*batchAction))
		if normalized != review.ActionMerge && normalized != review.ActionReject {
			fmt.Fprintln(os.Stderr, "--action must be merge or reject")
			return 2
		}
		*batchAction = normalized
	case "list":
		if *limit < 1 || *offset < 0 {
			fmt.Fprintln(os.Stderr, "--limit must be >= 1 and --offset >= 0")
			return 2
		}
	}

	rt, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	pool, err := connectPool(rt.cfg, 10*time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer pool.Close()

	svc := review.NewService(pool, rt.logger)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var out any
	switch action {
	case "list":
		page, err := svc.ListPending(ctx, *limit, *offset)
		if err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			return 1
		}
		if format == outputFormatTable {
			return exitOnWrite(printQueueTable(page))
		}
		out = page
	case "merge":
		outcome, err := svc.Merge(ctx, *id, *reviewer)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Merge failed: %v\n", err)
			return 1
		}
		out = outcome
	case "reject":
		outcome, err := svc.Reject(ctx, *id, *reviewer)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Reject failed: %v\n", err)
			return 1
		}
		out = outcome
	case "skip":
		if err := svc.Skip(ctx, *id); err != nil {
			fmt.Fprintf(os.Stderr, "Skip failed: %v\n", err)
			return 1
		}
		out = map[string]any{"queue_item_id": *id, "skipped": true}
	case "batch":
		result, err := svc.Batch(ctx, *batchAction, ids, *reviewer)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Batch failed: %v\n", err)
			return 1
		}
		if format == outputFormatTable {
			if code := exitOnWrite(printBatchTable(result)); code != 0 {
				return code
			}
			if result.Failed > 0 {
				return 1
			}
			return 0
		}
		out = result
	}

	if format == outputFormatJSON {
		return exitOnWrite(printJSON(out))
	}
	if outcome, ok := out.(review.Outcome); ok {
		fmt.Printf("queue_item_id=%d status=%s person_id=%d", outcome.QueueItemID, outcome.Status, outcome.PersonID)
		if outcome.QuoteID != nil {
			fmt.Printf(" quote_id=%d", *outcome.QuoteID)
		}
		fmt.Println()
		return 0
	}
	fmt.Printf("queue_item_id=%d skipped=true\n", *id)
	return 0
}

// parseIDList reads a comma separated list of positive ids, keeping order and
// dropping repeats.
func parseIDList(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	seen := make(map[int64]struct{}, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%q is not a positive integer", trimmed)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one id is required")
	}
	return ids, nil
}

func printQueueTable(page review.Page) error {
	fmt.Printf("pending=%d limit=%d offset=%d\n", page.Total, page.Limit, page.Offset)
	rows := make([][]string, 0, len(page.Items))
	for _, item := range page.Items {
		candidate := ""
		if item.CandidatePersonID != nil {
			candidate = fmt.Sprintf("%d %s", *item.CandidatePersonID, pointerStringOrEmpty(item.CandidateName))
		}
		quoteID := ""
		if item.QuoteID != nil {
			quoteID = strconv.FormatInt(*item.QuoteID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.QueueItemID, 10),
			truncateForTable(item.NewName, 32),
			truncateForTable(candidate, 40),
			strconv.FormatFloat(item.SimilarityScore, 'f', 3, 64),
			quoteID,
			formatUTCTimestamp(item.CreatedAt),
		})
	}
	return writeTable([]string{"ID", "NAME", "CANDIDATE", "SCORE", "QUOTE", "CREATED"}, rows)
}

func printBatchTable(result review.BatchResult) error {
	fmt.Printf("batch_id=%s action=%s succeeded=%d failed=%d\n", result.BatchID, result.Action, result.Succeeded, result.Failed)
	rows := make([][]string, 0, len(result.Results))
	for _, r := range result.Results {
		detail := r.Error
		if r.Outcome != nil {
			detail = fmt.Sprintf("%s person=%d", r.Outcome.Status, r.Outcome.PersonID)
		}
		rows = append(rows, []string{strconv.FormatInt(r.QueueItemID, 10), strconv.FormatBool(r.OK), truncateForTable(detail, 80)})
	}
	return writeTable([]string{"ID", "OK", "DETAIL"}, rows)
}

func exitOnWrite(err error) int {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}
