package app

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/cli"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	day := fs.String("day", "", "UTC day for throughput counters (YYYY-MM-DD, default today)")

	if ok, code := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	dayStart := defaultUTCDay()
	if strings.TrimSpace(*day) != "" {
		dayStart, err = parseUTCDate(*day)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --day: %v\n", err)
			return 2
		}
	}
	_, dayEnd := utcDayBounds(dayStart)

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	stats, err := pool.QueryQuoteLogStats(ctx, dayStart, dayEnd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		return exitOnWrite(printJSON(stats))
	}
	return exitOnWrite(printStatsTable(stats))
}

func printStatsTable(stats *db.QuoteLogStats) error {
	count := func(v int64) string { return strconv.FormatInt(v, 10) }

	fmt.Println("Totals")
	if err := writeTable([]string{"persons", "aliases", "articles", "canonical", "variants", "embeddings"}, [][]string{{
		count(stats.Totals.Persons),
		count(stats.Totals.Aliases),
		count(stats.Totals.Articles),
		count(stats.Totals.CanonicalQuotes),
		count(stats.Totals.VariantQuotes),
		count(stats.Totals.Embeddings),
	}}); err != nil {
		return err
	}

	fmt.Println("\nReview queue")
	if err := writeTable([]string{"pending", "merged", "new_person", "rejected"}, [][]string{{
		count(stats.Queue.Pending),
		count(stats.Queue.Merged),
		count(stats.Queue.NewPerson),
		count(stats.Queue.Rejected),
	}}); err != nil {
		return err
	}

	fmt.Printf("\nThroughput (UTC %s)\n", stats.Day)
	return writeTable([]string{"metric", "value"}, [][]string{
		{"quotes_stored", count(stats.Throughput.QuotesStored)},
		{"duplicates_found", count(stats.Throughput.DuplicatesFound)},
		{"persons_created", count(stats.Throughput.PersonsCreated)},
		{"queue_items_added", count(stats.Throughput.QueueItemsAdded)},
		{"auto_merges", count(stats.Throughput.AutoMerges)},
		{"review_merges", count(stats.Throughput.ReviewMerges)},
	})
}
