package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"

	"credibility-stack/agents/credibility-checker"
	"credibility-stack/internal/models"
	"credibility-stack/shared/analysis"
	"credibility-stack/shared/config"
	"credibility-stack/shared/monitoring"
	"credibility-stack/shared/scheduler"
)

func main() {
	keyword := flag.String("keyword", "", "search keyword (prompted for when empty)")
	maxResults := flag.Int64("max-results", 0, "maximum number of videos to fetch (1-50)")
	once := flag.Bool("once", true, "run a single analysis and print it; false runs on the configured schedule")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	maxSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "max-results" {
			maxSet = true
		}
	})

	if *keyword != "" {
		cfg.Search.Keyword = *keyword
	}
	if maxSet {
		cfg.Search.MaxResults = *maxResults
	}

	if cfg.Search.Keyword == "" {
		if err := promptSearch(bufio.NewReader(os.Stdin), os.Stdout, &cfg.Search, !maxSet); err != nil {
			log.Fatalf("Invalid input: %v", err)
		}
	}
	if cfg.Search.MaxResults < 1 || cfg.Search.MaxResults > 50 {
		log.Fatalf("max results must be between 1 and 50, got %d", cfg.Search.MaxResults)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	monitor := monitoring.NewMonitor()
	agent := credibilitychecker.NewCredibilityAgent(cfg, monitor)
	defer agent.Close()
	s := scheduler.New(cfg, agent, monitor)

	if !*once {
		fmt.Printf("Monitoring %q on schedule %s...\n", cfg.Search.Keyword, cfg.Schedule)
		if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("Scheduler failed: %v", err)
		}
		return
	}

	if err := agent.Initialize(); err != nil {
		log.Fatalf("Failed to initialize agent: %v", err)
	}
	if err := s.RunOnce(ctx); err != nil {
		log.Fatalf("Failed to run: %v", err)
	}

	printReport(os.Stdout, agent.LastReport())
}

// promptSearch asks for the keyword and, when askMax is set, the number of
// videos to fetch.
func promptSearch(in *bufio.Reader, out io.Writer, search *config.SearchConfig, askMax bool) error {
	fmt.Fprint(out, "Enter the keyword to search for: ")
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read keyword: %w", err)
	}
	search.Keyword = strings.TrimSpace(line)
	if search.Keyword == "" {
		return credibilitychecker.ErrNoKeyword
	}

	if !askMax {
		return nil
	}

	fmt.Fprint(out, "Enter the maximum number of videos to fetch: ")
	line, err = in.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read maximum number of videos: %w", err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return fmt.Errorf("maximum number of videos must be a whole number: %w", err)
	}
	search.MaxResults = n
	return nil
}

func printReport(w io.Writer, report *models.Report) {
	if report == nil {
		return
	}

	for _, video := range report.Videos {
		fmt.Fprintln(w, "Video Title:", video.Title)
		fmt.Fprintln(w, "Channel Title:", video.ChannelTitle)
		fmt.Fprintln(w, "Video Link:", models.WatchURL(video.ID))
		fmt.Fprintln(w)
	}

	c := report.Conclusion
	avgViews, avgLikes := "0", "0"
	if !c.NoComments {
		avgViews, avgLikes = analysis.FormatAverage(c.AvgViews), analysis.FormatAverage(c.AvgLikes)
	}

	fmt.Fprintln(w, "Conclusion Sentiment:", c.SentimentLabel())
	fmt.Fprintln(w, "Average Views:", avgViews)
	fmt.Fprintln(w, "Average Likes:", avgLikes)
	fmt.Fprintln(w, "Common Themes:", listLiteral(c.Themes))
	fmt.Fprintln(w, "Comparison Result:", c.ComparisonText())
	fmt.Fprintln(w, "Trend Analysis:", c.TrendText())

	if a := report.Assessment; a != nil {
		fmt.Fprintf(w, "\nAssessment: %s (%d/10) - %s\n", a.Verdict, a.Confidence, a.Summary)
	}
	if p := report.Previous; p != nil {
		fmt.Fprintf(w, "Previous run (%s): %s sentiment, %s average views\n",
			humanize.Time(p.RanAt), p.Sentiment, analysis.FormatAverage(p.AvgViews))
	}
}

// listLiteral renders themes as a bracketed, single-quoted list: ['a', 'b'].
func listLiteral(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + strings.ReplaceAll(item, "'", `\'`) + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
