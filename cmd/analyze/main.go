package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/azure/brand-analytics/internal/account"
	"github.com/azure/brand-analytics/internal/config"
	"github.com/azure/brand-analytics/internal/ingest"
	"github.com/azure/brand-analytics/internal/models"
	"github.com/azure/brand-analytics/internal/reconcile"
	"github.com/azure/brand-analytics/internal/storage"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	out := flag.String("out", "", "write the reconciled view as JSON to this file")
	split := flag.Bool("split", false, "build one account per author handle instead of one per file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-out view.json] [-split] file1.csv [file2.csv ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.WarnLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	engine, classifier, err := account.Engines(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize analytics engines: %v", err)
	}
	service := account.NewService(cfg, storage.NewMemoryStorage(), engine, classifier)

	ctx := context.Background()
	var payloads []reconcile.Payload
	for _, path := range flag.Args() {
		accounts, err := analyzeFile(ctx, service, path, *split)
		if err != nil {
			log.Fatalf("Failed to analyze %s: %v", path, err)
		}
		for _, a := range accounts {
			payloads = append(payloads, reconcile.AccountPayload(a))
		}
	}

	view, err := reconcile.Reconcile(payloads)
	if err != nil {
		log.Fatalf("Failed to reconcile accounts: %v", err)
	}

	printView(view)

	if *out != "" {
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode view: %v", err)
		}
		if err := os.WriteFile(*out, data, 0644); err != nil {
			log.Fatalf("Failed to write %s: %v", *out, err)
		}
		fmt.Printf("\n💾 View written to %s\n", *out)
	}
}

func analyzeFile(ctx context.Context, service *account.Service, path string, split bool) ([]models.Account, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if !split {
		upload, err := service.ProcessUpload(ctx, filepath.Base(path), content)
		if err != nil {
			return nil, err
		}
		return []models.Account{upload.Account}, nil
	}

	posts := ingest.BuildPosts(ingest.ParseCSV(string(content)))
	grouped := ingest.GroupByUsername(posts)

	usernames := make([]string, 0, len(grouped))
	for username := range grouped {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	accounts := make([]models.Account, 0, len(usernames))
	for _, username := range usernames {
		brand := models.Brand{ID: ingest.Slugify(username), Name: username}
		accounts = append(accounts, service.BuildAccount(ctx, brand, grouped[username]))
	}
	return accounts, nil
}

func printView(view reconcile.View) {
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("📊 BRAND ANALYTICS (%s mode, %d accounts)\n", view.Mode, len(view.Accounts))
	fmt.Println(strings.Repeat("=", 70))

	for _, a := range view.Accounts {
		fmt.Printf("\n🏷️  %s (%s)\n", reconcile.DisplayName(a), a.ID)
		fmt.Printf("   Posts: %d | Engagement rate: %.2f | Posts/day: %.2f\n", a.TotalTweets, a.EngagementRate, a.PostingFrequency)
		fmt.Printf("   Sentiment: %.0f%% positive, %.0f%% neutral, %.0f%% negative (%s)\n",
			a.Sentiment.PositivePct, a.Sentiment.NeutralPct, a.Sentiment.NegativePct, a.Sentiment.Source)
		fmt.Printf("   Most active hour: %02d:00 | Time range: %s\n", a.MostActiveHour, a.SocialListening.TimeRange)

		if len(a.Hashtags) > 0 {
			tags := make([]string, 0, 5)
			for i, h := range a.Hashtags {
				if i == 5 {
					break
				}
				tags = append(tags, fmt.Sprintf("%s (%d)", h.Tag, h.Count))
			}
			fmt.Printf("   Top hashtags: %s\n", strings.Join(tags, ", "))
		}
		for _, t := range a.Topics {
			fmt.Printf("   • %-22s %.2f  [%s]\n", t.Label, t.Weight, strings.Join(t.Keywords, ", "))
		}
	}

	c, err := view.Comparison()
	if err != nil {
		return
	}
	fmt.Printf("\n⚖️  %s vs %s\n", reconcile.DisplayName(c.A), reconcile.DisplayName(c.B))
	for _, line := range c.Metrics {
		fmt.Printf("   %-20s %10.2f %10.2f   leader: %s\n", line.Label, line.A, line.B, line.Leader)
	}
}
