package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/azure/brand-analytics/internal/classifier"
	"github.com/azure/brand-analytics/internal/config"
	"github.com/joho/godotenv"
)

var sampleTexts = []string{
	"Absolutely love the new season, the finale was incredible",
	"Worst customer support experience I have had in years",
	"New episodes drop on Friday for all subscribers",
	"The pricing update is confusing and disappointing",
	"Season two trailer just dropped and it looks amazing",
}

func main() {
	url := flag.String("url", "", "classifier base URL (defaults to CLASSIFIER_URL)")
	flag.Parse()

	fmt.Println("🔍 Brand Analytics - Classifier Connectivity Test")
	fmt.Println("=================================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	baseURL := cfg.ClassifierURL
	if *url != "" {
		baseURL = *url
	}
	if baseURL == "" {
		log.Fatal("No classifier URL configured, set CLASSIFIER_URL or pass -url")
	}

	client := classifier.NewClient(baseURL, cfg.ClassifierTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), 3*cfg.ClassifierTimeout)
	defer cancel()

	fmt.Printf("\n📡 Probing %s\n", baseURL)
	fmt.Println(strings.Repeat("-", 40))

	ok := true
	ok = probe("Health", func() (string, error) {
		return "reachable", client.Ping(ctx)
	}) && ok

	ok = probe("Sentiment", func() (string, error) {
		labels, err := client.ClassifySentiment(ctx, sampleTexts)
		if err != nil {
			return "", err
		}
		if len(labels) != len(sampleTexts) {
			return "", fmt.Errorf("got %d labels for %d texts", len(labels), len(sampleTexts))
		}
		return strings.Join(labels, ", "), nil
	}) && ok

	ok = probe("Topics", func() (string, error) {
		topics, err := client.ExtractTopics(ctx, sampleTexts, cfg.NumTopics)
		if err != nil {
			return "", err
		}
		labels := make([]string, 0, len(topics))
		for _, t := range topics {
			labels = append(labels, t.Label)
		}
		return fmt.Sprintf("%d topics: %s", len(topics), strings.Join(labels, ", ")), nil
	}) && ok

	if !ok {
		fmt.Println("\n❌ Classifier probe failed, the service will fall back to local analysis")
		return
	}
	fmt.Println("\n✅ Classifier probe completed!")
}

func probe(name string, fn func() (string, error)) bool {
	fmt.Printf("🔸 Testing %s... ", name)
	start := time.Now()

	detail, err := fn()
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return false
	}

	fmt.Printf("✅ SUCCESS in %v (%s)\n", time.Since(start).Round(time.Millisecond), detail)
	return true
}
