// Package analytics holds the per-corpus aggregate computations. Every function
// is pure and safe to run concurrently over the same read-only corpus.
package analytics

import (
	"regexp"
	"sort"
	"strings"

	"github.com/azure/brand-analytics/internal/models"
)

const (
	maxHashtags = 15
	maxWords    = 20
)

var (
	hashtagPattern = regexp.MustCompile(`#\w+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	wordPattern    = regexp.MustCompile(`\b\w+\b`)
)

var wordStopWords = map[string]bool{
	"the": true, "is": true, "at": true, "which": true, "on": true, "a": true, "an": true,
	"and": true, "or": true, "but": true, "in": true, "with": true, "to": true, "for": true,
	"of": true, "as": true, "by": true, "that": true, "this": true, "it": true, "from": true,
	"are": true, "be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"should": true, "could": true, "may": true, "might": true, "must": true, "can": true,
}

// ExtractHashtags returns the lowercased hashtags of text in order of appearance
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	for i, m := range matches {
		matches[i] = strings.ToLower(m)
	}
	return matches
}

// Hashtags counts hashtag usage and engagement, most used first
func Hashtags(posts []models.Post) []models.HashtagStat {
	index := make(map[string]int)
	var stats []models.HashtagStat

	for _, post := range posts {
		engagement := post.Engagement()
		for _, tag := range ExtractHashtags(post.Text) {
			i, ok := index[tag]
			if !ok {
				i = len(stats)
				index[tag] = i
				stats = append(stats, models.HashtagStat{Tag: tag})
			}
			stats[i].Count++
			stats[i].TotalEngagement += engagement
		}
	}

	for i := range stats {
		stats[i].Recompute()
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Count > stats[j].Count
	})

	if len(stats) > maxHashtags {
		stats = stats[:maxHashtags]
	}
	if stats == nil {
		stats = []models.HashtagStat{}
	}
	return stats
}

// WordFrequencies counts words longer than three characters, most used first
func WordFrequencies(posts []models.Post) []models.WordFrequency {
	index := make(map[string]int)
	var words []models.WordFrequency

	for _, post := range posts {
		for _, word := range wordPattern.FindAllString(strings.ToLower(post.Text), -1) {
			if len(word) <= 3 || wordStopWords[word] {
				continue
			}
			i, ok := index[word]
			if !ok {
				i = len(words)
				index[word] = i
				words = append(words, models.WordFrequency{Word: word})
			}
			words[i].Count++
		}
	}

	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Count > words[j].Count
	})

	if len(words) > maxWords {
		words = words[:maxWords]
	}
	if words == nil {
		words = []models.WordFrequency{}
	}
	return words
}
