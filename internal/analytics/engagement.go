package analytics

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/azure/brand-analytics/internal/models"
)

const (
	maxListeningItems = 10
	topPostsLimit     = 5
)

// Engagement computes the engagement composition of a corpus.
// EngagementRate is total/(posts*100) to two decimals, a fixed heuristic that does
// not depend on follower counts.
func Engagement(posts []models.Post) models.EngagementComposition {
	var likes, reposts, replies, quotes int
	for _, post := range posts {
		likes += post.LikeCount
		reposts += post.RepostCount
		replies += post.ReplyCount
		quotes += post.QuoteCount
	}
	total := likes + reposts + replies + quotes

	result := models.EngagementComposition{TotalEngagement: total}
	if n := len(posts); n > 0 {
		result.AvgEngagementPerTweet = int(math.Round(float64(total) / float64(n)))
		result.EngagementRate = round2(float64(total) / float64(n*100))
	}
	if total > 0 {
		result.LikeRate = share(likes, total)
		result.RetweetRate = share(reposts, total)
		result.ReplyRate = share(replies, total)
		result.QuoteRate = share(quotes, total)
	}
	return result
}

func share(part, total int) float64 {
	return math.Round(float64(part) / float64(total) * 100)
}

// SocialListening summarizes mentions, hashtags and keywords of a corpus
func SocialListening(posts []models.Post, words []models.WordFrequency, trends []models.TrendPoint) models.SocialListeningSummary {
	var mentions, hashtags []string
	for _, post := range posts {
		for _, m := range mentionPattern.FindAllString(post.Text, -1) {
			mentions = append(mentions, strings.ToLower(m))
		}
		hashtags = append(hashtags, ExtractHashtags(post.Text)...)
	}

	rankedMentions := rankDistinct(mentions)
	rankedHashtags := rankDistinct(hashtags)

	keywords := make([]string, 0, maxListeningItems)
	for i, w := range words {
		if i >= maxListeningItems {
			break
		}
		keywords = append(keywords, w.Word)
	}

	timeRange := "Dataset"
	if len(trends) > 0 {
		timeRange = trends[0].Date + " to " + trends[len(trends)-1].Date
	}

	return models.SocialListeningSummary{
		TopMentions:  limit(rankedMentions, maxListeningItems),
		TopHashtags:  limit(rankedHashtags, maxListeningItems),
		TopKeywords:  keywords,
		MentionCount: len(rankedMentions),
		HashtagCount: len(rankedHashtags),
		TimeRange:    timeRange,
	}
}

// rankDistinct orders distinct values by frequency, first seen first on ties
func rankDistinct(values []string) []string {
	counts := make(map[string]int)
	var distinct []string
	for _, v := range values {
		if counts[v] == 0 {
			distinct = append(distinct, v)
		}
		counts[v]++
	}
	sort.SliceStable(distinct, func(i, j int) bool {
		return counts[distinct[i]] > counts[distinct[j]]
	})
	return distinct
}

func limit(values []string, n int) []string {
	if len(values) > n {
		values = values[:n]
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// TopPosts returns copies of the most engaging posts
func TopPosts(posts []models.Post) []models.Post {
	sorted := make([]models.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Engagement() > sorted[j].Engagement()
	})
	if len(sorted) > topPostsLimit {
		sorted = sorted[:topPostsLimit]
	}
	return sorted
}

// AvgPostLength is the mean body length in characters
func AvgPostLength(posts []models.Post) int {
	if len(posts) == 0 {
		return 0
	}
	total := 0
	for _, post := range posts {
		total += utf8.RuneCountInString(post.Text)
	}
	return int(math.Round(float64(total) / float64(len(posts))))
}
