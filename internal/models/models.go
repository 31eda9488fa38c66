package models

import (
	"math"
	"time"
)

// Post represents a single social-media post taken from an export
type Post struct {
	ID          string    `json:"id_str"`
	Text        string    `json:"full_text"`
	CreatedAt   time.Time `json:"created_at"` // zero when the source timestamp could not be parsed
	LikeCount   int       `json:"favorite_count"`
	RepostCount int       `json:"retweet_count"`
	ReplyCount  int       `json:"reply_count"`
	QuoteCount  int       `json:"quote_count"`
	URL         string    `json:"tweet_url"`
	Username    string    `json:"username,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	InReplyTo   string    `json:"in_reply_to_screen_name,omitempty"`
}

// Engagement is the sum of all interaction counters of the post
func (p Post) Engagement() int {
	return p.LikeCount + p.RepostCount + p.ReplyCount + p.QuoteCount
}

// HasTimestamp reports whether the post can take part in time-based aggregates
func (p Post) HasTimestamp() bool {
	return !p.CreatedAt.IsZero()
}

// HashtagStat holds usage and engagement for one hashtag
type HashtagStat struct {
	Tag             string `json:"tag"`
	Count           int    `json:"count"`
	TotalEngagement int    `json:"total_engagement"`
	AvgEngagement   int    `json:"avg_engagement"`
}

// NewHashtagStat builds a stat with the average derived from the totals
func NewHashtagStat(tag string, count, totalEngagement int) HashtagStat {
	h := HashtagStat{Tag: tag, Count: count, TotalEngagement: totalEngagement}
	h.Recompute()
	return h
}

// Recompute derives AvgEngagement from TotalEngagement and Count
func (h *HashtagStat) Recompute() {
	if h.Count <= 0 {
		h.AvgEngagement = 0
		return
	}
	h.AvgEngagement = int(math.Round(float64(h.TotalEngagement) / float64(h.Count)))
}

// WordFrequency is a word and the number of times it was used
type WordFrequency struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Topic is a labeled cluster of keywords discovered in a corpus
type Topic struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Keywords   []string `json:"keywords"`
	Weight     float64  `json:"weight"`
	TweetCount int      `json:"tweetCount"`
}

// Sentiment sources
const (
	SentimentSourceRemote    = "remote"
	SentimentSourceHeuristic = "heuristic"
)

// SentimentDistribution is the 3-way split of a corpus with example posts per class
type SentimentDistribution struct {
	PositivePct      float64 `json:"positive"`
	NeutralPct       float64 `json:"neutral"`
	NegativePct      float64 `json:"negative"`
	PositiveExamples []Post  `json:"positiveExamples"`
	NeutralExamples  []Post  `json:"neutralExamples"`
	NegativeExamples []Post  `json:"negativeExamples"`
	Source           string  `json:"source,omitempty"`
}

// DefaultSentiment is the distribution reported for an empty corpus
func DefaultSentiment() SentimentDistribution {
	return SentimentDistribution{
		PositivePct:      0,
		NeutralPct:       100,
		NegativePct:      0,
		PositiveExamples: []Post{},
		NeutralExamples:  []Post{},
		NegativeExamples: []Post{},
		Source:           SentimentSourceHeuristic,
	}
}

// PostingTimeBucket aggregates posts published in one hour of the day
type PostingTimeBucket struct {
	Hour            int `json:"hour"`
	Count           int `json:"count"`
	AvgEngagement   int `json:"avgEngagement"`
	TotalEngagement int `json:"totalEngagement"`
}

// TrendPoint aggregates posts published on one calendar date
type TrendPoint struct {
	Date            string   `json:"date"`
	Count           int      `json:"count"`
	AvgEngagement   int      `json:"avgEngagement"`
	TotalEngagement int      `json:"totalEngagement"`
	TopHashtags     []string `json:"topHashtags"`
}

// EngagementComposition breaks total engagement down by interaction type
type EngagementComposition struct {
	TotalEngagement       int     `json:"totalEngagement"`
	AvgEngagementPerTweet int     `json:"avgEngagementPerTweet"`
	EngagementRate        float64 `json:"engagementRate"`
	LikeRate              float64 `json:"likeRate"`
	RetweetRate           float64 `json:"retweetRate"`
	ReplyRate             float64 `json:"replyRate"`
	QuoteRate             float64 `json:"quoteRate"`
}

// SocialListeningSummary lists mentions, hashtags and keywords found in a corpus
type SocialListeningSummary struct {
	TopMentions  []string `json:"topMentions"`
	TopHashtags  []string `json:"topHashtags"`
	TopKeywords  []string `json:"topKeywords"`
	MentionCount int      `json:"mentionCount"`
	HashtagCount int      `json:"hashtagCount"`
	TimeRange    string   `json:"timeRange"`
}

// Account is the assembled analytics record for one tracked brand or handle.
// It is built once per upload and replaced wholesale on re-upload.
type Account struct {
	ID               string                 `json:"id"`
	Username         string                 `json:"username"`
	TotalTweets      int                    `json:"total_tweets"`
	Followers        int                    `json:"followers"`
	FollowersKnown   bool                   `json:"followers_known"`
	EngagementRate   float64                `json:"engagement_rate"`
	Posts            []Post                 `json:"posts"`
	TopPosts         []Post                 `json:"top_tweets"`
	Hashtags         []HashtagStat          `json:"top_hashtags"`
	Words            []WordFrequency        `json:"word_frequency"`
	Topics           []Topic                `json:"topics"`
	Sentiment        SentimentDistribution  `json:"sentiment"`
	PostingTimes     []PostingTimeBucket    `json:"postingTimes"`
	Trends           []TrendPoint           `json:"trends"`
	Engagement       EngagementComposition  `json:"engagementMetrics"`
	SocialListening  SocialListeningSummary `json:"socialListening"`
	AvgPostLength    int                    `json:"avg_tweet_length"`
	PostingFrequency float64                `json:"posting_frequency"`
	MostActiveHour   int                    `json:"most_active_hour"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

// Brand identifies an uploaded data set
type Brand struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Report is a delivered snapshot of the current dashboard
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Period      string           `json:"period"`
	Mode        string           `json:"mode"`
	Brands      []BrandSummary   `json:"brands"`
	Comparison  []ComparisonLine `json:"comparison,omitempty"`
}

// BrandSummary is the per-brand section of a Report
type BrandSummary struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	TotalTweets    int      `json:"total_tweets"`
	EngagementRate float64  `json:"engagement_rate"`
	PositivePct    float64  `json:"positive_pct"`
	NegativePct    float64  `json:"negative_pct"`
	TopHashtags    []string `json:"top_hashtags"`
	TopTopics      []string `json:"top_topics"`
}

// ComparisonLine is one metric compared across the two primary brands
type ComparisonLine struct {
	Label  string  `json:"label"`
	A      float64 `json:"a"`
	B      float64 `json:"b"`
	Leader string  `json:"leader"`
}
