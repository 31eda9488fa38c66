package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/azure/brand-analytics/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Column aliases, checked in order. The first non-empty value wins.
var (
	idColumns        = []string{"id_str", "id", "conversation_id_str", "ID"}
	textColumns      = []string{"full_text", "text", "Text", "Full Text", "tweet_text", "content", "Content"}
	createdAtColumns = []string{"created_at", "date", "Date", "timestamp"}
	likeColumns      = []string{"favorite_count", "likes", "Likes"}
	repostColumns    = []string{"retweet_count", "retweets", "Retweets"}
	replyColumns     = []string{"reply_count", "replies", "Replies"}
	quoteColumns     = []string{"quote_count", "quotes", "Quotes"}
	urlColumns       = []string{"tweet_url", "url", "URL"}
	usernameColumns  = []string{"username", "Username", "screen_name"}
	imageColumns     = []string{"image_url", "media_url"}
	replyToColumns   = []string{"in_reply_to_screen_name", "reply_to"}
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RubyDate, // Twitter API v1.1: "Mon Jan 02 15:04:05 -0700 2006"
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Builder converts CSV records into posts
type Builder struct {
	now   func() time.Time
	newID func() string
}

// NewBuilder creates a Builder using the wall clock and random ids
func NewBuilder() *Builder {
	return &Builder{
		now:   time.Now,
		newID: func() string { return "post_" + uuid.NewString() },
	}
}

// BuildPosts converts records with a default Builder
func BuildPosts(records []Record) []models.Post {
	return NewBuilder().BuildAll(records)
}

// BuildAll converts every record, preserving order
func (b *Builder) BuildAll(records []Record) []models.Post {
	posts := make([]models.Post, 0, len(records))
	for _, record := range records {
		posts = append(posts, b.Build(record))
	}
	logrus.Debugf("Built %d posts from %d records", len(posts), len(records))
	return posts
}

// Build resolves one record into a post, defaulting anything missing
func (b *Builder) Build(record Record) models.Post {
	id := lookup(record, idColumns)
	if id == "" {
		id = b.newID()
	}

	createdAt := b.now().UTC()
	if raw := lookup(record, createdAtColumns); raw != "" {
		createdAt = ParseTimestamp(raw)
	}

	url := lookup(record, urlColumns)
	if url == "" {
		url = fmt.Sprintf("https://twitter.com/twitter/status/%s", id)
	}

	return models.Post{
		ID:          id,
		Text:        lookup(record, textColumns),
		CreatedAt:   createdAt,
		LikeCount:   ParseCount(lookup(record, likeColumns)),
		RepostCount: ParseCount(lookup(record, repostColumns)),
		ReplyCount:  ParseCount(lookup(record, replyColumns)),
		QuoteCount:  ParseCount(lookup(record, quoteColumns)),
		URL:         url,
		Username:    lookup(record, usernameColumns),
		ImageURL:    lookup(record, imageColumns),
		InReplyTo:   lookup(record, replyToColumns),
	}
}

func lookup(record Record, aliases []string) string {
	for _, alias := range aliases {
		if value, ok := record[alias]; ok && value != "" {
			return value
		}
	}
	return ""
}

// ParseCount reads the leading integer of s. Anything unparseable or negative yields 0.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// ParseTimestamp accepts the layouts seen in common exports and unix seconds.
// It returns the zero time when nothing matches.
func ParseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC()
	}
	return time.Time{}
}
