package ingest

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/azure/brand-analytics/internal/models"
	"github.com/sirupsen/logrus"
)

// Validate drops posts without a body or an id, keeping order
func Validate(posts []models.Post) []models.Post {
	valid := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		if strings.TrimSpace(post.Text) == "" || post.ID == "" {
			continue
		}
		valid = append(valid, post)
	}

	if dropped := len(posts) - len(valid); dropped > 0 {
		logrus.Infof("Validated %d posts out of %d (%d dropped)", len(valid), len(posts), dropped)
	}
	return valid
}

// GroupByUsername splits a mixed export by author handle
func GroupByUsername(posts []models.Post) map[string][]models.Post {
	grouped := make(map[string][]models.Post)
	for _, post := range posts {
		username := post.Username
		if username == "" {
			username = "unknown"
		}
		grouped[username] = append(grouped[username], post)
	}
	return grouped
}

var (
	separatorRun = regexp.MustCompile(`[\s\-_]+`)
	nonSlugChars = regexp.MustCompile(`[^a-z0-9_]`)
)

// BrandFromFilename derives the brand identity from an upload filename,
// e.g. "netflix_tweets.csv" becomes {netflix_tweets, Netflix Tweets}
func BrandFromFilename(filename string) models.Brand {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}

	words := strings.Fields(separatorRun.ReplaceAllString(base, " "))
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	name := strings.Join(words, " ")

	return models.Brand{ID: Slugify(name), Name: name}
}

// Slugify turns a display name into an id safe for filenames and URLs
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = separatorRun.ReplaceAllString(slug, "_")
	return nonSlugChars.ReplaceAllString(slug, "")
}
