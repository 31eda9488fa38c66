package topics

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// LabelPattern maps a small keyword set to a category name
type LabelPattern struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DefaultLabelPatterns are checked in order; the first overlap wins
var DefaultLabelPatterns = []LabelPattern{
	{Name: "Streaming Content", Keywords: []string{"stream", "watch", "episode", "season", "series"}},
	{Name: "Movies & Films", Keywords: []string{"movie", "film", "cinema", "premiere"}},
	{Name: "TV Shows", Keywords: []string{"show", "series", "episode", "season"}},
	{Name: "Disney Franchises", Keywords: []string{"disney", "pixar", "marvel", "starwars"}},
	{Name: "Netflix Originals", Keywords: []string{"netflix", "originals", "exclusive"}},
	{Name: "Sports & Live Events", Keywords: []string{"sports", "game", "match", "live"}},
	{Name: "News & Updates", Keywords: []string{"news", "announcement", "update"}},
	{Name: "New Releases", Keywords: []string{"release", "premiere", "launch", "coming"}},
	{Name: "Family Content", Keywords: []string{"kids", "family", "children"}},
	{Name: "Documentaries", Keywords: []string{"documentary", "true", "story"}},
	{Name: "Comedy", Keywords: []string{"comedy", "funny", "laugh"}},
	{Name: "Drama & Thriller", Keywords: []string{"drama", "thriller", "mystery"}},
	{Name: "Action & Adventure", Keywords: []string{"action", "adventure", "hero"}},
	{Name: "Subscriptions", Keywords: []string{"subscribe", "subscription", "membership"}},
	{Name: "User Experience", Keywords: []string{"your", "watch", "enjoy"}},
}

type labelFile struct {
	Patterns []LabelPattern `yaml:"patterns"`
}

// LoadLabelPatterns reads category patterns from a YAML file of the form
//
//	patterns:
//	  - name: Streaming Content
//	    keywords: [stream, episode]
func LoadLabelPatterns(path string) ([]LabelPattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label patterns: %w", err)
	}

	var file labelFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse label patterns: %w", err)
	}

	var patterns []LabelPattern
	for _, p := range file.Patterns {
		if p.Name == "" || len(p.Keywords) == 0 {
			continue
		}
		for i, kw := range p.Keywords {
			p.Keywords[i] = strings.ToLower(strings.TrimSpace(kw))
		}
		patterns = append(patterns, p)
	}

	if len(patterns) == 0 {
		return nil, fmt.Errorf("label patterns file %s defines no usable patterns", path)
	}
	return patterns, nil
}

// Label names a keyword cluster, falling back to "<Keyword> Discussion"
func Label(keywords []string, patterns []LabelPattern) string {
	for _, pattern := range patterns {
		for _, kw := range keywords {
			if kw == "" {
				continue
			}
			for _, p := range pattern.Keywords {
				if p == "" {
					continue
				}
				if strings.Contains(kw, p) || strings.Contains(p, kw) {
					return pattern.Name
				}
			}
		}
	}

	if len(keywords) == 0 || keywords[0] == "" {
		return "General Discussion"
	}
	runes := []rune(keywords[0])
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes) + " Discussion"
}
