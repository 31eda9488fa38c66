package topics

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	urlPattern         = regexp.MustCompile(`(?i)https?://\S+`)
	hashtagPattern     = regexp.MustCompile(`#\w+`)
	mentionPattern     = regexp.MustCompile(`@\w+`)
	punctuationPattern = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
	numericPattern     = regexp.MustCompile(`^[0-9]+$`)
)

var stopWords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		the is at which on a an and or but in with to for
		of as by that this it from are be been being have has
		had do does did will would should could may might must can
		your our my his her its their what who when where why how
		movie watch show streaming content series film video tweet twitter
		like said just also get got one two new
		http https www com co now more all out only here there`) {
		stopWords[w] = true
	}
}

// Tokenize lowercases text, strips urls, hashtags, mentions and punctuation,
// and keeps words longer than three characters that are not stop words
func Tokenize(text string) []string {
	cleaned := strings.ToLower(text)
	cleaned = urlPattern.ReplaceAllString(cleaned, "")
	cleaned = hashtagPattern.ReplaceAllString(cleaned, "")
	cleaned = mentionPattern.ReplaceAllString(cleaned, "")
	cleaned = punctuationPattern.ReplaceAllString(cleaned, " ")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) > 3 && !stopWords[word] {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// termStat is the corpus-wide TF-IDF mass of a term and the number of documents holding it
type termStat struct {
	term      string
	score     float64
	frequency int
}

// scoreTerms sums per-document TF-IDF over docs. Every doc must be non-empty.
func scoreTerms(docs [][]string) map[string]*termStat {
	docFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, token := range doc {
			if !seen[token] {
				seen[token] = true
				docFreq[token]++
			}
		}
	}

	totalDocs := float64(len(docs))
	stats := make(map[string]*termStat)

	for _, doc := range docs {
		tf := make(map[string]float64, len(doc))
		for _, token := range doc {
			tf[token] += 1 / float64(len(doc))
		}
		for token, value := range tf {
			idf := math.Log(totalDocs / float64(docFreq[token]))
			s, ok := stats[token]
			if !ok {
				s = &termStat{term: token}
				stats[token] = s
			}
			s.score += value * idf
			s.frequency++
		}
	}
	return stats
}

// rankTerms filters out rare, url-like and numeric terms and sorts the rest by score
func rankTerms(stats map[string]*termStat, docsWithTokens int) []termStat {
	minFrequency := int(math.Floor(float64(docsWithTokens) * 0.05))
	if minFrequency < 2 {
		minFrequency = 2
	}

	var ranked []termStat
	for _, s := range stats {
		if s.frequency < minFrequency ||
			utf8.RuneCountInString(s.term) < 4 ||
			strings.Contains(s.term, "http") ||
			strings.Contains(s.term, "www") ||
			numericPattern.MatchString(s.term) {
			continue
		}
		ranked = append(ranked, *s)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].term < ranked[j].term
	})
	return ranked
}
