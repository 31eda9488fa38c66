// Package reconcile normalizes account-like payloads from every known source into
// one canonical record and decides between single-account and comparison views.
package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/azure/brand-analytics/internal/models"
	"github.com/azure/brand-analytics/internal/topics"
	"github.com/sirupsen/logrus"
)

// MaxAccounts is the number of accounts a view retains
const MaxAccounts = 5

var (
	// ErrNoAccounts is returned when there is nothing to reconcile
	ErrNoAccounts = errors.New("no accounts to reconcile")
	// ErrNotEnoughAccounts is returned when a comparison needs a second account
	ErrNotEnoughAccounts = errors.New("not enough data to compare")
	// ErrMalformed is returned when persisted data cannot be decoded
	ErrMalformed = errors.New("malformed account data")
)

// Mode is the presentation mode of a view
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeComparison Mode = "comparison"
)

// View is the reconciled set of accounts
type View struct {
	Mode     Mode             `json:"mode"`
	Accounts []models.Account `json:"accounts"`
}

// Reconcile normalizes up to MaxAccounts payloads. The mode depends only on how
// many accounts are present.
func Reconcile(payloads []Payload) (View, error) {
	if len(payloads) == 0 {
		return View{}, ErrNoAccounts
	}
	if len(payloads) > MaxAccounts {
		logrus.Warnf("Received %d accounts, keeping the first %d", len(payloads), MaxAccounts)
		payloads = payloads[:MaxAccounts]
	}

	accounts := make([]models.Account, 0, len(payloads))
	for _, p := range payloads {
		accounts = append(accounts, p.Normalize())
	}

	mode := ModeSingle
	if len(accounts) >= 2 {
		mode = ModeComparison
	}

	return View{Mode: mode, Accounts: accounts}, nil
}

// ReconcileJSON decodes a JSON array of payloads and reconciles it.
// Empty input or an empty array yields ErrNoAccounts; anything undecodable
// yields an error wrapping ErrMalformed.
func ReconcileJSON(data []byte) (View, error) {
	payloads, err := DecodeAll(data)
	if err != nil {
		return View{}, err
	}
	return Reconcile(payloads)
}

// DecodeAll decodes a JSON array of payloads
func DecodeAll(data []byte) ([]Payload, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoAccounts
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) == 0 {
		return nil, ErrNoAccounts
	}

	payloads := make([]Payload, 0, len(raw))
	for i, item := range raw {
		p, err := DecodePayload(item)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformed, i, err)
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

// Primary returns the accounts shown side by side: the first two in
// comparison mode, the only one in single mode
func (v View) Primary() []models.Account {
	n := 1
	if v.Mode == ModeComparison {
		n = 2
	}
	if len(v.Accounts) < n {
		n = len(v.Accounts)
	}
	return v.Accounts[:n]
}

// Comparison is the two-way metric comparison of the primary pair
type Comparison struct {
	A       models.Account          `json:"a"`
	B       models.Account          `json:"b"`
	Metrics []models.ComparisonLine `json:"metrics"`
}

// Comparison compares the primary pair on followers, volume, engagement and sentiment
func (v View) Comparison() (Comparison, error) {
	if v.Mode != ModeComparison || len(v.Accounts) < 2 {
		return Comparison{}, ErrNotEnoughAccounts
	}

	a, b := v.Accounts[0], v.Accounts[1]
	followers := line("Total Followers", float64(a.Followers), float64(b.Followers), a, b)
	if !a.FollowersKnown || !b.FollowersKnown {
		followers.Leader = "unknown"
	}

	return Comparison{
		A: a,
		B: b,
		Metrics: []models.ComparisonLine{
			followers,
			line("Total Tweets", float64(a.TotalTweets), float64(b.TotalTweets), a, b),
			line("Engagement Rate", a.EngagementRate, b.EngagementRate, a, b),
			line("Positive Sentiment", a.Sentiment.PositivePct, b.Sentiment.PositivePct, a, b),
		},
	}, nil
}

func line(label string, va, vb float64, a, b models.Account) models.ComparisonLine {
	l := models.ComparisonLine{Label: label, A: va, B: vb, Leader: "tie"}
	switch {
	case va > vb:
		l.Leader = DisplayName(a)
	case vb > va:
		l.Leader = DisplayName(b)
	}
	return l
}

// DisplayName is the username of an account, its id when the username is empty
func DisplayName(a models.Account) string {
	if a.Username != "" {
		return a.Username
	}
	return a.ID
}

// finalize applies the canonical invariants: non-nil lists, recomputed hashtag
// averages, normalized topic weights and ordered time series
func finalize(a models.Account) models.Account {
	if a.Posts == nil {
		a.Posts = []models.Post{}
	}
	if a.TopPosts == nil {
		a.TopPosts = []models.Post{}
	}
	if a.Words == nil {
		a.Words = []models.WordFrequency{}
	}

	hashtags := make([]models.HashtagStat, len(a.Hashtags))
	for i, h := range a.Hashtags {
		h.Recompute()
		hashtags[i] = h
	}
	a.Hashtags = hashtags

	ts := topics.NormalizeWeights(a.Topics)
	for i := range ts {
		if ts[i].Label == "" {
			ts[i].Label = topics.Label(ts[i].Keywords, topics.DefaultLabelPatterns)
		}
		if ts[i].Keywords == nil {
			ts[i].Keywords = []string{}
		}
	}
	a.Topics = ts

	trends := make([]models.TrendPoint, len(a.Trends))
	copy(trends, a.Trends)
	sort.SliceStable(trends, func(i, j int) bool { return trends[i].Date < trends[j].Date })
	a.Trends = trends

	buckets := make([]models.PostingTimeBucket, len(a.PostingTimes))
	copy(buckets, a.PostingTimes)
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Hour < buckets[j].Hour })
	a.PostingTimes = buckets

	if a.Sentiment.PositiveExamples == nil {
		a.Sentiment.PositiveExamples = []models.Post{}
	}
	if a.Sentiment.NeutralExamples == nil {
		a.Sentiment.NeutralExamples = []models.Post{}
	}
	if a.Sentiment.NegativeExamples == nil {
		a.Sentiment.NegativeExamples = []models.Post{}
	}

	if a.SocialListening.TopMentions == nil {
		a.SocialListening.TopMentions = []string{}
	}
	if a.SocialListening.TopHashtags == nil {
		a.SocialListening.TopHashtags = []string{}
	}
	if a.SocialListening.TopKeywords == nil {
		a.SocialListening.TopKeywords = []string{}
	}

	if !a.FollowersKnown {
		a.Followers = 0
	}
	return a
}
