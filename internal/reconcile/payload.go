package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/azure/brand-analytics/internal/ingest"
	"github.com/azure/brand-analytics/internal/models"
)

// Kind identifies the shape a payload arrived in
type Kind int

const (
	// KindAccount is a flat account record, assembled locally or returned by a backend
	KindAccount Kind = iota + 1
	// KindBrand is a backend upload response of the form {brand:{...}, analytics:{...}}
	KindBrand
)

func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindBrand:
		return "brand"
	default:
		return "unknown"
	}
}

// Payload is one account-like record waiting to be normalized
type Payload struct {
	Kind Kind

	local   *models.Account
	account *accountWire
	brand   *brandWire
}

// AccountPayload wraps a locally assembled account
func AccountPayload(a models.Account) Payload {
	return Payload{Kind: KindAccount, local: &a}
}

// DecodePayload decides the payload kind from its JSON shape and decodes it
func DecodePayload(raw []byte) (Payload, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Payload{}, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	if probe == nil {
		return Payload{}, fmt.Errorf("payload is null")
	}

	if b, ok := probe["brand"]; ok && isObject(b) {
		var w brandWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return Payload{}, fmt.Errorf("failed to decode brand payload: %w", err)
		}
		return Payload{Kind: KindBrand, brand: &w}, nil
	}

	var w accountWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Payload{}, fmt.Errorf("failed to decode account payload: %w", err)
	}
	return Payload{Kind: KindAccount, account: &w}, nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// ID is the account identifier carried by the payload
func (p Payload) ID() string {
	switch {
	case p.local != nil:
		return p.local.ID
	case p.account != nil:
		return p.account.id()
	case p.brand != nil:
		return string(p.brand.Brand.ID)
	}
	return ""
}

// Normalize converts the payload into the canonical account record.
// Absent scalars become zero and absent lists become empty; nothing is invented.
func (p Payload) Normalize() models.Account {
	var a models.Account
	switch {
	case p.local != nil:
		a = *p.local
	case p.account != nil:
		a = p.account.toAccount()
	case p.brand != nil:
		a = p.brand.toAccount()
	}
	return finalize(a)
}

// number accepts JSON numbers, numeric strings and null. Anything else reads as 0.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = 0
		return nil
	}
	*n = number(f)
	return nil
}

func (n number) int() int {
	if n < 0 {
		return 0
	}
	return int(math.Round(float64(n)))
}

// flexString accepts JSON strings and numbers
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	if string(b) == "null" {
		*s = ""
		return nil
	}
	*s = flexString(b)
	return nil
}

type postWire struct {
	IDStr     flexString `json:"id_str"`
	ID        flexString `json:"id"`
	FullText  string     `json:"full_text"`
	Text      string     `json:"text"`
	CreatedAt flexString `json:"created_at"`
	Likes     number     `json:"favorite_count"`
	Reposts   number     `json:"retweet_count"`
	Replies   number     `json:"reply_count"`
	Quotes    number     `json:"quote_count"`
	URL       string     `json:"tweet_url"`
	Username  string     `json:"username"`
	ImageURL  string     `json:"image_url"`
	InReplyTo string     `json:"in_reply_to_screen_name"`
}

func (w postWire) toPost() models.Post {
	post := models.Post{
		ID:          firstNonEmpty(string(w.IDStr), string(w.ID)),
		Text:        firstNonEmpty(w.FullText, w.Text),
		CreatedAt:   ingest.ParseTimestamp(string(w.CreatedAt)),
		LikeCount:   w.Likes.int(),
		RepostCount: w.Reposts.int(),
		ReplyCount:  w.Replies.int(),
		QuoteCount:  w.Quotes.int(),
		URL:         w.URL,
		Username:    w.Username,
		ImageURL:    w.ImageURL,
		InReplyTo:   w.InReplyTo,
	}
	return post
}

func toPosts(in []postWire) []models.Post {
	out := make([]models.Post, 0, len(in))
	for _, w := range in {
		out = append(out, w.toPost())
	}
	return out
}

type hashtagWire struct {
	Tag             string `json:"tag"`
	Hashtag         string `json:"hashtag"`
	Count           number `json:"count"`
	TotalEngagement number `json:"total_engagement"`
}

func toHashtags(in []hashtagWire) []models.HashtagStat {
	out := make([]models.HashtagStat, 0, len(in))
	for _, w := range in {
		tag := strings.ToLower(strings.TrimSpace(firstNonEmpty(w.Tag, w.Hashtag)))
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		out = append(out, models.NewHashtagStat(tag, w.Count.int(), w.TotalEngagement.int()))
	}
	return out
}

type topicWire struct {
	ID         flexString `json:"id"`
	Label      string     `json:"label"`
	Keywords   []string   `json:"keywords"`
	Weight     *number    `json:"weight"`
	Weights    []number   `json:"weights"`
	TweetCount number     `json:"tweetCount"`
	TweetCnt   number     `json:"tweet_count"`
}

func toTopics(in []topicWire) []models.Topic {
	out := make([]models.Topic, 0, len(in))
	for i, w := range in {
		weight := 0.0
		switch {
		case w.Weight != nil:
			weight = float64(*w.Weight)
		case len(w.Weights) > 0:
			weight = float64(w.Weights[0])
		}

		keywords := w.Keywords
		if len(keywords) > 3 {
			keywords = keywords[:3]
		}
		if keywords == nil {
			keywords = []string{}
		}

		id := string(w.ID)
		if id == "" {
			id = fmt.Sprintf("topic_%d", i+1)
		}

		count := w.TweetCount.int()
		if count == 0 {
			count = w.TweetCnt.int()
		}

		out = append(out, models.Topic{
			ID:         id,
			Label:      w.Label,
			Keywords:   keywords,
			Weight:     weight,
			TweetCount: count,
		})
	}
	return out
}

type sentimentWire struct {
	Positive         number     `json:"positive"`
	Neutral          number     `json:"neutral"`
	Negative         number     `json:"negative"`
	PositivePct      *number    `json:"positive_pct"`
	NeutralPct       *number    `json:"neutral_pct"`
	NegativePct      *number    `json:"negative_pct"`
	PositiveExamples []postWire `json:"positiveExamples"`
	NeutralExamples  []postWire `json:"neutralExamples"`
	NegativeExamples []postWire `json:"negativeExamples"`
	Source           string     `json:"source"`
}

func (w *sentimentWire) toSentiment() models.SentimentDistribution {
	if w == nil {
		return models.DefaultSentiment()
	}

	pick := func(pct *number, plain number) float64 {
		if pct != nil {
			return float64(*pct)
		}
		return float64(plain)
	}

	return models.SentimentDistribution{
		PositivePct:      pick(w.PositivePct, w.Positive),
		NeutralPct:       pick(w.NeutralPct, w.Neutral),
		NegativePct:      pick(w.NegativePct, w.Negative),
		PositiveExamples: toPosts(w.PositiveExamples),
		NeutralExamples:  toPosts(w.NeutralExamples),
		NegativeExamples: toPosts(w.NegativeExamples),
		Source:           w.Source,
	}
}

type bucketWire struct {
	Hour            number `json:"hour"`
	Count           number `json:"count"`
	AvgEngagement   number `json:"avgEngagement"`
	TotalEngagement number `json:"totalEngagement"`
	Engagement      number `json:"engagement"`
}

type trendWire struct {
	Date            string   `json:"date"`
	Count           number   `json:"count"`
	AvgEngagement   number   `json:"avgEngagement"`
	TotalEngagement number   `json:"totalEngagement"`
	Engagement      number   `json:"engagement"`
	TopHashtags     []string `json:"topHashtags"`
}

func toBuckets(in []bucketWire) []models.PostingTimeBucket {
	out := make([]models.PostingTimeBucket, 0, len(in))
	for _, w := range in {
		hour := w.Hour.int()
		if hour > 23 {
			continue
		}
		total := w.TotalEngagement.int()
		if total == 0 {
			total = w.Engagement.int()
		}
		b := models.PostingTimeBucket{
			Hour:            hour,
			Count:           w.Count.int(),
			AvgEngagement:   w.AvgEngagement.int(),
			TotalEngagement: total,
		}
		// backend histograms list every hour; empty ones are not shown
		if b.Count == 0 && b.TotalEngagement == 0 {
			continue
		}
		out = append(out, b)
	}
	return out
}

func toTrends(in []trendWire) []models.TrendPoint {
	out := make([]models.TrendPoint, 0, len(in))
	for _, w := range in {
		if w.Date == "" {
			continue
		}
		total := w.TotalEngagement.int()
		if total == 0 {
			total = w.Engagement.int()
		}
		tags := w.TopHashtags
		if len(tags) > 5 {
			tags = tags[:5]
		}
		if tags == nil {
			tags = []string{}
		}
		out = append(out, models.TrendPoint{
			Date:            w.Date,
			Count:           w.Count.int(),
			AvgEngagement:   w.AvgEngagement.int(),
			TotalEngagement: total,
			TopHashtags:     tags,
		})
	}
	return out
}

type engagementWire struct {
	TotalEngagement       number `json:"totalEngagement"`
	AvgEngagementPerTweet number `json:"avgEngagementPerTweet"`
	EngagementRate        number `json:"engagementRate"`
	LikeRate              number `json:"likeRate"`
	RetweetRate           number `json:"retweetRate"`
	ReplyRate             number `json:"replyRate"`
	QuoteRate             number `json:"quoteRate"`
}

// accountWire covers flat account records under all their known field names
type accountWire struct {
	ID               flexString                     `json:"id"`
	UserIDStr        flexString                     `json:"user_id_str"`
	Username         string                         `json:"username"`
	Name             string                         `json:"name"`
	TotalTweets      *number                        `json:"total_tweets"`
	Tweets           json.RawMessage                `json:"tweets"`
	Followers        *number                        `json:"followers"`
	FollowersKnown   *bool                          `json:"followers_known"`
	EngagementRate   number                         `json:"engagement_rate"`
	Hashtags         []hashtagWire                  `json:"hashtags"`
	TopHashtags      []hashtagWire                  `json:"top_hashtags"`
	Words            []models.WordFrequency         `json:"word_frequency"`
	Topics           []topicWire                    `json:"topics"`
	Sentiment        *sentimentWire                 `json:"sentiment"`
	PostingTimes     []bucketWire                   `json:"postingTimes"`
	Trends           []trendWire                    `json:"trends"`
	Posts            []postWire                     `json:"posts"`
	TopPosts         []postWire                     `json:"top_tweets"`
	Engagement       *engagementWire                `json:"engagementMetrics"`
	SocialListening  *models.SocialListeningSummary `json:"socialListening"`
	AvgPostLength    number                         `json:"avg_tweet_length"`
	PostingFrequency number                         `json:"posting_frequency"`
	MostActiveHour   number                         `json:"most_active_hour"`
	GeneratedAt      flexString                     `json:"generated_at"`
}

func (w *accountWire) id() string {
	return firstNonEmpty(string(w.ID), string(w.UserIDStr))
}

func (w *accountWire) toAccount() models.Account {
	a := models.Account{
		ID:               w.id(),
		Username:         firstNonEmpty(w.Username, w.Name),
		EngagementRate:   float64(w.EngagementRate),
		Words:            w.Words,
		Topics:           toTopics(w.Topics),
		Sentiment:        w.Sentiment.toSentiment(),
		PostingTimes:     toBuckets(w.PostingTimes),
		Trends:           toTrends(w.Trends),
		Posts:            toPosts(w.Posts),
		TopPosts:         toPosts(w.TopPosts),
		AvgPostLength:    w.AvgPostLength.int(),
		PostingFrequency: float64(w.PostingFrequency),
		MostActiveHour:   w.MostActiveHour.int(),
		GeneratedAt:      ingest.ParseTimestamp(string(w.GeneratedAt)),
	}

	// total_tweets wins over tweets; tweets may be a count or the post list itself
	switch {
	case w.TotalTweets != nil:
		a.TotalTweets = w.TotalTweets.int()
	case len(w.Tweets) > 0:
		var n number
		var list []json.RawMessage
		if err := json.Unmarshal(w.Tweets, &list); err == nil {
			a.TotalTweets = len(list)
		} else if err := json.Unmarshal(w.Tweets, &n); err == nil {
			a.TotalTweets = n.int()
		}
	}

	if w.Followers != nil {
		a.Followers = w.Followers.int()
		a.FollowersKnown = true
		if w.FollowersKnown != nil {
			a.FollowersKnown = *w.FollowersKnown
		}
	}

	// hashtags wins when non-empty, top_hashtags otherwise
	if len(w.Hashtags) > 0 {
		a.Hashtags = toHashtags(w.Hashtags)
	} else {
		a.Hashtags = toHashtags(w.TopHashtags)
	}

	if w.Engagement != nil {
		a.Engagement = models.EngagementComposition{
			TotalEngagement:       w.Engagement.TotalEngagement.int(),
			AvgEngagementPerTweet: w.Engagement.AvgEngagementPerTweet.int(),
			EngagementRate:        float64(w.Engagement.EngagementRate),
			LikeRate:              float64(w.Engagement.LikeRate),
			RetweetRate:           float64(w.Engagement.RetweetRate),
			ReplyRate:             float64(w.Engagement.ReplyRate),
			QuoteRate:             float64(w.Engagement.QuoteRate),
		}
	}
	if w.SocialListening != nil {
		a.SocialListening = *w.SocialListening
	}
	return a
}

// brandWire is the backend upload response
type brandWire struct {
	Brand struct {
		ID          flexString `json:"id"`
		Name        string     `json:"name"`
		TotalTweets *number    `json:"total_tweets"`
	} `json:"brand"`
	Analytics struct {
		Engagement *struct {
			TotalTweets     *number      `json:"total_tweets"`
			TotalEngagement number       `json:"total_engagement"`
			AvgEngagement   number       `json:"avg_engagement"`
			EngagementRate  number       `json:"engagement_rate"`
			Trend           []trendWire  `json:"trend"`
			PostingHours    []bucketWire `json:"posting_hours"`
			TopTweets       []postWire   `json:"top_tweets"`
		} `json:"engagement"`
		Sentiment *sentimentWire `json:"sentiment"`
		Topics    *struct {
			Topics      []topicWire `json:"topics"`
			TopKeywords []string    `json:"top_keywords"`
		} `json:"topics"`
		Hashtags []hashtagWire `json:"hashtags"`
	} `json:"analytics"`
}

func (w *brandWire) toAccount() models.Account {
	a := models.Account{
		ID:        string(w.Brand.ID),
		Username:  w.Brand.Name,
		Hashtags:  toHashtags(w.Analytics.Hashtags),
		Sentiment: w.Analytics.Sentiment.toSentiment(),
	}

	if w.Brand.TotalTweets != nil {
		a.TotalTweets = w.Brand.TotalTweets.int()
	}

	if eng := w.Analytics.Engagement; eng != nil {
		if eng.TotalTweets != nil {
			a.TotalTweets = eng.TotalTweets.int()
		}
		a.EngagementRate = float64(eng.EngagementRate)
		a.Engagement = models.EngagementComposition{
			TotalEngagement:       eng.TotalEngagement.int(),
			AvgEngagementPerTweet: eng.AvgEngagement.int(),
			EngagementRate:        float64(eng.EngagementRate),
		}
		a.Trends = toTrends(eng.Trend)
		a.PostingTimes = toBuckets(eng.PostingHours)
		a.TopPosts = toPosts(eng.TopTweets)
	}

	if t := w.Analytics.Topics; t != nil {
		a.Topics = toTopics(t.Topics)
		keywords := t.TopKeywords
		if len(keywords) > 10 {
			keywords = keywords[:10]
		}
		a.SocialListening.TopKeywords = keywords
	}
	return a
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
