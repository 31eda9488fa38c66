package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/azure/brand-analytics/internal/models"
)

const maxTrendHashtags = 5

// PostingTimes buckets posts by hour of day in loc. Hours without posts are omitted
// and posts without a usable timestamp are skipped.
func PostingTimes(posts []models.Post, loc *time.Location) []models.PostingTimeBucket {
	if loc == nil {
		loc = time.UTC
	}

	var hours [24]struct {
		count int
		sum   float64
		total int
	}

	for _, post := range posts {
		if !post.HasTimestamp() {
			continue
		}
		h := post.CreatedAt.In(loc).Hour()
		hours[h].count++
		hours[h].sum += float64(post.LikeCount+post.RepostCount) / 2
		hours[h].total += post.Engagement()
	}

	buckets := []models.PostingTimeBucket{}
	for hour, data := range hours {
		if data.count == 0 {
			continue
		}
		buckets = append(buckets, models.PostingTimeBucket{
			Hour:            hour,
			Count:           data.count,
			AvgEngagement:   int(math.Round(data.sum / float64(data.count))),
			TotalEngagement: data.total,
		})
	}
	return buckets
}

// MostActiveHour is the hour holding the most posts, the earliest hour on ties
func MostActiveHour(buckets []models.PostingTimeBucket) int {
	best, bestCount := 0, 0
	for _, b := range buckets {
		if b.Count > bestCount {
			best, bestCount = b.Hour, b.Count
		}
	}
	return best
}

// Trends builds one point per UTC calendar date, oldest first
func Trends(posts []models.Post) []models.TrendPoint {
	type day struct {
		count      int
		engagement int
		hashtags   []string
		seen       map[string]bool
	}
	days := make(map[string]*day)

	for _, post := range posts {
		if !post.HasTimestamp() {
			continue
		}
		date := post.CreatedAt.UTC().Format("2006-01-02")
		d, ok := days[date]
		if !ok {
			d = &day{seen: make(map[string]bool)}
			days[date] = d
		}
		d.count++
		d.engagement += post.Engagement()
		for _, tag := range ExtractHashtags(post.Text) {
			if !d.seen[tag] {
				d.seen[tag] = true
				d.hashtags = append(d.hashtags, tag)
			}
		}
	}

	points := make([]models.TrendPoint, 0, len(days))
	for date, d := range days {
		top := d.hashtags
		if len(top) > maxTrendHashtags {
			top = top[:maxTrendHashtags]
		}
		if top == nil {
			top = []string{}
		}
		points = append(points, models.TrendPoint{
			Date:            date,
			Count:           d.count,
			AvgEngagement:   int(math.Round(float64(d.engagement) / float64(d.count))),
			TotalEngagement: d.engagement,
			TopHashtags:     top,
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// PostingFrequency is the mean number of posts per active day
func PostingFrequency(trends []models.TrendPoint) float64 {
	if len(trends) == 0 {
		return 0
	}
	total := 0
	for _, t := range trends {
		total += t.Count
	}
	return round2(float64(total) / float64(len(trends)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
