package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/azure/brand-analytics/internal/config"
	"github.com/azure/brand-analytics/internal/metrics"
	"github.com/azure/brand-analytics/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/gomail.v2"
)

const (
	channelTeams = "teams"
	channelEmail = "email"
)

// Service delivers dashboard reports via the configured channels
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// Channels lists the configured delivery channels
func (s *Service) Channels() []string {
	var channels []string
	if s.config.TeamsWebhookURL != "" {
		channels = append(channels, channelTeams)
	}
	if len(s.config.NotificationEmails) > 0 {
		channels = append(channels, channelEmail)
	}
	return channels
}

// SendReport sends a report via every configured channel. A failing channel
// does not stop the others.
func (s *Service) SendReport(ctx context.Context, report *models.Report) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		err := s.sendToTeams(ctx, report)
		metrics.ObserveReport(channelTeams, err)
		if err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent report to Teams")
		}
	}

	if len(s.config.NotificationEmails) > 0 {
		err := s.sendEmail(report)
		metrics.ObserveReport(channelEmail, err)
		if err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Infof("Successfully sent report to %d recipients", len(s.config.NotificationEmails))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(ctx context.Context, report *models.Report) error {
	message := s.buildTeamsMessage(report)

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) subject(report *models.Report) string {
	return fmt.Sprintf("Brand Analytics Report - %s", s.periodTitle(report.Period))
}

func (s *Service) periodTitle(period string) string {
	if period == "" {
		return "On Demand"
	}
	return cases.Title(language.English).String(period)
}

func (s *Service) buildTeamsMessage(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   s.subject(report),
		Text:    summaryLine(report),
	}

	for _, brand := range report.Brands {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle:    brand.Name,
			ActivitySubtitle: brand.ID,
			Facts: []TeamsFact{
				{Name: "Posts", Value: fmt.Sprintf("%d", brand.TotalTweets)},
				{Name: "Engagement Rate", Value: fmt.Sprintf("%.2f", brand.EngagementRate)},
				{Name: "Positive", Value: fmt.Sprintf("%.0f%%", brand.PositivePct)},
				{Name: "Negative", Value: fmt.Sprintf("%.0f%%", brand.NegativePct)},
				{Name: "Top Hashtags", Value: joinOrDash(brand.TopHashtags)},
				{Name: "Top Topics", Value: joinOrDash(brand.TopTopics)},
			},
			Markdown: true,
		})
	}

	if len(report.Comparison) > 0 {
		facts := make([]TeamsFact, 0, len(report.Comparison))
		for _, line := range report.Comparison {
			facts = append(facts, TeamsFact{
				Name:  line.Label,
				Value: fmt.Sprintf("%s vs %s (leader: %s)", formatValue(line.A), formatValue(line.B), line.Leader),
			})
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Comparison",
			Facts:         facts,
			Markdown:      true,
		})
	}

	return message
}

func summaryLine(report *models.Report) string {
	switch len(report.Brands) {
	case 0:
		return "No brand data has been uploaded"
	case 1:
		return fmt.Sprintf("Single brand report for %s", report.Brands[0].Name)
	default:
		return fmt.Sprintf("Comparison of %d brands generated %s", len(report.Brands), report.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

// formatValue prints whole numbers without decimals
func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func (s *Service) sendEmail(report *models.Report) error {
	htmlBody, err := s.buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmails...)
	m.SetHeader("Subject", s.subject(report))
	m.SetBody("text/plain", s.buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

const emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .brand { border-left: 4px solid #0078d4; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        table { border-collapse: collapse; margin: 20px 0; }
        td, th { border: 1px solid #ddd; padding: 6px 12px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Subject}}</h1>
        <p>{{.Summary}}</p>
    </div>

    {{range .Report.Brands}}
    <div class="brand">
        <h2>{{.Name}}</h2>
        <p><strong>Posts:</strong> {{.TotalTweets}} | <strong>Engagement Rate:</strong> {{printf "%.2f" .EngagementRate}}</p>
        <p><strong>Sentiment:</strong> {{printf "%.0f" .PositivePct}}% positive, {{printf "%.0f" .NegativePct}}% negative</p>
        {{if .TopHashtags}}<p><strong>Top Hashtags:</strong> {{join .TopHashtags}}</p>{{end}}
        {{if .TopTopics}}<p><strong>Top Topics:</strong> {{join .TopTopics}}</p>{{end}}
    </div>
    {{end}}

    {{if .Report.Comparison}}
    <h2>Comparison</h2>
    <table>
        <tr><th>Metric</th><th>A</th><th>B</th><th>Leader</th></tr>
        {{range .Report.Comparison}}
        <tr><td>{{.Label}}</td><td>{{value .A}}</td><td>{{value .B}}</td><td>{{.Leader}}</td></tr>
        {{end}}
    </table>
    {{end}}

    <hr>
    <p><small>Generated {{.Report.GeneratedAt.Format "January 2, 2006 at 3:04 PM MST"}}</small></p>
</body>
</html>
`

var emailHTML = template.Must(template.New("email").Funcs(template.FuncMap{
	"join":  joinOrDash,
	"value": formatValue,
}).Parse(emailTemplate))

func (s *Service) buildEmailHTML(report *models.Report) (string, error) {
	var buf bytes.Buffer
	err := emailHTML.Execute(&buf, struct {
		Subject string
		Summary string
		Report  *models.Report
	}{
		Subject: s.subject(report),
		Summary: summaryLine(report),
		Report:  report,
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(report *models.Report) string {
	var text strings.Builder

	text.WriteString(s.subject(report) + "\n")
	text.WriteString(summaryLine(report) + "\n\n")

	for _, brand := range report.Brands {
		text.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(brand.Name)))
		text.WriteString(strings.Repeat("=", len(brand.Name)) + "\n")
		text.WriteString(fmt.Sprintf("Posts: %d\n", brand.TotalTweets))
		text.WriteString(fmt.Sprintf("Engagement Rate: %.2f\n", brand.EngagementRate))
		text.WriteString(fmt.Sprintf("Sentiment: %.0f%% positive, %.0f%% negative\n", brand.PositivePct, brand.NegativePct))
		text.WriteString(fmt.Sprintf("Top Hashtags: %s\n", joinOrDash(brand.TopHashtags)))
		text.WriteString(fmt.Sprintf("Top Topics: %s\n\n", joinOrDash(brand.TopTopics)))
	}

	if len(report.Comparison) > 0 {
		text.WriteString("COMPARISON\n")
		text.WriteString("==========\n")
		for _, line := range report.Comparison {
			text.WriteString(fmt.Sprintf("%s: %s vs %s (leader: %s)\n", line.Label, formatValue(line.A), formatValue(line.B), line.Leader))
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by the brand analytics service.\n")

	return text.String()
}
