package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/ports"
)

// DefaultAPIBase is the public Bot API endpoint.
const DefaultAPIBase = "https://api.telegram.org"

// Notifier sends cycle summaries to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	client   *resty.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty apiBase
// selects DefaultAPIBase.
func NewNotifier(botToken, chatID, apiBase string) *Notifier {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   resty.New().SetBaseURL(strings.TrimRight(apiBase, "/")).SetTimeout(5 * time.Second),
	}
}

// PublishSummary posts a short Markdown summary of the cycle.
func (n *Notifier) PublishSummary(ctx context.Context, report domain.CycleReport) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":    n.chatID,
			"text":       Summary(report),
			"parse_mode": "Markdown",
		}).
		Post("/bot" + n.botToken + "/sendMessage")
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("telegram error: %s", resp.Status())
	}

	return nil
}

// Summary renders the message body for report.
func Summary(report domain.CycleReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Fetch cycle* `%s`\n", report.RunID)
	fmt.Fprintf(&b, "sources: %d ok, %d failed\n", report.Succeeded(), report.Failed())
	if failures := report.Failures(); len(failures) > 0 {
		fmt.Fprintf(&b, "failed: %s\n", strings.Join(failures, ", "))
	}
	fmt.Fprintf(&b, "rows: %d, cells: %d\n", report.Rows, report.Cells)
	fmt.Fprintf(&b, "took %s", report.Duration().Round(time.Second))
	return b.String()
}
