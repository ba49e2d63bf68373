package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

// SlackReporter posts request summaries to a Slack incoming webhook.
type SlackReporter struct {
	webhookURL string
	client     *http.Client
	log        *slog.Logger
}

func NewSlackReporter(webhookURL string, client *http.Client, log *slog.Logger) *SlackReporter {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &SlackReporter{webhookURL: webhookURL, client: client, log: log}
}

// Post sends payload to the webhook.
func (r *SlackReporter) Post(ctx context.Context, payload SlackWebhookRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// SlackRequestLogger reports every request whose status is at least minStatus.
// Reporting happens after the response is written and never affects it.
func SlackRequestLogger(reporter *SlackReporter, minStatus int) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status < minStatus {
			return
		}

		payload := requestSummary(c, status, time.Since(start))
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := reporter.Post(ctx, payload); err != nil {
				reporter.log.Warn("slack request log failed", "error", err)
			}
		}()
	}
}

func requestSummary(c *gin.Context, status int, elapsed time.Duration) SlackWebhookRequest {
	color := "#36a64f"
	switch {
	case status >= http.StatusInternalServerError:
		color = "#ff0000"
	case status >= http.StatusBadRequest:
		color = "#ffa500"
	}

	errText := c.Errors.String()
	if errText == "" {
		errText = "-"
	}

	return SlackWebhookRequest{
		Username: "deliverynote-api",
		Text:     fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status),
		Attachments: []SlackAttachment{{
			Color: color,
			Title: http.StatusText(status),
			Text:  errText,
			Fields: []SlackField{
				{Title: "Method", Value: c.Request.Method, Short: true},
				{Title: "Path", Value: c.Request.URL.Path, Short: true},
				{Title: "Status", Value: fmt.Sprint(status), Short: true},
				{Title: "Latency", Value: elapsed.Round(time.Millisecond).String(), Short: true},
				{Title: "Client IP", Value: c.ClientIP(), Short: true},
			},
			Footer:    "deliverynote-api",
			Timestamp: time.Now().Unix(),
		}},
	}
}
