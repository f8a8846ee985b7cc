package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spigell/job-alerter/internal/metrics"
	"github.com/spigell/job-alerter/internal/posting"
)

const alertHeader = "New job matches for you:\n"

type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// FormatAlert renders the alert text for a list of jobs.
func FormatAlert(jobs []*posting.Job) string {
	var b strings.Builder
	b.WriteString(alertHeader)
	for _, j := range jobs {
		if j == nil {
			continue
		}
		fmt.Fprintf(&b, "\n%s at %s\n%s\n", j.Title, j.Company, j.URL)
	}
	return b.String()
}

// Notify sends one alert with all jobs to the user. Nothing is sent for an
// empty list.
func (c *Client) Notify(ctx context.Context, userID int64, jobs []*posting.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	err := c.sendMessage(ctx, userID, FormatAlert(jobs))
	if err != nil {
		c.metrics.Alert(metrics.ResultFailed)
		return err
	}

	c.metrics.Alert(metrics.ResultOK)
	return nil
}

func (c *Client) sendMessage(ctx context.Context, chatID int64, text string) error {
	if c.token == "" {
		return errors.New("telegram bot token is not configured")
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, DisableWebPagePreview: true})
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", c.APIURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req = c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.request(req)
	if err != nil {
		return errors.New(redact(err.Error(), c.token))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var parsed apiResponse
	_ = json.Unmarshal(data, &parsed)

	if resp.StatusCode != http.StatusOK || !parsed.OK {
		if parsed.Description != "" {
			return fmt.Errorf("bad status: %s: %s", resp.Status, parsed.Description)
		}
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	return nil
}
