package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/spigell/job-alerter/internal/posting"
)

// maxPages bounds pagination when a channel keeps returning pages without
// new messages.
const maxPages = 10

// FetchRecent returns up to limit of the newest messages of a public channel,
// newest first. Messages are read from the channel web preview.
func (c *Client) FetchRecent(ctx context.Context, source string, limit int) ([]posting.Message, error) {
	channel := strings.TrimPrefix(strings.TrimSpace(source), "@")
	if channel == "" {
		return nil, fmt.Errorf("empty source name")
	}
	if limit <= 0 {
		return nil, nil
	}

	seen := make(map[int64]struct{})
	var messages []posting.Message
	var before int64

	for page := 0; page < maxPages && len(messages) < limit; page++ {
		batch, err := c.fetchPage(ctx, channel, before)
		if err != nil {
			return nil, err
		}

		oldest := before
		added := 0
		for _, m := range batch {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			messages = append(messages, m)
			added++
			if oldest == 0 || m.ID < oldest {
				oldest = m.ID
			}
		}

		if added == 0 || oldest <= 1 {
			break
		}

		c.logger.Debug("additional request needed",
			zap.String("source", channel),
			zap.Int("fetched", len(messages)),
			zap.Int("limit", limit),
		)
		before = oldest
	}

	sort.SliceStable(messages, func(i, j int) bool { return messages[i].ID > messages[j].ID })
	if len(messages) > limit {
		messages = messages[:limit]
	}

	c.metrics.Messages(channel, len(messages))

	return messages, nil
}

func (c *Client) fetchPage(ctx context.Context, channel string, before int64) ([]posting.Message, error) {
	u := fmt.Sprintf("%s/s/%s", c.WebURL, url.PathEscape(channel))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if before > 0 {
		q := url.Values{}
		q.Set("before", strconv.FormatInt(before, 10))
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.request(c.setHeaders(req))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse channel page: %w", err)
	}

	return parseMessages(doc, channel), nil
}

// parseMessages reads messages of the web preview. Posts forwarded from
// other channels keep their own data-post and are skipped.
func parseMessages(doc *goquery.Document, channel string) []posting.Message {
	var out []posting.Message

	doc.Find("div.tgme_widget_message[data-post]").Each(func(_ int, s *goquery.Selection) {
		post, _ := s.Attr("data-post")
		name, rawID, ok := strings.Cut(post, "/")
		if !ok || !strings.EqualFold(name, channel) {
			return
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return
		}

		textSel := s.Find(".tgme_widget_message_text").First()
		textSel.Find("br").ReplaceWithHtml("\n")

		out = append(out, posting.Message{
			Source: channel,
			ID:     id,
			Text:   strings.TrimSpace(textSel.Text()),
		})
	})

	return out
}
