package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Webhook posts each concluded match as a Discord-style embed.
type Webhook struct {
	endpoint string
	client   *http.Client
}

func NewWebhook(endpoint string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

const (
	colorWin  = 0x2ecc71
	colorTime = 0xf1c40f
	colorDraw = 0x95a5a6
)

func (w *Webhook) RecordMatch(ctx context.Context, rec MatchRecord) error {
	return w.postJSON(ctx, webhookPayload(rec))
}

func webhookPayload(rec MatchRecord) map[string]any {
	color := colorDraw
	title := fmt.Sprintf("Match %d: draw", rec.MatchNumber)
	switch rec.Kind {
	case KindWin:
		color = colorWin
		title = fmt.Sprintf("Match %d: %s wins", rec.MatchNumber, rec.Winner)
	case KindTimeWin:
		color = colorTime
		title = fmt.Sprintf("Match %d: %s wins on time", rec.MatchNumber, rec.Winner)
	}
	fields := []embedField{
		{Name: "Score", Value: fmt.Sprintf("%s %d - %d %s", rec.SlotA, rec.ScoreA, rec.ScoreB, rec.SlotB), Inline: false},
		{Name: "Points", Value: fmt.Sprintf("%s +%d, %s +%d", rec.SlotA, rec.PointsA, rec.SlotB, rec.PointsB), Inline: true},
		{Name: "Next", Value: fmt.Sprintf("%s vs %s (%s waits)", rec.NextSlotA, rec.NextSlotB, rec.NextWaiting), Inline: true},
	}
	embed := map[string]any{
		"title":     title,
		"fields":    fields,
		"color":     color,
		"timestamp": rec.ConcludedAt.UTC().Format(time.RFC3339),
		"footer":    map[string]string{"text": "session " + rec.SessionID},
	}
	return map[string]any{
		"content": strings.TrimSpace(title),
		"embeds":  []map[string]any{embed},
	}
}

func (w *Webhook) postJSON(ctx context.Context, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook failed with status %d", resp.StatusCode)
}
