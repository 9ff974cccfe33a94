package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/orchestrd/orchestrd/internal/coreerr"
)

// DiscordSink delivers notifications via a Discord incoming webhook.
type DiscordSink struct {
	sinkID     string
	webhookURL string
	httpClient *http.Client
}

// NewDiscordSink creates a webhook-backed Sink.
func NewDiscordSink(sinkID, webhookURL string) *DiscordSink {
	return &DiscordSink{sinkID: sinkID, webhookURL: webhookURL, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

func (d *DiscordSink) ID() string { return d.sinkID }

type discordPayload struct {
	Content string `json:"content"`
}

func (d *DiscordSink) send(ctx context.Context, content string) error {
	body, err := json.Marshal(discordPayload{Content: content})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return coreerr.Wrap(coreerr.Unknown, d.sinkID, "build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return coreerr.Wrap(coreerr.Timeout, d.sinkID, "webhook request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return coreerr.New(coreerr.RateLimited, d.sinkID, "discord webhook rate limited")
	}
	if resp.StatusCode >= 300 {
		return coreerr.New(coreerr.Unknown, d.sinkID, fmt.Sprintf("discord webhook returned %d", resp.StatusCode))
	}
	return nil
}

func (d *DiscordSink) NotifyGrab(ctx context.Context, n GrabNotification) error {
	return d.send(ctx, fmt.Sprintf("Grabbed **%s** (%s) from `%s` via `%s`", n.ReleaseTitle, n.Quality, n.IndexerID, n.DownloadClientID))
}

func (d *DiscordSink) NotifyHealth(ctx context.Context, n HealthNotification) error {
	return d.send(ctx, fmt.Sprintf("Indexer `%s` is now **%s**: %s", n.IndexerID, n.Status, n.Reason))
}
