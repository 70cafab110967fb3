// Package notify tells the automation platform which triggers have new
// change records.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultURL is the automation platform's realtime endpoint.
const DefaultURL = "https://realtime.ifttt.com/v1/notifications"

type (
	triggerRef struct {
		TriggerIdentity string `json:"trigger_identity"`
	}

	payload struct {
		Data []triggerRef `json:"data"`
	}
)

// RealtimeNotifier posts trigger identities to the realtime API.
type RealtimeNotifier struct {
	url    string
	client *http.Client
}

func NewRealtimeNotifier(url string, client *http.Client) *RealtimeNotifier {
	if url == "" {
		url = DefaultURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RealtimeNotifier{url: url, client: client}
}

// Notify sends one request naming every trigger in ids.
func (n *RealtimeNotifier) Notify(ctx context.Context, serviceKey string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := payload{Data: make([]triggerRef, 0, len(ids))}
	for _, id := range ids {
		body.Data = append(body.Data, triggerRef{TriggerIdentity: id})
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build notification: %w", err)
	}
	requestID := strings.ReplaceAll(uuid.NewString(), "-", "")
	req.Header.Set("IFTTT-Service-Key", serviceKey)
	req.Header.Set("IFTTT-Channel-Key", serviceKey)
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode > 299 {
		return fmt.Errorf("send notification: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	slog.DebugContext(ctx, "Notification sent",
		"request_id", requestID,
		"triggers", len(ids),
		"status", resp.StatusCode)
	return nil
}
