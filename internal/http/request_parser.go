// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of the automation platform's JSON request
// bodies for trigger polls and actions.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// maxBodyBytes bounds a webhook request body.
const maxBodyBytes = 1 << 20

// WebhookRequest is the body of a trigger poll or an action call. Field maps
// keep presence: a field sent as "" differs from a missing one.
type WebhookRequest struct {
	TriggerFields   map[string]any `json:"triggerFields"`
	ActionFields    map[string]any `json:"actionFields"`
	TriggerIdentity *string        `json:"trigger_identity"`
	Limit           *int           `json:"limit"`
	User            struct {
		Timezone string `json:"timezone"`
	} `json:"user"`
}

// ParseWebhookRequest decodes the request body. An empty body yields an
// empty request.
func ParseWebhookRequest(r *http.Request) (*WebhookRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, errors.New("request body too large")
	}

	req := &WebhookRequest{}
	if len(strings.TrimSpace(string(body))) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return req, nil
}

// TriggerField returns a trigger field and whether it was sent.
func (req *WebhookRequest) TriggerField(name string) (string, bool) {
	return field(req.TriggerFields, name)
}

// ActionField returns an action field and whether it was sent.
func (req *WebhookRequest) ActionField(name string) (string, bool) {
	return field(req.ActionFields, name)
}

// MissingActionField returns the first of names absent from the action
// fields, or "".
func (req *WebhookRequest) MissingActionField(names ...string) string {
	for _, name := range names {
		if _, ok := req.ActionFields[name]; !ok {
			return name
		}
	}
	return ""
}

// Timezone returns the caller's timezone; empty means UTC.
func (req *WebhookRequest) Timezone() string {
	return strings.TrimSpace(req.User.Timezone)
}

func field(fields map[string]any, name string) (string, bool) {
	v, ok := fields[name]
	if !ok {
		return "", false
	}
	return sanitizeInput(stringValue(v)), true
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
