// Package provider implements the HTTP client for a WAHA-compatible
// WhatsApp automation API. This subsystem only reads from the provider:
// group messages and the group directory.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/whatsapp-summary-bot/internal/models"
)

// millisThreshold separates epoch seconds from epoch milliseconds when
// the provider does not annotate its timestamp unit
const millisThreshold = 1e12

// Client represents a WhatsApp provider HTTP client
type Client struct {
	baseURL    string
	apiKey     string
	session    string
	unit       models.TimestampUnit
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new provider client. unit may be empty, in which
// case timestamps are disambiguated by magnitude.
func NewClient(baseURL, apiKey, session string, timeout int, unit models.TimestampUnit, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		session: session,
		unit:    unit,
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		logger: logger.With().Str("component", "provider").Logger(),
	}
}

// rawMessage mirrors the provider's wire format
type rawMessage struct {
	ID          string      `json:"id"`
	Body        string      `json:"body"`
	From        string      `json:"from"`
	Participant string      `json:"participant"`
	NotifyName  string      `json:"notifyName"`
	FromMe      bool        `json:"fromMe"`
	Timestamp   json.Number `json:"timestamp"`
	Type        string      `json:"type"`
	HasMedia    bool        `json:"hasMedia"`
}

// rawGroup mirrors the provider's group directory format
type rawGroup struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ParticipantCount int    `json:"participantCount"`
}

// GetMessages fetches up to limit recent messages for a group. Ordering
// is not guaranteed, callers sort. Timestamps are normalized to UTC.
func (c *Client) GetMessages(ctx context.Context, groupID string, limit int) ([]models.ChatMessage, error) {
	endpoint := fmt.Sprintf("%s/api/%s/chats/%s/messages?limit=%d&downloadMedia=false",
		c.baseURL, url.PathEscape(c.session), url.PathEscape(groupID), limit)

	var raw []rawMessage
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch messages for group %s: %w", groupID, err)
	}

	messages := make([]models.ChatMessage, 0, len(raw))
	for _, rm := range raw {
		messages = append(messages, c.normalizeMessage(rm))
	}

	c.logger.Debug().
		Str("group_id", groupID).
		Int("count", len(messages)).
		Msg("Fetched messages from provider")

	return messages, nil
}

// GetGroups fetches the group directory for the configured session
func (c *Client) GetGroups(ctx context.Context) ([]models.GroupInfo, error) {
	endpoint := fmt.Sprintf("%s/api/%s/groups", c.baseURL, url.PathEscape(c.session))

	var raw []rawGroup
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch groups: %w", err)
	}

	groups := make([]models.GroupInfo, 0, len(raw))
	for _, rg := range raw {
		groups = append(groups, models.GroupInfo{
			ID:               rg.ID,
			Name:             rg.Name,
			ParticipantCount: rg.ParticipantCount,
		})
	}

	c.logger.Debug().
		Int("count", len(groups)).
		Msg("Fetched group directory from provider")

	return groups, nil
}

// getJSON performs an authenticated GET and decodes the JSON body
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// normalizeMessage maps the wire format onto the internal message model
func (c *Client) normalizeMessage(rm rawMessage) models.ChatMessage {
	senderID := rm.Participant
	if senderID == "" {
		senderID = rm.From
	}

	return models.ChatMessage{
		ID:          rm.ID,
		Body:        rm.Body,
		SenderID:    senderID,
		SenderName:  rm.NotifyName,
		Timestamp:   c.normalizeTimestamp(rm.Timestamp),
		ContentType: contentType(rm.Type, rm.HasMedia),
		IsFromSelf:  rm.FromMe,
	}
}

// normalizeTimestamp converts the provider timestamp to UTC. An explicit
// configured unit wins; otherwise values above 10^12 are treated as
// milliseconds (no plausible chat message predates 1970 or postdates
// 33658 in seconds).
func (c *Client) normalizeTimestamp(raw json.Number) time.Time {
	value, err := raw.Float64()
	if err != nil || value <= 0 {
		return time.Time{}
	}

	unit := c.unit
	if unit == "" {
		if value > millisThreshold {
			unit = models.TimestampMillis
		} else {
			unit = models.TimestampSeconds
		}
		c.logger.Debug().
			Str("raw", raw.String()).
			Str("unit", string(unit)).
			Msg("Timestamp unit inferred by magnitude")
	}

	if unit == models.TimestampMillis {
		return time.UnixMilli(int64(value)).UTC()
	}
	return time.Unix(int64(value), 0).UTC()
}

// contentType maps provider message types onto internal content types
func contentType(rawType string, hasMedia bool) models.ContentType {
	switch rawType {
	case "image", "sticker":
		return models.ContentImage
	case "video", "gif":
		return models.ContentVideo
	case "audio", "ptt", "voice":
		return models.ContentAudio
	case "document":
		return models.ContentDocument
	case "chat", "text", "":
		if hasMedia {
			return models.ContentDocument
		}
		return models.ContentText
	default:
		if hasMedia {
			return models.ContentDocument
		}
		return models.ContentText
	}
}
