package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/teamsgraph/internal/auth"
	"github.com/teamsgraph/internal/graph"
)

const defaultRequestTimeout = 30 * time.Second

// Config describes where and what to post. Build the value once and pass
// it to New; the notifier never mutates it.
type Config struct {
	TeamID      string
	ChannelID   string
	Timezone    string // IANA zone used when logging the send time
	MessageText string

	// BaseURL defaults to the standard v1.0 Graph endpoint.
	BaseURL string

	// Tokens supplies the bearer token for the message post.
	Tokens auth.TokenSource

	RequestTimeout time.Duration
	Logger         *zerolog.Logger
}

// Notifier posts reminder messages to a Teams channel. Posts are never
// retried: message creation is not idempotent and a duplicate reminder
// is worse than a missed one.
type Notifier struct {
	teamID      string
	channelID   string
	messageText string
	location    *time.Location
	baseURL     string
	tokens      auth.TokenSource
	client      *http.Client
	logger      zerolog.Logger
}

// New validates the configuration and builds a Notifier.
func New(cfg Config) (*Notifier, error) {
	if cfg.TeamID == "" || cfg.ChannelID == "" {
		return nil, fmt.Errorf("team_id and channel_id must be set")
	}
	if cfg.MessageText == "" {
		return nil, fmt.Errorf("message_text must be set")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("a token source is required")
	}

	location := time.Local
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
		location = loc
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = graph.DefaultBaseURL
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Notifier{
		teamID:      cfg.TeamID,
		channelID:   cfg.ChannelID,
		messageText: cfg.MessageText,
		location:    location,
		baseURL:     baseURL,
		tokens:      cfg.Tokens,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

// channelMessage is the chatMessage payload Graph expects.
type channelMessage struct {
	Body messageBody `json:"body"`
}

type messageBody struct {
	Content string `json:"content"`
}

// Send posts the configured message to the channel.
func (n *Notifier) Send(ctx context.Context) error {
	messageURL := fmt.Sprintf("%s/teams/%s/channels/%s/messages",
		n.baseURL, n.teamID, n.channelID)

	payload, err := json.Marshal(channelMessage{Body: messageBody{Content: n.messageText}})
	if err != nil {
		return fmt.Errorf("failed to encode message payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, messageURL,
		bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token, err := n.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("failed to send message (status %d): %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	n.logger.Info().
		Str("channel_id", n.channelID).
		Str("sent_at", time.Now().In(n.location).Format(time.RFC3339)).
		Msg("reminder message sent")

	return nil
}
