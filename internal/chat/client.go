package chat

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"github.com/diamondburned/arikawa/v3/utils/httputil"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	interactionsEndpoint = "https://discord.com/api/v10/interactions"
	userAgent            = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:136.0) Gecko/20100101 Firefox/136.0"
	eventBuffer          = 100
)

// ReadyEvent is emitted once the gateway session is established.
type ReadyEvent struct {
	UserID   uint64
	Username string
}

// MessageEvent wraps a normalized message; Updated distinguishes edits from
// fresh deliveries.
type MessageEvent struct {
	Message Message
	Updated bool
}

// ReactionEvent reports a reaction added to a message.
type ReactionEvent struct {
	MessageID uint64
	ChannelID uint64
	UserID    uint64
	Emoji     string
}

// ClickRequest identifies a message component to invoke server-side.
type ClickRequest struct {
	MessageID uint64
	ChannelID uint64
	GuildID   uint64 // zero for DM channels
	AppID     uint64
	CustomID  string
}

// Client wraps a user-account gateway session and exposes the three outbound
// primitives the engine needs: send text, add reaction, click button. Inbound
// traffic is surfaced as a stream of normalized events.
type Client struct {
	sess    *session.Session
	token   string
	breaker *gobreaker.CircuitBreaker
	events  chan any
	logger  *zap.Logger
}

// NewClient creates a client for the given user token. The session is not
// connected until Open is called.
func NewClient(token string, logger *zap.Logger) *Client {
	clientLogger := logger.Named("chat")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "interactions_api",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			clientLogger.Warn("Interaction circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	sess := session.New(token)
	sess.UserAgent = userAgent

	c := &Client{
		sess:    sess,
		token:   token,
		breaker: breaker,
		events:  make(chan any, eventBuffer),
		logger:  clientLogger,
	}

	sess.AddHandler(c.onReady)
	sess.AddHandler(c.onMessageCreate)
	sess.AddHandler(c.onMessageUpdate)
	sess.AddHandler(c.onReactionAdd)

	return c
}

// Open connects to the gateway, retrying transient failures with exponential
// backoff until ctx is cancelled.
func (c *Client) Open(ctx context.Context) error {
	b := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(time.Second),
		backoff.WithMaxInterval(30*time.Second),
		backoff.WithMaxElapsedTime(5*time.Minute),
	), ctx)

	err := backoff.Retry(func() error {
		if err := c.sess.Open(ctx); err != nil {
			c.logger.Warn("Gateway connect failed, retrying", zap.Error(err))
			return err
		}

		return nil
	}, b)
	if err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	return nil
}

// Close shuts the gateway connection and the event stream.
func (c *Client) Close() error {
	err := c.sess.Close()
	close(c.events)

	return err
}

// Events returns the inbound event stream. Events are delivered in gateway
// order; the channel is closed by Close.
func (c *Client) Events() <-chan any {
	return c.events
}

// SendText posts a plain text message to a channel.
func (c *Client) SendText(ctx context.Context, channelID uint64, content string) error {
	_, err := c.sess.WithContext(ctx).SendMessage(discord.ChannelID(channelID), content)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	c.logger.Debug("Sent message",
		zap.Uint64("channel_id", channelID),
		zap.String("content", content))

	return nil
}

// AddReaction adds a unicode emoji reaction to a message.
func (c *Client) AddReaction(ctx context.Context, channelID, messageID uint64, glyph string) error {
	err := c.sess.WithContext(ctx).React(
		discord.ChannelID(channelID),
		discord.MessageID(messageID),
		discord.APIEmoji(glyph),
	)
	if err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}

	c.logger.Debug("Added reaction",
		zap.Uint64("message_id", messageID),
		zap.String("emoji", glyph))

	return nil
}

// ClickButton invokes a message component through the raw interactions
// endpoint. Bot-token APIs cannot trigger another application's buttons, so
// the request is issued the same way the official client does.
func (c *Client) ClickButton(ctx context.Context, req ClickRequest) error {
	payload := map[string]any{
		"type":           3,
		"nonce":          uuid.NewString(),
		"channel_id":     strconv.FormatUint(req.ChannelID, 10),
		"message_id":     strconv.FormatUint(req.MessageID, 10),
		"application_id": strconv.FormatUint(req.AppID, 10),
		"data": map[string]any{
			"component_type": buttonComponentType,
			"custom_id":      req.CustomID,
		},
	}
	if req.GuildID != 0 {
		payload["guild_id"] = strconv.FormatUint(req.GuildID, 10)
	}

	_, err := c.breaker.Execute(func() (any, error) {
		resp, execErr := c.sess.WithContext(ctx).Request("POST", interactionsEndpoint, httputil.WithJSONBody(payload))
		if execErr != nil {
			return nil, execErr
		}
		defer resp.GetBody().Close()

		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("failed to click button %s: %w", req.CustomID, err)
	}

	c.logger.Debug("Clicked button",
		zap.Uint64("message_id", req.MessageID),
		zap.String("custom_id", req.CustomID))

	return nil
}

func (c *Client) onReady(ev *gateway.ReadyEvent) {
	c.push(ReadyEvent{
		UserID:   uint64(ev.User.ID),
		Username: ev.User.Username,
	})
}

func (c *Client) onMessageCreate(ev *gateway.MessageCreateEvent) {
	c.push(MessageEvent{Message: FromDiscord(&ev.Message)})
}

func (c *Client) onMessageUpdate(ev *gateway.MessageUpdateEvent) {
	c.push(MessageEvent{Message: FromDiscord(&ev.Message), Updated: true})
}

func (c *Client) onReactionAdd(ev *gateway.MessageReactionAddEvent) {
	c.push(ReactionEvent{
		MessageID: uint64(ev.MessageID),
		ChannelID: uint64(ev.ChannelID),
		UserID:    uint64(ev.UserID),
		Emoji:     ev.Emoji.Name,
	})
}

// push drops events when the consumer falls behind rather than blocking the
// gateway reader.
func (c *Client) push(ev any) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("Event buffer full, dropping event")
	}
}
