// Package lookup turns the request/response pair of a character info command
// into a blocking call: send the command, wait for the classified response
// from the same channel.
package lookup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds how long a lookup waits before reporting not-found.
const DefaultTimeout = 10 * time.Second

// Result is the outcome of one lookup. Found is false on timeout or when the
// character does not exist.
type Result struct {
	Name        string
	Series      string
	ImageURL    string
	KakeraValue int
	HasKakera   bool
	ExternalID  string
	Found       bool
}

// Sender sends plain text into a channel.
type Sender interface {
	SendText(ctx context.Context, channelID uint64, content string) error
}

// Coordinator matches lookup commands to their responses. Each channel has a
// single pending slot; a second request in the same channel supersedes the
// first, which then resolves not-found.
type Coordinator struct {
	sender  Sender
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[uint64]chan Result
	cache   map[string]Result
}

// New creates a coordinator with the default timeout.
func New(sender Sender, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		sender:  sender,
		timeout: DefaultTimeout,
		logger:  logger.Named("lookup"),
		pending: make(map[uint64]chan Result),
		cache:   make(map[string]Result),
	}
}

// Request looks up a character by name in channelID. Responses are matched by
// channel, so callers should not run concurrent lookups in one channel; if
// they do, the newest request wins the slot.
func (c *Coordinator) Request(ctx context.Context, channelID uint64, query string) (Result, error) {
	key := strings.ToLower(strings.TrimSpace(query))

	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()

		c.logger.Debug("Lookup served from cache", zap.String("query", query))

		return cached, nil
	}

	if prev, ok := c.pending[channelID]; ok {
		// Supersede: the earlier caller gets a not-found instead of
		// hanging until its timeout.
		deliver(prev, Result{})
	}

	ch := make(chan Result, 1)
	c.pending[channelID] = ch
	c.mu.Unlock()

	defer c.release(channelID, ch)

	if err := c.sender.SendText(ctx, channelID, "$im "+query); err != nil {
		return Result{}, fmt.Errorf("failed to send lookup command: %w", err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case result := <-ch:
		if result.Found {
			c.mu.Lock()
			c.cache[key] = result
			c.mu.Unlock()
		}

		return result, nil

	case <-timer.C:
		c.logger.Warn("Lookup timed out", zap.String("query", query))
		return Result{}, nil

	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Resolve delivers a classified lookup response to the pending request in
// channelID, if any. Responses with no waiter are dropped.
func (c *Coordinator) Resolve(channelID uint64, result Result) {
	c.mu.Lock()
	ch, ok := c.pending[channelID]
	if ok {
		delete(c.pending, channelID)
	}
	c.mu.Unlock()

	if !ok {
		return
	}

	deliver(ch, result)
}

// HasPending reports whether a lookup is waiting in channelID.
func (c *Coordinator) HasPending(channelID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.pending[channelID]

	return ok
}

// ClearCache drops all cached results.
func (c *Coordinator) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]Result)
}

// release removes the slot only if it still belongs to this request.
func (c *Coordinator) release(channelID uint64, ch chan Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending[channelID] == ch {
		delete(c.pending, channelID)
	}
}

func deliver(ch chan Result, result Result) {
	select {
	case ch <- result:
	default:
	}
}
