package main

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack/slackevents"
)

// historian builds a card for a message, or nil if none applies.
type historian interface {
	GetHistory(ctx context.Context, text string) (*Card, error)
}

// cardPoster posts a card into a channel, optionally in a thread.
type cardPoster interface {
	PostCard(ctx context.Context, channelID string, card *Card, threadTS string) (string, error)
}

// userMessageSubtypes are the message subtypes that carry text a user wrote.
var userMessageSubtypes = map[string]bool{
	"":                 true,
	"thread_broadcast": true,
	"file_share":       true,
}

// HandlerOptions tune how lookups run off the event loop.
type HandlerOptions struct {
	MaxLookups    int           // Concurrent lookups; further messages wait for a slot.
	LookupTimeout time.Duration // Per-message deadline; zero disables it.
	ReplyInThread bool
}

// Handler processes Slack message events.
type Handler struct {
	history  historian
	poster   cardPoster
	channels *ChannelFilter
	opts     HandlerOptions
	logger   zerolog.Logger

	slots    chan struct{}
	inflight sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewHandler creates a new Handler.
func NewHandler(
	history historian,
	poster cardPoster,
	channels *ChannelFilter,
	opts HandlerOptions,
	logger zerolog.Logger,
) *Handler {
	if opts.MaxLookups < 1 {
		opts.MaxLookups = 1
	}

	return &Handler{
		history:  history,
		poster:   poster,
		channels: channels,
		opts:     opts,
		logger:   logger.With().Str("component", "handler").Logger(),
		slots:    make(chan struct{}, opts.MaxLookups),
	}
}

// HandleMessage looks for a URL in a channel message and replies with a card.
// The lookup runs on its own goroutine so the event loop is never blocked.
func (h *Handler) HandleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	// Ignore bot messages (our own cards included) and edits, joins, etc.
	if ev.BotID != "" || !userMessageSubtypes[ev.SubType] {
		return
	}

	logger := h.logger.With().
		Str("channel", ev.Channel).
		Str("user", ev.User).
		Str("ts", ev.TimeStamp).
		Logger()

	if ctx.Err() != nil {
		logger.Debug().Msg("shutting down, ignoring message")
		return
	}

	if !h.channels.Allows(ev.Channel) {
		logger.Debug().Msg("channel not allowed, ignoring")
		return
	}

	if !h.start() {
		logger.Debug().Msg("shutting down, ignoring message")
		return
	}
	go func() {
		defer h.inflight.Done()
		h.reply(ctx, ev, logger)
	}()
}

// reply runs one lookup and posts the card, if any.
func (h *Handler) reply(ctx context.Context, ev *slackevents.MessageEvent, logger zerolog.Logger) {
	select {
	case h.slots <- struct{}{}:
		defer func() { <-h.slots }()
	case <-ctx.Done():
		logger.Debug().Msg("shutting down before lookup started")
		return
	}

	if h.opts.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.LookupTimeout)
		defer cancel()
	}

	start := time.Now()

	card, err := h.history.GetHistory(ctx, ev.Text)
	if err != nil {
		logger.Error().Err(err).Msgf("history lookup failed: %+v", err)
		return
	}
	if card == nil {
		return
	}

	threadTS := ""
	if h.opts.ReplyInThread {
		threadTS = ev.ThreadTimeStamp
		if threadTS == "" {
			threadTS = ev.TimeStamp
		}
	}

	ts, err := h.poster.PostCard(ctx, ev.Channel, card, threadTS)
	if err != nil {
		logger.Error().Err(err).Msg("failed to post card")
		return
	}

	logger.Info().
		Str("title", card.Title).
		Str("reply_ts", ts).
		Dur("elapsed", time.Since(start)).
		Msg("posted history card")
}

// start registers a lookup unless the handler has been closed.
func (h *Handler) start() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.inflight.Add(1)
	return true
}

// Close stops new lookups from starting and waits for in-flight ones. Lookups
// end early once the context they were started with is cancelled.
func (h *Handler) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.inflight.Wait()
}
