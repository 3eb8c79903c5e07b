package main

import (
	"context"

	"github.com/calebcase/oops"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// Bot manages the Slack connection and event handling.
type Bot struct {
	client        *slack.Client
	socket        *socketmode.Client
	socketHandler *socketmode.SocketmodeHandler
	logger        zerolog.Logger
	handler       *Handler

	// ctx is the context Run was called with. Lookups inherit it so that
	// cancelling Run also cancels them.
	ctx context.Context
}

// NewBot creates a new Bot instance.
func NewBot(
	botToken string,
	appToken string,
	history historian,
	channels *ChannelFilter,
	opts HandlerOptions,
	logger zerolog.Logger,
) (*Bot, error) {
	client := slack.New(
		botToken,
		slack.OptionAppLevelToken(appToken),
	)

	socket := socketmode.New(
		client,
		socketmode.OptionDebug(logger.GetLevel() <= zerolog.DebugLevel),
	)

	// Create the socketmode handler for registering event callbacks
	socketHandler := socketmode.NewSocketmodeHandler(socket)

	bot := &Bot{
		client:        client,
		socket:        socket,
		socketHandler: socketHandler,
		logger:        logger.With().Str("component", "bot").Logger(),
		ctx:           context.Background(),
	}

	bot.handler = NewHandler(history, bot, channels, opts, logger)

	bot.registerEventHandlers()

	return bot, nil
}

// Run starts the bot and processes events until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info().Msg("starting socket mode connection")

	b.ctx = ctx

	err := b.socketHandler.RunEventLoopContext(ctx)
	if err != nil && ctx.Err() == nil {
		return oops.Trace(err)
	}

	return nil
}

// Shutdown stops accepting messages and waits for in-flight lookups. Cancel
// the context passed to Run first so that queued lookups give up.
func (b *Bot) Shutdown() {
	b.logger.Info().Msg("shutting down bot")
	b.handler.Close()
}

// registerEventHandlers sets up all the socketmode handler callbacks.
func (b *Bot) registerEventHandlers() {
	// Handle Events API events (message, etc.)
	b.socketHandler.Handle(socketmode.EventTypeEventsAPI, b.handleEventsAPIMiddleware)

	// Handle connection events
	b.socketHandler.Handle(socketmode.EventTypeConnecting, func(evt *socketmode.Event, client *socketmode.Client) {
		b.logger.Info().Msg("connecting to Slack...")
	})

	b.socketHandler.Handle(socketmode.EventTypeConnected, func(evt *socketmode.Event, client *socketmode.Client) {
		b.logger.Info().Msg("connected to Slack")
	})

	b.socketHandler.Handle(socketmode.EventTypeConnectionError, func(evt *socketmode.Event, client *socketmode.Client) {
		b.logger.Error().Msg("connection error")
	})

	b.socketHandler.Handle(socketmode.EventTypeHello, func(evt *socketmode.Event, client *socketmode.Client) {
		b.logger.Debug().Msg("received hello from Slack")
	})
}

// handleEventsAPIMiddleware is the socketmode handler for Events API events.
func (b *Bot) handleEventsAPIMiddleware(evt *socketmode.Event, client *socketmode.Client) {
	eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		b.logger.Warn().
			Interface("data", evt.Data).
			Msg("failed to cast EventsAPI event")
		return
	}

	client.Ack(*evt.Request)
	b.handleEventsAPIEvent(b.ctx, eventsAPIEvent)
}

// handleEventsAPIEvent processes Events API events.
func (b *Bot) handleEventsAPIEvent(ctx context.Context, evt slackevents.EventsAPIEvent) {
	b.logger.Debug().
		Str("type", evt.Type).
		Str("inner_type", evt.InnerEvent.Type).
		Msg("handling Events API event")

	switch evt.Type {
	case slackevents.CallbackEvent:
		b.handleCallbackEvent(ctx, evt.InnerEvent)
	default:
		b.logger.Debug().
			Str("type", evt.Type).
			Msg("unhandled Events API event type")
	}
}

// handleCallbackEvent processes callback events.
func (b *Bot) handleCallbackEvent(ctx context.Context, innerEvent slackevents.EventsAPIInnerEvent) {
	switch ev := innerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		b.handler.HandleMessage(ctx, ev)
	default:
		b.logger.Debug().
			Str("type", innerEvent.Type).
			Msg("unhandled callback event type")
	}
}

// PostCard sends a card to a channel as a message attachment.
func (b *Bot) PostCard(ctx context.Context, channelID string, card *Card, threadTS string) (string, error) {
	opts := []slack.MsgOption{
		slack.MsgOptionAttachments(CardAttachment(card)),
	}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, ts, err := b.client.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", oops.Trace(err)
	}
	return ts, nil
}
