package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

type Flags struct {
	Log struct {
		Level  zerolog.Level `kong:"default='info',enum='trace,debug,info,warn,error,fatal,panic',env='LOG_LEVEL'"`
		Format string        `kong:"default='json',enum='json,console',env='LOG_FORMAT'"`
	} `kong:"embed,prefix='log.'"`

	SlackBotToken string `kong:"required,env='SLACK_BOT_TOKEN',help='Slack bot token (xoxb-...)'"`
	SlackAppToken string `kong:"required,env='SLACK_APP_TOKEN',help='Slack app token for Socket Mode (xapp-...)'"`

	GitHubToken  string  `kong:"name='github-token',env='GITHUB_TOKEN',help='GitHub token (optional, raises API rate limits and allows private repositories)'"`
	GitHubAPIURL string  `kong:"name='github-api-url',env='GITHUB_API_URL',help='GitHub Enterprise API base URL'"`
	GitHubRate   float64 `kong:"name='github-rate',default='5',env='GITHUB_RATE',help='GitHub API requests per second (0 for unlimited)'"`
	GitHubBurst  int     `kong:"name='github-burst',default='5',env='GITHUB_BURST',help='GitHub API request burst'"`

	SnippetHost string `kong:"default='gist.github.com',env='SNIPPET_HOST',help='Host serving gists'"`
	RepoHost    string `kong:"default='github.com',env='REPO_HOST',help='Host serving repository files (empty matches any host)'"`

	AllowedChannels []string `kong:"env='ALLOWED_CHANNELS',sep=',',help='Comma-separated list of Slack channel IDs to watch (empty watches all)'"`

	MaxLookups    int           `kong:"default='8',env='MAX_LOOKUPS',help='Maximum concurrent history lookups'"`
	LookupTimeout time.Duration `kong:"default='30s',env='LOOKUP_TIMEOUT',help='Timeout for a single history lookup'"`
	ReplyInThread bool          `kong:"env='REPLY_IN_THREAD',help='Reply in a thread instead of the channel'"`

	GracefulShutdownTTL time.Duration `kong:"default='30s',env='GRACEFUL_SHUTDOWN_TTL',help='Time to wait for graceful shutdown'"`
}

type CLI struct {
	Flags
}

func (cli *CLI) Run(ctx *context.Context, logger zerolog.Logger) (err error) {
	channels := NewChannelFilter(cli.AllowedChannels)

	logger.Info().
		Str("snippet_host", cli.SnippetHost).
		Str("repo_host", cli.RepoHost).
		Bool("github_auth", cli.GitHubToken != "").
		Int("allowed_channels", channels.Count()).
		Msg("starting history slack bot")

	// Initialize components
	host, err := NewGitHubHost(
		cli.GitHubToken,
		cli.GitHubAPIURL,
		cli.GitHubRate,
		cli.GitHubBurst,
		logger,
	)
	if err != nil {
		return err
	}

	classifier := NewClassifier(cli.SnippetHost, cli.RepoHost)
	summarizer := NewSummarizer(host, classifier, logger)

	// Create and start the bot
	bot, err := NewBot(
		cli.SlackBotToken,
		cli.SlackAppToken,
		summarizer,
		channels,
		HandlerOptions{
			MaxLookups:    cli.MaxLookups,
			LookupTimeout: cli.LookupTimeout,
			ReplyInThread: cli.ReplyInThread,
		},
		logger,
	)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(*ctx)
	defer cancel()

	// Run bot in background
	errors := make(chan error, 1)
	go func() {
		errors <- bot.Run(runCtx)
	}()

	// Signal handling (buffer of 2 to catch second signal for force exit)
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	select {
	case <-signals:
		start := time.Now()
		logger.Warn().
			Float64("ttl", cli.GracefulShutdownTTL.Seconds()).
			Msg("shutting down gracefully (send again to force)")

		cancel()

		done := make(chan struct{})
		go func() {
			bot.Shutdown()
			err = <-errors
			close(done)
		}()

		select {
		case <-done:
		case <-signals:
			logger.Warn().
				Float64("elapsed", time.Since(start).Seconds()).
				Msg("received second signal: forcing immediate exit")
			os.Exit(1)
		case <-time.After(cli.GracefulShutdownTTL):
			logger.Error().
				Float64("elapsed", time.Since(start).Seconds()).
				Msg("graceful shutdown timeout: forcing exit")
			os.Exit(1)
		}

		logger.Info().
			Float64("elapsed", time.Since(start).Seconds()).
			Msg("graceful shutdown complete")

	case err = <-errors:
		if err != nil {
			logger.Error().Err(err).Msg("bot error")
		}
	}

	return err
}
