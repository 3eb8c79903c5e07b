// Command historybot answers GitHub file and gist links posted in Slack with
// a card listing their latest revisions.
package main

import (
	"context"
	"io"
	stdlog "log"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// newLogger builds the root logger. Console output is colored only on a TTY.
func newLogger(level zerolog.Level, format string) zerolog.Logger {
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stderr
	if format == "console" {
		output = zerolog.ConsoleWriter{
			Out:     os.Stderr,
			NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
		}
	}

	return zerolog.New(output).With().Timestamp().Str("app", "historybot").Logger()
}

func Run() error {
	ctx := context.Background()

	// Tokens usually live in .env during development; a missing file is fine.
	_ = godotenv.Load()

	cli := &CLI{}
	kctx := kong.Parse(
		cli,
		kong.Name("historybot"),
		kong.Description("Replies to GitHub file and gist links with their recent revision history."),
		kong.UsageOnError(),
		kong.Bind(&ctx),
		kong.Bind(&cli.Flags),
	)

	logger := newLogger(cli.Log.Level, cli.Log.Format)

	// slack-go and socketmode log through the standard library.
	stdlog.SetFlags(0)
	stdlog.SetOutput(logger)

	kctx.Bind(logger)

	if err := kctx.Run(); err != nil {
		logger.Error().Err(err).Msgf("exiting: %+v", err)
		return err
	}

	return nil
}

func main() {
	if err := Run(); err != nil {
		os.Exit(1)
	}
}
