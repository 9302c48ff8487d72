// Command cramkle edits a note field or a template side from the terminal.
// Every line read from stdin is typed into the editor; lines starting with
// ':' are editor commands. Changes are autosaved through the API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"cramkle/app/internal/autosave"
	"cramkle/app/internal/config"
	"cramkle/app/internal/logging"
	"cramkle/app/internal/notify"
	"cramkle/app/internal/transport"
)

const usage = `usage:
  cramkle note <noteID> [field]
  cramkle model <modelID> [templateID] [front|back]`

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(1)
	}
	cfg := config.LoadClient()
	logger := logging.New(cfg.LogLevel)

	page, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, page, logger); err != nil {
		logger.Error().Err(err).Msg("cramkle")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ClientConfig, page pageArgs, logger zerolog.Logger) error {
	var opts []transport.Option
	opts = append(opts, transport.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}))
	if cfg.Author != "" {
		opts = append(opts, transport.WithHeader("X-Cramkle-Author", cfg.Author))
	}
	client := transport.New(cfg.APIURL, opts...)

	queue := notify.NewQueue(16)
	defer queue.Close()

	var remote *notify.RedisQueue
	if cfg.RedisURL != "" {
		q, err := notify.NewRedisQueue(cfg.RedisURL, notify.WithChannel("cli"), notify.WithLogger(logger))
		if err != nil {
			return err
		}
		defer q.Close()
		remote = q
	}

	s := newSession(os.Stdout, queue, remote)
	ws, err := page.open(ctx, client,
		autosave.WithNotifier(s.notifier()),
		autosave.WithObserver(s.observe),
		autosave.WithLogger(logger),
		autosave.WithRequestTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return err
	}
	defer func() {
		ws.Close()
		ws.Wait()
	}()

	if err := s.attach(ws, page.slot); err != nil {
		return err
	}
	return s.run(ctx, os.Stdin)
}
