package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stock-analyst/internal/config"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/performance"
)

// Poller is a Messenger that can also long-poll for updates.
type Poller interface {
	Messenger
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]Update, error)
}

// Bot runs the polling loop and hands updates to a worker pool so one slow
// analysis does not hold up other chats.
type Bot struct {
	client      Poller
	handler     *Handler
	pool        *performance.WorkerPool
	pollTimeout time.Duration
	errorDelay  time.Duration
	// drainTimeout bounds how long queued updates may keep replying after
	// polling stops.
	drainTimeout time.Duration
	logger       zerolog.Logger
}

// New creates a bot from configuration.
func New(cfg *config.Config, analyst Analyst, logger zerolog.Logger) (*Bot, error) {
	token := cfg.Credentials.Telegram.BotToken
	if token == "" {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "telegram bot token is not set (BOT_TOKEN or credentials.toml)")
	}
	client := NewClient(cfg.Telegram.BaseURL, token, cfg.Telegram.PollTimeout, cfg.Provider.Proxy)
	return NewWithClient(client, analyst, cfg.Telegram, logger), nil
}

// NewWithClient creates a bot over an existing client.
func NewWithClient(client Poller, analyst Analyst, cfg config.TelegramConfig, logger zerolog.Logger) *Bot {
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &Bot{
		client:      client,
		handler:     NewHandler(analyst, client, cfg).WithLogger(logger),
		pool:        performance.NewWorkerPool(cfg.Workers, 0),
		pollTimeout:  pollTimeout,
		errorDelay:   5 * time.Second,
		drainTimeout: 30 * time.Second,
		logger:       logger,
	}
}

// Run polls until ctx is cancelled, then waits up to drainTimeout for
// queued updates. Handlers run on a context that outlives ctx so their
// replies still reach the chat during shutdown.
func (b *Bot) Run(ctx context.Context) error {
	handlerCtx, cancelHandlers := context.WithCancel(context.WithoutCancel(ctx))
	b.pool.Start()
	defer b.drain(cancelHandlers)

	b.logger.Info().Dur("poll_timeout", b.pollTimeout).Msg("Telegram polling started")
	offset := 0

	for {
		if ctx.Err() != nil {
			b.logger.Info().Msg("Telegram polling stopped")
			return nil
		}

		updates, err := b.client.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			delay := b.errorDelay
			var apiErr *APIError
			if apperrors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				delay = time.Duration(apiErr.RetryAfter) * time.Second
			}
			b.logger.Warn().Err(err).Dur("retry_in", delay).Msg("polling request failed")
			b.sleep(ctx, delay)
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			u := update
			if !b.pool.Submit(func() { b.handler.HandleUpdate(handlerCtx, u) }) {
				b.logger.Warn().Int("update_id", u.UpdateID).Msg("worker pool saturated, update rejected")
				b.handler.Busy(handlerCtx, u)
			}
		}
	}
}

// drain stops the pool and cancels the handlers still running once
// drainTimeout has passed.
func (b *Bot) drain(cancelHandlers context.CancelFunc) {
	defer cancelHandlers()

	stopped := make(chan struct{})
	go func() {
		b.pool.Stop()
		close(stopped)
	}()

	t := time.NewTimer(b.drainTimeout)
	defer t.Stop()
	select {
	case <-stopped:
	case <-t.C:
		b.logger.Warn().Dur("drain_timeout", b.drainTimeout).Msg("cancelling updates still in flight")
		cancelHandlers()
		<-stopped
	}
}

// Stats reports the worker pool state.
func (b *Bot) Stats() performance.PoolStats {
	return b.pool.Stats()
}

func (b *Bot) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
