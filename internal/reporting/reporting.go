// Package reporting forwards unexpected engine failures to Sentry.
// With no DSN configured every call is a no-op.
package reporting

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
	"github.com/Belphemur/TubeMP3/internal/config"
)

const flushTimeout = 2 * time.Second

// Options configures the Sentry client
type Options struct {
	DSN         string
	Environment string
	Release     string

	// beforeSend lets tests observe events without a network
	beforeSend func(*sentry.Event, *sentry.EventHint) *sentry.Event
}

// Reporter captures errors that indicate a broken installation or a tool failure
type Reporter struct {
	hub *sentry.Hub
}

// New initialises a Sentry client. An empty DSN returns a disabled Reporter.
func New(opts Options) (*Reporter, error) {
	logger := config.GetLogger()
	if opts.DSN == "" {
		logger.Debug().Msg("Sentry DSN not set, error reporting disabled")
		return &Reporter{}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		AttachStacktrace: true,
		BeforeSend:       opts.beforeSend,
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("environment", opts.Environment).Msg("Sentry error reporting enabled")
	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Enabled reports whether events are sent anywhere
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// Capture sends err with the given tags when it is worth reporting.
// Caller mistakes and cancellations are dropped.
func (r *Reporter) Capture(err error, tags map[string]string) {
	if !r.Enabled() || !Reportable(err) {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		r.hub.CaptureException(err)
	})
}

// Flush waits for queued events to be delivered
func (r *Reporter) Flush() {
	if !r.Enabled() {
		return
	}
	if !r.hub.Flush(flushTimeout) {
		logger := config.GetLogger()
		logger.Warn().Msg("Timed out flushing Sentry events")
	}
}

// Reportable is false for errors caused by the request itself or by cancellation
func Reportable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, &apperrors.ErrInvalidURL{}),
		errors.Is(err, &apperrors.ErrInvalidBitrate{}),
		errors.Is(err, &apperrors.ErrEmptyPlaylist{}),
		errors.Is(err, &apperrors.ErrInsufficientSpace{}):
		return false
	}
	return true
}
