package main

import (
	"context"

	"github.com/rs/zerolog"
)

type httpStopper interface {
	Shutdown(ctx context.Context) error
}

type sessionCloser interface {
	Shutdown(ctx context.Context)
}

type healthStopper interface {
	Stop()
}

type shutdownStep struct {
	name string
	run  func(ctx context.Context) error
}

// shutdownSteps orders teardown. The HTTP server stops first so no websocket
// can be upgraded after the live sessions have been drained.
func shutdownSteps(srv httpStopper, sessions sessionCloser, health healthStopper, tracer func(context.Context) error) []shutdownStep {
	return []shutdownStep{
		{name: "http", run: srv.Shutdown},
		{name: "sessions", run: func(ctx context.Context) error {
			sessions.Shutdown(ctx)
			return nil
		}},
		{name: "grpc", run: func(context.Context) error {
			health.Stop()
			return nil
		}},
		{name: "tracer", run: tracer},
	}
}

// runShutdown runs every step even when an earlier one fails.
func runShutdown(ctx context.Context, logger zerolog.Logger, steps []shutdownStep) {
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			logger.Warn().Err(err).Str("step", step.name).Msg("shutdown step failed")
		}
	}
}
