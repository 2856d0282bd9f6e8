package app

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

type Entrypoint interface {
	io.Closer
	Init(ctx context.Context) error
	Run(ctx context.Context) error
}

// Run initializes e, runs it until it returns or a signal arrives and then
// closes it.
func Run(ctx context.Context, e Entrypoint) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := e.Init(ctx); err != nil {
		return fmt.Errorf("entrypoint init error: %w", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	eg.Go(func() error {
		defer stop()
		return e.Run(runCtx)
	})

	// graceful shutdown
	eg.Go(func() error {
		<-runCtx.Done()
		return e.Close()
	})

	return eg.Wait()
}
