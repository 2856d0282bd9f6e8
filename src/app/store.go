package app

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/spf13/afero"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Blackdeer1524/ISAMStore/src"
	"github.com/Blackdeer1524/ISAMStore/src/cfg"
	"github.com/Blackdeer1524/ISAMStore/src/storage/isam"
)

// Store bundles an open sequential file with the configuration and logger
// it was opened with.
type Store struct {
	Config cfg.Config
	Fs     afero.Fs
	Log    src.Logger
	File   *isam.File

	tracer *sdktrace.TracerProvider
}

const tracerShutdownTimeout = 5 * time.Second

// OpenStore loads the configuration from envPath and opens the data file on
// the OS filesystem.
func OpenStore(envPath string) (*Store, error) {
	config, err := cfg.Load(envPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := NewLogger(config.Environment)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	s, err := NewStore(config, afero.NewOsFs(), log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return s, nil
}

func NewStore(config cfg.Config, fs afero.Fs, log src.Logger) (*Store, error) {
	opts, err := config.StoreOptions(fs)
	if err != nil {
		return nil, err
	}

	tp, err := NewTracerProvider(context.Background(), config.Tracing, log)
	if err != nil {
		return nil, err
	}
	if tp != nil {
		opts.TracerProvider = tp
	}

	file, err := isam.Open(opts, fs, log)
	if err != nil {
		if tp != nil {
			_ = tp.Shutdown(context.Background())
		}
		return nil, fmt.Errorf("open %s: %w", opts.DataPath, err)
	}

	return &Store{
		Config: config,
		Fs:     fs,
		Log:    log,
		File:   file,
		tracer: tp,
	}, nil
}

// Close persists the index, flushes pending spans and the logger.
func (s *Store) Close() error {
	err := s.File.Close()
	if err != nil {
		s.Log.Errorw("failed to close data file", zap.Error(err))
	}

	if s.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		defer cancel()
		if traceErr := s.tracer.Shutdown(ctx); traceErr != nil {
			s.Log.Errorw("failed to shut down tracer provider", zap.Error(traceErr))
			err = errors.Join(err, traceErr)
		}
	}

	// syncing a logger bound to a terminal fails with EINVAL on linux
	logErr := s.Log.Sync()
	if logErr != nil && !isInvalidSync(logErr) {
		err = errors.Join(err, logErr)
	}
	return err
}

func isInvalidSync(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}
