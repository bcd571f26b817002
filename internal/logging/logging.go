package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tri-league/internal/config"
)

var (
	mu     sync.Mutex
	output io.Writer = os.Stdout
	closer io.Closer
)

// Init configures the global zerolog logger. When cfg.File is set, output is
// mirrored to a size-limited file next to stdout.
func Init(cfg config.LogConfig) error {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var out io.Writer = os.Stdout
	var fileCloser io.Closer
	if cfg.File != "" {
		fw, err := newSizeLimitedWriter(cfg.File, cfg.MaxMB)
		if err != nil {
			return err
		}
		out = io.MultiWriter(os.Stdout, fw)
		fileCloser = fw
	}

	var console io.Writer = out
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: out}
	}

	zerolog.SetGlobalLevel(level)
	ctx := zerolog.New(console).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}

	mu.Lock()
	if closer != nil {
		_ = closer.Close()
	}
	output = out
	closer = fileCloser
	mu.Unlock()

	log.Logger = logger
	return nil
}

// Writer returns the raw sink used by the global logger, for components that
// log through another frontend (slog request logs).
func Writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	output = os.Stdout
	return err
}
