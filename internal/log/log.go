package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
	apperrors "github.com/olusolaa/fleet-provisioner/internal/errors"
)

type slogAdapter struct {
	logger *slog.Logger
}

func NewLogger(cfg Config) (ports.Logger, error) {
	var level slog.Level
	switch cfg.Level {
	case LevelDebug:
		level = slog.LevelDebug
	case LevelInfo:
		level = slog.LevelInfo
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	case "":
		level = slog.LevelInfo
	default:
		return nil, apperrors.New(apperrors.CodeConfigValidation, fmt.Sprintf("unknown log level %q", cfg.Level))
	}

	opts := &slog.HandlerOptions{Level: level}

	outputWriter := cfg.Output
	if outputWriter == nil {
		outputWriter = io.Writer(os.Stderr)
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(outputWriter, opts)
	case FormatText, "":
		handler = slog.NewTextHandler(outputWriter, opts)
	default:
		return nil, apperrors.New(apperrors.CodeConfigValidation, fmt.Sprintf("unknown log format %q", cfg.Format))
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With(slog.String("service", cfg.Service))
	}
	return &slogAdapter{logger: logger}, nil
}

// NewNop returns a logger that discards everything. Used by tests and by
// commands that print their own output.
func NewNop() ports.Logger {
	return &slogAdapter{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (s *slogAdapter) log(ctx context.Context, level slog.Level, err error, format string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.logger.Enabled(ctx, level) {
		return
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	attrs := []slog.Attr{}
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			attrs = append(attrs, slog.String("error_code", string(appErr.Code)))
			if appErr.InternalDetails != "" {
				attrs = append(attrs, slog.String("error_details", appErr.InternalDetails))
			}
			if appErr.WrappedError != nil {
				attrs = append(attrs, slog.String("error_wrapped", appErr.WrappedError.Error()))
			}
		} else {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
	}

	s.logger.LogAttrs(ctx, level, msg, attrs...)
}

func (s *slogAdapter) Debugf(ctx context.Context, format string, args ...any) {
	s.log(ctx, slog.LevelDebug, nil, format, args...)
}

func (s *slogAdapter) Infof(ctx context.Context, format string, args ...any) {
	s.log(ctx, slog.LevelInfo, nil, format, args...)
}

func (s *slogAdapter) Warnf(ctx context.Context, format string, args ...any) {
	s.log(ctx, slog.LevelWarn, nil, format, args...)
}

func (s *slogAdapter) Errorf(ctx context.Context, err error, format string, args ...any) {
	s.log(ctx, slog.LevelError, err, format, args...)
}

func (s *slogAdapter) WithFields(fields map[string]any) ports.Logger {
	anyAttrs := make([]any, 0, len(fields))
	for k, v := range fields {
		anyAttrs = append(anyAttrs, slog.Any(k, v))
	}
	return &slogAdapter{logger: s.logger.With(anyAttrs...)}
}
