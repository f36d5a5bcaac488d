package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type loggerContextKey struct{}

// New returns the JSON logger used by all processes, annotated with trace ids when available
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewTracingLogHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

func FromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger)
	if !ok || logger == nil {
		return New(os.Stdout, slog.LevelInfo).With(slog.String("logger", "fallback"))
	}
	return logger
}

func AddToContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

func AddMetaToContext(ctx context.Context, args ...slog.Attr) context.Context {
	anySlice := make([]any, len(args))
	for i, arg := range args {
		anySlice[i] = arg
	}

	return AddToContext(ctx, FromContext(ctx).With(anySlice...))
}
