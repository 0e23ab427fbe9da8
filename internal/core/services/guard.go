package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
)

// guardRemote runs a remote interaction behind a single error boundary.
// Panics and errors are logged with the remote error detail and returned
// wrapped in domain.ErrSynchronizationFailed.
func guardRemote(ctx context.Context, logger *slog.Logger, action string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("remote call panicked", "action", action, "panic", r)
			err = fmt.Errorf("%s: %w", action, domain.ErrSynchronizationFailed)
		}
	}()

	if err := fn(ctx); err != nil {
		logRemoteError(logger, action, err)
		if errors.Is(err, domain.ErrNotConfigured) {
			return fmt.Errorf("%s: %w", action, err)
		}
		return fmt.Errorf("%s: %w: %w", action, domain.ErrSynchronizationFailed, err)
	}
	return nil
}

// logRemoteError logs err with the structured detail of a remote API problem
func logRemoteError(logger *slog.Logger, action string, err error) {
	var remote *domain.RemoteError
	if errors.As(err, &remote) {
		attrs := []any{
			"action", action,
			"status", remote.Status,
			"title", remote.Title,
			"detail", remote.Detail,
		}
		for _, fe := range remote.Errors {
			attrs = append(attrs, "field_"+fe.Field, fe.Message)
		}
		logger.Error("remote request failed", attrs...)
		return
	}
	logger.Error("remote request failed", "action", action, "error", err)
}
