// Package notify delivers short operator messages. Delivery is best effort.
package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Notifier sends a text message to the operator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// LogNotifier writes messages to a zerolog logger.
type LogNotifier struct {
	logger zerolog.Logger
	level  zerolog.Level
}

// NewLogNotifier creates a notifier logging at info level on the global logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: log.Logger, level: zerolog.InfoLevel}
}

// NewLogNotifierWith creates a notifier logging on logger at level.
func NewLogNotifierWith(logger zerolog.Logger, level zerolog.Level) *LogNotifier {
	return &LogNotifier{logger: logger, level: level}
}

// Notify logs text.
func (n *LogNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.WithLevel(n.level).Str("channel", "log").Msg(text)
	return nil
}

// MultiNotifier fans a message out to several notifiers.
type MultiNotifier []Notifier

// Notify sends text to every notifier and joins their errors.
func (m MultiNotifier) Notify(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BestEffort sends text and logs failures instead of returning them.
func BestEffort(ctx context.Context, n Notifier, text string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, text); err != nil {
		log.Warn().Err(err).Msg("Notification failed")
	}
}
