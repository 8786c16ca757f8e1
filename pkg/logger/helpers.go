package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs one remote API call
func LogRequest(l Logger, endpoint string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"endpoint":    endpoint,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("API request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("API request client error", fields)
	default:
		l.DebugWithFields("API request completed", fields)
	}
}

// LogPrivateSkip records that an account's content could not be read
func LogPrivateSkip(l Logger, accountID string, step string) {
	l.WithFields(map[string]interface{}{
		"account_id": accountID,
		"step":       step,
		"action":     "skipped_private",
	}).Warn("Account is private, skipping")
}

// LogConflict records an expected uniqueness conflict on insert
func LogConflict(l Logger, entity string, key string) {
	l.WithFields(map[string]interface{}{
		"entity": entity,
		"key":    key,
	}).Debug("Already stored, skipping insert")
}

// LogQuota records the remaining API quota
func LogQuota(l Logger, remaining int) {
	fields := map[string]interface{}{
		"remaining_quota": remaining,
	}
	if remaining < 100 {
		l.WarnWithFields("API quota running low", fields)
		return
	}
	l.DebugWithFields("API quota", fields)
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	l = l.WithField("component", component)
	if len(settings) > 0 {
		l = l.WithFields(settings)
	}
	l.Info("Component started")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
