// Package logger provides structured logging for igcrawl on top of zerolog.
//
// A process-wide logger is configured once from config.LoggingConfig:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil { ... }
//	logger.WithField("account_id", id).Info("Pulling account")
//
// Components take a Logger in their constructors so tests can pass
// NewNopLogger or a capturing NewTestLogger instead.
package logger
