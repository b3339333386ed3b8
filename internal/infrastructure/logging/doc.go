// Package logging provides structured logging using uber/zap.
//
// Production logs are JSON lines; development logs are colored console
// output. LOG_FORMAT overrides the choice either way.
//
// Components take a *zap.Logger; use Component to get a named child so
// proxy failures and session events can be filtered by source.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	logger.Info("Server starting", zap.String("port", "8000"))
//	logger.Component("weather").Error("upstream failed", zap.Error(err))
package logging
