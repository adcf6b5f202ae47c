// Package logger provides structured logging for cmdstream using zerolog.
//
// Logs default to stderr so that a CLI forwarding the child process's
// standard output keeps that stream byte-for-byte clean.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "stderr"
//
// # Usage
//
//	logger.Init(&cfg.Logging)
//	log := logger.WithComponent("splice")
//	log.WithError(err).Warn("item skipped", logger.Fields(logger.FieldSeq, 3))
package logger
