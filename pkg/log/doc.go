// Package log captures protocol events for offline inspection.
//
// This is separate from operational logging, which uses log/slog. A
// protocol Logger sees every control message, subscription command, push
// and lifecycle change as a structured Event:
//
//	// console
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// file capture
//	fl, _ := log.NewFileLogger("/var/log/oscquery/server.olog")
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// Log files are a sequence of CBOR-encoded events; the oscquery-log command
// views and summarizes them.
package log
