// Package logx configures tgsend's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Optional operations-chat sink (min-level + rate limiting)
//
// The console at info level is the terse operator channel; debug level carries
// the full diagnostic detail.
package logx
