// Package logging provides structured logging for devicehub.
//
// It wraps log/slog with JSON (production) or text (development) output,
// level filtering and default service/version fields on every record.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// Never log secrets, tokens or raw version tokens.
package logging
