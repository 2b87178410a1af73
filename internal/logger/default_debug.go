//go:build dev || debug

package logger

import "github.com/rs/zerolog"

// defaultLevel is Debug for dev/debug builds (tag 'dev' or 'debug').
var defaultLevel = zerolog.DebugLevel
