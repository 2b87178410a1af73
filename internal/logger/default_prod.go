//go:build !dev && !debug

package logger

import "github.com/rs/zerolog"

// defaultLevel is Info for production builds (no 'dev' or 'debug' tag).
var defaultLevel = zerolog.InfoLevel
