package main

import (
	"github.com/ccoveille/go-safecast/v2"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// getLogger returns a zap-backed logr.Logger. A negative level discards
// all output; higher levels enable correspondingly verbose V-logs.
func getLogger(level int) logr.Logger {
	if level < 0 {
		return logr.Discard()
	}
	l, err := safecast.Convert[int8](level)
	if err != nil {
		l = 127
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-l))
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	z, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return zapr.NewLogger(z)
}
