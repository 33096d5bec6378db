package main

import (
	"log/slog"
	"os"

	"github.com/kstaniek/iips-core/internal/logging"
)

func setupLogger(format, level string) *slog.Logger {
	l := logging.New(format, logging.ParseLevel(level), os.Stderr).With("app", "iips-core")
	logging.Set(l)
	return l
}
