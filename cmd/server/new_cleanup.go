package main

import (
	"io"
	"log/slog"
)

// newCleanup builds the shutdown hook: close the report archive, then the
// shared store.
func newCleanup(closeArchive func() error, store io.Closer) func() {
	return func() {
		if closeArchive != nil {
			if err := closeArchive(); err != nil {
				slog.Error("failed to close report archive", slog.String("error", err.Error()))
			}
		}

		if store != nil {
			if err := store.Close(); err != nil {
				slog.Error("failed to close store", slog.String("error", err.Error()))
			}
		}
	}
}
