// Command engram-storage-server runs the reference remote storage
// backend for manually exercising storage.RemoteStore against a real
// network round trip instead of an in-process test double.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/engramhq/engram/internal/storage/remoteserver"
)

func main() {
	addr := os.Getenv("ENGRAM_STORAGE_LISTEN")
	if addr == "" {
		addr = ":8390"
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := remoteserver.New(logger)

	logger.Info("engram-storage-server listening", "addr", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
