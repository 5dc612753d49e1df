package httpserver

import (
	"net/http"
	"time"

	"cddflow/internal/platform/config"
)

// New builds the review API server. Write and idle timeouts are generous
// because one review request fans out to two external channels; the header
// timeout stays tight to shed slow-loris connections.
func New(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
