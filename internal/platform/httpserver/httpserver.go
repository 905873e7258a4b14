// Package httpserver builds the HTTP server the case API runs behind.
package httpserver

import (
	"context"
	"net/http"
	"time"
)

// ShutdownTimeout bounds graceful shutdown. In-flight requests, including
// report downloads, get this long to finish.
const ShutdownTimeout = 10 * time.Second

// New builds the server for the case API. The write timeout is generous
// because compliance report downloads stream whole TSV files.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       time.Minute,
	}
}

// Shutdown drains the server within ShutdownTimeout.
func Shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
