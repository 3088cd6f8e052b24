package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"booklibrary/internal/book"
	"booklibrary/internal/httpx"
)

const readinessBudget = 500 * time.Millisecond

type pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	Books          *book.HTTPHandler
	DB             pinger
	AllowedOrigins []string
	RateLimit      *httpx.RateLimitMiddleware
}

func newRouter(deps routerDeps) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"message": "Book Library API is working"})
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessBudget)
		defer cancel()
		if err := deps.DB.Ping(ctx); err != nil {
			slog.Warn("readiness check failed", "request_id", httpx.RequestIDFrom(r), "error", err)
			httpx.JSONError(w, r, http.StatusServiceUnavailable, httpx.CodeStoreUnavailable, "Book store not ready", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	router.HandleFunc("GET /books", deps.Books.List)
	router.HandleFunc("GET /book", deps.Books.GetByISBNQuery)
	router.HandleFunc("GET /books/{isbn}", deps.Books.GetByISBNPath)

	middlewares := []func(http.Handler) http.Handler{
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		httpx.SecurityHeadersMiddleware,
		httpx.CORSMiddleware(deps.AllowedOrigins),
	}
	if deps.RateLimit != nil {
		middlewares = append(middlewares, deps.RateLimit.Middleware)
	}
	return httpx.Chain(router, middlewares...)
}
