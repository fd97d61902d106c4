package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/prism/internal/core"
	mw "github.com/JonMunkholm/prism/internal/web/middleware"
)

// WithRequestMetadata adds the client IP and User-Agent to context for run logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, mw.ClientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.Header.Get("User-Agent"))
	return ctx
}
