package server

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Route は /ws と /health を登録したmuxを返します。
// WebSocketはhijackされるため計装せず、/health のみotelhttpで包みます。
func Route(accept http.Handler, health http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", accept)
	mux.Handle("GET /health", otelhttp.NewHandler(health, "health"))
	return mux
}
