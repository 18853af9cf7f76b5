package middleware

import (
	"log/slog"
	"net/http"

	chimid "github.com/go-chi/chi/v5/middleware"
)

// RequestID 每個請求帶一個 id（沿用 X-Request-Id header）
func RequestID(next http.Handler) http.Handler {
	return chimid.RequestID(next)
}

func GetReqId(r *http.Request) string {
	return chimid.GetReqID(r.Context())
}

// reqAttr 無 id 時回傳空 attr，slog 會略過
func reqAttr(r *http.Request) slog.Attr {
	id := GetReqId(r)
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("req_id", id)
}
