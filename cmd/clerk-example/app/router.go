package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexlup06-authgate/clerk-go/backend"
	"github.com/alexlup06-authgate/clerk-go/clerk"
)

// NewRouter wires the example routes behind the SDK's middleware.
//
//	GET /health    liveness, public
//	GET /metrics   Prometheus metrics of gatherer, public
//	GET /          greets signed-in users, anonymous visitors pass through
//	GET /me        the signed-in user, authentication required
//	GET /sessions  the signed-in user's active sessions, authentication required
func NewRouter(sdk *clerk.SDK, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	h := &handlers{client: sdk.Client()}

	r.With(sdk.WithAuth).Get("/", h.home)

	r.Group(func(r chi.Router) {
		r.Use(sdk.RequireAuth)
		r.Get("/me", h.me)
		r.Get("/sessions", h.sessions)
	})

	return r
}

type handlers struct {
	client *backend.Client
}

func (h *handlers) home(w http.ResponseWriter, r *http.Request) {
	userID, ok := clerk.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"signed_in": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signed_in": true, "user_id": userID})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := clerk.UserIDFromContext(r.Context())

	user, err := h.client.GetUser(r.Context(), userID)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    user.ID,
		"email": user.PrimaryEmailAddress(),
	})
}

func (h *handlers) sessions(w http.ResponseWriter, r *http.Request) {
	userID, _ := clerk.UserIDFromContext(r.Context())

	list, err := h.client.ListSessions(r.Context(), backend.ListSessionsParams{
		UserID: userID,
		Status: "active",
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	requestID, _ := clerk.RequestIDFromContext(r.Context())

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	slog.ErrorContext(r.Context(), "backend api call failed", "error", err, "request_id", requestID)
	writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream failure"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
