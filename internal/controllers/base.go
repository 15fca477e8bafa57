package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/wurt83ow/guestbook/internal/apiservice"
	"github.com/wurt83ow/guestbook/internal/auth"
	"github.com/wurt83ow/guestbook/internal/fingerprint"
	"github.com/wurt83ow/guestbook/internal/models"
	"github.com/wurt83ow/guestbook/internal/ratelimit"
	"github.com/wurt83ow/guestbook/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Storage is the slice of the storage layer the handlers need.
type Storage interface {
	CountAll(ctx context.Context) (int, error)
	GetMessages(ctx context.Context, limit int) ([]models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	Ping(ctx context.Context) (time.Duration, error)
}

// Submitter runs the submission pipeline.
type Submitter interface {
	Submit(ctx context.Context, req models.RequestMessage, fp, userAgent string) (models.Message, error)
}

// AdminGate validates the shared admin secret.
type AdminGate interface {
	Check(secret string) error
}

type Log interface {
	Info(string, ...zapcore.Field)
}

// BaseController handles all HTTP requests of the guestbook API.
type BaseController struct {
	storage Storage
	service Submitter
	gate    AdminGate
	origin  func() string
	log     Log
}

func NewBaseController(storage Storage, service Submitter, gate AdminGate, origin func() string, log Log) *BaseController {
	return &BaseController{
		storage: storage,
		service: service,
		gate:    gate,
		origin:  origin,
		log:     log,
	}
}

// Route sets up the routes for the BaseController.
func (h *BaseController) Route() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(h.withCORS)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", h.Status)
	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.SubmitMessage)
		r.Get("/messages/count", h.CountMessages)
		r.Post("/login", h.Login)
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(h.withAdmin)
			r.Get("/messages", h.GetMessages)
			r.Delete("/messages", h.DeleteMessage)
			r.Delete("/messages/{id}", h.DeleteMessage)
		})
	})

	return r
}

// withCORS sets the permissive CORS headers on every response and
// answers preflight requests directly.
func (h *BaseController) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := h.origin()
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-admin-password")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withAdmin gates a route behind the shared admin secret. A missing
// server-side secret is a configuration error, never a bypass.
func (h *BaseController) withAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.gate.Check(r.Header.Get(auth.HeaderName)); err != nil {
			if errors.Is(err, auth.ErrNotConfigured) {
				h.log.Info("admin password is not configured")
				h.writeError(w, http.StatusInternalServerError, "Server configuration error")
				return
			}
			h.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Status reports the service index on the root route.
func (h *BaseController) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "online",
		"message": "Backend API is running properly",
		"endpoints": map[string]string{
			"health":   "/api/health",
			"messages": "/api/messages",
		},
	})
}

// SubmitMessage accepts an anonymous message submission.
func (h *BaseController) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req models.RequestMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Info("cannot decode request JSON body: ", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	userAgent := r.UserAgent()
	if userAgent == "" {
		userAgent = fingerprint.Unknown
	}

	msg, err := h.service.Submit(r.Context(), req, fingerprint.FromRequest(r), userAgent)
	if err != nil {
		h.submitError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, models.SubmitResult{
		Success: true,
		Message: "Message received successfully",
		ID:      msg.ID,
	})
}

func (h *BaseController) submitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apiservice.ErrEmptyMessage):
		h.writeError(w, http.StatusBadRequest, "Message cannot be empty")
	case errors.Is(err, apiservice.ErrMessageTooLong):
		h.writeError(w, http.StatusBadRequest, "Message is too long (max 1000 characters)")
	case errors.Is(err, ratelimit.ErrLimited):
		h.writeError(w, http.StatusTooManyRequests, "Too many messages. Please try again later.")
	case errors.Is(err, storage.ErrUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, "Database not configured")
	default:
		h.log.Info("error saving message: ", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to save message")
	}
}

// GetMessages returns the most recent messages, newest first. Admin.
func (h *BaseController) GetMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.storage.GetMessages(r.Context(), storage.ListCap)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			h.writeError(w, http.StatusServiceUnavailable, "Database not configured")
			return
		}
		h.log.Info("error fetching messages: ", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}

	if messages == nil {
		messages = []models.Message{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// DeleteMessage removes a message by id, taken from the URL path or the
// id query parameter. Admin.
func (h *BaseController) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		id = r.URL.Query().Get("id")
	}

	if err := h.storage.DeleteMessage(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			h.writeError(w, http.StatusNotFound, "Message not found")
		case errors.Is(err, storage.ErrUnavailable):
			h.writeError(w, http.StatusServiceUnavailable, "Database not configured")
		default:
			h.log.Info("error deleting message: ", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "Failed to delete message")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Message deleted",
	})
}

// CountMessages returns the public total message counter.
func (h *BaseController) CountMessages(w http.ResponseWriter, r *http.Request) {
	count, err := h.storage.CountAll(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			h.writeError(w, http.StatusServiceUnavailable, "Database not configured")
			return
		}
		h.log.Info("error counting messages: ", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to count messages")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// Login is the admin pre-flight check: it verifies the shared secret so
// the client can decide to keep it locally. No session is created.
func (h *BaseController) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Info("cannot decode login JSON body: ", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if err := h.gate.Check(req.Password); err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			h.log.Info("admin password is not configured")
			h.writeError(w, http.StatusInternalServerError, "Server configuration error")
			return
		}
		h.writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Health reports service liveness along with a storage latency probe.
func (h *BaseController) Health(w http.ResponseWriter, r *http.Request) {
	latency, err := h.storage.Ping(r.Context())
	if err != nil {
		h.log.Info("health storage probe failed: ", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":    "error",
			"message":   "Storage check failed",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"message":   "Server is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"storage": map[string]any{
			"status":     "ok",
			"latency_ms": latency.Milliseconds(),
		},
	})
}

func (h *BaseController) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Info("error encoding response: ", zap.Error(err))
	}
}

func (h *BaseController) writeError(w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, map[string]string{"error": msg})
}
