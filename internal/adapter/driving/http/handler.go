package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Wyydra/callroom/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/Wyydra/callroom/internal/core/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	CallService *service.CallService
	Hub         *ws.Hub

	// StaticDir is served at / when set.
	StaticDir string
	// Metrics is mounted at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
}

func NewHandler(callService *service.CallService, hub *ws.Hub) *Handler {
	return &Handler{
		CallService: callService,
		Hub:         hub,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	if h.Metrics != nil && h.MetricsPath != "" {
		r.Handle(h.MetricsPath, h.Metrics)
	}

	r.Route("/rooms/{roomID}", func(r chi.Router) {
		r.Get("/", h.GetRoom)
		r.Delete("/", h.DeleteRoom)
		r.Get("/ws", h.ServeWS)
	})

	if h.StaticDir != "" {
		fs := http.FileServer(http.Dir(h.StaticDir))
		r.Handle("/*", fs)
	}

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetRoom returns the latest render state of a room.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDParam(w, r)
	if !ok {
		return
	}
	room, err := h.CallService.Room(roomID)
	if errors.Is(err, service.ErrRoomNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	update, err := room.Render(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDParam(w, r)
	if !ok {
		return
	}
	if _, err := h.CallService.Room(roomID); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	h.CallService.StopRoom(roomID)
	w.WriteHeader(http.StatusNoContent)
}

func roomIDParam(w http.ResponseWriter, r *http.Request) (domain.RoomID, bool) {
	roomID, err := domain.ParseRoomID(chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return domain.RoomID{}, false
	}
	return roomID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error writing response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
