package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pitchside/auctioneer/internal/auction"
	"github.com/pitchside/auctioneer/internal/export"
	"github.com/pitchside/auctioneer/internal/models"
)

// Handler exposes the auction command surface over JSON.
type Handler struct {
	engine *auction.Engine
	auth   *Authenticator
}

// NewHandler creates the HTTP command handler.
func NewHandler(engine *auction.Engine, auth *Authenticator) *Handler {
	return &Handler{engine: engine, auth: auth}
}

// RegisterRoutes mounts all API routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", h.handleState)

	mux.HandleFunc("POST /api/admin/add-player", h.handleAddPlayer)
	mux.HandleFunc("POST /api/admin/remove-player", h.handleRemovePlayer)
	mux.HandleFunc("POST /api/admin/set-balances", h.handleSetBalances)
	mux.HandleFunc("POST /api/admin/update-balance", h.handleUpdateBalance)
	mux.HandleFunc("POST /api/admin/start-pre-auction-timer", h.handleStartPreAuctionTimer)
	mux.HandleFunc("POST /api/admin/start-auction", h.handleStartAuction)
	mux.HandleFunc("POST /api/admin/start-timer", h.handleStartTimer)
	mux.HandleFunc("POST /api/admin/pause-timer", h.handlePauseTimer)
	mux.HandleFunc("POST /api/admin/resume-timer", h.handleResumeTimer)
	mux.HandleFunc("POST /api/admin/stop-timer", h.handleStopTimer)
	mux.HandleFunc("POST /api/admin/next-player", h.handleNextPlayer)
	mux.HandleFunc("POST /api/admin/end-auction", h.handleEndAuction)
	mux.HandleFunc("POST /api/admin/restart-auction", h.handleRestart)
	mux.HandleFunc("POST /api/admin/clear-data", h.handleRestart)
	mux.HandleFunc("POST /api/admin/export", h.handleExport)

	mux.HandleFunc("POST /api/captain/place-bid", h.handlePlaceBid)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, auction.ErrInvalidCommand):
		status = http.StatusConflict
	case errors.Is(err, auction.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auction.ErrValidation):
		status = http.StatusBadRequest
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func respondUnauthorized(w http.ResponseWriter) {
	respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}

// result funnels the common command outcome into one response shape.
func (h *Handler) result(w http.ResponseWriter, snap auction.Snapshot, err error) {
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Snapshot())
}

type adminRequest struct {
	AdminPin string `json:"adminPin"`
}

func (h *Handler) adminOK(w http.ResponseWriter, req adminRequest) bool {
	if !h.auth.Check("admin", req.AdminPin) {
		respondUnauthorized(w)
		return false
	}
	return true
}

func (h *Handler) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		adminRequest
		Name      string `json:"name"`
		Role      string `json:"role"`
		BasePrice int64  `json:"basePrice"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", auction.ErrValidation, err))
		return
	}
	if !h.adminOK(w, req.adminRequest) {
		return
	}
	snap, err := h.engine.AddPlayer(req.Name, req.Role, req.BasePrice)
	h.result(w, snap, err)
}

func (h *Handler) handleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		adminRequest
		ID string `json:"id"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", auction.ErrValidation, err))
		return
	}
	if !h.adminOK(w, req.adminRequest) {
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid player id %q", auction.ErrValidation, req.ID))
		return
	}
	snap, err := h.engine.RemovePlayer(id)
	h.result(w, snap, err)
}

func (h *Handler) handleSetBalances(w http.ResponseWriter, r *http.Request) {
	var req struct {
		adminRequest
		Captain1 int64 `json:"captain1"`
		Captain2 int64 `json:"captain2"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", auction.ErrValidation, err))
		return
	}
	if !h.adminOK(w, req.adminRequest) {
		return
	}
	snap, err := h.engine.SetBalances(req.Captain1, req.Captain2)
	h.result(w, snap, err)
}

func (h *Handler) handleUpdateBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		adminRequest
		Captain string `json:"captain"`
		Amount  int64  `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", auction.ErrValidation, err))
		return
	}
	if !h.adminOK(w, req.adminRequest) {
		return
	}
	snap, err := h.engine.UpdateBalance(models.TeamID(req.Captain), req.Amount)
	h.result(w, snap, err)
}

func (h *Handler) handleStartPreAuctionTimer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		adminRequest
		Seconds int `json:"seconds"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", auction.ErrValidation, err))
		return
	}
	if !h.adminOK(w, req.adminRequest) {
		return
	}
	snap, err := h.engine.StartPreAuctionCountdown(req.Seconds)
	h.result(w, snap, err)
}

// adminCommand handles the body-is-just-a-pin commands.
func (h *Handler) adminCommand(w http.ResponseWriter, r *http.Request, run func() (auction.Snapshot, error)) {
	var req adminRequest
	if err := decode(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", auction.ErrValidation, err))
		return
	}
	if !h.adminOK(w, req) {
		return
	}
	snap, err := run()
	h.result(w, snap, err)
}

func (h *Handler) handleStartAuction(w http.ResponseWriter, r *http.Request) {
	h.adminCommand(w, r, h.engine.StartAuction)
}

func (h *Handler) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	h.adminCommand(w, r, h.engine.StartTimer)
}

func (h *Handler) handlePauseTimer(w http.ResponseWriter, r *http.Request) {
	h.adminCommand(w, r, h.engine.PauseTimer)
}

func (h *Handler) handleResumeTimer(w http.ResponseWriter, r *http.Request) {
	h.adminCommand(w, r, h.engine.ResumeTimer)
}

func (h *Handler) handleStopTimer(w http.ResponseWriter, r *http.Request) {
	h.adminCommand(w, r, h.engine.StopTimer)
}

func (h *Handler) handleNextPlayer(w http.ResponseWriter, r *http.Request) {
	h.adminCommand(w, r, h.engine.NextLot)
}

func (h *Handler) handleEndAuction(w http.ResponseWriter, r *http.Request) {
	h.adminCommand(w, r, h.engine.ForceEndAuction)
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	h.adminCommand(w, r, h.engine.Restart)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := decode(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", auction.ErrValidation, err))
		return
	}
	if !h.adminOK(w, req) {
		return
	}

	data, err := export.Workbook(h.engine.Snapshot())
	if err != nil {
		log.Error().Err(err).Msg("failed to build results workbook")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "export failed"})
		return
	}

	filename := fmt.Sprintf("auction-results-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("failed to write workbook response")
	}
}

func (h *Handler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pin     string `json:"pin"`
		Captain string `json:"captain"`
		Amount  int64  `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", auction.ErrValidation, err))
		return
	}
	if !h.auth.Check(req.Captain, req.Pin) {
		respondUnauthorized(w)
		return
	}

	result, err := h.engine.PlaceBid(models.TeamID(req.Captain), req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"accepted": result.Accepted,
		"reason":   result.Reason,
		"state":    result.Snapshot,
	})
}
