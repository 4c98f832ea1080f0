package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ebis/charts"
	"ebis/config"
	"ebis/internal/app"
	"ebis/models"
	"ebis/observability"
	"ebis/repository"
	"ebis/services"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// Handler handles HTTP API requests
type Handler struct {
	app  *app.App
	auth *app.AuthService
	cfg  *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, auth *app.AuthService, cfg *config.Config) *Handler {
	return &Handler{app: application, auth: auth, cfg: cfg}
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.app.Health(r.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// HandleSearch returns companies matching the q parameter
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := h.app.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.jsonResponse(w, results)
}

// AnalyzeRequest represents a stock analysis request
type AnalyzeRequest struct {
	Symbol string `json:"symbol"`
}

// HandleAnalyze scores a symbol and stores the result in the caller's history
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, _ := UserFromContext(r.Context())
	result, err := h.app.Analyze(r.Context(), user.ID, req.Symbol)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.jsonResponse(w, result)
}

// HandlePriceChart serves a PNG line chart of recent closes
func (h *Handler) HandlePriceChart(w http.ResponseWriter, r *http.Request) {
	img, err := h.app.RenderPriceChart(r.Context(), chi.URLParam(r, "symbol"), chartSize(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePNG(w, img)
}

// HandleScoreChart serves a PNG bar chart of a stored analysis
func (h *Handler) HandleScoreChart(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	img, err := h.app.RenderScoreChart(r.Context(), user.ID, chi.URLParam(r, "id"), chartSize(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePNG(w, img)
}

// HandleListHistory returns the caller's analyses, newest first
func (h *Handler) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	records, err := h.app.ListHistory(r.Context(), user.ID, h.ParseLimitParam(r, h.cfg.Analysis.HistoryLimit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.jsonResponse(w, records)
}

func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	rec, err := h.app.GetHistory(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.jsonResponse(w, rec)
}

func (h *Handler) HandleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	if err := h.app.DeleteHistory(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FavoriteRequest toggles the favorite flag of a history record
type FavoriteRequest struct {
	Favorite bool `json:"favorite"`
}

func (h *Handler) HandleSetFavorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, _ := UserFromContext(r.Context())
	rec, err := h.app.SetFavorite(r.Context(), user.ID, chi.URLParam(r, "id"), req.Favorite)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.jsonResponse(w, rec)
}

func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	n, err := h.app.ClearHistory(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.jsonResponse(w, map[string]int{"deleted": n})
}

// Auth

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var creds models.RegisterCredentials
	if !h.decodeJSON(w, r, &creds) {
		return
	}

	resp, err := h.auth.Register(r.Context(), creds)
	if err != nil {
		h.authFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds models.LoginCredentials
	if !h.decodeJSON(w, r, &creds) {
		return
	}

	resp, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		h.authFailure(w, r, err)
		return
	}
	h.jsonResponse(w, resp)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), tokenFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	h.jsonResponse(w, StatusResponse{Status: "ok", Message: "Logged out"})
}

// HandleMe returns the authenticated user
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	h.jsonResponse(w, user)
}

// HandleUpdateMe applies a partial profile update
func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var update models.UserUpdate
	if !h.decodeJSON(w, r, &update) {
		return
	}

	user, _ := UserFromContext(r.Context())
	updated, err := h.auth.UpdateProfile(r.Context(), user.ID, update)
	if err != nil {
		h.authFailure(w, r, err)
		return
	}
	h.jsonResponse(w, updated)
}

// PasswordResetRequest starts a password reset
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirm completes a password reset
type PasswordResetConfirm struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *Handler) HandlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		h.jsonError(w, "Email is required", http.StatusBadRequest)
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{
		Status:  "accepted",
		Message: "If the account exists, reset instructions have been sent",
	})
}

func (h *Handler) HandlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirm
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.authFailure(w, r, err)
		return
	}
	h.jsonResponse(w, StatusResponse{Status: "ok", Message: "Password updated"})
}

// authFailure answers validation and credential errors with an
// AuthResponse body and everything else with a plain error
func (h *Handler) authFailure(w http.ResponseWriter, r *http.Request, err error) {
	resp := app.FailureResponse(err)
	if resp == nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, statusFor(err), resp)
}

// Helper functions

// ParseLimitParam parses the limit query parameter
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

func chartSize(r *http.Request) charts.Size {
	q := r.URL.Query()
	w, _ := strconv.Atoi(q.Get("width"))
	h, _ := strconv.Atoi(q.Get("height"))
	// keep renders bounded
	if w > 2000 {
		w = 2000
	}
	if h > 2000 {
		h = 2000
	}
	return charts.Size{Width: w, Height: h}
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.jsonError(w, "Invalid JSON request", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	writeJSONError(w, message, status)
}

// StatusResponse represents a status response
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writePNG(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(img)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrInvalidSymbol),
		errors.Is(err, app.ErrInvalidID),
		errors.Is(err, repository.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrInvalidCredentials),
		errors.Is(err, repository.ErrInvalidToken),
		errors.Is(err, repository.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrHistoryNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, app.ErrAnalysisBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, app.ErrNoMarketData),
		errors.Is(err, services.ErrServiceUnavailable),
		errors.Is(err, services.ErrAPILimit):
		return http.StatusServiceUnavailable
	case errors.Is(err, charts.ErrNotEnoughData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status mapped from err. Unexpected errors
// are logged and their detail hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		observability.WithContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		message = "Internal server error"
	}
	writeJSONError(w, message, status)
}
