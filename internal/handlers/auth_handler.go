package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatline/internal/domain"
	"chatline/internal/middleware"
	"chatline/internal/service"
	"chatline/internal/transport"
)

const (
	errInvalidBody   = "invalid_body"
	errMissingParams = "missing_params"
	errInternalError = "internal_error"
	msgInvalidJSON   = "invalid json"
)

// AuthHandler exposes HTTP endpoints for account operations.
type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, errInvalidBody, msgInvalidJSON)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" || req.ConfirmPassword == "" {
		transport.WriteError(w, http.StatusBadRequest, errMissingParams, "all fields are required")
		return
	}
	if req.Password != req.ConfirmPassword {
		transport.WriteError(w, http.StatusBadRequest, errMissingParams, "passwords do not match")
		return
	}

	u, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			transport.WriteError(w, http.StatusBadRequest, "user_exists", "username or email already exists")
			return
		}
		transport.WriteError(w, http.StatusInternalServerError, errInternalError, "registration failed")
		return
	}

	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{"user": u})
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, errInvalidBody, msgInvalidJSON)
		return
	}

	if req.Username == "" || req.Password == "" {
		transport.WriteError(w, http.StatusBadRequest, errMissingParams, "username and password are required")
		return
	}

	token, u, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		transport.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  u,
	})
}

// SendOTP POST /api/auth/send-otp
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, errInvalidBody, msgInvalidJSON)
		return
	}
	if req.Email == "" {
		transport.WriteError(w, http.StatusBadRequest, errMissingParams, "email is required")
		return
	}

	otpToken, err := h.svc.SendOTP(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrEmailConflict) {
			transport.WriteError(w, http.StatusBadRequest, "email_exists", "email already exists")
			return
		}
		transport.WriteError(w, http.StatusInternalServerError, errInternalError, "failed to send otp")
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]string{"otpToken": otpToken})
}

// VerifyOTP POST /api/auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OTP      string `json:"otp"`
		OTPToken string `json:"otpToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, errInvalidBody, msgInvalidJSON)
		return
	}
	if req.OTP == "" || req.OTPToken == "" {
		transport.WriteError(w, http.StatusBadRequest, errMissingParams, "otp and token are required")
		return
	}

	if err := h.svc.VerifyOTP(r.Context(), req.OTPToken, req.OTP); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_otp", "otp is invalid or expired")
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]string{"message": "otp verified"})
}

// SearchUsers GET /api/auth/search-users?q=
func (h *AuthHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		transport.WriteError(w, http.StatusBadRequest, errMissingParams, "search query required")
		return
	}

	users, err := h.svc.SearchUsers(r.Context(), q)
	if err != nil {
		transport.WriteError(w, http.StatusInternalServerError, errInternalError, "search failed")
		return
	}

	transport.WriteJSON(w, http.StatusOK, users)
}

// Profile GET /api/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	u, err := h.svc.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			transport.WriteError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		transport.WriteError(w, http.StatusInternalServerError, errInternalError, "profile fetch failed")
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": u})
}
