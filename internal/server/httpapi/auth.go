package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/ojtauth/internal/api"
	"github.com/dmitrijs2005/ojtauth/internal/server/services"
)

const (
	msgVerificationSent = "Please verify your email. An access code has been sent."
	msgCodeSent         = "If this email is registered, an access code has been sent."
	msgResetSent        = "If this email is registered, a password reset code has been sent."
	msgLoggedOut        = "Logged out."
)

func authResponse(res *services.AuthResult) api.AuthResponse {
	if res.RequiresVerification {
		return api.AuthResponse{RequiresVerification: true, Email: res.Email, Message: msgVerificationSent}
	}
	return api.AuthResponse{User: res.User, Tokens: res.Tokens}
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if res.RequiresVerification {
		status = http.StatusAccepted
	}
	writeJSON(w, status, authResponse(res))
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.Register(r.Context(), services.RegisterInput{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		Role:                 req.Role,
		Institution:          req.Institution,
		Batch:                req.Batch,
		Term:                 req.Term,
		InternID:             req.InternID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse(res))
}

func (h *handler) requestOTP(w http.ResponseWriter, r *http.Request) {
	var req api.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.auth.RequestOTP(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: msgCodeSent})
}

func (h *handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse(res))
}

func (h *handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req api.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: msgResetSent})
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req api.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.ResetPassword(r.Context(), services.ResetInput{
		Email:                req.Email,
		Code:                 req.OTP,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse(res))
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req api.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.TokensResponse{Tokens: pair})
}

// logout accepts an empty body.
func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	var req api.RefreshRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, "invalid request body")
		return
	}
	_ = h.auth.Logout(r.Context(), UserFromContext(r.Context()), req.RefreshToken)
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: msgLoggedOut})
}

func (h *handler) currentUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UserFromContext(r.Context()))
}

func (h *handler) ping(w http.ResponseWriter, r *http.Request) {
	status := api.AuthStatusGuest
	if UserFromContext(r.Context()) != nil {
		status = api.AuthStatusAuthenticated
	}
	writeJSON(w, http.StatusOK, api.PingResponse{Status: "online", AuthStatus: status, Timestamp: h.now().UTC()})
}
