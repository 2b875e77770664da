package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/dom/auth-backend/internal/api/middleware"
	"github.com/dom/auth-backend/internal/service"
	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService *service.AuthService
	sessions    *service.SessionIssuer
	safeReset   bool
}

func NewAuthHandler(authService *service.AuthService, sessions *service.SessionIssuer, enumerationSafeReset bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		safeReset:   enumerationSafeReset,
	}
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyEmailRequest struct {
	Code string `json:"code"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type SignupResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

type LoginResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	User    LoginUserResponse `json:"user"`
}

type UserEnvelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	User    UserResponse `json:"user"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.authService.Signup(r.Context(), service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			writeError(w, http.StatusBadRequest, "Please provide all the fields")
		case errors.Is(err, service.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, h.passwordTooShortMessage())
		case errors.Is(err, service.ErrUserExists):
			writeError(w, http.StatusBadRequest, "User already exists!")
		default:
			log.Printf("ERROR [auth.Signup] %v", err)
			writeError(w, http.StatusInternalServerError, "Error while creating user")
		}
		return
	}

	http.SetCookie(w, h.sessions.Cookie(result.SessionToken))
	writeJSON(w, http.StatusCreated, SignupResponse{
		Success: true,
		Message: "User created successfully",
		User:    newUserResponse(result.User),
	})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.VerifyEmail(r.Context(), req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			writeError(w, http.StatusBadRequest, "Invalid or expired verification code")
			return
		}
		log.Printf("ERROR [auth.VerifyEmail] %v", err)
		writeError(w, http.StatusInternalServerError, "Error verifying email")
		return
	}

	writeJSON(w, http.StatusOK, UserEnvelope{
		Success: true,
		Message: "Email verified successfully!",
		User:    newUserResponse(user),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			writeError(w, http.StatusBadRequest, "Please provide email and password")
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "Invalid credentials")
		default:
			log.Printf("ERROR [auth.Login] %v", err)
			writeError(w, http.StatusInternalServerError, "Error during login")
		}
		return
	}

	http.SetCookie(w, h.sessions.Cookie(result.SessionToken))
	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Message: "Logged in successfully",
		User: LoginUserResponse{
			ID:         result.User.ID.String(),
			Name:       result.User.Name,
			Email:      result.User.Email,
			IsVerified: result.User.IsVerified,
		},
	})
}

// Logout clears the session cookie. Sessions are not tracked server-side, so
// it always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessions.ClearCookie())
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Logged out successfully"})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.authService.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			writeError(w, http.StatusBadRequest, "Please provide your email")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusBadRequest, "User with this email does not exist")
		default:
			log.Printf("ERROR [auth.ForgotPassword] %v", err)
			writeError(w, http.StatusInternalServerError, "Error during forgot password")
		}
		return
	}

	message := "Password reset email sent"
	if h.safeReset {
		message = "If an account exists for this email, a reset link has been sent"
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: message})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.authService.ResetPassword(r.Context(), token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			writeError(w, http.StatusBadRequest, "Please provide a new password")
		case errors.Is(err, service.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, h.passwordTooShortMessage())
		case errors.Is(err, service.ErrInvalidToken):
			writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
		default:
			log.Printf("ERROR [auth.ResetPassword] %v", err)
			writeError(w, http.StatusInternalServerError, "Error during reset password")
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Password reset successful"})
}

func (h *AuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		log.Printf("ERROR [auth.CheckAuth] %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, UserEnvelope{Success: true, User: newUserResponse(user)})
}

func (h *AuthHandler) passwordTooShortMessage() string {
	return fmt.Sprintf("Password must be at least %d characters long", h.authService.PasswordMinLength())
}
