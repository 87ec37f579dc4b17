package auth

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayush/exam-bank/backend/internal/models"
	"github.com/ayush/exam-bank/backend/internal/respond"
)

// CookieOptions controls the session cookie. HttpOnly, Path "/" and a
// Max-Age of SessionTTL are always set.
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	svc    *Service
	cookie CookieOptions
	log    logrus.FieldLogger
}

func NewHandler(svc *Service, cookie CookieOptions, log logrus.FieldLogger) *Handler {
	if cookie.SameSite == 0 {
		cookie.SameSite = http.SameSiteLaxMode
	}
	return &Handler{svc: svc, cookie: cookie, log: log}
}

// Register creates a new user.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.svc.Register(r.Context(), req, clientInfo(r))
	var verr *ValidationError
	switch {
	case err == nil:
		respond.OK(w, "registered", nil)
	case errors.As(err, &verr):
		respond.Invalid(w, "validation failed", verr.Fields)
	case errors.Is(err, ErrConflict):
		respond.Fail(w, http.StatusConflict, "username already exists")
	default:
		h.log.WithError(err).Error("register failed")
		respond.Internal(w)
	}
}

// Login authenticates a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, profile, err := h.svc.Login(r.Context(), req, clientInfo(r))
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			respond.Fail(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		h.log.WithError(err).Error("login failed")
		respond.Internal(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
		MaxAge:   int(SessionTTL / time.Second),
	})
	respond.OK(w, "logged in", profile)
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		h.svc.Logout(r.Context(), cookie.Value, clientInfo(r))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
		MaxAge:   -1,
	})
	respond.OK(w, "logged out", nil)
}

// Me returns the currently authenticated user. It expects the user id
// placed in the context by the auth middleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respond.Unauthorized(w)
		return
	}

	profile, err := h.svc.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			respond.Unauthorized(w)
			return
		}
		h.log.WithError(err).Error("load profile failed")
		respond.Internal(w)
		return
	}
	respond.OK(w, "", profile)
}

// clientInfo reads the caller address (already rewritten by RealIP) and
// user agent.
func clientInfo(r *http.Request) ClientInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return ClientInfo{IP: ip, UserAgent: r.UserAgent()}
}
