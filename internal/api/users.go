package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/reclaimhq/reclaim/internal/auth"
	"github.com/reclaimhq/reclaim/internal/store"
)

// UsersHandler handles account and login endpoints.
type UsersHandler struct {
	DB            *sql.DB
	Secret        string
	Verifier      auth.TokenVerifier
	SecureCookies bool
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type firebaseLoginRequest struct {
	IDToken  string `json:"idToken"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
}

// Register handles POST /users/register.
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "name, email, and password required")
		return
	}

	existing, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing != nil {
		jsonError(w, http.StatusBadRequest, "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Name, req.Email, string(hash))
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := auth.IssueForUser(h.Secret, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	slog.Info("user registered", "email", user.Email)
	jsonResponse(w, http.StatusCreated, user)
}

// Login handles POST /users/login.
func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	if user == nil || user.PasswordHash == "" {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		slog.Warn("login failed", "email", req.Email, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.IssueForUser(h.Secret, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	slog.Info("user logged in", "email", user.Email)
	jsonResponse(w, http.StatusOK, user)
}

// FirebaseLogin handles POST /users/firebase-login. The Firebase ID token is
// verified out-of-process; on success the user record is upserted and a
// session cookie carrying the external subject id is issued.
func (h *UsersHandler) FirebaseLogin(w http.ResponseWriter, r *http.Request) {
	var req firebaseLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IDToken == "" {
		jsonError(w, http.StatusBadRequest, "idToken required")
		return
	}
	if h.Verifier == nil {
		jsonError(w, http.StatusInternalServerError, "external login not configured")
		return
	}

	claims, err := h.Verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		slog.Warn("firebase login rejected", "error", err, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid id token")
		return
	}

	name := req.Name
	if name == "" {
		name = claims.Name
	}
	photo := req.PhotoURL
	if photo == "" {
		photo = claims.Picture
	}

	user, err := store.UpsertExternalUser(r.Context(), h.DB, claims.Email, claims.Subject, name, photo)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := auth.IssueForSubject(h.Secret, claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	slog.Info("firebase login", "email", user.Email)
	jsonResponse(w, http.StatusOK, user)
}

// Logout handles POST /users/logout. The token scheme is stateless: logout
// just tells the client to discard the credential.
func (h *UsersHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.SecureCookies,
	})
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Profile handles GET /users/profile.
func (h *UsersHandler) Profile(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, GetPrincipal(r.Context()))
}

func (h *UsersHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.SecureCookies,
	})
}
