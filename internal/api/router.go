package api

import (
	"database/sql"
	"net/http"

	"github.com/reclaimhq/reclaim/internal/auth"
	"github.com/reclaimhq/reclaim/internal/authz"
)

// Config carries the router's wiring.
type Config struct {
	Secret        string             // session signing secret
	Verifier      auth.TokenVerifier // nil disables external login
	SecureCookies bool
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, cfg Config) http.Handler {
	mux := http.NewServeMux()

	guard := &authz.Guard{}
	resolver := &auth.Resolver{DB: db, Secret: cfg.Secret, External: cfg.Verifier}

	usersHandler := &UsersHandler{DB: db, Secret: cfg.Secret, Verifier: cfg.Verifier, SecureCookies: cfg.SecureCookies}
	itemsHandler := &ItemsHandler{DB: db, Guard: guard}
	recoveriesHandler := &RecoveriesHandler{DB: db, Guard: guard}
	highlightsHandler := &HighlightsHandler{DB: db}

	authMW := RequireAuth(resolver)

	// Accounts and sessions.
	mux.HandleFunc("POST /users/register", usersHandler.Register)
	mux.HandleFunc("POST /users/login", usersHandler.Login)
	mux.HandleFunc("POST /users/firebase-login", usersHandler.FirebaseLogin)
	mux.HandleFunc("POST /users/logout", usersHandler.Logout)
	mux.Handle("GET /users/profile", authMW(http.HandlerFunc(usersHandler.Profile)))

	// Items.
	mux.Handle("POST /inventory", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.HandleFunc("GET /inventory", itemsHandler.List)
	mux.HandleFunc("GET /inventory/{id}", itemsHandler.Get)
	mux.Handle("PATCH /inventory/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /inventory/{id}", authMW(http.HandlerFunc(recoveriesHandler.DeleteItem)))
	mux.Handle("PUT /inventory/{id}/thumbnail", authMW(http.HandlerFunc(itemsHandler.UploadThumbnail)))
	mux.HandleFunc("GET /inventory/{id}/thumbnail", itemsHandler.ServeThumbnail)
	mux.Handle("GET /my-items", authMW(http.HandlerFunc(itemsHandler.MyItems)))

	// Recoveries.
	mux.Handle("POST /inventory/{id}/recover", authMW(http.HandlerFunc(recoveriesHandler.Recover)))
	mux.Handle("GET /recoveries", authMW(http.HandlerFunc(recoveriesHandler.ListMine)))
	mux.Handle("PATCH /recoveries/{id}", authMW(http.HandlerFunc(recoveriesHandler.Update)))

	// Highlights.
	mux.HandleFunc("GET /highlights", highlightsHandler.List)
	mux.Handle("POST /highlights", authMW(http.HandlerFunc(highlightsHandler.Create)))

	return mux
}
