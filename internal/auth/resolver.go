package auth

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/reclaimhq/reclaim/internal/apperr"
	"github.com/reclaimhq/reclaim/internal/model"
	"github.com/reclaimhq/reclaim/internal/store"
)

// Resolver produces the authenticated principal for a request from one of
// two credential sources, tried in order with first success winning:
//
//  1. An external identity credential in the Authorization header, verified
//     against the identity provider. A verified first-time login provisions a
//     user record. A failed verification falls through to step 2 rather than
//     failing the request; it is never retried.
//  2. The local session cookie, verified in-process.
type Resolver struct {
	DB       *sql.DB
	Secret   string
	External TokenVerifier // nil when external login is not configured
}

// Resolve returns the principal for the request. It fails with
// apperr.ErrUnauthenticated when no usable credential is present and with
// apperr.ErrPrincipalNotFound when a valid session references a user record
// that no longer exists.
func (rs *Resolver) Resolve(r *http.Request) (*model.User, error) {
	ctx := r.Context()

	if raw := bearerToken(r); raw != "" && rs.External != nil {
		claims, err := rs.External.Verify(ctx, raw)
		if err == nil {
			return rs.resolveExternal(ctx, claims)
		}
		slog.Debug("external credential rejected, trying session", "error", err)
	}

	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, fmt.Errorf("%w: no credential presented", apperr.ErrUnauthenticated)
	}

	claims, err := ValidateSession(rs.Secret, cookie.Value)
	if err != nil {
		return nil, err
	}

	var user *model.User
	if claims.UserID != 0 {
		user, err = store.GetUser(ctx, rs.DB, claims.UserID)
	} else {
		user, err = store.GetUserByFirebaseUID(ctx, rs.DB, claims.FirebaseUID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving session subject: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: session references a missing user", apperr.ErrPrincipalNotFound)
	}
	return user, nil
}

// resolveExternal looks up the verified identity by email, provisioning a
// user record on first login. This is the only write the resolver performs.
func (rs *Resolver) resolveExternal(ctx context.Context, claims *ExternalClaims) (*model.User, error) {
	user, err := store.GetUserByEmail(ctx, rs.DB, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("looking up external principal: %w", err)
	}
	if user != nil {
		return user, nil
	}

	user, err = store.CreateExternalUser(ctx, rs.DB, claims.Name, claims.Email, claims.Subject, claims.Picture)
	if err != nil {
		return nil, fmt.Errorf("provisioning external principal: %w", err)
	}
	slog.Info("provisioned user from external login", "email", claims.Email)
	return user, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
