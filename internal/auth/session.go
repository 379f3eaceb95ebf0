package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/reclaimhq/reclaim/internal/apperr"
)

// SessionCookie is the name of the cookie carrying the session credential.
const SessionCookie = "session"

// SessionTTL is the session credential lifetime.
const SessionTTL = 7 * 24 * time.Hour

// SessionClaims is the session credential payload. Exactly one of UserID or
// FirebaseUID is set: locally registered principals are referenced by their
// internal id, externally provisioned ones by the provider's subject id.
type SessionClaims struct {
	UserID      int64  `json:"user_id,omitempty"`
	FirebaseUID string `json:"firebase_uid,omitempty"`
	jwt.RegisteredClaims
}

// IssueForUser mints a session credential referencing an internal user id.
func IssueForUser(secret string, userID int64) (string, error) {
	return issue(secret, SessionClaims{UserID: userID})
}

// IssueForSubject mints a session credential referencing an external
// provider subject id.
func IssueForSubject(secret, firebaseUID string) (string, error) {
	return issue(secret, SessionClaims{FirebaseUID: firebaseUID})
}

func issue(secret string, claims SessionClaims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing session credential: %w", err)
	}
	return signed, nil
}

// ValidateSession parses a session credential and checks its signature and
// expiry. The scheme is stateless: there is no server-side revocation list,
// logout simply discards the cookie.
func ValidateSession(secret, tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: parsing session credential: %v", apperr.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid session credential", apperr.ErrUnauthenticated)
	}
	if claims.UserID == 0 && claims.FirebaseUID == "" {
		return nil, fmt.Errorf("%w: session credential has no subject", apperr.ErrUnauthenticated)
	}

	return claims, nil
}
