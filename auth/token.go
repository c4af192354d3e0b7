package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired      = errors.New("access token expired")
	ErrTokenUserMismatch = errors.New("token belongs to another account")
)

type accountClaims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

// TokenExpiry reads the exp claim without verifying the signature. Opaque tokens report
// ok=false.
func TokenExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func checkToken(token string, now time.Time) error {
	if exp, ok := TokenExpiry(token); ok && !now.Before(exp) {
		return ErrTokenExpired
	}
	return nil
}

// TokenUserID reads the account id from the user_id claim, falling back to sub. Opaque
// tokens report ok=false.
func TokenUserID(token string) (int64, bool) {
	claims := &accountClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, false
	}
	if claims.UserID != 0 {
		return claims.UserID, true
	}
	if id, err := strconv.ParseInt(claims.Subject, 10, 64); err == nil {
		return id, true
	}
	return 0, false
}

// checkOwner rejects tokens that name an account other than userID.
func checkOwner(userID int64, tokens ...string) error {
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if id, ok := TokenUserID(token); ok && id != userID {
			return ErrTokenUserMismatch
		}
	}
	return nil
}
