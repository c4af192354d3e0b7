package fakebackend

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
	UserID    int64  `json:"user_id"`
}

type tokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func (ti *tokenIssuer) issue(userID int64, tokenType string) (string, error) {
	ttl := ti.accessTTL
	if tokenType == tokenTypeRefresh {
		ttl = ti.refreshTTL
	}
	now := ti.now()

	c := claims{
		TokenType: tokenType,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(ti.secret)
}

func (ti *tokenIssuer) pair(userID int64) (access, refresh string, err error) {
	if access, err = ti.issue(userID, tokenTypeAccess); err != nil {
		return "", "", err
	}
	if refresh, err = ti.issue(userID, tokenTypeRefresh); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (ti *tokenIssuer) verify(tokenString, tokenType string) (int64, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.secret, nil
	}, jwt.WithTimeFunc(ti.now))
	if err != nil {
		return 0, err
	}
	if !token.Valid || c.TokenType != tokenType {
		return 0, fmt.Errorf("invalid %s token", tokenType)
	}
	return c.UserID, nil
}
