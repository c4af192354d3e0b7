package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

const CookieName = "coinvest_token"

var ErrTamperedCookie = errors.New("session cookie failed verification")

// CookieFile keeps the access token as a single signed Set-Cookie line on disk.
type CookieFile struct {
	Path   string
	MaxAge time.Duration

	codec *securecookie.SecureCookie
	now   func() time.Time
}

func NewCookieFile(path string, hashKey []byte, maxAge time.Duration) *CookieFile {
	codec := securecookie.New(hashKey, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	// Expiry is checked against the cookie's Expires attribute instead.
	codec.MaxAge(0)

	return &CookieFile{
		Path:   path,
		MaxAge: maxAge,
		codec:  codec,
		now:    time.Now,
	}
}

// LoadOrCreateKey returns the signing key stored at path, generating one on first use.
func LoadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil && len(data) > 0 {
		return data, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read cookie key: %w", err)
	}

	key := securecookie.GenerateRandomKey(64)
	if key == nil {
		return nil, errors.New("failed to generate cookie key")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to write cookie key: %w", err)
	}
	return key, nil
}

func (c *CookieFile) Write(token string) error {
	encoded, err := c.codec.Encode(CookieName, token)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}

	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  c.now().Add(c.MaxAge).UTC(),
		MaxAge:   int(c.MaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	if err := os.MkdirAll(filepath.Dir(c.Path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(c.Path, []byte(cookie.String()+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write session cookie: %w", err)
	}
	return nil
}

// Read returns "" with no error when the cookie is missing or expired.
func (c *CookieFile) Read() (string, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read session cookie: %w", err)
	}

	line := strings.TrimSpace(string(data))
	if line == "" {
		return "", nil
	}

	cookie, err := http.ParseSetCookie(line)
	if err != nil {
		return "", fmt.Errorf("failed to parse session cookie: %w", err)
	}
	if cookie.Name != CookieName {
		return "", fmt.Errorf("%w: unexpected cookie %q", ErrTamperedCookie, cookie.Name)
	}
	if !cookie.Expires.IsZero() && !c.now().Before(cookie.Expires) {
		return "", nil
	}

	var token string
	if err := c.codec.Decode(CookieName, cookie.Value, &token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTamperedCookie, err)
	}
	return token, nil
}

func (c *CookieFile) Clear() error {
	if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session cookie: %w", err)
	}
	return nil
}
