// Package auth owns the client's session: the bearer token, the cached user profile and
// their mirrors in the cookie file and the local record.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"coinvest/api"
	"coinvest/store"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=../mocks/mock_auth.go -package=mocks coinvest/auth Backend,CookieStore,RecordStore

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoRefreshToken   = errors.New("no refresh token stored")
)

// Backend is the part of api.Client the session needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	RefreshToken(ctx context.Context, refresh string) (*api.TokenPair, error)
	UpdateProfile(ctx context.Context, patch api.ProfilePatch) (*api.User, error)
	SetToken(token string)
	ClearToken()
}

type CookieStore interface {
	Read() (string, error)
	Write(token string) error
	Clear() error
}

type RecordStore interface {
	LoadSession() (*store.SessionRecord, error)
	SaveSession(rec store.SessionRecord) error
	SaveUser(user api.User) error
	ClearSession() error
}

type LoginResult struct {
	OK      bool
	Message string
}

// Store is the single source of truth for who is signed in.
type Store struct {
	backend Backend
	cookies CookieStore
	records RecordStore
	logger  *slog.Logger
	now     func() time.Time

	// OnLogout runs after every Logout. Set it before the store is shared.
	OnLogout func()

	mu            sync.RWMutex
	access        string
	refresh       string
	user          *api.User
	authenticated bool
}

func NewStore(backend Backend, cookies CookieStore, records RecordStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend: backend,
		cookies: cookies,
		records: records,
		logger:  logger,
		now:     time.Now,
	}
}

// Bootstrap restores a persisted session without touching the network. The cookie token
// wins over the local record's. Any read failure, a missing cached profile or an expired
// token clears everything and reports false, as does a token issued to an account other
// than the cached profile's.
func (s *Store) Bootstrap() bool {
	token, err := s.cookies.Read()
	if err != nil {
		s.failClosed("cookie read failed", err)
		return false
	}

	rec, err := s.records.LoadSession()
	if err != nil {
		s.failClosed("local record read failed", err)
		return false
	}

	if token == "" && rec != nil {
		token = rec.Access
	}
	if token == "" {
		s.reset()
		return false
	}

	if rec == nil || rec.User == nil {
		s.failClosed("no cached profile", nil)
		return false
	}
	if err := checkToken(token, s.now()); err != nil {
		s.failClosed("stored token rejected", err)
		return false
	}
	if err := checkOwner(rec.User.ID, token, rec.Refresh); err != nil {
		s.failClosed("stored tokens do not match the cached profile", err)
		return false
	}

	s.persist(store.SessionRecord{Access: token, Refresh: rec.Refresh, User: rec.User})
	s.backend.SetToken(token)

	user := *rec.User
	s.mu.Lock()
	s.access = token
	s.refresh = rec.Refresh
	s.user = &user
	s.authenticated = true
	s.mu.Unlock()

	s.logger.Info("session restored", "user_id", user.ID)
	return true
}

// Login never returns an error; failures come back as a result with a display message.
func (s *Store) Login(ctx context.Context, email, password string) LoginResult {
	resp, err := s.callLogin(ctx, email, password)
	if err != nil {
		s.logger.Warn("login failed", "error", err)
		return LoginResult{Message: api.UserMessage(err)}
	}
	if resp == nil || resp.Access == "" || resp.User == nil {
		return LoginResult{Message: api.MessageUnknown}
	}

	user := *resp.User
	s.persist(store.SessionRecord{Access: resp.Access, Refresh: resp.Refresh, User: &user})
	s.backend.SetToken(resp.Access)

	s.mu.Lock()
	s.access = resp.Access
	s.refresh = resp.Refresh
	s.user = &user
	s.authenticated = true
	s.mu.Unlock()

	s.logger.Info("logged in", "user_id", user.ID)
	return LoginResult{OK: true}
}

func (s *Store) callLogin(ctx context.Context, email, password string) (resp *api.LoginResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("login panicked: %v", r)
		}
	}()
	return s.backend.Login(ctx, email, password)
}

func (s *Store) Logout() {
	if err := s.cookies.Clear(); err != nil {
		s.logger.Warn("failed to clear session cookie", "error", err)
	}
	if err := s.records.ClearSession(); err != nil {
		s.logger.Warn("failed to clear local record", "error", err)
	}
	s.reset()

	if s.OnLogout != nil {
		s.OnLogout()
	}
}

// UpdateUserBalance rewrites the cached balance in memory and in the local record.
func (s *Store) UpdateUserBalance(balance decimal.Decimal) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	s.user.Balance = balance
	user := *s.user
	s.mu.Unlock()

	return s.records.SaveUser(user)
}

// UpdateUserProfile merges patch into the cached user and the local record.
func (s *Store) UpdateUserProfile(patch api.ProfilePatch) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	patch.Apply(s.user)
	user := *s.user
	s.mu.Unlock()

	return s.records.SaveUser(user)
}

// SaveProfile sends the patch to the backend and caches what it answered.
func (s *Store) SaveProfile(ctx context.Context, patch api.ProfilePatch) error {
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	updated, err := s.backend.UpdateProfile(ctx, patch)
	if err != nil {
		return err
	}
	return s.UpdateUserProfile(api.ProfilePatch{
		FullName:      &updated.FullName,
		Email:         &updated.Email,
		WalletAddress: &updated.WalletAddress,
	})
}

// RotateAccessToken exchanges the refresh token for a new access token and rewrites both
// stores.
func (s *Store) RotateAccessToken(ctx context.Context) error {
	s.mu.RLock()
	refresh, user := s.refresh, s.user
	s.mu.RUnlock()

	if user == nil {
		return ErrNotAuthenticated
	}
	if refresh == "" {
		return ErrNoRefreshToken
	}

	pair, err := s.backend.RefreshToken(ctx, refresh)
	if err != nil {
		return err
	}
	if pair.Refresh != "" {
		refresh = pair.Refresh
	}

	s.mu.Lock()
	s.access = pair.Access
	s.refresh = refresh
	snapshot := *s.user
	s.mu.Unlock()

	s.persist(store.SessionRecord{Access: pair.Access, Refresh: refresh, User: &snapshot})
	s.backend.SetToken(pair.Access)
	return nil
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// User returns a copy of the cached profile, or nil when signed out.
func (s *Store) User() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Store) persist(rec store.SessionRecord) {
	if err := s.cookies.Write(rec.Access); err != nil {
		s.logger.Warn("failed to write session cookie", "error", err)
	}
	if err := s.records.SaveSession(rec); err != nil {
		s.logger.Warn("failed to write local record", "error", err)
	}
}

func (s *Store) failClosed(reason string, err error) {
	s.logger.Warn("discarding stored session", "reason", reason, "error", err)
	if err := s.cookies.Clear(); err != nil {
		s.logger.Warn("failed to clear session cookie", "error", err)
	}
	if err := s.records.ClearSession(); err != nil {
		s.logger.Warn("failed to clear local record", "error", err)
	}
	s.reset()
}

func (s *Store) reset() {
	s.backend.ClearToken()
	s.mu.Lock()
	s.access = ""
	s.refresh = ""
	s.user = nil
	s.authenticated = false
	s.mu.Unlock()
}
