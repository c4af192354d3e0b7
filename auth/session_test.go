package auth_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"coinvest/api"
	"coinvest/auth"
	"coinvest/fakebackend"
	"coinvest/mocks"
	"coinvest/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	backend *mocks.MockBackend
	cookies *mocks.MockCookieStore
	records *mocks.MockRecordStore
	store   *auth.Store
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		backend: mocks.NewMockBackend(ctrl),
		cookies: mocks.NewMockCookieStore(ctrl),
		records: mocks.NewMockRecordStore(ctrl),
	}
	f.store = auth.NewStore(f.backend, f.cookies, f.records, nil)
	return f
}

func (f *fixture) expectFailClosed() {
	f.cookies.EXPECT().Clear().Return(nil)
	f.records.EXPECT().ClearSession().Return(nil)
	f.backend.EXPECT().ClearToken()
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func accountToken(t *testing.T, userID int64) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func cachedUser() *api.User {
	return &api.User{ID: 7, Email: "ada@example.com", FullName: "Ada", Balance: decimal.NewFromInt(100)}
}

func TestBootstrap(t *testing.T) {
	t.Run("cookie token with cached profile", func(t *testing.T) {
		f := newFixture(t)
		f.cookies.EXPECT().Read().Return("cookie-token", nil)
		f.records.EXPECT().LoadSession().Return(&store.SessionRecord{Access: "record-token", Refresh: "r", User: cachedUser()}, nil)
		f.cookies.EXPECT().Write("cookie-token").Return(nil)
		f.records.EXPECT().SaveSession(store.SessionRecord{Access: "cookie-token", Refresh: "r", User: cachedUser()}).Return(nil)
		f.backend.EXPECT().SetToken("cookie-token")

		assert.True(t, f.store.Bootstrap())
		assert.True(t, f.store.IsAuthenticated())
		assert.Equal(t, "cookie-token", f.store.AccessToken())
		assert.Equal(t, "Ada", f.store.User().FullName)
	})

	t.Run("falls back to local record", func(t *testing.T) {
		f := newFixture(t)
		f.cookies.EXPECT().Read().Return("", nil)
		f.records.EXPECT().LoadSession().Return(&store.SessionRecord{Access: "record-token", User: cachedUser()}, nil)
		f.cookies.EXPECT().Write("record-token").Return(nil)
		f.records.EXPECT().SaveSession(gomock.Any()).Return(nil)
		f.backend.EXPECT().SetToken("record-token")

		assert.True(t, f.store.Bootstrap())
	})

	t.Run("nothing stored", func(t *testing.T) {
		f := newFixture(t)
		f.cookies.EXPECT().Read().Return("", nil)
		f.records.EXPECT().LoadSession().Return(nil, nil)
		f.backend.EXPECT().ClearToken()

		assert.False(t, f.store.Bootstrap())
		assert.False(t, f.store.IsAuthenticated())
		assert.Nil(t, f.store.User())
	})

	t.Run("cookie read failure", func(t *testing.T) {
		f := newFixture(t)
		f.cookies.EXPECT().Read().Return("", auth.ErrTamperedCookie)
		f.expectFailClosed()

		assert.False(t, f.store.Bootstrap())
	})

	t.Run("local record read failure", func(t *testing.T) {
		f := newFixture(t)
		f.cookies.EXPECT().Read().Return("cookie-token", nil)
		f.records.EXPECT().LoadSession().Return(nil, errors.New("disk I/O error"))
		f.expectFailClosed()

		assert.False(t, f.store.Bootstrap())
	})

	t.Run("missing cached profile", func(t *testing.T) {
		f := newFixture(t)
		f.cookies.EXPECT().Read().Return("cookie-token", nil)
		f.records.EXPECT().LoadSession().Return(nil, nil)
		f.expectFailClosed()

		assert.False(t, f.store.Bootstrap())
	})

	t.Run("expired token", func(t *testing.T) {
		f := newFixture(t)
		f.cookies.EXPECT().Read().Return(signedToken(t, time.Now().Add(-time.Minute)), nil)
		f.records.EXPECT().LoadSession().Return(&store.SessionRecord{User: cachedUser()}, nil)
		f.expectFailClosed()

		assert.False(t, f.store.Bootstrap())
	})

	t.Run("unexpired token", func(t *testing.T) {
		f := newFixture(t)
		token := signedToken(t, time.Now().Add(time.Hour))
		f.cookies.EXPECT().Read().Return(token, nil)
		f.records.EXPECT().LoadSession().Return(&store.SessionRecord{User: cachedUser()}, nil)
		f.cookies.EXPECT().Write(token).Return(nil)
		f.records.EXPECT().SaveSession(gomock.Any()).Return(nil)
		f.backend.EXPECT().SetToken(token)

		assert.True(t, f.store.Bootstrap())
	})
}

func TestBootstrapChecksTokenOwner(t *testing.T) {
	t.Run("cookie token for another account", func(t *testing.T) {
		f := newFixture(t)
		f.cookies.EXPECT().Read().Return(accountToken(t, 8), nil)
		f.records.EXPECT().LoadSession().Return(&store.SessionRecord{Access: accountToken(t, 7), Refresh: "r", User: cachedUser()}, nil)
		f.expectFailClosed()

		assert.False(t, f.store.Bootstrap())
		assert.False(t, f.store.IsAuthenticated())
	})

	t.Run("refresh token for another account", func(t *testing.T) {
		f := newFixture(t)
		f.cookies.EXPECT().Read().Return(accountToken(t, 7), nil)
		f.records.EXPECT().LoadSession().Return(&store.SessionRecord{Refresh: accountToken(t, 8), User: cachedUser()}, nil)
		f.expectFailClosed()

		assert.False(t, f.store.Bootstrap())
	})

	t.Run("tokens for the cached account", func(t *testing.T) {
		f := newFixture(t)
		access, refresh := accountToken(t, 7), accountToken(t, 7)
		f.cookies.EXPECT().Read().Return(access, nil)
		f.records.EXPECT().LoadSession().Return(&store.SessionRecord{Refresh: refresh, User: cachedUser()}, nil)
		f.cookies.EXPECT().Write(access).Return(nil)
		f.records.EXPECT().SaveSession(store.SessionRecord{Access: access, Refresh: refresh, User: cachedUser()}).Return(nil)
		f.backend.EXPECT().SetToken(access)

		assert.True(t, f.store.Bootstrap())
		assert.Equal(t, int64(7), f.store.User().ID)
	})
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.backend.EXPECT().Login(ctx, "ada@example.com", "password1").
			Return(&api.LoginResponse{Access: "a", Refresh: "r", User: cachedUser()}, nil)
		f.cookies.EXPECT().Write("a").Return(nil)
		f.records.EXPECT().SaveSession(store.SessionRecord{Access: "a", Refresh: "r", User: cachedUser()}).Return(nil)
		f.backend.EXPECT().SetToken("a")

		res := f.store.Login(ctx, "ada@example.com", "password1")

		assert.True(t, res.OK)
		assert.Empty(t, res.Message)
		assert.True(t, f.store.IsAuthenticated())
	})

	t.Run("server message", func(t *testing.T) {
		f := newFixture(t)
		f.backend.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &api.ValidationError{Status: 401, Message: "No active account found with the given credentials"})

		res := f.store.Login(context.Background(), "ada@example.com", "nope")

		assert.False(t, res.OK)
		assert.Equal(t, "No active account found with the given credentials", res.Message)
		assert.False(t, f.store.IsAuthenticated())
	})

	t.Run("transport failure", func(t *testing.T) {
		f := newFixture(t)
		f.backend.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &api.TransportError{Method: "POST", Path: "/login/", Err: errors.New("dial tcp: refused")})

		res := f.store.Login(context.Background(), "ada@example.com", "password1")

		assert.False(t, res.OK)
		assert.Equal(t, api.MessageTransport, res.Message)
	})

	t.Run("panic is contained", func(t *testing.T) {
		f := newFixture(t)
		f.backend.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, string, string) (*api.LoginResponse, error) { panic("boom") })

		res := f.store.Login(context.Background(), "ada@example.com", "password1")
		assert.False(t, res.OK)
		assert.Equal(t, api.MessageUnknown, res.Message)
	})
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.backend.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&api.LoginResponse{Access: "a", User: cachedUser()}, nil)
	f.cookies.EXPECT().Write("a").Return(nil)
	f.records.EXPECT().SaveSession(gomock.Any()).Return(nil)
	f.backend.EXPECT().SetToken("a")
	require.True(t, f.store.Login(context.Background(), "ada@example.com", "password1").OK)

	called := 0
	f.store.OnLogout = func() { called++ }
	f.cookies.EXPECT().Clear().Return(nil)
	f.records.EXPECT().ClearSession().Return(nil)
	f.backend.EXPECT().ClearToken()

	f.store.Logout()

	assert.False(t, f.store.IsAuthenticated())
	assert.Empty(t, f.store.AccessToken())
	assert.Nil(t, f.store.User())
	assert.Equal(t, 1, called)
}

func loggedIn(t *testing.T) *fixture {
	f := newFixture(t)
	f.backend.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&api.LoginResponse{Access: "a", Refresh: "r", User: cachedUser()}, nil)
	f.cookies.EXPECT().Write("a").Return(nil)
	f.records.EXPECT().SaveSession(gomock.Any()).Return(nil)
	f.backend.EXPECT().SetToken("a")
	require.True(t, f.store.Login(context.Background(), "ada@example.com", "password1").OK)
	return f
}

func TestUpdateUserBalance(t *testing.T) {
	f := loggedIn(t)

	want := *cachedUser()
	want.Balance = decimal.RequireFromString("250.75")
	f.records.EXPECT().SaveUser(want).Return(nil)

	require.NoError(t, f.store.UpdateUserBalance(decimal.RequireFromString("250.75")))
	assert.Equal(t, "250.75", f.store.User().Balance.String())
	assert.Equal(t, "Ada", f.store.User().FullName)
}

func TestUpdateUserBalanceSignedOut(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.store.UpdateUserBalance(decimal.NewFromInt(1)), auth.ErrNotAuthenticated)
}

func TestUpdateUserProfile(t *testing.T) {
	f := loggedIn(t)
	wallet := "bc1qxyz"
	f.records.EXPECT().SaveUser(gomock.Any()).Return(nil)

	require.NoError(t, f.store.UpdateUserProfile(api.ProfilePatch{WalletAddress: &wallet}))

	u := f.store.User()
	assert.Equal(t, wallet, u.WalletAddress)
	assert.Equal(t, "ada@example.com", u.Email)
}

func TestSaveProfile(t *testing.T) {
	f := loggedIn(t)
	name := "Ada King"
	updated := *cachedUser()
	updated.FullName = name
	f.backend.EXPECT().UpdateProfile(gomock.Any(), api.ProfilePatch{FullName: &name}).Return(&updated, nil)
	f.records.EXPECT().SaveUser(gomock.Any()).Return(nil)

	require.NoError(t, f.store.SaveProfile(context.Background(), api.ProfilePatch{FullName: &name}))
	assert.Equal(t, name, f.store.User().FullName)
}

func TestRotateAccessToken(t *testing.T) {
	f := loggedIn(t)
	f.backend.EXPECT().RefreshToken(gomock.Any(), "r").Return(&api.TokenPair{Access: "a2"}, nil)
	f.cookies.EXPECT().Write("a2").Return(nil)
	f.records.EXPECT().SaveSession(store.SessionRecord{Access: "a2", Refresh: "r", User: cachedUser()}).Return(nil)
	f.backend.EXPECT().SetToken("a2")

	require.NoError(t, f.store.RotateAccessToken(context.Background()))
	assert.Equal(t, "a2", f.store.AccessToken())
}

func TestRotateAccessTokenSignedOut(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.store.RotateAccessToken(context.Background()), auth.ErrNotAuthenticated)
}

// Real cookie file, local record and backend: a restored session makes no requests, and
// a logout leaves nothing for the next start to restore.
func TestSessionLifecycle(t *testing.T) {
	backend := fakebackend.New("secret")
	backend.AddUser("Ada", "ada@example.com", "password1", "1234", decimal.NewFromInt(500))
	srv := httptest.NewServer(backend.Router())
	defer srv.Close()

	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "session.db"))
	require.NoError(t, err)
	defer db.Close()

	newSession := func() (*auth.Store, *api.Client) {
		client := api.NewClient(srv.URL+"/api", 0)
		cookies := auth.NewCookieFile(filepath.Join(dir, "session.cookie"), []byte("0123456789abcdef0123456789abcdef"), time.Hour)
		return auth.NewStore(client, cookies, db, nil), client
	}

	first, _ := newSession()
	require.True(t, first.Login(context.Background(), "ada@example.com", "password1").OK)
	hits := backend.TotalHits()

	second, client := newSession()
	require.True(t, second.Bootstrap())
	assert.Equal(t, hits, backend.TotalHits())
	assert.Equal(t, second.AccessToken(), client.Token())
	assert.Equal(t, "Ada", second.User().FullName)

	second.Logout()
	assert.Empty(t, client.Token())

	third, _ := newSession()
	assert.False(t, third.Bootstrap())
	assert.False(t, third.IsAuthenticated())
}
