package store

import (
	"path/filepath"
	"testing"
	"time"

	"coinvest/api"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestLoadSessionEmpty(t *testing.T) {
	d := openTestDB(t)

	rec, err := d.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSessionRoundTrip(t *testing.T) {
	d := openTestDB(t)
	user := &api.User{ID: 7, Email: "ada@example.com", FullName: "Ada", Balance: decimal.RequireFromString("1234.56")}

	require.NoError(t, d.SaveSession(SessionRecord{Access: "a1", Refresh: "r1", User: user}))

	rec, err := d.LoadSession()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "a1", rec.Access)
	assert.Equal(t, "r1", rec.Refresh)
	require.NotNil(t, rec.User)
	assert.Equal(t, "Ada", rec.User.FullName)
	assert.True(t, rec.User.Balance.Equal(user.Balance))
	assert.False(t, rec.UpdatedAt.IsZero())
}

func TestSaveUserKeepsTokens(t *testing.T) {
	d := openTestDB(t)
	require.NoError(t, d.SaveSession(SessionRecord{Access: "a1", Refresh: "r1", User: &api.User{ID: 1, FullName: "Old"}}))

	require.NoError(t, d.SaveUser(api.User{ID: 1, FullName: "New"}))

	rec, err := d.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "a1", rec.Access)
	assert.Equal(t, "New", rec.User.FullName)
}

func TestClearSession(t *testing.T) {
	d := openTestDB(t)
	require.NoError(t, d.SaveSession(SessionRecord{Access: "a1"}))

	require.NoError(t, d.ClearSession())

	rec, err := d.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSessionWithoutUser(t *testing.T) {
	d := openTestDB(t)
	require.NoError(t, d.SaveSession(SessionRecord{Access: "a1"}))

	rec, err := d.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, rec.User)
}

func TestPreviousDayBalance(t *testing.T) {
	d := openTestDB(t)
	day := func(s string, hour int) time.Time {
		ts, err := time.ParseInLocation("2006-01-02", s, time.Local)
		require.NoError(t, err)
		return ts.Add(time.Duration(hour) * time.Hour)
	}

	_, ok, err := d.PreviousDayBalance(1, day("2024-03-03", 9))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.RecordBalance(1, day("2024-03-01", 9), decimal.NewFromInt(900)))
	require.NoError(t, d.RecordBalance(1, day("2024-03-02", 9), decimal.NewFromInt(950)))
	require.NoError(t, d.RecordBalance(1, day("2024-03-02", 18), decimal.NewFromInt(975)))
	require.NoError(t, d.RecordBalance(1, day("2024-03-03", 9), decimal.NewFromInt(1000)))
	require.NoError(t, d.RecordBalance(2, day("2024-03-02", 9), decimal.NewFromInt(5)))

	got, ok, err := d.PreviousDayBalance(1, day("2024-03-03", 12))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(decimal.NewFromInt(975)), got.String())
}

func TestPruneBalances(t *testing.T) {
	d := openTestDB(t)
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.Local)
	d.now = func() time.Time { return now }

	require.NoError(t, d.RecordBalance(1, now.AddDate(0, 0, -40), decimal.NewFromInt(1)))
	require.NoError(t, d.RecordBalance(1, now.AddDate(0, 0, -1), decimal.NewFromInt(2)))

	require.NoError(t, d.PruneBalances(30))

	got, ok, err := d.PreviousDayBalance(1, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(decimal.NewFromInt(2)))

	_, ok, err = d.PreviousDayBalance(1, now.AddDate(0, 0, -2))
	require.NoError(t, err)
	assert.False(t, ok)
}
