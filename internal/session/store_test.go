package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeForURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://docs.example.com/guide", "example.com"},
		{"https://example.com", "example.com"},
		{"http://deep.sub.example.co.uk/path?q=1", "example.co.uk"},
		{"http://localhost:3000/app", "localhost"},
		{"http://127.0.0.1:8080/", "127.0.0.1"},
		{"https://WWW.Example.COM", "example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ScopeForURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScopeForURLErrors(t *testing.T) {
	_, err := ScopeForURL("not a url ://")
	assert.Error(t, err)

	_, err = ScopeForURL("file:///etc/passwd")
	assert.Error(t, err)
}

func TestScopeSubdomainsShareActivation(t *testing.T) {
	a, err := ScopeForURL("https://mail.example.com")
	require.NoError(t, err)
	b, err := ScopeForURL("https://calendar.example.com/week")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreActivationRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "session.db"))

	active, err := s.IsActive(ctx, "example.com")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, s.SetActive(ctx, "example.com", true))
	active, err = s.IsActive(ctx, "example.com")
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, s.SetActive(ctx, "example.com", false))
	active, err = s.IsActive(ctx, "example.com")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	s := openTestStore(t, path)
	require.NoError(t, s.SetActive(ctx, "example.com", true))
	require.NoError(t, s.SetActive(ctx, "other.org", true))
	require.NoError(t, s.SetActive(ctx, "gone.net", true))
	require.NoError(t, s.SetActive(ctx, "gone.net", false))
	require.NoError(t, s.Close())

	// A fresh process sees exactly the scopes that were active.
	s2 := openTestStore(t, path)
	scopes, err := s2.ActiveScopes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com", "other.org"}, scopes)
}

func TestStoreReadWaitsForLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	s := openTestStore(t, path)
	require.NoError(t, s.SetActive(ctx, "example.com", true))
	require.NoError(t, s.Close())

	// Read immediately after open: the answer must come from the loaded
	// rows, never a premature "inactive".
	s2 := openTestStore(t, path)
	active, err := s2.IsActive(ctx, "example.com")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestStoreAwaitHonorsContext(t *testing.T) {
	s := &Store{ready: make(chan struct{}), active: map[string]bool{}}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.IsActive(ctx, "example.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStoreRejectsEmptyScope(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "session.db"))
	assert.Error(t, s.SetActive(context.Background(), "", true))
}
