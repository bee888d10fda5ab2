package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/apperror"
	"taskboard/internal/models"
)

type fakeUsers struct {
	byID map[int]*models.User
}

func newFakeUsers(t *testing.T, users ...models.User) *fakeUsers {
	t.Helper()
	f := &fakeUsers{byID: map[int]*models.User{}}
	for i := range users {
		u := users[i]
		hash, err := bcrypt.GenerateFromPassword([]byte(u.PasswordHash), bcrypt.MinCost)
		require.NoError(t, err)
		u.PasswordHash = string(hash)
		f.byID[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, &apperror.NotFoundError{Entity: "user"}
}

func (f *fakeUsers) GetUser(_ context.Context, id int) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, &apperror.NotFoundError{Entity: "user", ID: id}
	}
	cp := *u
	return &cp, nil
}

type memoryRevocations struct {
	mu  sync.Mutex
	ids map[string]time.Duration
}

func (m *memoryRevocations) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids == nil {
		m.ids = map[string]time.Duration{}
	}
	m.ids[jti] = ttl
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[jti]
	return ok, nil
}

func newTestIssuer(t *testing.T) (*Issuer, *fakeUsers, *memoryRevocations) {
	users := newFakeUsers(t, models.User{ID: 1, Username: "al", PasswordHash: "s3cret", Role: models.RoleManager})
	rev := &memoryRevocations{}
	iss := NewIssuer(users, rev, Options{Secret: []byte("test-secret"), Issuer: "taskboard"})
	return iss, users, rev
}

func decodePayload(t *testing.T, token string) map[string]any {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestIssueEmbedsIdentityClaims(t *testing.T) {
	iss, _, _ := newTestIssuer(t)

	pair, err := iss.Issue(context.Background(), "al", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))

	payload := decodePayload(t, pair.Access)
	assert.Equal(t, float64(1), payload["id"])
	assert.Equal(t, "al", payload["username"])
	assert.Equal(t, "MANAGER", payload["role"])
	assert.Equal(t, TokenTypeAccess, payload["token_type"])
	assert.NotEmpty(t, payload["jti"])

	claims, err := iss.Parse(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, 1, claims.UserID)
	assert.Equal(t, models.RoleManager, claims.Role)
}

func TestIssueFailuresLookIdentical(t *testing.T) {
	iss, _, _ := newTestIssuer(t)

	pair, wrongPassword := iss.Issue(context.Background(), "al", "nope")
	assert.Nil(t, pair)
	assert.True(t, apperror.IsAuthentication(wrongPassword))

	pair, unknownUser := iss.Issue(context.Background(), "ghost", "s3cret")
	assert.Nil(t, pair)
	assert.True(t, apperror.IsAuthentication(unknownUser))

	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestParseRejectsRefreshTokensAndTampering(t *testing.T) {
	iss, _, _ := newTestIssuer(t)
	pair, err := iss.Issue(context.Background(), "al", "s3cret")
	require.NoError(t, err)

	_, err = iss.Parse(pair.Refresh)
	assert.True(t, apperror.IsAuthentication(err))

	_, err = iss.Parse(pair.Access + "x")
	assert.True(t, apperror.IsAuthentication(err))

	other := NewIssuer(newFakeUsers(t), nil, Options{Secret: []byte("other-secret"), Issuer: "taskboard"})
	_, err = other.Parse(pair.Access)
	assert.True(t, apperror.IsAuthentication(err))
}

func TestExpiredAccessTokenIsRejected(t *testing.T) {
	users := newFakeUsers(t, models.User{ID: 1, Username: "al", PasswordHash: "s3cret", Role: models.RoleDeveloper})
	past := func() time.Time { return time.Now().Add(-time.Hour) }
	iss := NewIssuer(users, nil, Options{Secret: []byte("k"), AccessTTL: time.Minute, Now: past})

	pair, err := iss.Issue(context.Background(), "al", "s3cret")
	require.NoError(t, err)

	_, err = iss.Parse(pair.Access)
	var authErr *apperror.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "token expired", authErr.Reason)
}

func TestRefreshIssuesNewAccessWithCurrentRole(t *testing.T) {
	iss, users, _ := newTestIssuer(t)
	ctx := context.Background()

	pair, err := iss.Issue(ctx, "al", "s3cret")
	require.NoError(t, err)

	users.byID[1].Role = models.RoleAdmin

	refreshed, err := iss.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, pair.Refresh, refreshed.Refresh)

	claims, err := iss.Parse(refreshed.Access)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = iss.Refresh(ctx, pair.Access)
	assert.True(t, apperror.IsAuthentication(err))
}

func TestRefreshRefusedForDeletedUser(t *testing.T) {
	iss, users, _ := newTestIssuer(t)
	ctx := context.Background()
	pair, err := iss.Issue(ctx, "al", "s3cret")
	require.NoError(t, err)

	delete(users.byID, 1)
	_, err = iss.Refresh(ctx, pair.Refresh)
	assert.True(t, apperror.IsAuthentication(err))
}

func TestRevokedRefreshTokenIsRefused(t *testing.T) {
	iss, _, rev := newTestIssuer(t)
	ctx := context.Background()
	pair, err := iss.Issue(ctx, "al", "s3cret")
	require.NoError(t, err)

	require.NoError(t, iss.Revoke(ctx, pair.Refresh))
	assert.Len(t, rev.ids, 1)
	for _, ttl := range rev.ids {
		assert.Greater(t, ttl, 23*time.Hour)
	}

	_, err = iss.Refresh(ctx, pair.Refresh)
	var authErr *apperror.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "token revoked", authErr.Reason)
}

func TestHashPasswordVerifies(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}
