package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateParseRoundTrip(t *testing.T) {
	m := NewManager("test-secret-of-sufficient-len", 3600, "go-tenantadmin")

	token, err := m.Generate(42, "t-a", []int64{1, 2}, true, "jti-1")
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.UserID)
	require.Equal(t, "t-a", claims.TenantID)
	require.Equal(t, []int64{1, 2}, claims.Roles)
	require.True(t, claims.Superuser)
	require.Equal(t, "jti-1", claims.JTI)
	require.Equal(t, "go-tenantadmin", claims.Issuer)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m1 := NewManager("secret-one-secret-one-secret", 3600, "iss")
	m2 := NewManager("secret-two-secret-two-secret", 3600, "iss")

	token, err := m1.Generate(1, "t-a", nil, false, "j")
	require.NoError(t, err)
	_, err = m2.Parse(token)
	require.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret-of-sufficient-len", -1, "iss")
	token, err := m.Generate(1, "t-a", nil, false, "j")
	require.NoError(t, err)
	_, err = m.Parse(token)
	require.Error(t, err)
}

func TestExpireDuration(t *testing.T) {
	m := NewManager("test-secret-of-sufficient-len", 7200, "iss")
	require.Equal(t, 2*time.Hour, m.ExpireDuration())
}
