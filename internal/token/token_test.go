package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskboard-dev/taskboard/backend/internal/domain"
)

const testSecret = "test-secret"

func testUser() *domain.User {
	return &domain.User{
		ID:    42,
		Name:  "张伟",
		Email: "zhangwei@example.com",
		Role:  domain.RoleUser,
	}
}

func TestToken_IssueAndVerify(t *testing.T) {
	ss, err := Issue(testSecret, time.Hour, testUser())
	require.NoError(t, err)
	require.NotEmpty(t, ss)

	claims, err := Verify(testSecret, ss)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, "张伟", claims.Name)
	assert.Equal(t, "zhangwei@example.com", claims.Email)
	assert.Equal(t, string(domain.RoleUser), claims.Role)
}

func TestToken_VerifyFailures(t *testing.T) {
	t.Run("expired", func(t *testing.T) {
		ss, err := Issue(testSecret, -time.Hour, testUser())
		require.NoError(t, err)

		_, err = Verify(testSecret, ss)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		ss, err := Issue(testSecret, time.Hour, testUser())
		require.NoError(t, err)

		_, err = Verify("another-secret", ss)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered", func(t *testing.T) {
		ss, err := Issue(testSecret, time.Hour, testUser())
		require.NoError(t, err)

		tampered := ss[:len(ss)-2] + "xx"
		_, err = Verify(testSecret, tampered)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := Verify(testSecret, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
