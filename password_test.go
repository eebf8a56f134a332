package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-partner-auth"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings!
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := auth.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)

			err = auth.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := auth.HashPassword(password)
	assert.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		wantErr  bool
	}{
		{
			name:     "Matching password",
			password: password,
			hash:     hash,
			wantErr:  false,
		},
		{
			name:     "Wrong password",
			password: "wrongPassword",
			hash:     hash,
			wantErr:  true,
		},
		{
			name:     "Invalid hash",
			password: password,
			hash:     "invalidhash",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ComparePasswordAndHash(tt.password, tt.hash)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.hash == hash {
					assert.Equal(t, auth.ErrAccessDenied, err)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerifyAndUpdate(t *testing.T) {
	password := "testPassword123!"
	hash, err := auth.HashPassword(password)
	assert.NoError(t, err)

	t.Run("valid password no rehash", func(t *testing.T) {
		valid, replacement := auth.VerifyAndUpdate(password, hash)
		assert.True(t, valid)
		assert.Empty(t, replacement)
	})

	t.Run("wrong password", func(t *testing.T) {
		valid, replacement := auth.VerifyAndUpdate("wrongPassword", hash)
		assert.False(t, valid)
		assert.Empty(t, replacement)
	})

	t.Run("empty hash behaves like wrong password", func(t *testing.T) {
		valid, replacement := auth.VerifyAndUpdate(password, "")
		assert.False(t, valid)
		assert.Empty(t, replacement)
	})

	t.Run("low cost hash gets upgraded", func(t *testing.T) {
		weak, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		assert.NoError(t, err)

		valid, replacement := auth.VerifyAndUpdate(password, string(weak))
		assert.True(t, valid)
		assert.NotEmpty(t, replacement)
		assert.NotEqual(t, string(weak), replacement)

		assert.NoError(t, auth.ComparePasswordAndHash(password, replacement))
	})
}

func TestRandomPasswordHash(t *testing.T) {
	hash1 := auth.RandomPasswordHash()
	hash2 := auth.RandomPasswordHash()

	assert.NotEmpty(t, hash1)
	assert.NotEmpty(t, hash2)
	assert.NotEqual(t, hash1, hash2)
}
