package auth_test

import (
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-partner-auth"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		err      *goerrors.Error
		category goerrors.Category
		textCode string
	}{
		{"access denied", auth.ErrAccessDenied, goerrors.CategoryAuth, auth.TextCodeInvalidCreds},
		{"email not verified", auth.ErrEmailNotVerified, goerrors.CategoryAuth, auth.TextCodeEmailNotVerified},
		{"invalid token", auth.ErrInvalidToken, goerrors.CategoryAuth, auth.TextCodeInvalidToken},
		{"invalid cookie", auth.ErrInvalidCookie, goerrors.CategoryAuth, auth.TextCodeInvalidCookie},
		{"impersonation denied", auth.ErrImpersonationDenied, goerrors.CategoryAuth, auth.TextCodeImpersonationDenied},
		{"empty string", auth.ErrNoEmptyString, goerrors.CategoryValidation, auth.TextCodeEmptyPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.textCode, tt.err.TextCode)
		})
	}
}

func TestAccessDeniedDoesNotLeakReason(t *testing.T) {
	// the uniform error message must not name the failing check
	msg := auth.ErrAccessDenied.Error()
	assert.NotContains(t, msg, "unknown")
	assert.NotContains(t, msg, "directory")
	assert.NotContains(t, msg, "hash")
}

func TestIsAccessDeniedError(t *testing.T) {
	assert.True(t, auth.IsAccessDeniedError(auth.ErrAccessDenied))
	assert.True(t, auth.IsAccessDeniedError(auth.ErrEmailNotVerified))
	assert.True(t, auth.IsAccessDeniedError(auth.ErrImpersonationDenied))
	assert.False(t, auth.IsAccessDeniedError(auth.ErrInvalidToken))
	assert.False(t, auth.IsAccessDeniedError(nil))
	assert.False(t, auth.IsAccessDeniedError(fmt.Errorf("boom")))
}

func TestIsInvalidTokenError(t *testing.T) {
	assert.True(t, auth.IsInvalidTokenError(auth.ErrInvalidToken))
	assert.True(t, auth.IsInvalidTokenError(auth.ErrInvalidCookie))
	assert.False(t, auth.IsInvalidTokenError(auth.ErrAccessDenied))
	assert.False(t, auth.IsInvalidTokenError(fmt.Errorf("boom")))
}

func TestMissingTemplateError(t *testing.T) {
	err := auth.MissingTemplateError(auth.TemplateResetPassword, "acme")

	assert.True(t, auth.IsMissingTemplateError(err))
	assert.Equal(t, goerrors.CategoryOperation, err.Category)
	assert.Equal(t, "reset_password", err.Metadata["template_kind"])
	assert.Equal(t, "acme", err.Metadata["directory"])
}
