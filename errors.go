package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes attached to structured errors so transports can map them
// without string matching.
const (
	TextCodeInvalidCreds        = "AUTH_INVALID_CREDENTIALS"
	TextCodeEmailNotVerified    = "AUTH_EMAIL_NOT_VERIFIED"
	TextCodeInvalidToken        = "AUTH_INVALID_TOKEN"
	TextCodeInvalidCookie       = "AUTH_INVALID_COOKIE"
	TextCodeEmptyPassword       = "AUTH_EMPTY_PASSWORD"
	TextCodeImpersonationDenied = "AUTH_IMPERSONATION_DENIED"
	TextCodeTemplateMissing     = "MAIL_TEMPLATE_MISSING"
)

// ErrAccessDenied is the uniform credential failure. Unknown login, wrong
// password, missing password and wrong directory all surface this exact
// error so callers cannot probe for account existence.
var ErrAccessDenied = errors.New("invalid login or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrEmailNotVerified is raised when a directory enforces verified emails
// and the partner has not validated theirs. Intentionally distinguishable
// from ErrAccessDenied; it is not a secrecy-sensitive distinction.
var ErrEmailNotVerified = errors.New(
	"email address not validated, click the link in the email sent to you or request a new password",
	errors.CategoryAuth,
).
	WithTextCode(TextCodeEmailNotVerified).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidToken is the uniform token failure: bad signature, expiry,
// wrong audience, wrong action, unknown subject and post-redemption reuse
// are deliberately not differentiated to the caller.
var ErrInvalidToken = errors.New("invalid token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCookie is the uniform session cookie failure.
var ErrInvalidCookie = errors.New("invalid session cookie", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCookie).
	WithCode(errors.CodeUnauthorized)

// ErrImpersonationDenied is raised when the operator is not listed in the
// directory's impersonating users.
var ErrImpersonationDenied = errors.New(
	"you are not allowed to impersonate this partner",
	errors.CategoryAuth,
).
	WithTextCode(TextCodeImpersonationDenied).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty logins or passwords before they reach
// the credential store.
var ErrNoEmptyString = errors.New("login and password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// MissingTemplateError reports a directory without a mail template for the
// given kind. This is an operator-facing configuration error and carries
// the actionable detail instead of a terse message.
func MissingTemplateError(kind TemplateKind, directory string) *errors.Error {
	return errors.New("no mail template configured", errors.CategoryOperation).
		WithTextCode(TextCodeTemplateMissing).
		WithCode(errors.CodeInternal).
		WithMetadata(map[string]any{
			"template_kind": string(kind),
			"directory":     directory,
		})
}

// IsAccessDeniedError reports whether err is a credential failure,
// including the unverified-email gate.
func IsAccessDeniedError(err error) bool {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	switch rich.TextCode {
	case TextCodeInvalidCreds, TextCodeEmailNotVerified, TextCodeImpersonationDenied:
		return true
	}
	return false
}

// IsInvalidTokenError reports whether err is a token or cookie
// verification failure.
func IsInvalidTokenError(err error) bool {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.TextCode == TextCodeInvalidToken || rich.TextCode == TextCodeInvalidCookie
}

// IsMissingTemplateError reports whether err is a mail template
// configuration error.
func IsMissingTemplateError(err error) bool {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.TextCode == TextCodeTemplateMissing
}

// IsTokenExpiredError matches the jwt library's expiry errors before they
// are collapsed into ErrInvalidToken.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError matches the jwt library's parse errors.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
