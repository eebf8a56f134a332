package auth

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TemplateKind names a directory-level mail template slot.
type TemplateKind string

const (
	// TemplateResetPassword is sent when a partner asks to reset their password.
	TemplateResetPassword TemplateKind = "reset_password"
	// TemplateSetPassword is the invite/welcome framing of the same token.
	TemplateSetPassword TemplateKind = "set_password"
	// TemplateValidateEmail carries the email validation token.
	TemplateValidateEmail TemplateKind = "validate_email"
)

const (
	// DefaultSetPasswordTokenMinutes is 24h.
	DefaultSetPasswordTokenMinutes = 1440
	// DefaultImpersonationTokenSeconds keeps impersonation links short lived.
	DefaultImpersonationTokenSeconds = 60
	// DefaultCookieMinutes is one year.
	DefaultCookieMinutes = 525600
	// ValidateEmailTokenTTL is fixed, no need for per-directory configuration.
	ValidateEmailTokenTTL = 30 * 24 * time.Hour
)

// Directory is the tenant/realm scoping a set of authenticable partners
// and the secrets used to sign their tokens and cookies.
type Directory struct {
	bun.BaseModel `bun:"table:auth_directories,alias:dir"`

	ID   uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name string    `bun:"name,notnull" json:"name,omitempty"`

	// SecretKey signs tokens; CookieSecretKey signs session cookies.
	// Independent so rotating one does not affect the other.
	SecretKey       string `bun:"secret_key,notnull" json:"-"`
	CookieSecretKey string `bun:"cookie_secret_key" json:"-"`

	SetPasswordTokenMinutes   int `bun:"set_password_token_duration" json:"set_password_token_duration,omitempty"`
	ImpersonationTokenSeconds int `bun:"impersonating_token_duration" json:"impersonating_token_duration,omitempty"`
	CookieMinutes             int `bun:"cookie_duration" json:"cookie_duration,omitempty"`

	ForceVerifiedEmail bool `bun:"force_verified_email" json:"force_verified_email,omitempty"`

	// ImpersonatingUserIDs are the operators allowed to impersonate any
	// partner of this directory.
	ImpersonatingUserIDs []uuid.UUID `bun:"impersonating_user_ids,array" json:"impersonating_user_ids,omitempty"`

	// Templates maps a TemplateKind to the mail template identifier the
	// notification subsystem should render.
	Templates map[TemplateKind]string `bun:"templates" json:"templates,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// GenerateSecretKey returns a cryptographically random URL-safe secret,
// 86 characters for 64 bytes of entropy.
func GenerateSecretKey() string {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// EnsureDefaults fills generated secrets and duration defaults on a new
// directory record.
func (d *Directory) EnsureDefaults() {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.SecretKey == "" {
		d.SecretKey = GenerateSecretKey()
	}
	if d.CookieSecretKey == "" {
		d.CookieSecretKey = GenerateSecretKey()
	}
	if d.SetPasswordTokenMinutes <= 0 {
		d.SetPasswordTokenMinutes = DefaultSetPasswordTokenMinutes
	}
	if d.ImpersonationTokenSeconds <= 0 {
		d.ImpersonationTokenSeconds = DefaultImpersonationTokenSeconds
	}
	if d.CookieMinutes <= 0 {
		d.CookieMinutes = DefaultCookieMinutes
	}
}

// Audience is the token audience claim value for this directory.
func (d *Directory) Audience() string {
	return d.ID.String()
}

// SetPasswordTokenTTL returns the configured set-password token lifetime.
func (d *Directory) SetPasswordTokenTTL() time.Duration {
	minutes := d.SetPasswordTokenMinutes
	if minutes <= 0 {
		minutes = DefaultSetPasswordTokenMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// ImpersonationTokenTTL returns the configured impersonation token
// lifetime. Configured in seconds, not minutes.
func (d *Directory) ImpersonationTokenTTL() time.Duration {
	seconds := d.ImpersonationTokenSeconds
	if seconds <= 0 {
		seconds = DefaultImpersonationTokenSeconds
	}
	return time.Duration(seconds) * time.Second
}

// CookieTTL returns the configured session cookie lifetime.
func (d *Directory) CookieTTL() time.Duration {
	minutes := d.CookieMinutes
	if minutes <= 0 {
		minutes = DefaultCookieMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// CanImpersonate reports whether the operator may impersonate partners of
// this directory.
func (d *Directory) CanImpersonate(operatorID uuid.UUID) bool {
	for _, id := range d.ImpersonatingUserIDs {
		if id == operatorID {
			return true
		}
	}
	return false
}

// TemplateFor resolves the mail template for kind, failing loudly when the
// directory is missing the configuration.
func (d *Directory) TemplateFor(kind TemplateKind) (string, error) {
	if tpl, ok := d.Templates[kind]; ok && tpl != "" {
		return tpl, nil
	}
	return "", MissingTemplateError(kind, d.Name)
}

// AuthPartner is the credential-bearing identity: a login and password
// hash linked to an external partner record, scoped to one directory.
type AuthPartner struct {
	bun.BaseModel `bun:"table:auth_partners,alias:ap"`

	ID uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`

	DirectoryID uuid.UUID `bun:"directory_id,notnull,type:uuid" json:"directory_id,omitempty"`
	// PartnerID references the external identity this record authenticates.
	PartnerID uuid.UUID `bun:"partner_id,notnull,type:uuid" json:"partner_id,omitempty"`

	// Login is unique per directory, derived from the identity's email.
	Login string `bun:"login,notnull" json:"login,omitempty"`

	// EncryptedPassword is write-only; empty means no password set.
	EncryptedPassword string `bun:"encrypted_password" json:"-"`

	MailVerified bool `bun:"mail_verified" json:"mail_verified,omitempty"`

	// PendingResetsSent counts reset/invite mails since the last
	// successful password change.
	PendingResetsSent int `bun:"nbr_pending_reset_sent" json:"nbr_pending_reset_sent,omitempty"`

	LastResetRequestAt  *time.Time `bun:"date_last_request_reset_pwd,nullzero" json:"date_last_request_reset_pwd,omitempty"`
	LastResetSuccessAt  *time.Time `bun:"date_last_sucessfull_reset_pwd,nullzero" json:"date_last_sucessfull_reset_pwd,omitempty"`
	LastImpersonationAt *time.Time `bun:"date_last_impersonation,nullzero" json:"date_last_impersonation,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasPassword reports whether the partner can authenticate with a password.
func (p *AuthPartner) HasPassword() bool {
	return p != nil && p.EncryptedPassword != ""
}

// PasswordKeySalt ties set-password tokens to the current password hash.
// Changing the password invalidates every outstanding token of that class.
func (p *AuthPartner) PasswordKeySalt() string {
	if p.EncryptedPassword == "" {
		return "empty"
	}
	return p.EncryptedPassword
}

// ImpersonationKeySalt ties impersonation tokens to the last redemption
// timestamp. Redeeming stamps the field and invalidates the token.
func (p *AuthPartner) ImpersonationKeySalt() string {
	if p.LastImpersonationAt == nil {
		return "never"
	}
	return p.LastImpersonationAt.UTC().Format(time.RFC3339Nano)
}

// NormalizeLogin lowercases and trims a login the way signup stores it.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
