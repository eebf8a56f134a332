package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultCookieName is the session cookie name unless overridden.
const DefaultCookieName = "partner_auth"

// SessionCookie is a transport-agnostic cookie description. HTTP adapters
// translate it into their framework's cookie type.
type SessionCookie struct {
	Name     string
	Value    string
	Expires  time.Time
	MaxAge   int
	HTTPOnly bool
	Secure   bool
	SameSite string
}

type cookieClaims struct {
	jwt.RegisteredClaims
	DirectoryID string `json:"did"`
	PartnerID   string `json:"pid"`
}

// CookieIssuer materializes authenticated sessions as signed cookies. It
// signs with the directory's cookie secret, which is independent from the
// action-token secret so rotating one does not revoke the other's
// artifacts.
type CookieIssuer struct {
	name     string
	insecure bool
	logger   Logger
	now      func() time.Time
}

// CookieIssuerOption configures a CookieIssuer.
type CookieIssuerOption func(*CookieIssuer)

// WithCookieName overrides the cookie name.
func WithCookieName(name string) CookieIssuerOption {
	return func(i *CookieIssuer) {
		if name != "" {
			i.name = name
		}
	}
}

// WithInsecureCookies drops the Secure flag. Only meant for local
// development and tests running without TLS.
func WithInsecureCookies() CookieIssuerOption {
	return func(i *CookieIssuer) {
		i.insecure = true
	}
}

// WithCookieLogger overrides the issuer logger.
func WithCookieLogger(logger Logger) CookieIssuerOption {
	return func(i *CookieIssuer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithCookieTimeSource overrides the clock, mostly for expiry tests.
func WithCookieTimeSource(now func() time.Time) CookieIssuerOption {
	return func(i *CookieIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewCookieIssuer returns an issuer with secure defaults: HttpOnly,
// Secure and SameSite=Strict.
func NewCookieIssuer(opts ...CookieIssuerOption) *CookieIssuer {
	i := &CookieIssuer{
		name:   DefaultCookieName,
		logger: defLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// Name returns the configured cookie name.
func (i *CookieIssuer) Name() string {
	return i.name
}

// Issue signs a session cookie naming the partner's directory and linked
// identity. The payload carries ids only, never login or password state.
func (i *CookieIssuer) Issue(directory *Directory, partner *AuthPartner) (*SessionCookie, error) {
	if directory.CookieSecretKey == "" {
		return nil, goerrors.New(
			"directory has no cookie secret key",
			goerrors.CategoryValidation,
		).WithTextCode(TextCodeInvalidCookie).WithMetadata(map[string]any{
			"directory": directory.ID.String(),
		})
	}

	now := i.now()
	expires := now.Add(directory.CookieTTL())

	claims := &cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{directory.Audience()},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		DirectoryID: directory.ID.String(),
		PartnerID:   partner.PartnerID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(directory.CookieSecretKey))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session cookie")
	}

	return &SessionCookie{
		Name:     i.name,
		Value:    signed,
		Expires:  expires,
		MaxAge:   int(directory.CookieTTL() / time.Second),
		HTTPOnly: true,
		Secure:   !i.insecure,
		SameSite: "Strict",
	}, nil
}

// Verify validates a session cookie value against directory and resolves
// the partner it references. All failure modes collapse into
// ErrInvalidCookie.
func (i *CookieIssuer) Verify(ctx context.Context, directory *Directory, value string, partners PartnerStore) (*AuthPartner, error) {
	if directory.CookieSecretKey == "" || value == "" {
		return nil, ErrInvalidCookie
	}

	claims := &cookieClaims{}
	parsed, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(directory.CookieSecretKey), nil
	},
		jwt.WithAudience(directory.Audience()),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		i.logger.Debug("cookie verification failed: %v", err)
		return nil, ErrInvalidCookie
	}

	if claims.DirectoryID != directory.ID.String() {
		i.logger.Debug("cookie names another directory")
		return nil, ErrInvalidCookie
	}

	identityID, err := uuid.Parse(claims.PartnerID)
	if err != nil {
		i.logger.Debug("cookie carries malformed partner id")
		return nil, ErrInvalidCookie
	}

	partner, err := partners.PartnerByIdentity(ctx, directory.ID, identityID)
	if err != nil || partner == nil {
		i.logger.Debug("cookie subject not found: %v", err)
		return nil, ErrInvalidCookie
	}

	return partner, nil
}
