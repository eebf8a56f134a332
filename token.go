package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenAction scopes a token to a single operation.
type TokenAction string

const (
	// ActionSetPassword tokens redeem into a password change.
	ActionSetPassword TokenAction = "set_password"
	// ActionValidateEmail tokens mark the partner's email as verified.
	ActionValidateEmail TokenAction = "validate_email"
	// ActionImpersonate tokens authenticate an operator as the partner.
	ActionImpersonate TokenAction = "impersonating"
)

// TokenClaims carries exactly the expiry, audience, action and partner id.
// No additional PII belongs in a token.
type TokenClaims struct {
	jwt.RegisteredClaims
	Action  string `json:"action"`
	Partner string `json:"ap"`
}

// KeySalt extends the directory signing secret. A fixed salt keeps the
// token time-bound only; a derived salt ties its validity to mutable
// partner state, which is how single-use tokens work without a
// revocation store.
type KeySalt struct {
	fixed string
	fn    func(*AuthPartner) string
}

// NoSalt signs with the bare directory secret.
func NoSalt() KeySalt {
	return KeySalt{}
}

// FixedSalt signs with the directory secret plus a static value.
func FixedSalt(salt string) KeySalt {
	return KeySalt{fixed: salt}
}

// SaltFromPartner derives the salt from the partner the token names.
func SaltFromPartner(fn func(*AuthPartner) string) KeySalt {
	return KeySalt{fn: fn}
}

func (s KeySalt) derived() bool {
	return s.fn != nil
}

func (s KeySalt) resolve(partner *AuthPartner) string {
	if s.fn != nil {
		return s.fn(partner)
	}
	return s.fixed
}

// TokenCodec mints and verifies directory-scoped action tokens.
type TokenCodec struct {
	logger Logger
	now    func() time.Time
}

// TokenCodecOption configures a TokenCodec.
type TokenCodecOption func(*TokenCodec)

// WithTokenLogger overrides the codec logger.
func WithTokenLogger(logger Logger) TokenCodecOption {
	return func(c *TokenCodec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeSource overrides the clock, mostly for expiry tests.
func WithTimeSource(now func() time.Time) TokenCodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCodec returns a codec with default logger and clock.
func NewTokenCodec(opts ...TokenCodecOption) *TokenCodec {
	c := &TokenCodec{
		logger: defLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Mint signs a token for action on partner, expiring after ttl. The
// signing key is the directory secret concatenated with the resolved salt.
func (c *TokenCodec) Mint(directory *Directory, action TokenAction, partner *AuthPartner, ttl time.Duration, salt KeySalt) (string, error) {
	now := c.now()

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{directory.Audience()},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Action:  string(action),
		Partner: partner.ID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(directory.SecretKey + salt.resolve(partner)))
	if err != nil {
		return "", err
	}

	return signed, nil
}

// Verify decodes and validates a token minted for directory and action,
// returning the partner it names. Every failure mode collapses into
// ErrInvalidToken so callers cannot distinguish expired from tampered
// from already-redeemed.
//
// When the salt is derived from partner state, the token is first decoded
// without signature verification to extract the partner claim: the salt
// depends on the named partner's current state, which is unknown before
// decoding.
func (c *TokenCodec) Verify(ctx context.Context, directory *Directory, token string, action TokenAction, resolve PartnerResolver, salt KeySalt) (*AuthPartner, error) {
	var partner *AuthPartner

	if salt.derived() {
		unverified := &TokenClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(token, unverified); err != nil {
			c.logger.Debug("token pre-read failed: %v", err)
			return nil, ErrInvalidToken
		}

		var err error
		partner, err = c.resolvePartner(ctx, resolve, unverified.Partner)
		if err != nil {
			c.logger.Debug("token subject not found: %v", err)
			return nil, ErrInvalidToken
		}
	}

	key := []byte(directory.SecretKey + salt.resolve(partner))

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	},
		jwt.WithAudience(directory.Audience()),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		c.logger.Debug("token verification failed: %v", err)
		return nil, ErrInvalidToken
	}

	if claims.Action != string(action) || claims.Partner == "" {
		c.logger.Debug("token action or subject mismatch: action=%s", claims.Action)
		return nil, ErrInvalidToken
	}

	if partner == nil {
		partner, err = c.resolvePartner(ctx, resolve, claims.Partner)
		if err != nil {
			c.logger.Debug("token subject not found: %v", err)
			return nil, ErrInvalidToken
		}
	}

	if partner.DirectoryID != directory.ID {
		c.logger.Debug("token subject belongs to another directory")
		return nil, ErrInvalidToken
	}

	return partner, nil
}

func (c *TokenCodec) resolvePartner(ctx context.Context, resolve PartnerResolver, raw string) (*AuthPartner, error) {
	if resolve == nil {
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, ErrInvalidToken
	}

	partner, err := resolve(ctx, id)
	if err != nil || partner == nil {
		return nil, ErrInvalidToken
	}

	return partner, nil
}
