package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// IdentityRegistrar creates the external identity a new auth partner
// links to. The identity provider (partner directory, CRM, ORM record)
// is an external collaborator; the default registrar just allocates an id.
type IdentityRegistrar interface {
	RegisterIdentity(ctx context.Context, name, email string) (uuid.UUID, error)
}

// IdentityRegistrarFunc adapts a function into an IdentityRegistrar.
type IdentityRegistrarFunc func(ctx context.Context, name, email string) (uuid.UUID, error)

// RegisterIdentity satisfies the IdentityRegistrar interface.
func (f IdentityRegistrarFunc) RegisterIdentity(ctx context.Context, name, email string) (uuid.UUID, error) {
	if f == nil {
		return uuid.New(), nil
	}
	return f(ctx, name, email)
}

type defaultIdentityRegistrar struct{}

func (defaultIdentityRegistrar) RegisterIdentity(context.Context, string, string) (uuid.UUID, error) {
	return uuid.New(), nil
}

// SignupPayload carries the fields needed to create a partner credential.
type SignupPayload struct {
	Name     string `json:"name"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (p SignupPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Login, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(8, 100)),
	)
}

// Auther implements the partner credential lifecycle: signup, login,
// email validation, password reset/invite/set and impersonation.
type Auther struct {
	partners         PartnerStore
	directories      DirectoryStore
	codec            *TokenCodec
	notifier         *Notifier
	identities       IdentityRegistrar
	sink             ActivitySink
	logger           Logger
	resetThrottle    string
	deterministicIDs bool
}

// NewAuthenticator returns a new Auther bound to partner and directory
// storage.
func NewAuthenticator(partners PartnerStore, directories DirectoryStore) *Auther {
	return &Auther{
		partners:    partners,
		directories: directories,
		codec:       NewTokenCodec(),
		notifier:    NewNotifier(nil),
		identities:  defaultIdentityRegistrar{},
		sink:        noopActivitySink{},
		logger:      defLogger{},
	}
}

// WithLogger overrides the logger.
func (a *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		a.logger = logger
		a.notifier = a.notifier.WithLogger(logger)
	}
	return a
}

// WithMailer sets the mail dispatch backend.
func (a *Auther) WithMailer(mailer Mailer) *Auther {
	a.notifier = NewNotifier(mailer).WithLogger(a.logger)
	return a
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (a *Auther) WithActivitySink(sink ActivitySink) *Auther {
	a.sink = normalizeActivitySink(sink)
	return a
}

// WithTokenCodec overrides the token codec, mostly to inject a clock in
// tests.
func (a *Auther) WithTokenCodec(codec *TokenCodec) *Auther {
	if codec != nil {
		a.codec = codec
	}
	return a
}

// WithIdentityRegistrar sets the external identity factory used on signup.
func (a *Auther) WithIdentityRegistrar(registrar IdentityRegistrar) *Auther {
	if registrar != nil {
		a.identities = registrar
	}
	return a
}

// WithResetThrottle suppresses repeated reset mails inside the given
// window, e.g. "1m". Throttled requests succeed silently so the endpoint
// stays quiet about account state.
func (a *Auther) WithResetThrottle(pattern string) *Auther {
	a.resetThrottle = pattern
	return a
}

// WithDeterministicIDs derives partner ids from (directory, login) so
// re-imports of the same dataset produce stable identifiers.
func (a *Auther) WithDeterministicIDs() *Auther {
	a.deterministicIDs = true
	return a
}

// Codec exposes the token codec used by this Auther.
func (a *Auther) Codec() *TokenCodec {
	return a.codec
}

// Signup creates a partner credential under directory, linked to a newly
// registered external identity, and sends the email-validation token.
// A login collision surfaces through the storage uniqueness constraint.
func (a *Auther) Signup(ctx context.Context, directory *Directory, payload SignupPayload) (*AuthPartner, error) {
	if err := payload.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid signup payload")
	}

	login := NormalizeLogin(payload.Login)

	hash, err := HashPassword(payload.Password)
	if err != nil {
		return nil, err
	}

	identityID, err := a.identities.RegisterIdentity(ctx, payload.Name, login)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register identity")
	}

	partner := &AuthPartner{
		ID:                a.newPartnerID(directory, login),
		DirectoryID:       directory.ID,
		PartnerID:         identityID,
		Login:             login,
		EncryptedPassword: hash,
	}

	created, err := a.partners.CreatePartner(ctx, partner)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create auth partner")
	}

	token, err := a.codec.Mint(directory, ActionValidateEmail, created, ValidateEmailTokenTTL, NoSalt())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint email validation token")
	}

	if err := a.notifier.SendBackground(ctx, directory, TemplateValidateEmail, created, map[string]any{
		"token": token,
		"name":  payload.Name,
	}, nil); err != nil {
		return nil, err
	}

	a.emitEvent(ctx, ActivityEventSignup, ActorRef{ID: created.ID.String(), Type: "partner"}, directory, created.ID, nil)

	return created, nil
}

// Login verifies the partner's password. Unknown login, wrong password,
// missing password and wrong directory all fail with the same
// ErrAccessDenied; only the unverified-email gate is distinguishable.
func (a *Auther) Login(ctx context.Context, directory *Directory, login, password string) (*AuthPartner, error) {
	if login == "" || password == "" {
		a.logger.Warn("empty login or password for sign in")
		return nil, ErrAccessDenied
	}

	login = NormalizeLogin(login)

	partner, err := a.partners.PartnerByLogin(ctx, directory.ID, login)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, a.denyLogin(ctx, directory, login, "unknown login")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve partner during login")
	}

	if !partner.HasPassword() {
		return nil, a.denyLogin(ctx, directory, login, "no password set")
	}

	valid, replacement := VerifyAndUpdate(password, partner.EncryptedPassword)
	if !valid {
		return nil, a.denyLogin(ctx, directory, login, "password mismatch")
	}

	if directory.ForceVerifiedEmail && !partner.MailVerified {
		a.emitEvent(ctx, ActivityEventLoginFailure, ActorRef{ID: partner.ID.String(), Type: "partner"}, directory, partner.ID, map[string]any{
			"reason": "email not verified",
		})
		return nil, ErrEmailNotVerified
	}

	if replacement != "" {
		partner.EncryptedPassword = replacement
		if _, err := a.partners.UpdatePartner(ctx, partner); err != nil {
			a.logger.Error("failed to persist upgraded password hash: %v", err)
		}
	}

	a.emitEvent(ctx, ActivityEventLoginSuccess, ActorRef{ID: partner.ID.String(), Type: "partner"}, directory, partner.ID, nil)

	return partner, nil
}

// ValidateEmail redeems an email-validation token and marks the partner's
// mail as verified.
func (a *Auther) ValidateEmail(ctx context.Context, directory *Directory, token string) (*AuthPartner, error) {
	partner, err := a.codec.Verify(ctx, directory, token, ActionValidateEmail, a.resolver(a.partners), NoSalt())
	if err != nil {
		return nil, err
	}

	partner.MailVerified = true
	if partner, err = a.partners.UpdatePartner(ctx, partner); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist email validation")
	}

	a.emitEvent(ctx, ActivityEventEmailValidated, ActorRef{ID: partner.ID.String(), Type: "partner"}, directory, partner.ID, nil)

	return partner, nil
}

// RequestPasswordReset mints a set-password token salted by the current
// password hash, mails it and updates the reset bookkeeping fields.
func (a *Auther) RequestPasswordReset(ctx context.Context, partner *AuthPartner) error {
	return a.sendPasswordToken(ctx, partner, TemplateResetPassword)
}

// RequestPasswordResetByLogin looks the partner up first and silently
// skips unknown logins so the endpoint cannot be used as an account
// existence oracle.
func (a *Auther) RequestPasswordResetByLogin(ctx context.Context, directory *Directory, login string) error {
	partner, err := a.partners.PartnerByLogin(ctx, directory.ID, NormalizeLogin(login))
	if err != nil {
		if goerrors.IsNotFound(err) {
			a.logger.Info("password reset requested for unknown login, skipping")
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve partner for password reset")
	}

	return a.RequestPasswordReset(ctx, partner)
}

// SendInvite sends the same set-password token with a welcome framing,
// for partners created without credentials.
func (a *Auther) SendInvite(ctx context.Context, partner *AuthPartner) error {
	return a.sendPasswordToken(ctx, partner, TemplateSetPassword)
}

func (a *Auther) sendPasswordToken(ctx context.Context, partner *AuthPartner, kind TemplateKind) error {
	if a.resetThrottle != "" && partner.LastResetRequestAt != nil {
		within, err := IsWithinThresholdPeriod(*partner.LastResetRequestAt, a.resetThrottle)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid reset throttle pattern")
		}
		if within {
			a.logger.Info("reset request throttled for partner %s", partner.ID)
			return nil
		}
	}

	directory, err := a.directories.DirectoryByID(ctx, partner.DirectoryID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve partner directory")
	}

	token, err := a.codec.Mint(directory, ActionSetPassword, partner, directory.SetPasswordTokenTTL(), SaltFromPartner((*AuthPartner).PasswordKeySalt))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint set password token")
	}

	if err := a.notifier.SendBackground(ctx, directory, kind, partner, map[string]any{
		"token": token,
	}, nil); err != nil {
		return err
	}

	now := time.Now().UTC()
	partner.LastResetRequestAt = &now
	partner.LastResetSuccessAt = nil
	partner.PendingResetsSent++

	if _, err := a.partners.UpdatePartner(ctx, partner); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist reset bookkeeping")
	}

	a.emitEvent(ctx, ActivityEventPasswordResetRequested, ActorRef{ID: partner.ID.String(), Type: "partner"}, directory, partner.ID, map[string]any{
		"kind": string(kind),
	})

	return nil
}

// SetPassword redeems a set-password token. The password change rewrites
// the field the token's key salt derives from, which is what makes the
// token single-use. Verification and mutation share one transaction.
func (a *Auther) SetPassword(ctx context.Context, directory *Directory, token, password string) (*AuthPartner, error) {
	if password == "" {
		return nil, ErrNoEmptyString
	}

	var partner *AuthPartner

	err := a.partners.WithinTx(ctx, func(ctx context.Context, store PartnerStore) error {
		verified, err := a.codec.Verify(ctx, directory, token, ActionSetPassword, a.resolver(store), SaltFromPartner((*AuthPartner).PasswordKeySalt))
		if err != nil {
			return err
		}

		hash, err := HashPassword(password)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		verified.EncryptedPassword = hash
		verified.MailVerified = true
		verified.LastResetSuccessAt = &now
		verified.PendingResetsSent = 0

		partner, err = store.UpdatePartner(ctx, verified)
		return err
	})
	if err != nil {
		if IsInvalidTokenError(err) {
			return nil, err
		}
		var rich *goerrors.Error
		if goerrors.As(err, &rich) {
			return nil, rich
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set password")
	}

	a.emitEvent(ctx, ActivityEventPasswordResetSuccess, ActorRef{ID: partner.ID.String(), Type: "partner"}, directory, partner.ID, nil)

	return partner, nil
}

// Impersonate mints a short-lived impersonation token for partner,
// provided the operator is allowed to impersonate under the partner's
// directory.
func (a *Auther) Impersonate(ctx context.Context, operatorID uuid.UUID, partner *AuthPartner) (string, error) {
	directory, err := a.directories.DirectoryByID(ctx, partner.DirectoryID)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve partner directory")
	}

	if !directory.CanImpersonate(operatorID) {
		a.emitEvent(ctx, ActivityEventImpersonationFailure, ActorRef{ID: operatorID.String(), Type: "operator"}, directory, partner.ID, map[string]any{
			"reason": "operator not authorized",
		})
		return "", ErrImpersonationDenied
	}

	token, err := a.codec.Mint(directory, ActionImpersonate, partner, directory.ImpersonationTokenTTL(), SaltFromPartner((*AuthPartner).ImpersonationKeySalt))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint impersonation token")
	}

	a.emitEvent(ctx, ActivityEventImpersonationIssued, ActorRef{ID: operatorID.String(), Type: "operator"}, directory, partner.ID, nil)

	return token, nil
}

// RedeemImpersonation verifies an impersonation token and stamps the last
// impersonation date. The stamp rewrites the token's key salt source, so
// replaying the same token fails.
func (a *Auther) RedeemImpersonation(ctx context.Context, directory *Directory, token string) (*AuthPartner, error) {
	var partner *AuthPartner

	err := a.partners.WithinTx(ctx, func(ctx context.Context, store PartnerStore) error {
		verified, err := a.codec.Verify(ctx, directory, token, ActionImpersonate, a.resolver(store), SaltFromPartner((*AuthPartner).ImpersonationKeySalt))
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		verified.LastImpersonationAt = &now

		partner, err = store.UpdatePartner(ctx, verified)
		return err
	})
	if err != nil {
		if IsInvalidTokenError(err) {
			return nil, err
		}
		var rich *goerrors.Error
		if goerrors.As(err, &rich) {
			return nil, rich
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to redeem impersonation token")
	}

	a.emitEvent(ctx, ActivityEventImpersonationSuccess, ActorRef{ID: partner.ID.String(), Type: "partner"}, directory, partner.ID, nil)

	return partner, nil
}

// VerifyToken exposes codec verification bound to this Auther's partner
// storage, for directory-specific custom actions.
func (a *Auther) VerifyToken(ctx context.Context, directory *Directory, token string, action TokenAction, salt KeySalt) (*AuthPartner, error) {
	return a.codec.Verify(ctx, directory, token, action, a.resolver(a.partners), salt)
}

// MintToken exposes codec minting for directory-specific custom actions.
func (a *Auther) MintToken(directory *Directory, action TokenAction, partner *AuthPartner, ttl time.Duration, salt KeySalt) (string, error) {
	return a.codec.Mint(directory, action, partner, ttl, salt)
}

func (a *Auther) resolver(store PartnerStore) PartnerResolver {
	return func(ctx context.Context, id uuid.UUID) (*AuthPartner, error) {
		return store.PartnerByID(ctx, id)
	}
}

func (a *Auther) denyLogin(ctx context.Context, directory *Directory, login, reason string) error {
	a.emitEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, directory, uuid.Nil, map[string]any{
		"reason": reason,
	})
	// uniform failure, the reason stays in the audit trail
	return ErrAccessDenied
}

func (a *Auther) newPartnerID(directory *Directory, login string) uuid.UUID {
	if a.deterministicIDs {
		if id, err := hashid.NewUUID(directory.ID.String() + ":" + login); err == nil {
			return id
		}
	}
	return uuid.New()
}

func (a *Auther) emitEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, directory *Directory, partnerID uuid.UUID, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if directory != nil {
		event.DirectoryID = directory.ID
	}

	if partnerID != uuid.Nil {
		event.PartnerID = partnerID.String()
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := normalizeActivitySink(a.sink).Record(ctx, event); err != nil {
		a.logger.Warn("activity sink record error: %v", err)
	}
}
