package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const commandTimeout = time.Second * 10

// SignupPartnerMessage drives partner registration through a message bus.
type SignupPartnerMessage struct {
	DirectoryID string `json:"directory_id" doc:"Directory the partner signs up under."`
	Name        string `json:"name" doc:"Display name of the partner."`
	Login       string `json:"login" example:"pepe.rone@example.com" doc:"Partner email, used as login."`
	Password    string `json:"password" doc:"Initial password."`
	OnResponse  func(partner *AuthPartner)
}

func (m SignupPartnerMessage) Type() string { return "partner.signup" }

// SignupPartnerHandler executes signup commands against an Auther.
type SignupPartnerHandler struct {
	auth        *Auther
	directories DirectoryStore
}

// NewSignupPartnerHandler builds the handler.
func NewSignupPartnerHandler(auther *Auther, directories DirectoryStore) *SignupPartnerHandler {
	return &SignupPartnerHandler{auth: auther, directories: directories}
}

func (h *SignupPartnerHandler) Execute(ctx context.Context, event SignupPartnerMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during partner signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupPartnerHandler) execute(ctx context.Context, event SignupPartnerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	directory, err := h.resolveDirectory(ctx, event.DirectoryID)
	if err != nil {
		return err
	}

	partner, err := h.auth.Signup(ctx, directory, SignupPayload{
		Name:     event.Name,
		Login:    event.Login,
		Password: event.Password,
	})
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(partner)
	}

	return nil
}

func (h *SignupPartnerHandler) resolveDirectory(ctx context.Context, raw string) (*Directory, error) {
	return resolveDirectory(ctx, h.directories, raw)
}

// RequestPasswordResetMessage asks for a reset mail for a login.
type RequestPasswordResetMessage struct {
	DirectoryID string `json:"directory_id" doc:"Directory the login belongs to."`
	Login       string `json:"login" example:"pepe.rone@example.com" doc:"Partner email."`
}

func (m RequestPasswordResetMessage) Type() string { return "partner.password_reset" }

// RequestPasswordResetHandler executes reset requests against an Auther.
// Unknown logins succeed silently, matching the service behavior.
type RequestPasswordResetHandler struct {
	auth        *Auther
	directories DirectoryStore
}

// NewRequestPasswordResetHandler builds the handler.
func NewRequestPasswordResetHandler(auther *Auther, directories DirectoryStore) *RequestPasswordResetHandler {
	return &RequestPasswordResetHandler{auth: auther, directories: directories}
}

func (h *RequestPasswordResetHandler) Execute(ctx context.Context, event RequestPasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestPasswordResetHandler) execute(ctx context.Context, event RequestPasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	directory, err := resolveDirectory(ctx, h.directories, event.DirectoryID)
	if err != nil {
		return err
	}

	return h.auth.RequestPasswordResetByLogin(ctx, directory, event.Login)
}

// FinalizePasswordResetMessage redeems a set-password token.
type FinalizePasswordResetMessage struct {
	DirectoryID string `json:"directory_id" doc:"Directory the token was minted for."`
	Token       string `json:"token" doc:"Set password token from the reset mail."`
	Password    string `json:"password" doc:"New password."`
	OnResponse  func(partner *AuthPartner)
}

func (m FinalizePasswordResetMessage) Type() string { return "partner.password_reset_finalize" }

// FinalizePasswordResetHandler executes token redemptions against an
// Auther.
type FinalizePasswordResetHandler struct {
	auth        *Auther
	directories DirectoryStore
}

// NewFinalizePasswordResetHandler builds the handler.
func NewFinalizePasswordResetHandler(auther *Auther, directories DirectoryStore) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{auth: auther, directories: directories}
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	directory, err := resolveDirectory(ctx, h.directories, event.DirectoryID)
	if err != nil {
		return err
	}

	partner, err := h.auth.SetPassword(ctx, directory, event.Token, event.Password)
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(partner)
	}

	return nil
}

// ValidateEmailMessage redeems an email validation token.
type ValidateEmailMessage struct {
	DirectoryID string `json:"directory_id" doc:"Directory the token was minted for."`
	Token       string `json:"token" doc:"Email validation token."`
	OnResponse  func(partner *AuthPartner)
}

func (m ValidateEmailMessage) Type() string { return "partner.validate_email" }

// ValidateEmailHandler executes email validations against an Auther.
type ValidateEmailHandler struct {
	auth        *Auther
	directories DirectoryStore
}

// NewValidateEmailHandler builds the handler.
func NewValidateEmailHandler(auther *Auther, directories DirectoryStore) *ValidateEmailHandler {
	return &ValidateEmailHandler{auth: auther, directories: directories}
}

func (h *ValidateEmailHandler) Execute(ctx context.Context, event ValidateEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email validation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ValidateEmailHandler) execute(ctx context.Context, event ValidateEmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	directory, err := resolveDirectory(ctx, h.directories, event.DirectoryID)
	if err != nil {
		return err
	}

	partner, err := h.auth.ValidateEmail(ctx, directory, event.Token)
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(partner)
	}

	return nil
}

func resolveDirectory(ctx context.Context, directories DirectoryStore, raw string) (*Directory, error) {
	id, err := ParseUUID(raw)
	if err != nil {
		return nil, goerrors.New("invalid directory id", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"directory_id": raw})
	}

	directory, err := directories.DirectoryByID(ctx, id)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryNotFound, "unknown directory")
	}

	return directory, nil
}
