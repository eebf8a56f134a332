package auth

import (
	"context"

	"github.com/google/uuid"
)

// MailMessage is the delivery job handed to the notification subsystem.
// The core only cares that it was enqueued; rendering, delivery and
// retries belong to the mail infrastructure.
type MailMessage struct {
	Template    string         `json:"template"`
	Kind        TemplateKind   `json:"kind"`
	DirectoryID uuid.UUID      `json:"directory_id"`
	PartnerID   uuid.UUID      `json:"partner_id"`
	To          string         `json:"to"`
	Context     map[string]any `json:"context,omitempty"`
}

// Mailer enqueues a mail message for delivery.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// MailerFunc adapts a function into a Mailer.
type MailerFunc func(ctx context.Context, msg MailMessage) error

// Send satisfies the Mailer interface.
func (f MailerFunc) Send(ctx context.Context, msg MailMessage) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

type noopMailer struct{}

func (noopMailer) Send(context.Context, MailMessage) error {
	return nil
}

func normalizeMailer(m Mailer) Mailer {
	if m == nil {
		return noopMailer{}
	}
	return m
}

// Notifier resolves directory mail templates and dispatches messages
// through a Mailer, synchronously or fire-and-forget.
type Notifier struct {
	mailer Mailer
	logger Logger
}

// NewNotifier creates a Notifier with sane defaults.
func NewNotifier(mailer Mailer) *Notifier {
	return &Notifier{
		mailer: normalizeMailer(mailer),
		logger: defLogger{},
	}
}

// WithLogger overrides the notifier logger.
func (n *Notifier) WithLogger(logger Logger) *Notifier {
	if logger != nil {
		n.logger = logger
	}
	return n
}

// Send resolves the template for kind and delivers synchronously. A
// directory without a template for kind is a configuration error and
// fails loudly, never a silent no-op.
func (n *Notifier) Send(ctx context.Context, directory *Directory, kind TemplateKind, partner *AuthPartner, msgCtx map[string]any) error {
	template, err := directory.TemplateFor(kind)
	if err != nil {
		return err
	}

	return n.mailer.Send(ctx, MailMessage{
		Template:    template,
		Kind:        kind,
		DirectoryID: directory.ID,
		PartnerID:   partner.ID,
		To:          partner.Login,
		Context:     msgCtx,
	})
}

// SendBackground behaves like Send but dispatches without blocking the
// caller. Template resolution still happens synchronously so
// misconfiguration surfaces to the caller; only delivery is detached.
// The optional callback receives the delivery error, nil on success.
func (n *Notifier) SendBackground(ctx context.Context, directory *Directory, kind TemplateKind, partner *AuthPartner, msgCtx map[string]any, callback func(error)) error {
	template, err := directory.TemplateFor(kind)
	if err != nil {
		return err
	}

	msg := MailMessage{
		Template:    template,
		Kind:        kind,
		DirectoryID: directory.ID,
		PartnerID:   partner.ID,
		To:          partner.Login,
		Context:     msgCtx,
	}

	// delivery must not be cancelled with the request
	bg := context.WithoutCancel(ctx)

	go func() {
		err := n.mailer.Send(bg, msg)
		if err != nil {
			n.logger.Error("background mail dispatch failed kind=%s to=%s: %v", kind, msg.To, err)
		}
		if callback != nil {
			callback(err)
		}
	}()

	return nil
}
