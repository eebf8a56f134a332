package auth

import (
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// LoginRequest is the credential payload HTTP handlers bind.
type LoginRequest struct {
	Login    string `json:"login" form:"login"`
	Password string `json:"password" form:"password"`
}

// RouteAuthenticator bridges the authentication service to go-router
// handlers: it runs the flows and materializes the results as session
// cookies on the response.
type RouteAuthenticator struct {
	auth         *Auther
	cookies      *CookieIssuer
	partners     PartnerStore
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

// NewRouteAuthenticator wires an Auther and a CookieIssuer into an HTTP
// adapter.
func NewRouteAuthenticator(auther *Auther, cookies *CookieIssuer, partners PartnerStore) *RouteAuthenticator {
	a := &RouteAuthenticator{
		auth:     auther,
		cookies:  cookies,
		partners: partners,
		Logger:   defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a
}

// Login authenticates the payload against directory and, on success, sets
// the session cookie on the response.
func (a *RouteAuthenticator) Login(ctx router.Context, directory *Directory, payload LoginRequest) error {
	partner, err := a.auth.Login(ctx.Context(), directory, payload.Login, payload.Password)
	if err != nil {
		a.Logger.Error("login error: %v", err)
		return err
	}

	cookie, err := a.cookies.Issue(directory, partner)
	if err != nil {
		return err
	}

	a.SetAuthCookie(ctx, cookie)
	return nil
}

// Logout clears the session cookie.
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.ClearAuthCookie(ctx)
}

// Authenticated resolves the partner behind the request's session cookie.
func (a *RouteAuthenticator) Authenticated(ctx router.Context, directory *Directory) (*AuthPartner, error) {
	value := ctx.Cookies(a.cookies.Name())
	if value == "" {
		return nil, ErrInvalidCookie
	}
	return a.cookies.Verify(ctx.Context(), directory, value, a.partners)
}

// Impersonate redeems an impersonation token and swaps the session cookie
// for one naming the impersonated partner.
func (a *RouteAuthenticator) Impersonate(ctx router.Context, directory *Directory, token string) error {
	partner, err := a.auth.RedeemImpersonation(ctx.Context(), directory, token)
	if err != nil {
		a.Logger.Error("impersonation error: %v", err)
		return err
	}

	cookie, err := a.cookies.Issue(directory, partner)
	if err != nil {
		return err
	}

	a.SetAuthCookie(ctx, cookie)
	return nil
}

// SetAuthCookie writes a SessionCookie to the response.
func (a *RouteAuthenticator) SetAuthCookie(ctx router.Context, cookie *SessionCookie) {
	ctx.Cookie(&router.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Expires:  cookie.Expires,
		MaxAge:   cookie.MaxAge,
		HTTPOnly: cookie.HTTPOnly,
		Secure:   cookie.Secure,
		SameSite: cookie.SameSite,
	})
}

// ClearAuthCookie expires the session cookie.
func (a *RouteAuthenticator) ClearAuthCookie(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     a.cookies.Name(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

// HTTPStatusFor maps package errors to response status codes. Auth
// failures are 401, validation issues 400, directory misconfiguration
// surfaces as 500.
func HTTPStatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	switch richErr.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return http.StatusUnauthorized
	case goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	a.Logger.Info(
		"request error category=%s text_code=%s details=%s",
		richErr.Category,
		richErr.TextCode,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	return c.JSON(HTTPStatusFor(richErr), map[string]any{
		"error": richErr.Message,
	})
}
