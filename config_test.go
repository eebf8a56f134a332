package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-partner-auth"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := auth.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, auth.DefaultCookieName, cfg.CookieName)
	assert.False(t, cfg.InsecureCookies)
	assert.NotEmpty(t, cfg.AMQPURL)
	assert.Equal(t, "partner_auth.mail", cfg.MailQueue)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PARTNER_AUTH_COOKIE_NAME", "my_session")
	t.Setenv("PARTNER_AUTH_INSECURE_COOKIES", "true")
	t.Setenv("PARTNER_AUTH_MAIL_QUEUE", "mail.out")

	cfg, err := auth.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "my_session", cfg.CookieName)
	assert.True(t, cfg.InsecureCookies)
	assert.Equal(t, "mail.out", cfg.MailQueue)

	opts := cfg.CookieOptions()
	assert.Len(t, opts, 2)
}
