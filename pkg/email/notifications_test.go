package email_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauseguard/clauseguard/pkg/billing"
	"github.com/clauseguard/clauseguard/pkg/catalog"
	"github.com/clauseguard/clauseguard/pkg/email"
)

type capturingSender struct {
	sent []email.SendEmailParams
	err  error
}

func (s *capturingSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, params)
	return nil
}

func staticResolver(addr string) email.AddressResolver {
	return func(ctx context.Context, userID string) (string, error) {
		return addr, nil
	}
}

func TestNotifications_SubscriptionExpired(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	expired := billing.Subscription{
		ID:      "sub-1",
		UserID:  "user-1",
		PlanID:  catalog.PlanPro,
		Status:  billing.StatusCancelled,
		EndDate: &end,
	}

	sender := &capturingSender{}
	n := email.NewNotifications(sender, staticResolver("user@example.com"))

	err := n.SubscriptionExpired(context.Background(), "user-1", expired)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "user@example.com", msg.SendTo)
	assert.Equal(t, "subscription-expired", msg.Tag)
	assert.Contains(t, msg.BodyHTML, "pro")
	assert.Contains(t, msg.BodyHTML, "March 31, 2026")
}

func TestNotifications_SubscriptionUpgraded(t *testing.T) {
	t.Parallel()

	sub := billing.Subscription{
		ID:        "sub-2",
		UserID:    "user-1",
		PlanID:    catalog.PlanEnterprise,
		Status:    billing.StatusActive,
		StartDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}

	sender := &capturingSender{}
	n := email.NewNotifications(sender, staticResolver("user@example.com"))

	err := n.SubscriptionUpgraded(context.Background(), "user-1", sub)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "subscription-upgraded", msg.Tag)
	assert.Contains(t, msg.BodyHTML, "enterprise")
	assert.Contains(t, msg.BodyHTML, "April 1, 2026")
}

func TestNotifications_ResolverFailure(t *testing.T) {
	t.Parallel()

	n := email.NewNotifications(&capturingSender{}, func(ctx context.Context, userID string) (string, error) {
		return "", assert.AnError
	})

	err := n.SubscriptionExpired(context.Background(), "user-1", billing.Subscription{PlanID: catalog.PlanPro})
	require.ErrorIs(t, err, assert.AnError)
}

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	valid := email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "hello",
		BodyHTML: "<p>hi</p>",
	}
	require.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*email.SendEmailParams){
		"missing recipient": func(p *email.SendEmailParams) { p.SendTo = "" },
		"bad address":       func(p *email.SendEmailParams) { p.SendTo = "not-an-email" },
		"missing subject":   func(p *email.SendEmailParams) { p.Subject = "" },
		"missing body":      func(p *email.SendEmailParams) { p.BodyHTML = "" },
	} {
		t.Run(name, func(t *testing.T) {
			p := valid
			mutate(&p)
			assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
		})
	}
}

func TestDevSender_WritesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender := email.NewDevSender(dir)

	err := sender.SendEmail(context.Background(), email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Test Subject",
		BodyHTML: "<p>body</p>",
		Tag:      "test-tag",
	})
	require.NoError(t, err)

	// One HTML body plus one JSON envelope, both named by the tag.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var sawHTML, sawJSON bool
	for _, entry := range entries {
		assert.Contains(t, entry.Name(), "test-tag")
		switch filepath.Ext(entry.Name()) {
		case ".html":
			sawHTML = true
			body, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			require.NoError(t, err)
			assert.Equal(t, "<p>body</p>", string(body))
		case ".json":
			sawJSON = true
			raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			require.NoError(t, err)
			assert.Contains(t, string(raw), `"send_to": "user@example.com"`)
		}
	}
	assert.True(t, sawHTML)
	assert.True(t, sawJSON)
}

func TestNewPostmarkClient_Validation(t *testing.T) {
	t.Parallel()

	valid := email.Config{
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "noreply@clauseguard.example",
		SupportEmail:         "support@clauseguard.example",
	}

	_, err := email.NewPostmarkClient(valid)
	require.NoError(t, err)

	for name, mutate := range map[string]func(*email.Config){
		"missing server token":  func(c *email.Config) { c.PostmarkServerToken = "" },
		"missing account token": func(c *email.Config) { c.PostmarkAccountToken = "" },
		"missing sender":        func(c *email.Config) { c.SenderEmail = "" },
		"malformed sender":      func(c *email.Config) { c.SenderEmail = "not-an-email" },
		"missing support":       func(c *email.Config) { c.SupportEmail = "" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			_, err := email.NewPostmarkClient(cfg)
			assert.ErrorIs(t, err, email.ErrInvalidConfig)
		})
	}
}
