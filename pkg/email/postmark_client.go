package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

type postmarkClient struct {
	client *postmark.Client
	config Config
}

// NewPostmarkClient creates a Postmark-backed email sender. All config
// fields are validated up front; a half-configured sender must not make it
// into a running service.
func NewPostmarkClient(cfg Config) (EmailSender, error) {
	for name, addr := range map[string]string{
		"SenderEmail":  cfg.SenderEmail,
		"SupportEmail": cfg.SupportEmail,
	} {
		if addr == "" {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidConfig, name)
		}
		if !emailRegex.MatchString(addr) {
			return nil, fmt.Errorf("%w: %s must be a valid email address", ErrInvalidConfig, name)
		}
	}
	if cfg.PostmarkServerToken == "" || cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: postmark tokens are required", ErrInvalidConfig)
	}

	return &postmarkClient{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config: cfg,
	}, nil
}

// MustNewPostmarkClient panics on invalid config, for use in startup wiring.
func MustNewPostmarkClient(cfg Config) EmailSender {
	client, err := NewPostmarkClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// SendEmail delivers through Postmark's transactional API. Opens and HTML
// link clicks are tracked; replies go to the support address so renewal
// questions reach a human.
func (c *postmarkClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := c.client.SendEmail(ctx, postmark.Email{
		From:       c.config.SenderEmail,
		ReplyTo:    c.config.SupportEmail,
		To:         params.SendTo,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSendEmail,
			fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
