package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender writes outbound emails to a local directory instead of sending
// them: the rendered body as an HTML file next to a small JSON envelope
// with the recipient, subject and tag. Used when email sending is disabled
// so lifecycle emails stay inspectable in development.
type DevSender struct {
	dir string
}

// NewDevSender creates a disk-backed sender rooted at dir. The directory is
// created on first send.
func NewDevSender(dir string) EmailSender {
	return &DevSender{dir: dir}
}

type devEnvelope struct {
	SentAt  string `json:"sent_at"`
	SendTo  string `json:"send_to"`
	Subject string `json:"subject"`
	Tag     string `json:"tag,omitempty"`
}

func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}

	now := time.Now()
	stem := filepath.Join(d.dir, fileStem(now, params))

	if err := os.WriteFile(stem+".html", []byte(params.BodyHTML), 0o644); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}

	envelope, err := json.MarshalIndent(devEnvelope{
		SentAt:  now.Format(time.RFC3339),
		SendTo:  params.SendTo,
		Subject: params.Subject,
		Tag:     params.Tag,
	}, "", "  ")
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(stem+".json", envelope, 0o644); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9\-_.]`)

// fileStem builds "<timestamp>_<slug>", slugging the tag and falling back
// to the subject, so a dev inbox directory sorts chronologically and reads
// by purpose.
func fileStem(now time.Time, params SendEmailParams) string {
	slug := params.Tag
	if slug == "" {
		slug = params.Subject
	}
	slug = strings.ToLower(strings.ReplaceAll(slug, " ", "_"))
	slug = unsafeFilenameChars.ReplaceAllString(slug, "")
	if len(slug) > 80 {
		slug = slug[:80]
	}
	if slug == "" {
		slug = "email"
	}
	return fmt.Sprintf("%s_%s", now.Format("20060102_150405"), slug)
}
