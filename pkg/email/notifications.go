package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/clauseguard/clauseguard/pkg/billing"
)

// AddressResolver maps a user ID to an email address. Identity lives
// upstream of this service, so the mapping is injected.
type AddressResolver func(ctx context.Context, userID string) (string, error)

// Notifications renders and sends subscription lifecycle emails. It
// implements billing.Notifier.
type Notifications struct {
	sender  EmailSender
	resolve AddressResolver
}

// NewNotifications creates the notification sender.
// Panics on nil dependencies to fail fast during initialization.
func NewNotifications(sender EmailSender, resolve AddressResolver) *Notifications {
	if sender == nil {
		panic("email: sender is required")
	}
	if resolve == nil {
		panic("email: address resolver is required")
	}
	return &Notifications{sender: sender, resolve: resolve}
}

var upgradedTmpl = template.Must(template.New("subscription_upgraded").Parse(`<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
  <h2>Welcome to {{.PlanName}}</h2>
  <p>Your {{.PlanName}} subscription is active as of {{.StartedOn}}. Your new limits apply immediately.</p>
  <p>Manage your subscription any time from your account page.</p>
  <p>— The ClauseGuard team</p>
</body>
</html>`))

var expiredTmpl = template.Must(template.New("subscription_expired").Parse(`<html>
<body style="font-family: sans-serif; color: #1a1a1a;">
  <h2>Your {{.PlanName}} subscription has ended</h2>
  <p>Your paid term ran out on {{.EndedOn}}, so your account has moved to the free plan.</p>
  <p>Your documents and history are untouched. To get your {{.PlanName}} limits back, renew any time from your account page.</p>
  <p>— The ClauseGuard team</p>
</body>
</html>`))

// SubscriptionUpgraded sends the receipt for a new paid term.
func (n *Notifications) SubscriptionUpgraded(ctx context.Context, userID string, sub billing.Subscription) error {
	addr, err := n.resolve(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve address for user %s: %w", userID, err)
	}

	var body bytes.Buffer
	if err := upgradedTmpl.Execute(&body, map[string]string{
		"PlanName":  string(sub.PlanID),
		"StartedOn": sub.StartDate.Format("January 2, 2006"),
	}); err != nil {
		return fmt.Errorf("render upgrade email: %w", err)
	}

	return n.sender.SendEmail(ctx, SendEmailParams{
		SendTo:   addr,
		Subject:  "Your ClauseGuard subscription is active",
		BodyHTML: body.String(),
		Tag:      "subscription-upgraded",
	})
}

// SubscriptionExpired emails the user that their paid plan lapsed and they
// are back on the free tier.
func (n *Notifications) SubscriptionExpired(ctx context.Context, userID string, expired billing.Subscription) error {
	addr, err := n.resolve(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve address for user %s: %w", userID, err)
	}

	endedOn := "recently"
	if expired.EndDate != nil {
		endedOn = expired.EndDate.Format("January 2, 2006")
	}

	var body bytes.Buffer
	if err := expiredTmpl.Execute(&body, map[string]string{
		"PlanName": string(expired.PlanID),
		"EndedOn":  endedOn,
	}); err != nil {
		return fmt.Errorf("render expiry email: %w", err)
	}

	return n.sender.SendEmail(ctx, SendEmailParams{
		SendTo:   addr,
		Subject:  "Your ClauseGuard subscription has expired",
		BodyHTML: body.String(),
		Tag:      "subscription-expired",
	})
}
