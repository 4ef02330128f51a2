package notify

import (
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"

	"shc-verifier/internal/platform/config"
)

// Mailer sends review requests to the ticketing inbox over SMTP.
type Mailer struct {
	client *mail.Client
	from   string
	to     string
}

// NewMailer builds an SMTP-backed Notifier. Plain auth is enabled only when
// a username is configured; the default local relay needs none.
func NewMailer(cfg config.Mail) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	return &Mailer{client: client, from: cfg.From, to: cfg.To}, nil
}

func (m *Mailer) NotifyReview(ctx context.Context, uid int64, cardName, registeredName string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat("SMART Health Card Verifier", m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(m.to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(fmt.Sprintf("Name mismatch in Health Card Verification - %d, %s, %s", uid, cardName, registeredName))
	msg.SetBodyString(mail.TypeTextPlain, reviewBody(uid, cardName, registeredName))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send review notification: %w", err)
	}
	return nil
}

func reviewBody(uid int64, cardName, registeredName string) string {
	return fmt.Sprintf(
		"A SMART Health Card was verified, but the patient name did not match\n"+
			"the full name in the ticketing database. Please manually review and\n"+
			"decide if the names below identify the same person.\n\n"+
			"If the names identify the same person, manually update the record for\n"+
			"the user number in the covidauth table, setting 'status' to 'verified',\n"+
			"and email the user letting them know their card was verified. Additionally,\n"+
			"set 'type' to 'vaccination' if it is not already the case.\n\n"+
			"If the names do not identify the same person, email the user letting them\n"+
			"know their card could not be verified.\n\n"+
			"Ticketing uid:              %d\n"+
			"Name on card:               %s\n"+
			"Name in ticketing database: %s\n\n"+
			"Thanks,\n   SMART Health Card Verifier\n",
		uid, cardName, registeredName,
	)
}
