// Package notify fans a message out to many members over email and SMS and
// tallies the per-recipient outcome. One failed recipient never stops the batch.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/dukerupert/flock/internal/email"
	"github.com/dukerupert/flock/internal/metrics"
	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/phone"
)

const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
	ChannelBoth  = "both"
)

type EmailSender interface {
	Configured() bool
	Send(ctx context.Context, msg email.Message) error
}

type SMSSender interface {
	Configured() bool
	Send(ctx context.Context, to, body string) error
}

// Tally counts what happened to each recipient and channel.
type Tally struct {
	EmailSent       int  `json:"emailSent"`
	EmailFailed     int  `json:"emailFailed"`
	SMSSent         int  `json:"smsSent"`
	SMSFailed       int  `json:"smsFailed"`
	Skipped         int  `json:"skipped"`
	EmailConfigured bool `json:"emailConfigured"`
	SMSConfigured   bool `json:"smsConfigured"`
}

type Recipient struct {
	Name      string
	FirstName string
	Email     string
	Phone     string
}

// RecipientFromMember builds a recipient from a directory entry.
func RecipientFromMember(m model.Member) Recipient {
	return Recipient{Name: m.FullName(), FirstName: m.FirstName, Email: m.Email, Phone: m.Phone}
}

// Data is what message templates can reference.
type Data struct {
	Name        string
	FirstName   string
	Date        string
	ServiceType string
	SiteURL     string
}

// Message is a templated notification. Body and Subject may reference Data
// fields, e.g. "Hi {{.FirstName}}".
type Message struct {
	Subject     string
	Body        string
	Channel     string
	Date        string
	ServiceType string
}

type Notifier struct {
	email   EmailSender
	sms     SMSSender
	siteURL string
	logger  *slog.Logger
}

func New(emailSender EmailSender, smsSender SMSSender, siteURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		email:   emailSender,
		sms:     smsSender,
		siteURL: strings.TrimRight(siteURL, "/"),
		logger:  logger.With("component", "notify"),
	}
}

func (n *Notifier) EmailConfigured() bool { return n.email != nil && n.email.Configured() }

func (n *Notifier) SMSConfigured() bool { return n.sms != nil && n.sms.Configured() }

func (n *Notifier) SiteURL() string { return n.siteURL }

// ValidChannel reports whether c names a delivery channel.
func ValidChannel(c string) bool {
	return c == ChannelSMS || c == ChannelEmail || c == ChannelBoth
}

// Send delivers msg to every recipient on the requested channel. Recipients
// missing the contact detail a channel needs are counted as skipped. A
// channel that is not configured is reported in the tally and not attempted.
func (n *Notifier) Send(ctx context.Context, recipients []Recipient, msg Message) (*Tally, error) {
	if !ValidChannel(msg.Channel) {
		return nil, model.Invalid("channel", "must be sms, email or both")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return nil, model.Invalid("message", "is required")
	}
	bodyTmpl, err := template.New("body").Parse(msg.Body)
	if err != nil {
		return nil, model.Invalid("message", "invalid template: "+err.Error())
	}
	subjTmpl, err := template.New("subject").Parse(msg.Subject)
	if err != nil {
		return nil, model.Invalid("subject", "invalid template: "+err.Error())
	}

	t := &Tally{EmailConfigured: n.EmailConfigured(), SMSConfigured: n.SMSConfigured()}
	wantEmail := msg.Channel == ChannelEmail || msg.Channel == ChannelBoth
	wantSMS := msg.Channel == ChannelSMS || msg.Channel == ChannelBoth

	for _, r := range recipients {
		if err := ctx.Err(); err != nil {
			return t, err
		}
		data := Data{
			Name:        r.Name,
			FirstName:   r.FirstName,
			Date:        msg.Date,
			ServiceType: msg.ServiceType,
			SiteURL:     n.siteURL,
		}
		body, err := render(bodyTmpl, data)
		if err != nil {
			return t, model.Invalid("message", err.Error())
		}

		if wantEmail && t.EmailConfigured {
			if strings.TrimSpace(r.Email) == "" {
				t.Skipped++
			} else {
				subject, err := render(subjTmpl, data)
				if err != nil {
					return t, model.Invalid("subject", err.Error())
				}
				n.deliverEmail(ctx, t, email.Message{To: r.Email, Subject: subject, TextBody: body})
			}
		}
		if wantSMS && t.SMSConfigured {
			if !phone.Valid(r.Phone) {
				t.Skipped++
			} else {
				n.deliverSMS(ctx, t, r.Phone, body)
			}
		}
	}
	return t, nil
}

func (n *Notifier) deliverEmail(ctx context.Context, t *Tally, msg email.Message) {
	if err := n.email.Send(ctx, msg); err != nil {
		n.logger.Warn("email delivery failed", "to", msg.To, "error", err)
		t.EmailFailed++
		metrics.ObserveNotification(ChannelEmail, false)
		return
	}
	t.EmailSent++
	metrics.ObserveNotification(ChannelEmail, true)
}

func (n *Notifier) deliverSMS(ctx context.Context, t *Tally, to, body string) {
	if err := n.sms.Send(ctx, to, body); err != nil {
		n.logger.Warn("sms delivery failed", "to", phone.MatchKey(to), "error", err)
		t.SMSFailed++
		metrics.ObserveNotification(ChannelSMS, false)
		return
	}
	t.SMSSent++
	metrics.ObserveNotification(ChannelSMS, true)
}

// SendSMS sends a single text message and records the outcome.
func (n *Notifier) SendSMS(ctx context.Context, to, body string) error {
	if !n.SMSConfigured() {
		return fmt.Errorf("sms not configured")
	}
	err := n.sms.Send(ctx, to, body)
	metrics.ObserveNotification(ChannelSMS, err == nil)
	return err
}

// SendEmail sends one email to each address in to and tallies the result.
func (n *Notifier) SendEmail(ctx context.Context, to []string, subject, body string) *Tally {
	t := &Tally{EmailConfigured: n.EmailConfigured(), SMSConfigured: n.SMSConfigured()}
	if !t.EmailConfigured {
		return t
	}
	for _, addr := range to {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			t.Skipped++
			continue
		}
		n.deliverEmail(ctx, t, email.Message{To: addr, Subject: subject, TextBody: body})
	}
	return t
}

func render(t *template.Template, data Data) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
