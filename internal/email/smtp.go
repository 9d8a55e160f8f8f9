// Package email delivers handler-facing notification mail over SMTP.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"directory_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers notification emails to lead handlers.
type Sender interface {
	SendLeadAssigned(ctx context.Context, toEmail, handlerName, leadName, businessName, priority string) error
	SendFollowUpReminder(ctx context.Context, toEmail, handlerName, leadName, businessName string) error
}

// SMTPSender implements Sender using a direct SMTP connection via go-mail.
type SMTPSender struct {
	cfg config.EmailConfig
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.cfg.GetSMTPHost(),
		gomail.WithPort(s.cfg.GetSMTPPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.GetSMTPUsername()),
		gomail.WithPassword(s.cfg.GetSMTPPassword()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// SendLeadAssigned tells a handler a lead has landed on their desk.
func (s *SMTPSender) SendLeadAssigned(ctx context.Context, toEmail, handlerName, leadName, businessName, priority string) error {
	content, err := renderTemplate("lead_assigned.html", leadAssignedData{
		baseData: baseData{
			Title:   "New lead assigned",
			Heading: fmt.Sprintf("Hi %s, a lead is waiting for you", handlerName),
		},
		LeadName:     leadName,
		BusinessName: businessName,
		Priority:     priority,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadAssigned, content)
}

// SendFollowUpReminder nudges a handler about a lead still without a first
// response.
func (s *SMTPSender) SendFollowUpReminder(ctx context.Context, toEmail, handlerName, leadName, businessName string) error {
	content, err := renderTemplate("followup_reminder.html", followUpData{
		baseData: baseData{
			Title:   "Lead waiting on a first response",
			Heading: fmt.Sprintf("Hi %s, this lead has not been contacted yet", handlerName),
		},
		LeadName:     leadName,
		BusinessName: businessName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectFollowUpReminder, content)
}

// NoopSender drops every email. Used when email delivery is disabled.
type NoopSender struct{}

func (NoopSender) SendLeadAssigned(ctx context.Context, toEmail, handlerName, leadName, businessName, priority string) error {
	return nil
}

func (NoopSender) SendFollowUpReminder(ctx context.Context, toEmail, handlerName, leadName, businessName string) error {
	return nil
}
