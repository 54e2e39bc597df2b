package emailsvc

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/classoptima/backend/core"
)

// smtpService delivers through a plain SMTP relay (Gmail app password or any
// provider-agnostic relay) when no Sendgrid key is configured.
type smtpService struct {
	conf       *core.Config
	addr       string
	auth       smtp.Auth
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*smtpService)(nil)

func NewSMTPService(conf *core.Config, logger core.Logger) *smtpService {
	emailConf := conf.Email
	return &smtpService{
		conf:       conf,
		addr:       emailConf.SMTPHost + ":" + emailConf.SMTPPort,
		auth:       smtp.PlainAuth("", emailConf.SMTPUser, emailConf.SMTPPassword, emailConf.SMTPHost),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc smtpService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(svc.conf); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if msg.HasRecipients() && msg.HasContent() {
				svc.send(*msg)
			}
		}()
	}
}

func (svc smtpService) send(msg core.EmailMessage) {
	to := make([]string, 0, len(msg.To)+len(msg.Cc)+len(msg.Bcc))
	for _, a := range msg.To {
		to = append(to, a.Address)
	}
	for _, a := range msg.Cc {
		to = append(to, a.Address)
	}
	for _, a := range msg.Bcc {
		to = append(to, a.Address)
	}

	body := new(strings.Builder)
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.conf.DefaultFromEmail)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	if msg.HTMLContent != "" {
		_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
		_, _ = fmt.Fprint(body, "Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		_, _ = fmt.Fprint(body, msg.HTMLContent)
	} else {
		_, _ = fmt.Fprint(body, "\r\n")
		_, _ = fmt.Fprint(body, msg.TextContent)
	}

	if err := smtp.SendMail(svc.addr, svc.auth, svc.conf.DefaultFromEmail, to, []byte(body.String())); err != nil {
		svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
	}
}
