package emailsvc

import (
	"crypto/tls"
	"fmt"
	netmail "net/mail"

	"github.com/go-mail/mail/v2"

	"github.com/confhub/backend/core"
)

type smtpService struct {
	conf       *core.Config
	dialer     *mail.Dialer
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*smtpService)(nil)

// NewSMTPService sends emails through the configured SMTP relay, requiring STARTTLS.
func NewSMTPService(conf *core.Config, logger core.Logger) core.EmailService {
	d := mail.NewDialer(conf.Email.SMTPHost, conf.Email.SMTPPort, conf.Email.SMTPUser, conf.Email.SMTPPassword)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{ServerName: conf.Email.SMTPHost}
	return &smtpService{
		conf:       conf,
		dialer:     d,
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc *smtpService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) {
			if err := msg.Render(svc.conf); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if !msg.HasRecipients() || !msg.HasContent() {
				return
			}
			if err := svc.dialer.DialAndSend(svc.prepare(*msg)); err != nil {
				svc.logger.Error(fmt.Sprintf("sending email %q: %v", msg.Subject, err), err)
			}
		}(msg)
	}
}

func (svc *smtpService) prepare(msg core.EmailMessage) *mail.Message {
	from := svc.conf.DefaultFromEmail()

	m := mail.NewMessage()
	m.SetAddressHeader("From", from.Address, from.Name)
	m.SetHeader("To", svc.formatAddresses(m, msg.To)...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", svc.formatAddresses(m, msg.Cc)...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", svc.formatAddresses(m, msg.Bcc)...)
	}
	m.SetHeader("Subject", svc.subjPrefix+msg.Subject)

	m.SetBody("text/plain", msg.TextContent)
	if msg.HTMLContent != "" {
		m.AddAlternative("text/html", msg.HTMLContent)
	}
	return m
}

func (svc *smtpService) formatAddresses(m *mail.Message, addrs []netmail.Address) []string {
	formatted := make([]string, 0, len(addrs))
	for _, a := range addrs {
		formatted = append(formatted, m.FormatAddress(a.Address, a.Name))
	}
	return formatted
}
