package notify

import (
	"context"

	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"
)

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPSender delivers HTML mail over SMTP. A client is created per Send
// so a broken connection never outlives one message.
type SMTPSender struct {
	cfg MailConfig
}

func NewSMTPSender(cfg MailConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host not configured")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, errors.New("mail from address not configured")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return errors.Wrap(err, "from address")
	}
	if err := msg.To(to); err != nil {
		return errors.Wrap(err, "to address")
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return errors.Wrap(err, "smtp client")
	}
	return errors.Wrap(client.DialAndSendWithContext(ctx, msg), "smtp send")
}
