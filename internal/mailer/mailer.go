package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"strings"

	mail "github.com/go-mail/mail/v2"

	"github.com/ignatzorin/feedreach-backend/internal/config"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
)

// Sender отправляет готовое сообщение. Реализуется SMTP-диалером и фейками в тестах.
type Sender interface {
	DialAndSend(m ...*mail.Message) error
}

// Mailer отправляет системные письма платформы.
type Mailer struct {
	sender Sender
	from   string
}

// New создаёт Mailer по настройкам SMTP. Без SMTP_HOST письма только логируются.
func New(cfg config.SMTPConfig) *Mailer {
	if cfg.Host == "" || cfg.From == "" {
		return &Mailer{}
	}

	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}
	return &Mailer{sender: d, from: cfg.From}
}

// NewWithSender используется в тестах и при своей транспортной реализации.
func NewWithSender(sender Sender, from string) *Mailer {
	return &Mailer{sender: sender, from: from}
}

// Enabled сообщает, настроена ли отправка.
func (m *Mailer) Enabled() bool {
	return m.sender != nil
}

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Здравствуйте, {{.Name}}!</p>
<p>Мы получили запрос на сброс пароля в FeedReach.</p>
<p><a href="{{.Link}}">Задать новый пароль</a></p>
<p>Ссылка действует {{.TTL}}. Если вы не запрашивали сброс, просто проигнорируйте письмо.</p>`))

// SendPasswordReset отправляет ссылку сброса пароля.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, link, ttl string) error {
	var body strings.Builder
	if err := resetTemplate.Execute(&body, map[string]string{"Name": name, "Link": link, "TTL": ttl}); err != nil {
		return fmt.Errorf("mailer: render reset %w", err)
	}
	return m.send(ctx, []string{to}, "Сброс пароля FeedReach", body.String())
}

func (m *Mailer) send(ctx context.Context, to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if !m.Enabled() {
		logger.Component("mailer").WithFields(map[string]interface{}{
			"to":      strings.Join(to, ","),
			"subject": subject,
		}).Warn("SMTP не настроен, письмо не отправлено")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("mailer: send %w", err)
	}
	return nil
}
