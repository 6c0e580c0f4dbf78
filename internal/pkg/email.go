package pkg

import (
	"crypto/tls"
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // 显示的发件人
}

// SMTPMailer 用 gomail 直连 SMTP 发送 HTML 邮件
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: m.cfg.Host}
	return d.DialAndSend(msg)
}

func EmailCodeHTML(action, code string, ttl time.Duration) string {
	return fmt.Sprintf(`<p>Hello,</p><p>You requested to <b>%s</b> on GameHub. Your verification code is <b style="font-size:18px;">%s</b>.</p><p>The code expires in %d minutes. Do not share it with anyone.</p>`,
		html.EscapeString(action), html.EscapeString(code), int(ttl.Minutes()))
}
