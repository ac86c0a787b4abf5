package sender

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"storefront-service/notifier"

	"github.com/google/uuid"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
}

// SMTPSender delivers notifications to email destinations.
type SMTPSender struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP_FROM not set")
	}
	if cfg.Subject == "" {
		cfg.Subject = "Order update"
	}
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}, nil
}

func (s *SMTPSender) Name() string { return NameSMTP }

func (s *SMTPSender) Accepts(destination string) bool { return notifier.IsEmail(destination) }

func (s *SMTPSender) Send(ctx context.Context, destination, body string, orderID *uuid.UUID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	messageID := fmt.Sprintf("smtp-%d", time.Now().UnixNano())
	if orderID != nil {
		messageID = fmt.Sprintf("smtp-%s-%d", orderID, time.Now().UnixNano())
	}

	msg := []byte(
		"From: " + s.cfg.From + "\r\n" +
			"To: " + destination + "\r\n" +
			"Subject: " + s.cfg.Subject + "\r\n" +
			"Message-ID: <" + messageID + "@" + s.cfg.Host + ">\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n" +
			"\r\n" +
			body,
	)

	if err := s.sendMail(addr, auth, s.cfg.From, []string{destination}, msg); err != nil {
		return "", fmt.Errorf("smtp send failed: %w", err)
	}
	return messageID, nil
}
