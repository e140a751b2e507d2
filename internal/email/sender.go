// Package email sends patient-facing notification emails over SMTP.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTPConfig holds the outbound mail server configuration.
type SMTPConfig struct {
	Host     string
	Port     string
	From     string
	Username string
	Password string
	TLS      string // "none", "starttls", "tls"
}

// Valid returns true if the minimum required fields are set.
func (c SMTPConfig) Valid() bool {
	return c.Host != "" && c.Port != "" && c.From != ""
}

// ReplyNotification tells a patient that reception replied to their message.
type ReplyNotification struct {
	To          string // patient email address
	PatientName string
	AgentName   string
	Reply       string
	ThreadURL   string // public thread link, optional
}

// Sender sends notification emails via SMTP.
type Sender struct {
	cfg    SMTPConfig
	logger *slog.Logger
	// dialFunc allows injecting a custom dialer for testing.
	dialFunc func(addr string, tlsConfig *tls.Config, tlsMode string) (smtpClient, error)
}

// smtpClient abstracts the methods used from *smtp.Client for testing.
type smtpClient interface {
	Hello(localName string) error
	Extension(ext string) (bool, string)
	StartTLS(config *tls.Config) error
	Auth(a smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// NewSender creates a Sender bound to the SMTP configuration.
func NewSender(cfg SMTPConfig, logger *slog.Logger) *Sender {
	return &Sender{
		cfg:      cfg,
		logger:   logger.With("component", "email"),
		dialFunc: defaultDial,
	}
}

// Configured reports whether outbound mail is usable.
func (s *Sender) Configured() bool { return s.cfg.Valid() }

// SendReplyNotification emails the patient that reception answered their
// message. Callers treat failures as non-fatal: the reply itself is already
// persisted in the thread.
func (s *Sender) SendReplyNotification(ctx context.Context, notif ReplyNotification) error {
	if !s.cfg.Valid() {
		return fmt.Errorf("smtp not configured")
	}
	if notif.To == "" {
		return fmt.Errorf("no recipient email address")
	}

	msg := buildReplyMessage(s.cfg, notif)
	if err := s.send(notif.To, msg); err != nil {
		return err
	}

	s.logger.Info("reply notification email sent", "to", notif.To)
	return nil
}

func (s *Sender) send(to string, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	tlsConfig := &tls.Config{ServerName: s.cfg.Host}

	client, err := s.dialFunc(addr, tlsConfig, s.cfg.TLS)
	if err != nil {
		return fmt.Errorf("connecting to smtp server: %w", err)
	}
	defer client.Close()

	if err := client.Hello("localhost"); err != nil {
		return fmt.Errorf("smtp hello: %w", err)
	}

	// STARTTLS upgrade if requested and supported.
	if strings.EqualFold(s.cfg.TLS, "starttls") {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}

	if err := client.Quit(); err != nil {
		s.logger.Warn("smtp quit error (non-fatal)", "error", err)
	}
	return nil
}

// defaultDial connects to the SMTP server using either plain TCP or implicit TLS.
func defaultDial(addr string, tlsConfig *tls.Config, tlsMode string) (smtpClient, error) {
	if strings.EqualFold(tlsMode, "tls") {
		conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 10 * time.Second}, "tcp", addr, tlsConfig)
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, tlsConfig.ServerName)
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	return smtp.NewClient(conn, host)
}

// buildReplyMessage constructs the plain-text email bytes.
func buildReplyMessage(cfg SMTPConfig, notif ReplyNotification) []byte {
	var buf bytes.Buffer

	greeting := "Hello"
	if notif.PatientName != "" {
		greeting = "Hello " + notif.PatientName
	}
	from := "our reception team"
	if notif.AgentName != "" {
		from = notif.AgentName
	}

	body := fmt.Sprintf("%s,\n\nYou have a reply from %s:\n\n%s\n", greeting, from, notif.Reply)
	if notif.ThreadURL != "" {
		body += fmt.Sprintf("\nView the full conversation: %s\n", notif.ThreadURL)
	}

	fmt.Fprintf(&buf, "From: %s\r\n", cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", notif.To)
	fmt.Fprintf(&buf, "Subject: Reply from reception\r\n")
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n")
	fmt.Fprintf(&buf, "\r\n")
	buf.WriteString(body)

	return buf.Bytes()
}
