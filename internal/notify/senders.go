package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
)

// Sender delivers a rendered message over one channel.
type Sender interface {
	Channel() string
	CanReach(u models.User) bool
	Send(ctx context.Context, u models.User, msg Message) error
}

type EmailSender struct {
	from     string
	fromName string
	host     string
	port     string
	user     string
	pass     string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailSender(from, fromName, host, port, user, pass string) *EmailSender {
	return &EmailSender{from: from, fromName: fromName, host: host, port: port, user: user, pass: pass, send: smtp.SendMail}
}

func (s *EmailSender) Channel() string { return "email" }

func (s *EmailSender) CanReach(u models.User) bool { return u.Email != "" }

func (s *EmailSender) Send(_ context.Context, u models.User, msg Message) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", u.Email)
	message += fmt.Sprintf("Subject: %s\r\n", msg.Subject)
	message += "\r\n" + msg.Body

	var auth smtp.Auth
	if s.user != "" && s.pass != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}
	return s.send(s.host+":"+s.port, auth, s.from, []string{u.Email}, []byte(message))
}

// SMSSender posts messages to an SMS provider webhook as JSON.
type SMSSender struct {
	url    string
	client *http.Client
}

func NewSMSSender(url string, client *http.Client) *SMSSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SMSSender{url: url, client: client}
}

func (s *SMSSender) Channel() string { return "sms" }

func (s *SMSSender) CanReach(u models.User) bool { return u.Phone != nil && *u.Phone != "" }

func (s *SMSSender) Send(ctx context.Context, u models.User, msg Message) error {
	body, err := json.Marshal(map[string]string{"to": *u.Phone, "text": msg.Subject + ": " + msg.Body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "sms webhook")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Newf("sms webhook returned %d", resp.StatusCode)
	}
	return nil
}
