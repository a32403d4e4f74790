package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"webring/internal/config"
	"webring/internal/models"
)

// Decision is what a site owner is told after moderation.
type Decision struct {
	RingName string
	SiteURL  string
	Email    string
	Status   models.SiteStatus
	Reason   string
}

type Notifier interface {
	SiteDecided(ctx context.Context, d Decision) error
}

type LogNotifier struct{}

func (LogNotifier) SiteDecided(ctx context.Context, d Decision) error {
	zap.L().Info("site decision notification",
		zap.String("site", d.SiteURL),
		zap.String("to", d.Email),
		zap.String("status", string(d.Status)),
		zap.String("reason", d.Reason),
	)
	return nil
}

// SMTPNotifier delivers decisions through a relay. Each delivery, from
// dial to QUIT, is bounded by timeout and by the caller's context.
type SMTPNotifier struct {
	host    string
	addr    string
	from    string
	timeout time.Duration
	send    func(ctx context.Context, from string, to []string, msg []byte) error
}

func NewNotifier(cfg config.Notify) Notifier {
	switch cfg.Mode {
	case "smtp":
		n := &SMTPNotifier{
			host:    cfg.SMTPHost,
			addr:    net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
			from:    cfg.From,
			timeout: cfg.Timeout,
		}
		n.send = n.deliver
		return n
	default:
		return LogNotifier{}
	}
}

func (s *SMTPNotifier) SiteDecided(ctx context.Context, d Decision) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := composeDecision(s.from, d, time.Now())
	if err != nil {
		return fmt.Errorf("compose decision mail: %w", err)
	}
	if err := s.send(ctx, s.from, []string{d.Email}, msg); err != nil {
		return fmt.Errorf("send decision mail to %s: %w", d.Email, err)
	}
	return nil
}

// deliver is smtp.SendMail with the connection deadline tied to ctx.
func (s *SMTPNotifier) deliver(ctx context.Context, from string, to []string, msg []byte) (err error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(dl); err != nil {
			_ = conn.Close()
			return err
		}
	}
	// unblock any pending read or write as soon as ctx ends
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()
	defer func() {
		if err == nil {
			return
		}
		// conn deadlines only ever come from ctx, so a timeout means ctx is
		// done or about to be
		if errors.Is(err, os.ErrDeadlineExceeded) {
			<-ctx.Done()
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
	}()

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func composeDecision(from string, d Decision, at time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(at)
	h.SetAddressList("From", []*mail.Address{{Name: d.RingName, Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: d.Email}})
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}

	var subject, body string
	switch d.Status {
	case models.SiteApproved:
		subject = fmt.Sprintf("%s: %s was approved", d.RingName, d.SiteURL)
		body = fmt.Sprintf("Your site %s is now a member of %s.\r\n", d.SiteURL, d.RingName)
	default:
		subject = fmt.Sprintf("%s: %s was not accepted", d.RingName, d.SiteURL)
		body = fmt.Sprintf("Your request to add %s to %s was denied.\r\n", d.SiteURL, d.RingName)
		if d.Reason != "" {
			body += "\r\nReason: " + d.Reason + "\r\n"
		}
	}
	h.SetSubject(subject)

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
