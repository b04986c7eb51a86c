// Package mail delivers finalized reports over SMTP as MIME
// multipart messages with the artifact attached.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"

	"github.com/google/uuid"

	"researchdesk/ports"
)

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPTransport sends report emails with the artifact attached.
type SMTPTransport struct {
	config SMTPConfig
	// send is swapped out by tests.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPTransport creates an SMTP delivery transport.
func NewSMTPTransport(config SMTPConfig) (*SMTPTransport, error) {
	if config.Host == "" || config.From == "" {
		return nil, fmt.Errorf("smtp host and from address are required")
	}
	if config.Port == 0 {
		config.Port = 587
	}
	return &SMTPTransport{config: config, send: smtp.SendMail}, nil
}

// Send delivers one report email. Errors are returned to the caller,
// which records them; they are never fatal to finalization.
func (t *SMTPTransport) Send(_ context.Context, req ports.DeliveryRequest) (ports.DeliveryResult, error) {
	if req.To == "" {
		return ports.DeliveryResult{}, fmt.Errorf("missing recipient address")
	}

	messageID := uuid.NewString()
	msg, err := buildMessage(t.config.From, messageID, req)
	if err != nil {
		return ports.DeliveryResult{}, fmt.Errorf("building message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", t.config.Host, t.config.Port)
	var auth smtp.Auth
	if t.config.Username != "" {
		auth = smtp.PlainAuth("", t.config.Username, t.config.Password, t.config.Host)
	}
	if err := t.send(addr, auth, t.config.From, []string{req.To}, msg); err != nil {
		return ports.DeliveryResult{}, err
	}
	return ports.DeliveryResult{Status: ports.DeliverySent, MessageID: messageID}, nil
}

func buildMessage(from, messageID string, req ports.DeliveryRequest) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", req.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", req.Subject)
	fmt.Fprintf(&buf, "Message-ID: <%s>\r\n", messageID)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	body, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := body.Write([]byte(req.Body)); err != nil {
		return nil, err
	}

	if len(req.Attachment) > 0 {
		attachment, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"application/octet-stream"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", req.AttachmentName)},
		})
		if err != nil {
			return nil, err
		}
		encoded := base64.StdEncoding.EncodeToString(req.Attachment)
		if _, err := attachment.Write([]byte(encoded)); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
