package mail

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"researchdesk/ports"
)

func newTestTransport(t *testing.T) (*SMTPTransport, *[][]byte) {
	t.Helper()
	transport, err := NewSMTPTransport(SMTPConfig{Host: "mail.example.com", From: "reports@example.com"})
	require.NoError(t, err)
	var sent [][]byte
	transport.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		sent = append(sent, msg)
		return nil
	}
	return transport, &sent
}

func TestSendBuildsMIMEMessage(t *testing.T) {
	transport, sent := newTestTransport(t)

	result, err := transport.Send(context.Background(), ports.DeliveryRequest{
		To:             "analyst@example.com",
		Subject:        "Research report: EV charging",
		Body:           "Report attached.",
		AttachmentName: "report.html",
		Attachment:     []byte("<html></html>"),
	})

	require.NoError(t, err)
	assert.Equal(t, ports.DeliverySent, result.Status)
	assert.NotEmpty(t, result.MessageID)
	require.Len(t, *sent, 1)

	msg := string((*sent)[0])
	assert.Contains(t, msg, "To: analyst@example.com")
	assert.Contains(t, msg, "Subject: Research report: EV charging")
	assert.Contains(t, msg, "multipart/mixed")
	assert.Contains(t, msg, `attachment; filename="report.html"`)
}

func TestSendRequiresRecipient(t *testing.T) {
	transport, _ := newTestTransport(t)
	_, err := transport.Send(context.Background(), ports.DeliveryRequest{})
	assert.Error(t, err)
}

func TestSendPropagatesTransportError(t *testing.T) {
	transport, _ := newTestTransport(t)
	transport.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	_, err := transport.Send(context.Background(), ports.DeliveryRequest{To: "a@b.c"})
	assert.EqualError(t, err, "connection refused")
}

func TestNewSMTPTransportValidation(t *testing.T) {
	_, err := NewSMTPTransport(SMTPConfig{})
	assert.Error(t, err)
}
