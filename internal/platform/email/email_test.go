package email

import (
	"context"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce/internal/platform/config"
)

func TestNewDisabledIsNoop(t *testing.T) {
	_, ok := New(config.Config{EmailEnabled: false, SMTPHost: "smtp.example.com"}).(noopMailer)
	assert.True(t, ok)

	_, ok = New(config.Config{EmailEnabled: true}).(noopMailer)
	assert.True(t, ok)

	_, ok = New(config.Config{EmailEnabled: true, SMTPHost: "smtp.example.com"}).(*smtpMailer)
	assert.True(t, ok)
}

func TestSMTPMailerEmptyRecipientIsSkipped(t *testing.T) {
	m := &smtpMailer{cfg: config.Config{SMTPHost: "127.0.0.1", SMTPPort: 1}}
	require.NoError(t, m.Send(context.Background(), "hr@example.com", "  ", "subject", "body"))
}

func TestSMTPMailerRejectsMalformedAddress(t *testing.T) {
	m := &smtpMailer{cfg: config.Config{SMTPHost: "127.0.0.1", SMTPPort: 1}}
	err := m.Send(context.Background(), "hr@example.com", "not an address", "subject", "body")
	assert.ErrorContains(t, err, "recipient")
}

func TestBuildMessage(t *testing.T) {
	sent := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
	from := &mail.Address{Address: "hr@example.com"}
	to := &mail.Address{Name: "Juan Cruz", Address: "juan@example.com"}

	raw, err := buildMessage(from, to, "Leave approved", "line one\nline two", sent)
	require.NoError(t, err)

	head, body, found := strings.Cut(string(raw), "\r\n\r\n")
	require.True(t, found)
	assert.Contains(t, head, "From: <hr@example.com>\r\n")
	assert.Contains(t, head, `To: "Juan Cruz" <juan@example.com>`)
	assert.Contains(t, head, "Subject: Leave approved\r\n")
	assert.Contains(t, head, "Date: Tue, 10 Jun 2025 09:00:00 +0000")
	assert.Contains(t, head, "@example.com>\r\nMIME-Version: 1.0")
	assert.Contains(t, head, "Content-Transfer-Encoding: quoted-printable")
	assert.Equal(t, "line one\r\nline two", body)
}

func TestBuildMessageEncodesNonASCII(t *testing.T) {
	from := &mail.Address{Address: "a@example.com"}
	to := &mail.Address{Address: "b@example.com"}
	raw, err := buildMessage(from, to, "Solicitud aprobada: María", "Hola María", time.Now())
	require.NoError(t, err)

	msg := string(raw)
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
	assert.True(t, strings.HasSuffix(msg, "Hola Mar=C3=ADa"))
}
