package mailclient_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mailscan/internal/mailclient"
)

const multipartEML = "From: attacker@evil.example\r\n" +
	"To: victim@corp.example\r\n" +
	"Subject: =?utf-8?q?Account_suspended?=\r\n" +
	"Authentication-Results: mx.corp.example; spf=fail smtp.mailfrom=evil.example; dkim=none; dmarc=fail\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"Verify here: https://evil.example/login=3Fa=3D1\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=\"utf-8\"\r\n" +
	"\r\n" +
	"<html><body><a href=\"https://evil.example/login\">mybank.com</a></body></html>\r\n" +
	"--b1\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERg==\r\n" +
	"--b1--\r\n"

func writeEML(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "message.eml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestMessageParsesMultipart(t *testing.T) {
	client := mailclient.NewFileClient(t.TempDir())
	msg, err := client.Message(context.Background(), writeEML(t, multipartEML))
	require.NoError(t, err)

	require.Equal(t, "Account suspended", msg.Subject)
	require.Equal(t, "attacker@evil.example", msg.From)
	require.Contains(t, msg.AuthResultsHeader, "spf=fail")
	require.Equal(t, []byte(multipartEML), msg.Raw)

	require.Len(t, msg.Parts, 2, "only text parts are collected")
	require.Equal(t, "text/plain", msg.Parts[0].MediaType)
	require.Contains(t, msg.Parts[0].Body, "https://evil.example/login?a=1",
		"quoted-printable bodies must be decoded")
	require.Equal(t, "text/html", msg.Parts[1].MediaType)
	require.Contains(t, msg.Parts[1].Body, `href="https://evil.example/login"`)
}

func TestMessageSinglePartDefaultsToPlainText(t *testing.T) {
	eml := "From: a@b.example\r\nSubject: hi\r\n\r\nsee https://a.example/x\r\n"
	client := mailclient.NewFileClient(t.TempDir())

	msg, err := client.Message(context.Background(), writeEML(t, eml))
	require.NoError(t, err)
	require.Len(t, msg.Parts, 1)
	require.Equal(t, "text/plain", msg.Parts[0].MediaType)
	require.Empty(t, msg.AuthResultsHeader)
}

func TestMessageNotFound(t *testing.T) {
	client := mailclient.NewFileClient(t.TempDir())
	_, err := client.Message(context.Background(), filepath.Join(t.TempDir(), "missing.eml"))
	require.Error(t, err)
}

func TestComposeDraftWritesEML(t *testing.T) {
	draftsDir := t.TempDir()
	client := mailclient.NewFileClient(draftsDir)

	path, err := client.ComposeDraft(context.Background(), mailclient.Draft{
		To:      []string{"info@antiphishing.jp", "meiwaku@dekyo.or.jp"},
		Subject: "[mailscan] suspicious message report",
		Body:    "2 of 3 URLs flagged.\n",
		Attachments: []mailclient.Attachment{{
			Filename:  "original.eml",
			MediaType: "message/rfc822",
			Body:      []byte(multipartEML),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, draftsDir, filepath.Dir(path))
	require.True(t, strings.HasSuffix(path, ".eml"))

	// the draft must itself be a readable message carrying the attachment
	reread, err := client.Message(context.Background(), path)
	require.NoError(t, err)
	require.Contains(t, reread.Subject, "suspicious message report")

	raw := string(reread.Raw)
	require.Contains(t, raw, "To: info@antiphishing.jp, meiwaku@dekyo.or.jp")
	require.Contains(t, raw, `filename="original.eml"`)
	require.Contains(t, raw, "message/rfc822")
	require.Contains(t, raw, "2 of 3 URLs flagged.")
}
