package mailclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"mailscan/pkg/serrors"
)

// FileClient implements Client on top of the filesystem: message refs are
// .eml paths and compose drafts are written to a drafts directory.
type FileClient struct {
	draftsDir string
}

// NewFileClient constructs a FileClient writing drafts under draftsDir.
func NewFileClient(draftsDir string) *FileClient {
	return &FileClient{draftsDir: draftsDir}
}

// Message implements Client. It parses the .eml file at ref, walking the
// MIME tree and decoding text parts.
func (f *FileClient) Message(_ context.Context, ref string) (*Message, error) {
	raw, err := os.ReadFile(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, serrors.Wrap(serrors.ErrNotFound, err, "message %q not found", ref)
		}

		return nil, fmt.Errorf("could not read message: %w", err)
	}

	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrBadRequest, err, "could not parse message %q", ref)
	}

	subject := parsed.Header.Get("Subject")
	if decoded, err := (&mime.WordDecoder{}).DecodeHeader(subject); err == nil {
		subject = decoded
	}

	msg := &Message{
		Subject:           subject,
		From:              parsed.Header.Get("From"),
		AuthResultsHeader: parsed.Header.Get("Authentication-Results"),
		Raw:               raw,
	}

	parts, err := walkPart(textHeader(parsed.Header), parsed.Body)
	if err != nil {
		return nil, fmt.Errorf("could not walk message parts: %w", err)
	}
	msg.Parts = parts

	return msg, nil
}

// partHeader is the subset of header access the MIME walk needs, shared
// between the top-level mail header and nested part headers.
type partHeader interface {
	Get(key string) string
}

type textHeader mail.Header

func (h textHeader) Get(key string) string { return mail.Header(h).Get(key) }

// walkPart descends the MIME tree and collects decoded text leaves. Leaves
// that are neither text/plain nor text/html are skipped; attachments are not
// scanned.
func walkPart(header partHeader, body io.Reader) ([]Part, error) {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// an unparsable content type is treated as plain text rather than
		// failing the whole message
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, serrors.With(serrors.ErrBadRequest, "multipart part without boundary")
		}

		var parts []Part
		reader := multipart.NewReader(body, boundary)
		for {
			sub, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("could not read multipart: %w", err)
			}

			subParts, err := walkPart(sub.Header, sub)
			if err != nil {
				return nil, err
			}
			parts = append(parts, subParts...)
		}

		return parts, nil
	}

	if mediaType != "text/plain" && mediaType != "text/html" {
		return nil, nil
	}

	decoded, err := decodeBody(body, header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("could not decode %s part: %w", mediaType, err)
	}

	return []Part{{MediaType: mediaType, Body: decoded}}, nil
}

func decodeBody(body io.Reader, encoding string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		body = quotedprintable.NewReader(body)
	case "base64":
		body = base64.NewDecoder(base64.StdEncoding, body)
	}

	b, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("could not read part body: %w", err)
	}

	return string(b), nil
}

// ComposeDraft implements Client. The draft is rendered as a multipart/mixed
// .eml file named after a fresh UUID under the drafts directory.
func (f *FileClient) ComposeDraft(_ context.Context, draft Draft) (string, error) {
	if err := os.MkdirAll(f.draftsDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create drafts directory: %w", err)
	}

	var buf strings.Builder
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(draft.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", draft.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n", writer.Boundary())
	fmt.Fprintf(&buf, "\r\n")

	bodyHeader := textproto.MIMEHeader{}
	bodyHeader.Set("Content-Type", `text/plain; charset="utf-8"`)
	textPart, err := writer.CreatePart(bodyHeader)
	if err != nil {
		return "", fmt.Errorf("could not create body part: %w", err)
	}
	if _, err := io.WriteString(textPart, draft.Body); err != nil {
		return "", fmt.Errorf("could not write body part: %w", err)
	}

	for _, att := range draft.Attachments {
		attHeader := textproto.MIMEHeader{}
		attHeader.Set("Content-Type", att.MediaType)
		attHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))
		part, err := writer.CreatePart(attHeader)
		if err != nil {
			return "", fmt.Errorf("could not create attachment part: %w", err)
		}
		if _, err := part.Write(att.Body); err != nil {
			return "", fmt.Errorf("could not write attachment: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("could not finish draft: %w", err)
	}

	path := filepath.Join(f.draftsDir, uuid.NewString()+".eml")
	if err := os.WriteFile(path, []byte(buf.String()), 0o600); err != nil {
		return "", fmt.Errorf("could not write draft: %w", err)
	}

	return path, nil
}

var _ Client = (*FileClient)(nil)
