package filter

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/mikey/phishing-filter/internal/core"
)

var headerDecoder = &mime.WordDecoder{}

// decodeEncodedHeader decodes RFC 2047 encoded words such as =?UTF-8?B?...?=
func decodeEncodedHeader(value string) (string, error) {
	decoded, err := headerDecoder.DecodeHeader(value)
	if err != nil {
		return value, err
	}
	return decoded, nil
}

// ParseEmail reads an RFC 5322 message and extracts the parts used for classification
func ParseEmail(r io.Reader) (*core.Email, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}
	return emailFromMessage(msg, "", nil)
}

// emailFromMessage builds a core.Email. The envelope sender and recipients
// take precedence over the From and To headers when set.
func emailFromMessage(msg *mail.Message, sender string, recipients []string) (*core.Email, error) {
	body, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text content: %w", err)
	}

	email := &core.Email{
		From:    sender,
		To:      recipients,
		Body:    body,
		Headers: make(map[string][]string, len(msg.Header)),
	}
	for key, values := range msg.Header {
		email.Headers[key] = values
	}

	if subject := msg.Header.Get("Subject"); subject != "" {
		decoded, err := decodeEncodedHeader(subject)
		if err != nil {
			decoded = subject
		}
		email.Subject = decoded
	}
	if email.From == "" {
		email.From = msg.Header.Get("From")
	}
	if len(email.To) == 0 {
		if to := msg.Header.Get("To"); to != "" {
			for _, addr := range strings.Split(to, ",") {
				email.To = append(email.To, strings.TrimSpace(addr))
			}
		}
	}

	return email, nil
}

// extractTextFromMessage extracts the text content from an email message.
// For multipart messages the text/plain parts are concatenated, falling
// back to text/html when no plain part exists.
func extractTextFromMessage(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	encoding := msg.Header.Get("Content-Transfer-Encoding")

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		bodyBytes, err := io.ReadAll(decodeTransfer(msg.Body, encoding))
		if err != nil {
			return "", err
		}
		return string(bodyBytes), nil
	}

	var plain, html bytes.Buffer
	if err := collectParts(multipart.NewReader(msg.Body, params["boundary"]), &plain, &html); err != nil && plain.Len() == 0 && html.Len() == 0 {
		return "", err
	}

	if plain.Len() > 0 {
		return plain.String(), nil
	}
	return html.String(), nil
}

// collectParts walks a multipart body, recursing into nested multiparts
func collectParts(mr *multipart.Reader, plain, html *bytes.Buffer) error {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			mediaType = "text/plain"
		}

		switch {
		case strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "":
			if err := collectParts(multipart.NewReader(part, params["boundary"]), plain, html); err != nil {
				return err
			}
		case mediaType == "text/plain" || mediaType == "text/html":
			// multipart.Reader already decodes quoted-printable parts
			partBytes, err := io.ReadAll(decodeTransfer(part, part.Header.Get("Content-Transfer-Encoding")))
			if err != nil {
				continue
			}
			target := plain
			if mediaType == "text/html" {
				target = html
			}
			target.Write(partBytes)
			target.WriteString("\n")
		}
		// Attachments and other parts are skipped
	}
}

func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, &newlineStripper{r: r})
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// newlineStripper drops CR and LF so wrapped base64 lines decode as one stream
type newlineStripper struct {
	r io.Reader
}

func (n *newlineStripper) Read(p []byte) (int, error) {
	for {
		count, err := n.r.Read(p)
		kept := 0
		for _, b := range p[:count] {
			if b != '\r' && b != '\n' {
				p[kept] = b
				kept++
			}
		}
		if kept > 0 || err != nil {
			return kept, err
		}
	}
}
