package parser

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/dgallion1/docinsight/internal/doctree"
)

// EmailBodyTitle titles the single node holding an email's body.
const EmailBodyTitle = "Email Body"

// EmailParser handles RFC 5322 messages (.eml).
type EmailParser struct{}

func (p *EmailParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("parse email: %w", err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	from := decodeHeader(msg.Header.Get("From"))
	to := decodeHeader(msg.Header.Get("To"))

	tree := &doctree.DocTree{
		Title:  subject,
		Author: from,
		Metadata: map[string]string{
			"From":    from,
			"To":      to,
			"Subject": subject,
		},
	}
	if tree.Title == "" {
		tree.Title = stem(filename)
	}
	if date, err := msg.Header.Date(); err == nil {
		tree.CreatedAt = &date
	}

	body, err := partText(textproto.MIMEHeader(msg.Header), msg.Body)
	if err != nil {
		return nil, fmt.Errorf("read email body: %w", err)
	}
	if body = strings.TrimSpace(body); body != "" {
		tree.Children = []*doctree.DocNode{{Title: EmailBodyTitle, Text: body}}
	}
	return tree, nil
}

// decodeHeader decodes RFC 2047 encoded words, returning the raw value when
// decoding fails.
func decodeHeader(v string) string {
	if v == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}

// partText extracts readable text from one MIME entity. Multipart entities
// prefer their text/plain parts and fall back to text/html reduced to text.
func partText(h textproto.MIMEHeader, body io.Reader) (string, error) {
	contentType := h.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartText(body, params["boundary"])
	}

	raw, err := io.ReadAll(transferDecoder(h.Get("Content-Transfer-Encoding"), body))
	if err != nil {
		return "", err
	}
	text := decodeText(raw)
	switch mediaType {
	case "text/html":
		return htmlToText(text), nil
	case "text/plain":
		return text, nil
	default:
		return "", nil
	}
}

func multipartText(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}
	mr := multipart.NewReader(r, boundary)

	var plain, html []string
	for {
		part, err := mr.NextRawPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		mediaType, _, perr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if perr != nil {
			mediaType = "text/plain"
		}
		if strings.EqualFold(disposition(part.Header), "attachment") {
			part.Close()
			continue
		}
		text, err := partText(part.Header, part)
		part.Close()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if mediaType == "text/html" {
			html = append(html, text)
		} else {
			plain = append(plain, text)
		}
	}

	if len(plain) > 0 {
		return strings.Join(plain, "\n\n"), nil
	}
	return strings.Join(html, "\n\n"), nil
}

func disposition(h textproto.MIMEHeader) string {
	d, _, err := mime.ParseMediaType(h.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return d
}

func transferDecoder(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		// The decoder skips line breaks itself.
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}
