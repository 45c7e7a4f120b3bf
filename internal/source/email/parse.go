package email

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"regexp"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/charmap"

	"github.com/nhle/mailwatch/internal/model"
)

// PreviewLimit is the maximum number of characters kept from a body.
const PreviewLimit = 500

func init() {
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// ParseMessage extracts the sender, decoded subject and a body preview
// from a raw RFC 5322 message. The preview prefers the first text/plain
// part and falls back to stripped text/html. A body that cannot be
// decoded leaves the preview empty; the headers are still returned.
func ParseMessage(raw []byte) (model.InboundMessage, error) {
	e, bodyReadable, err := readEntity(raw)
	if err != nil {
		return model.InboundMessage{}, err
	}

	msg := model.InboundMessage{
		Sender:  decodeHeader(e.Header.Get("From")),
		Subject: decodeHeader(e.Header.Get("Subject")),
	}
	if !bodyReadable {
		return msg, nil
	}

	mr := mail.NewReader(e)
	defer mr.Close()

	textBody, htmlBody := readBodies(mr)
	body := textBody
	if body == "" && htmlBody != "" {
		body = stripHTML(htmlBody)
	}
	msg.BodyPreview = truncateRunes(body, PreviewLimit)

	return msg, nil
}

// readEntity parses the message header. When strict parsing fails, header
// lines without a colon are dropped and parsing is retried. bodyReadable
// is false when the transfer encoding is unknown.
func readEntity(raw []byte) (e *message.Entity, bodyReadable bool, err error) {
	e, err = message.Read(bytes.NewReader(raw))
	if e == nil {
		e, err = message.Read(bytes.NewReader(dropMalformedHeaderLines(raw)))
		if e == nil {
			return nil, false, err
		}
	}
	return e, !message.IsUnknownEncoding(err), nil
}

// dropMalformedHeaderLines removes header lines that are neither a
// "Name: value" field nor a folded continuation. The body is untouched.
func dropMalformedHeaderLines(raw []byte) []byte {
	var out bytes.Buffer
	rest := raw
	for len(rest) > 0 {
		line := rest
		rest = nil
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line, rest = line[:i+1], line[i+1:]
		}

		trimmed := bytes.TrimRight(line, "\r\n")
		if len(trimmed) == 0 {
			out.Write(line)
			out.Write(rest)
			break
		}
		if trimmed[0] == ' ' || trimmed[0] == '\t' || bytes.IndexByte(trimmed, ':') > 0 {
			out.Write(line)
		}
	}
	return out.Bytes()
}

// readBodies walks the inline parts and returns the first text/plain and
// first text/html bodies. Unreadable parts are skipped.
func readBodies(mr *mail.Reader) (textBody, htmlBody string) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return textBody, htmlBody
		}
		if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
			return textBody, htmlBody
		}
		if part == nil || message.IsUnknownEncoding(err) {
			continue
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		if contentType == "" {
			contentType = "text/plain"
		}

		switch {
		case contentType == "text/plain" && textBody == "":
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			textBody = strings.ToValidUTF8(string(body), "")
		case contentType == "text/html" && htmlBody == "":
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			htmlBody = strings.ToValidUTF8(string(body), "")
		}
	}
}

// decodeHeader decodes RFC 2047 encoded words. Undecodable input is
// returned unchanged.
func decodeHeader(s string) string {
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
