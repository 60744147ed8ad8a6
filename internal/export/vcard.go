// Package export renders the contact list as vCard, CSV and JSON downloads.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/rehber/rehber/internal/models"
)

// Encoding is the byte encoding of a vCard file.
type Encoding string

const (
	UTF8       Encoding = "utf-8"
	ISO8859_9  Encoding = "iso-8859-9"
	ISO8859_15 Encoding = "iso-8859-15"
)

var ErrUnsupportedEncoding = errors.New("export: unsupported encoding")

// ParseEncoding accepts the encoding names offered by the export screen.
// Empty means UTF-8.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", UTF8, "utf8":
		return UTF8, nil
	case ISO8859_9, "latin5":
		return ISO8859_9, nil
	case ISO8859_15, "latin9":
		return ISO8859_15, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, s)
	}
}

func (e Encoding) charmap() *charmap.Charmap {
	switch e {
	case ISO8859_9:
		return charmap.ISO8859_9
	case ISO8859_15:
		return charmap.ISO8859_15
	default:
		return nil
	}
}

// ContentType is the MIME type for a vCard in this encoding.
func (e Encoding) ContentType() string {
	return "text/vcard;charset=" + string(e)
}

const crlf = "\r\n"

// VCard writes contacts as vCard 3.0 with CRLF line endings. For the
// single-byte encodings, characters the charset cannot represent become '?'.
func VCard(w io.Writer, contacts []models.Contact, enc Encoding) error {
	bw := bufio.NewWriter(w)
	out := &encodingWriter{w: bw, cm: enc.charmap()}
	for i := range contacts {
		writeCard(out, &contacts[i])
		if out.err != nil {
			return out.err
		}
	}
	return bw.Flush()
}

type encodingWriter struct {
	w   *bufio.Writer
	cm  *charmap.Charmap
	err error
}

func (e *encodingWriter) line(s string) {
	if e.err != nil {
		return
	}
	if e.cm == nil {
		_, e.err = e.w.WriteString(s + crlf)
		return
	}
	for _, r := range s + crlf {
		b, ok := e.cm.EncodeRune(r)
		if !ok {
			b = '?'
		}
		if e.err = e.w.WriteByte(b); e.err != nil {
			return
		}
	}
}

var (
	textEscaper = strings.NewReplacer(`\`, `\\`, "\r\n", `\n`, "\n", `\n`, "\r", `\n`, ";", `\;`, ",", `\,`)
	lineFolder  = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
)

// esc escapes a TEXT value.
func esc(s string) string { return textEscaper.Replace(s) }

// flat keeps a non-TEXT value (number, email, URI, date) on one line.
func flat(s string) string { return lineFolder.Replace(s) }

func writeCard(w *encodingWriter, c *models.Contact) {
	w.line("BEGIN:VCARD")
	w.line("VERSION:3.0")
	w.line("N:" + strings.Join([]string{esc(c.LastName), esc(c.FirstName), esc(c.MiddleName), esc(c.Prefix), esc(c.Suffix)}, ";"))
	w.line("FN:" + esc(c.DisplayName()))
	if c.Nickname != "" {
		w.line("NICKNAME:" + esc(c.Nickname))
	}
	if c.Company != "" {
		w.line("ORG:" + esc(c.Company))
	}
	if c.Title != "" {
		w.line("TITLE:" + esc(c.Title))
	}

	if len(c.Phones) > 0 {
		for _, k := range models.OrderedKeys(c.Phones) {
			w.line(fmt.Sprintf("TEL;TYPE=%s:%s", phoneType(k), flat(c.Phones[k])))
		}
	} else if c.Phone != "" {
		w.line("TEL;TYPE=CELL:" + flat(c.Phone))
	}

	for _, k := range models.OrderedKeys(c.Emails) {
		w.line(fmt.Sprintf("EMAIL;TYPE=%s:%s", emailType(k), flat(c.Emails[k])))
	}
	for _, k := range models.OrderedKeys(c.URLs) {
		w.line("URL:" + flat(c.URLs[k]))
	}
	for _, k := range models.OrderedKeys(c.Addresses) {
		a := c.Addresses[k]
		typ := "HOME"
		if strings.Contains(k, "work") {
			typ = "WORK"
		}
		w.line(fmt.Sprintf("ADR;TYPE=%s:;;%s;%s;%s;%s;%s", typ, esc(a.Street), esc(a.City), esc(a.District), esc(a.Zip), esc(a.Country)))
	}

	item := 0
	for _, k := range models.OrderedKeys(c.Dates) {
		if strings.Contains(k, "birthday") {
			w.line("BDAY:" + flat(c.Dates[k]))
			continue
		}
		item++
		w.line(fmt.Sprintf("item%d.X-ABDATE:%s", item, flat(c.Dates[k])))
		w.line(fmt.Sprintf("item%d.X-ABLabel:%s", item, esc(models.LabelBase(k))))
	}

	if c.Notes != "" {
		w.line("NOTE:" + esc(c.Notes))
	}
	w.line("END:VCARD")
}

func phoneType(key string) string {
	switch {
	case strings.HasPrefix(key, "mobile"):
		return "CELL"
	case strings.HasPrefix(key, "home"):
		return "HOME"
	case strings.HasPrefix(key, "work"):
		return "WORK"
	default:
		return "VOICE"
	}
}

func emailType(key string) string {
	switch {
	case strings.HasPrefix(key, "home"):
		return "HOME"
	case strings.HasPrefix(key, "work"):
		return "WORK"
	default:
		return "INTERNET"
	}
}
