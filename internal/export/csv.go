package export

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rehber/rehber/internal/models"
)

// CSVHeader is the first row of the spreadsheet export.
var CSVHeader = []string{"Ad", "Soyad", "Telefonlar", "E-Postalar", "Şirket", "Notlar"}

const (
	utf8BOM       = "\ufeff"
	listSeparator = " ; "
)

// CSV writes one row per contact, prefixed with a UTF-8 BOM so spreadsheet
// programs detect the encoding. Multiple phones or emails share a cell.
func CSV(w io.Writer, contacts []models.Contact) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for i := range contacts {
		c := &contacts[i]
		first, last := c.FirstName, c.LastName
		if first == "" && last == "" {
			first = c.DisplayName()
		}
		if err := cw.Write([]string{
			first,
			last,
			strings.Join(phoneValues(c), listSeparator),
			strings.Join(values(c.Emails), listSeparator),
			c.Company,
			c.Notes,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func phoneValues(c *models.Contact) []string {
	if len(c.Phones) == 0 && c.Phone != "" {
		return []string{c.Phone}
	}
	return values(c.Phones)
}

func values(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, k := range models.OrderedKeys(m) {
		out = append(out, m[k])
	}
	return out
}
