package export

import (
	"encoding/json"
	"io"

	"github.com/rehber/rehber/internal/models"
)

// File names offered for download.
const (
	VCardFileName = "rehber.vcf"
	CSVFileName   = "rehber.csv"
	JSONFileName  = "rehber_db.json"
)

// JSON writes the database as an indented array. The output can be fed back
// through the import endpoint.
func JSON(w io.Writer, contacts []models.Contact) error {
	if contacts == nil {
		contacts = []models.Contact{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(contacts)
}
