// src/parsers/parser.go
package parsers

import (
	"github.com/username/salesclaro/src/models"
)

// LineParser turns one raw feed line into a candidate record. Parse never
// fails: coercion problems are recorded as field defects on the returned
// record. Blank lines yield nil.
type LineParser interface {
	Parse(line models.RawLine) *models.CandidateRecord
}
