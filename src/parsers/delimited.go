// src/parsers/delimited.go
package parsers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/salesclaro/src/models"
	"github.com/username/salesclaro/src/utils"
)

// Column order of the sales feed:
// TransactionID|Date|ProductID|ProductName|Quantity|UnitPrice|CustomerID|Region
const (
	colTransactionID = iota
	colDate
	colProductID
	colProductName
	colQuantity
	colUnitPrice
	colCustomerID
	colRegion
	columnCount
)

type delimitedParser struct {
	delimiter string
}

// NewDelimitedParser builds a parser for the given field delimiter token.
// Recognized tokens follow the usual aliases; anything else uses its first
// character, defaulting to pipe.
func NewDelimitedParser(delimiter string) LineParser {
	switch delimiter {
	case "\\t", "tab", "TAB":
		delimiter = "\t"
	case "|", "pipe", "PIPE":
		delimiter = "|"
	case ";", "semicolon":
		delimiter = ";"
	case ",", "comma":
		delimiter = ","
	default:
		if len(delimiter) > 0 {
			delimiter = string(delimiter[0])
		} else {
			delimiter = "|"
		}
	}
	return &delimitedParser{delimiter: delimiter}
}

func (p *delimitedParser) Parse(line models.RawLine) *models.CandidateRecord {
	// Normalize non-breaking spaces before anything else; exported feeds
	// carry them inside numeric columns.
	text := strings.ReplaceAll(line.Text, " ", " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	parts := strings.Split(text, p.delimiter)
	candidate := &models.CandidateRecord{Line: line}

	col := func(i int) (string, bool) {
		if i >= len(parts) {
			return "", false
		}
		return strings.TrimSpace(parts[i]), true
	}
	addDefect := func(field, value, reason string) {
		candidate.Defects = append(candidate.Defects, models.FieldDefect{
			Field: field, Value: value, Reason: reason,
		})
	}
	requireString := func(i int, field string) string {
		raw, present := col(i)
		if !present {
			addDefect(field, "", "missing column")
			return ""
		}
		if raw == "" {
			addDefect(field, raw, "empty value")
		}
		return raw
	}

	candidate.TransactionID = requireString(colTransactionID, models.FieldTransactionID)
	candidate.ProductID = requireString(colProductID, models.FieldProductID)
	candidate.Region = requireString(colRegion, models.FieldRegion)

	// Optional columns: absence is not a defect.
	candidate.ProductName, _ = col(colProductName)
	candidate.CustomerID, _ = col(colCustomerID)

	if raw, present := col(colDate); !present {
		addDefect(models.FieldDate, "", "missing column")
	} else if date, err := utils.ParseDate(raw); err != nil {
		addDefect(models.FieldDate, raw, "invalid date")
	} else {
		candidate.Date = date
	}

	if raw, present := col(colQuantity); !present {
		addDefect(models.FieldQuantity, "", "missing column")
	} else if qty, err := coerceQuantity(raw); err != nil {
		addDefect(models.FieldQuantity, raw, "not an integer")
	} else {
		candidate.Quantity = qty
	}

	if raw, present := col(colUnitPrice); !present {
		addDefect(models.FieldUnitPrice, "", "missing column")
	} else if price, err := coercePrice(raw); err != nil {
		addDefect(models.FieldUnitPrice, raw, "not a decimal")
	} else {
		candidate.UnitPrice = price
	}

	return candidate
}

// groupedIntRe matches integers written with thousands separators,
// e.g. "1,200" or "1.200" or "1 200 000".
var groupedIntRe = regexp.MustCompile(`^-?\d{1,3}([.,\s]\d{3})+$`)

func coerceQuantity(raw string) (int, error) {
	s := strings.ReplaceAll(raw, " ", "")
	if groupedIntRe.MatchString(raw) {
		s = strings.NewReplacer(",", "", ".", "", " ", "").Replace(raw)
	}
	return strconv.Atoi(s)
}

// coercePrice parses a decimal that may use either comma or point as the
// decimal separator, with optional thousands grouping in the other one.
func coercePrice(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(raw, " ", "")
	lastComma := strings.LastIndex(s, ",")
	lastPoint := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastPoint >= 0 && lastComma > lastPoint:
		// "1.234,56": comma is the decimal separator.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastPoint >= 0:
		// "1,234.56": comma is a thousands separator.
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if groupedIntRe.MatchString(s) {
			// "1,200": grouped integer.
			s = strings.ReplaceAll(s, ",", "")
		} else {
			// "10,50": comma decimal separator.
			s = strings.Replace(s, ",", ".", 1)
		}
	}
	return decimal.NewFromString(s)
}
