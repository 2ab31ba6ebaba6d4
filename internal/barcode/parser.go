// Package barcode implements the two-stage barcode grammar described in
// spec.md §4.3: format (split parent/children) then segment (extract
// positional parent fields). Per spec.md's REDESIGN FLAGS, this is a
// hand-written scanner rather than a regexp — the grammar is ambiguous
// enough (variable-width lookahead for the parent/child boundary) that
// leaning on a specific regex dialect's lookaround semantics would be
// more fragile than walking the bytes directly.
package barcode

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ClusterCockpit/scanhub-edge/internal/model"
)

// Parsed is the result of parsing one raw barcode string: the formatted
// barcode text plus the positional segment fields of the parent.
type Parsed struct {
	Formatted     string
	Stowage       *string
	FlightNo      *string
	OrderDate     *string
	DACSClass     *string
	Leg           *string
	Gally         *string
	BlockNo       *string
	ContainerCode *string
	DES           *string
	DACSACType    *string
}

// Parse never fails: malformed input yields as many nulls as necessary
// while still returning the raw formatted barcode, per spec.md §4.3.
func Parse(raw string) Parsed {
	formatted := format(raw)
	return segment(formatted)
}

// ApplyTo copies a Parsed result's fields onto rec, leaving DeviceID,
// ScannerName, EntryNo, ScanDate, ScanTime and UserID untouched — those
// are assigned by the caller from config/state, not from the barcode text.
func (p Parsed) ApplyTo(rec *model.ScanRecord) {
	rec.Barcode = p.Formatted
	rec.Stowage = p.Stowage
	rec.FlightNo = p.FlightNo
	rec.OrderDate = p.OrderDate
	rec.DACSClass = p.DACSClass
	rec.Leg = p.Leg
	rec.Gally = p.Gally
	rec.BlockNo = p.BlockNo
	rec.ContainerCode = p.ContainerCode
	rec.DES = p.DES
	rec.DACSACType = p.DACSACType
}

// --- format stage -----------------------------------------------------

func format(raw string) string {
	boundary := findBoundary(raw)
	if boundary < 0 {
		return strings.TrimRight(raw, "- ")
	}

	parent := strings.TrimRight(raw[:boundary], "- ")
	childRegion := strings.TrimLeft(raw[boundary:], "- ")
	children := formatChildren(childRegion)

	if len(children) == 0 {
		return parent
	}
	return fmt.Sprintf("%s [%s]", parent, strings.Join(children, "|"))
}

// findBoundary returns the index of the first hyphen in raw that is
// followed by two concatenated ITEM_QTY-shaped chunks (allowing a run of
// separator characters, such as the '~' used between real children,
// between the two chunks). Returns -1 if no such hyphen exists.
func findBoundary(raw string) int {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '-' {
			continue
		}

		end1, ok := matchItemQtyPrefix(raw, i+1)
		if !ok {
			continue
		}

		j := end1
		for j < len(raw) && !isAlnum(raw[j]) {
			j++
		}

		if _, ok := matchItemQtyPrefix(raw, j); ok {
			return i
		}
	}
	return -1
}

// formatChildren replaces '~' with '|', inserts additional '|' separators
// between directly-concatenated ITEM_QTY chunks, splits on '|', and keeps
// only the tokens that fully match LETTERS(>=2)DIGITS-DIGITS.
func formatChildren(region string) []string {
	region = strings.ReplaceAll(region, "~", "|")

	var sb strings.Builder
	for i := 0; i < len(region); i++ {
		ch := region[i]
		sb.WriteByte(ch)
		if isDigit(ch) {
			if _, ok := matchItemQtyPrefix(region, i+1); ok {
				sb.WriteByte('|')
			}
		}
	}

	var children []string
	for _, tok := range strings.Split(sb.String(), "|") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if formatted, ok := formatChildToken(tok); ok {
			children = append(children, formatted)
		}
	}
	return children
}

// formatChildToken renders a token as ITEM_QTY if it fully matches
// ([A-Za-z]{2,}\d+)-(\d+), uppercasing the item part. Tokens that do not
// fully match (extra characters before or after the item-qty shape) are
// dropped, per spec.md §4.3.
func formatChildToken(tok string) (string, bool) {
	end, ok := matchItemQtyPrefix(tok, 0)
	if !ok || end != len(tok) {
		return "", false
	}

	hyphen := strings.IndexByte(tok, '-')
	item := strings.ToUpper(tok[:hyphen])
	qty := tok[hyphen+1:]
	return item + "_" + qty, true
}

// matchItemQtyPrefix matches LETTERS{2,} DIGITS{1,} "-" DIGITS{1,}
// starting at pos and returns the index just past the match, or ok=false
// if no such prefix exists at pos.
func matchItemQtyPrefix(s string, pos int) (end int, ok bool) {
	i := pos
	letters := 0
	for i < len(s) && isLetter(s[i]) {
		i++
		letters++
	}
	if letters < 2 {
		return 0, false
	}

	digitsStart := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == digitsStart {
		return 0, false
	}

	if i >= len(s) || s[i] != '-' {
		return 0, false
	}
	i++

	digits2Start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == digits2Start {
		return 0, false
	}

	return i, true
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isAlnum(b byte) bool {
	return isLetter(b) || isDigit(b)
}

// --- segment stage ------------------------------------------------------

func segment(formatted string) Parsed {
	parentText := formatted
	if idx := strings.IndexByte(formatted, '['); idx >= 0 {
		parentText = formatted[:idx]
	}
	parentText = strings.TrimSpace(parentText)

	segs := strings.Split(parentText, "-")
	p := Parsed{Formatted: formatted}

	p.Stowage = segAt(segs, 0)
	p.FlightNo = segAt(segs, 1)
	p.OrderDate = parseOrderDate(segAt(segs, 2))
	p.DACSClass = segAt(segs, 3)
	p.Leg = segAt(segs, 4)
	p.Gally = segAt(segs, 5)
	p.BlockNo = segAt(segs, 6)
	p.ContainerCode = segAt(segs, 7)
	p.DES = segAt(segs, 8)
	p.DACSACType = segAt(segs, 9)

	return p
}

func segAt(segs []string, i int) *string {
	if i >= len(segs) {
		return nil
	}
	v := strings.TrimSpace(segs[i])
	if v == "" {
		return nil
	}
	return &v
}

// parseOrderDate parses segment 3, format dd.mm.yy, with a pivot year of
// 79: yy<=79 means 2000+yy, otherwise 1900+yy. Any parse failure yields
// nil rather than failing the whole record, per spec.md §3/§4.3.
func parseOrderDate(seg *string) *string {
	if seg == nil {
		return nil
	}

	parts := strings.Split(*seg, ".")
	if len(parts) != 3 {
		return nil
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil
	}
	yy, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil
	}

	year := 1900 + yy
	if yy <= 79 {
		year = 2000 + yy
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return nil // e.g. 31.02.24 is not a real date
	}

	iso := t.Format("2006-01-02")
	return &iso
}
