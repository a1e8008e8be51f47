// Package parser recovers structured fields from raw OCR text. Source
// documents are scanned government forms with a fixed layout, so label-anchored
// pattern matching stands in for full layout analysis. Extraction is
// best-effort: a field that does not match is simply left empty.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/domain"
)

var months = map[string]string{
	"JANUARY": "January", "FEBRUARY": "February", "MARCH": "March",
	"APRIL": "April", "MAY": "May", "JUNE": "June",
	"JULY": "July", "AUGUST": "August", "SEPTEMBER": "September",
	"OCTOBER": "October", "NOVEMBER": "November", "DECEMBER": "December",
}

const monthPattern = `(?:JANUARY|FEBRUARY|MARCH|APRIL|MAY|JUNE|JULY|AUGUST|SEPTEMBER|OCTOBER|NOVEMBER|DECEMBER)`

var (
	sexRe = regexp.MustCompile(`(?i)\bSEX\b[^A-Za-z]{0,20}(FEMALE|MALE)\b`)

	// "Month Day, Year" and "Day Month Year" both appear on scanned forms
	dobMonthFirstRe = regexp.MustCompile(`(?i)\b(` + monthPattern + `)[\s.,]*(\d{1,2})[\s.,]+(\d{4})\b`)
	dobDayFirstRe   = regexp.MustCompile(`(?i)\b(\d{1,2})[\s.,]*(` + monthPattern + `)[\s.,]*(\d{4})\b`)

	multiplicityRe = regexp.MustCompile(`(?i)\b(SINGLE|TWIN|TRIPLET|QUADRUPLET)\b`)

	registryRe = regexp.MustCompile(`(?i)REGISTRY\s*NO\.?\s*:?\s*([A-Z0-9][A-Z0-9-]{2,})`)

	capsTokenRe = regexp.MustCompile(`^[A-ZÑ]{2,}$`)
)

// registryFalsePositives are form words that follow the registry label on
// badly aligned scans and must not be mistaken for the number itself.
var registryFalsePositives = map[string]struct{}{
	"PROVINCE":     {},
	"CITY":         {},
	"MUNICIPALITY": {},
}

// Parse extracts structured fields from raw OCR text. It never fails; fields
// without a match stay empty.
func Parse(rawText string) domain.StructuredFields {
	fields := domain.StructuredFields{}

	parseName(rawText, &fields)
	parseSex(rawText, &fields)
	parseDateOfBirth(rawText, &fields)
	parsePlaceOfBirth(rawText, &fields)
	parseMultiplicity(rawText, &fields)
	parseRegistryNumber(rawText, &fields)

	return fields
}

// parseName collects the run of all-caps tokens following a NAME label.
// One token is a first name, two are first+last, three or more split into
// first, middle (joined), last.
func parseName(text string, fields *domain.StructuredFields) {
	upper := strings.ToUpper(text)
	idx := strings.Index(upper, "NAME")
	if idx < 0 {
		return
	}

	rest := text[idx+len("NAME"):]
	rest = strings.TrimLeft(rest, ":.,)( \t\r\n")
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}

	var tokens []string
	for _, tok := range strings.Fields(rest) {
		cleaned := strings.Trim(tok, ".,:;")
		if !capsTokenRe.MatchString(cleaned) {
			break
		}
		tokens = append(tokens, cleaned)
		if len(tokens) == 6 {
			break
		}
	}

	switch {
	case len(tokens) == 0:
		return
	case len(tokens) == 1:
		fields.FirstName = tokens[0]
	case len(tokens) == 2:
		fields.FirstName = tokens[0]
		fields.LastName = tokens[1]
	default:
		fields.FirstName = tokens[0]
		fields.MiddleName = strings.Join(tokens[1:len(tokens)-1], " ")
		fields.LastName = tokens[len(tokens)-1]
	}
}

func parseSex(text string, fields *domain.StructuredFields) {
	if m := sexRe.FindStringSubmatch(text); m != nil {
		fields.Sex = strings.ToUpper(m[1])
	}
}

// parseDateOfBirth looks for a month-name date near a BIRTH label and
// reassembles it as "Month Day, Year".
func parseDateOfBirth(text string, fields *domain.StructuredFields) {
	upper := strings.ToUpper(text)

	// Try a bounded window after each BIRTH label occurrence so the form
	// header ("CERTIFICATE OF LIVE BIRTH") does not mask the actual field.
	offset := 0
	for {
		idx := strings.Index(upper[offset:], "BIRTH")
		if idx < 0 {
			return
		}
		start := offset + idx
		end := start + 200
		if end > len(text) {
			end = len(text)
		}
		window := text[start:end]

		if m := dobMonthFirstRe.FindStringSubmatch(window); m != nil {
			if d := formatDate(m[1], m[2], m[3]); d != "" {
				fields.DateOfBirth = d
				return
			}
		}
		if m := dobDayFirstRe.FindStringSubmatch(window); m != nil {
			if d := formatDate(m[2], m[1], m[3]); d != "" {
				fields.DateOfBirth = d
				return
			}
		}

		offset = start + len("BIRTH")
	}
}

func formatDate(month, day, year string) string {
	name, ok := months[strings.ToUpper(month)]
	if !ok {
		return ""
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return ""
	}
	return name + " " + strconv.Itoa(d) + ", " + year
}

// parsePlaceOfBirth takes the first non-empty line of plausible length after
// a PLACE OF BIRTH label.
func parsePlaceOfBirth(text string, fields *domain.StructuredFields) {
	upper := strings.ToUpper(text)
	idx := strings.Index(upper, "PLACE OF BIRTH")
	if idx < 0 {
		return
	}

	rest := text[idx+len("PLACE OF BIRTH"):]
	rest = strings.TrimLeft(rest, ":., \t")

	for _, line := range strings.Split(rest, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= 4 && len(line) <= 80 {
			fields.PlaceOfBirth = line
			return
		}
		if line != "" {
			return
		}
	}
}

func parseMultiplicity(text string, fields *domain.StructuredFields) {
	if m := multiplicityRe.FindStringSubmatch(text); m != nil {
		fields.Multiplicity = strings.ToUpper(m[1])
	}
}

func parseRegistryNumber(text string, fields *domain.StructuredFields) {
	m := registryRe.FindStringSubmatch(text)
	if m == nil {
		return
	}

	candidate := strings.ToUpper(m[1])
	if _, bad := registryFalsePositives[candidate]; bad {
		return
	}

	fields.RegistryNumber = candidate
}
