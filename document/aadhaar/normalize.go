package aadhaar

import (
	"fmt"
	"strconv"
	"strings"

	"go-aadhaar-scanner/models"
)

const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// Two-digit years at or above this pivot belong to the 1900s.
const twoDigitYearPivot = 30

// SplitName breaks a full name into first, middle and last parts. A single
// token is a first name only; with three or more tokens everything between
// the first and the last token becomes the middle name.
func SplitName(full string) (first, middle, last string) {
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
		return "", "", ""
	case 1:
		return tokens[0], "", ""
	case 2:
		return tokens[0], "", tokens[1]
	default:
		return tokens[0], strings.Join(tokens[1:len(tokens)-1], " "), tokens[len(tokens)-1]
	}
}

// NormalizeDateOfBirth returns dob as YYYY-MM-DD. When dob cannot be parsed
// a four digit year of birth is used as YYYY-01-01. An empty string means
// neither value was usable.
func NormalizeDateOfBirth(dob, yob string) string {
	if normalized, err := NormalizeDate(dob); err == nil {
		return normalized
	}
	yob = strings.TrimSpace(yob)
	if len(yob) == 4 && isAllDigits(yob) {
		return yob + "-01-01"
	}
	return ""
}

// NormalizeDate accepts DD/MM/YYYY, DD-MM-YYYY, DD.MM.YYYY (two digit years
// allowed), DDMMYYYY and YYYY-MM-DD. Day and month ranges are checked, the
// calendar is not.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}

	var dayStr, monthStr, yearStr string
	switch {
	case len(s) == 8 && isAllDigits(s):
		dayStr, monthStr, yearStr = s[0:2], s[2:4], s[4:8]
	case isISODate(s):
		yearStr, monthStr, dayStr = s[0:4], s[5:7], s[8:10]
	default:
		sep := strings.IndexAny(s, "/-.")
		if sep < 0 {
			return "", fmt.Errorf("invalid date format: %s", s)
		}
		parts := strings.Split(s, s[sep:sep+1])
		if len(parts) != 3 {
			return "", fmt.Errorf("invalid date format: %s", s)
		}
		dayStr, monthStr, yearStr = parts[0], parts[1], parts[2]
		if len(dayStr) > 2 || len(monthStr) > 2 || (len(yearStr) != 2 && len(yearStr) != 4) {
			return "", fmt.Errorf("invalid date format: %s", s)
		}
	}

	day, err := parseDatePart(dayStr)
	if err != nil {
		return "", fmt.Errorf("invalid day in %s: %w", s, err)
	}
	month, err := parseDatePart(monthStr)
	if err != nil {
		return "", fmt.Errorf("invalid month in %s: %w", s, err)
	}
	year, err := parseDatePart(yearStr)
	if err != nil {
		return "", fmt.Errorf("invalid year in %s: %w", s, err)
	}

	if len(yearStr) == 2 {
		if year >= twoDigitYearPivot {
			year += 1900
		} else {
			year += 2000
		}
	}
	if day < 1 || day > 31 {
		return "", fmt.Errorf("day %d out of range in %s", day, s)
	}
	if month < 1 || month > 12 {
		return "", fmt.Errorf("month %d out of range in %s", month, s)
	}

	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), nil
}

func isISODate(s string) bool {
	return len(s) == 10 && s[4] == '-' && s[7] == '-' &&
		isAllDigits(s[0:4]) && isAllDigits(s[5:7]) && isAllDigits(s[8:10])
}

func parseDatePart(s string) (int, error) {
	if !isAllDigits(s) {
		return 0, fmt.Errorf("not numeric: %q", s)
	}
	return strconv.Atoi(s)
}

// NormalizeGender maps the codes and words used on Aadhaar cards to Male,
// Female or Other. Unknown values are returned trimmed but otherwise as-is.
func NormalizeGender(g string) string {
	g = strings.TrimSpace(g)
	switch strings.ToUpper(g) {
	case "M", "MALE", "PURUSH", "पुरुष":
		return GenderMale
	case "F", "FEMALE", "MAHILA", "STREE", "STRI", "महिला":
		return GenderFemale
	case "T", "O", "OTHER", "TRANSGENDER":
		return GenderOther
	default:
		return g
	}
}

// AssembleAddress joins the non-blank components in postal order.
func AssembleAddress(c *models.AddressComponents) string {
	if c == nil {
		return ""
	}
	return joinAddress(
		careOfLine(c.CareOf),
		c.House,
		c.Street,
		c.Landmark,
		c.Location,
		c.Vtc,
		prefixed("PO: ", c.PostOffice),
		c.SubDistrict,
		c.District,
		c.State,
		c.Pincode,
	)
}

func joinAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// careOfLine prefixes C/O unless the card already states the relation
// (S/O, D/O, W/O, C/O).
func careOfLine(careOf string) string {
	careOf = strings.TrimSpace(careOf)
	if len(careOf) >= 3 && careOf[1] == '/' && (careOf[2] == 'O' || careOf[2] == 'o') {
		return careOf
	}
	return prefixed("C/O ", careOf)
}

func prefixed(prefix, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return prefix + value
}

// digitsOnly keeps the ASCII digits of s, at most limit of them.
func digitsOnly(s string, limit int) string {
	var b strings.Builder
	for i := 0; i < len(s) && b.Len() < limit; i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// firstDigitRun returns the first contiguous run of digits in s, truncated
// to limit.
func firstDigitRun(s string, limit int) string {
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return ""
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' && end-start < limit {
		end++
	}
	return s[start:end]
}

func isPincode(s string) bool {
	return len(s) == 6 && isAllDigits(s)
}
