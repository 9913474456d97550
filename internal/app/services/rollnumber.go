package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/hverma/enrollhub/internal/app/models"
)

const (
	prefixLength   = 2
	suffixLength   = 2
	sequenceLength = 3
)

// AllocationKey derives the 4-character key that scopes a category's roll
// number sequence: a 2-letter prefix from the qualification (else program)
// and a 2-digit batch suffix.
func AllocationKey(category *models.Category) string {
	return categoryPrefix(category) + batchSuffix(category)
}

// NextRollNumber computes the next roll number for a category given the
// lexicographically greatest previously issued number under the same
// allocation key ("" when none exists). Pure; no I/O.
func NextRollNumber(category *models.Category, lastIssued string) string {
	key := AllocationKey(category)

	next := 1
	if len(lastIssued) > len(key) {
		if n, err := strconv.Atoi(lastIssued[len(key):]); err == nil {
			next = n + 1
		}
	}

	return fmt.Sprintf("%s%0*d", key, sequenceLength, next)
}

// categoryPrefix takes the qualification when present, else the program,
// keeps only letters, uppercases, and pads with X to two characters. With
// neither field usable the prefix is XX.
func categoryPrefix(category *models.Category) string {
	if category == nil {
		return "XX"
	}

	if category.Qualification != nil {
		if p := normalizePrefix(*category.Qualification); p != "" {
			return p
		}
	}

	if p := normalizePrefix(category.Program); p != "" {
		return p
	}

	return "XX"
}

func normalizePrefix(source string) string {
	var letters strings.Builder
	for _, r := range source {
		if unicode.IsLetter(r) {
			letters.WriteRune(unicode.ToUpper(r))
		}
	}

	s := letters.String()
	if s == "" {
		return ""
	}
	if len(s) >= prefixLength {
		return s[:prefixLength]
	}
	return (s + "XX")[:prefixLength]
}

// batchSuffix extracts the last two digits of the batch, zero-padding a
// single digit. A batch with no digits falls back to the current year.
func batchSuffix(category *models.Category) string {
	if category == nil {
		return currentYearSuffix()
	}

	var digits strings.Builder
	for _, r := range category.Batch {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	s := digits.String()
	switch {
	case s == "":
		return currentYearSuffix()
	case len(s) >= suffixLength:
		return s[len(s)-suffixLength:]
	default:
		n, _ := strconv.Atoi(s)
		return fmt.Sprintf("%0*d", suffixLength, n)
	}
}

func currentYearSuffix() string {
	year := strconv.Itoa(time.Now().Year())
	return year[len(year)-suffixLength:]
}
