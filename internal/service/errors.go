package service

import (
	"fmt"
	"strings"

	"github.com/Skufu/postcovid-risk/internal/patient"
)

// ErrPatientNotFound is returned when the requested patient does not exist.
var ErrPatientNotFound = patient.ErrNotFound

// InsufficientDataError is returned when a record has fewer populated
// diagnostic categories than the gate requires.
type InsufficientDataError struct {
	Present []patient.Category
	Missing []patient.Category
	Min     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient diagnostic data: %d of %d required categories present (missing: %s)",
		len(e.Present), e.Min, joinCategories(e.Missing))
}

func joinCategories(cats []patient.Category) string {
	if len(cats) == 0 {
		return "none"
	}
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
