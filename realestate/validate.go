package realestate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/realestate/toolerr"
)

// Bounds of tool parameters.
const (
	MinYearMonth = 200601
	MaxNumOfRows = 1000
	DefaultRows  = 100
)

// ValidateLAWDCode checks that code is five digits and names an active
// district in regions.
func ValidateLAWDCode(regions *Regions, code string) error {
	const example = "11440 (Mapo-gu)"
	switch {
	case code == "":
		return &toolerr.InputError{Field: "region_code", Reason: "must not be empty", Example: example}
	case len(code) != 5 || !isDigits(code):
		return &toolerr.InputError{
			Field:   "region_code",
			Reason:  fmt.Sprintf("must be a 5-digit number, got %q", code),
			Example: example,
		}
	case regions != nil && !regions.Known(code):
		return &toolerr.InputError{
			Field:   "region_code",
			Reason:  fmt.Sprintf("%q is not a valid legal district code; look it up with get_region_code", code),
			Example: example,
		}
	}
	return nil
}

// ValidateYearMonth checks a YYYYMM value between January 2006 and the
// month of now.
func ValidateYearMonth(ym string, now time.Time) error {
	const example = "202501 (January 2025)"
	if ym == "" {
		return &toolerr.InputError{Field: "year_month", Reason: "must not be empty", Example: example}
	}
	if len(ym) != 6 || !isDigits(ym) {
		return &toolerr.InputError{
			Field:   "year_month",
			Reason:  fmt.Sprintf("must be in YYYYMM format, got %q", ym),
			Example: example,
		}
	}

	v, _ := strconv.Atoi(ym)
	month := v % 100
	if month < 1 || month > 12 {
		return &toolerr.InputError{
			Field:   "year_month",
			Reason:  fmt.Sprintf("month must be between 01 and 12, got %02d", month),
			Example: example,
		}
	}
	if v < MinYearMonth {
		return &toolerr.InputError{
			Field:   "year_month",
			Reason:  fmt.Sprintf("must be 200601 or later, got %s; data starts in January 2006", ym),
			Example: example,
		}
	}
	if current := now.Year()*100 + int(now.Month()); v > current {
		return &toolerr.InputError{
			Field:   "year_month",
			Reason:  fmt.Sprintf("cannot be in the future, got %s; current period is %d", ym, current),
			Example: example,
		}
	}
	return nil
}

// ValidateNumOfRows checks 1 <= n <= MaxNumOfRows.
func ValidateNumOfRows(n int) error {
	if n < 1 {
		return &toolerr.InputError{Field: "num_of_rows", Reason: fmt.Sprintf("must be at least 1, got %d", n), Example: "100"}
	}
	if n > MaxNumOfRows {
		return &toolerr.InputError{
			Field:   "num_of_rows",
			Reason:  fmt.Sprintf("cannot exceed %d, got %d; use multiple requests for more data", MaxNumOfRows, n),
			Example: "100",
		}
	}
	return nil
}

// ValidatePage checks that a 1-based page parameter is positive.
func ValidatePage(field string, n int) error {
	if n < 1 {
		return &toolerr.InputError{Field: field, Reason: fmt.Sprintf("must be >= 1, got %d", n), Example: "1"}
	}
	return nil
}

// ValidateRequired rejects a blank value.
func ValidateRequired(field, value, example string) error {
	if strings.TrimSpace(value) == "" {
		return &toolerr.InputError{Field: field, Reason: "must not be empty", Example: example}
	}
	return nil
}

// validateDate accepts an empty value or a YYYYMMDD calendar date.
func validateDate(field, v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse("20060102", v); len(v) != 8 || err != nil {
		return &toolerr.InputError{
			Field:   field,
			Reason:  fmt.Sprintf("must be a date in YYYYMMDD format, got %q", v),
			Example: "20250131",
		}
	}
	return nil
}

// validateAmount accepts zero (no filter) or a positive amount in KRW.
func validateAmount(field string, v int64) error {
	if v < 0 {
		return &toolerr.InputError{Field: field, Reason: fmt.Sprintf("must not be negative, got %d", v), Example: "300000000"}
	}
	return nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
