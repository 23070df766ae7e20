package realestate

import "errors"

// ErrNoRegions indicates a region file without any active row.
var ErrNoRegions = errors.New("realestate: region table has no active rows")
