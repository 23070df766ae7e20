package realestate

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/jonwraymond/realestate/toolerr"
)

//go:embed region_codes.txt
var embeddedRegionCodes string

// statusActive marks rows of districts that still exist.
const statusActive = "존재"

// Region is one legal district row.
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// LAWDCode returns the five digit code the MOLIT API expects.
func (r Region) LAWDCode() string {
	if len(r.Code) < 5 {
		return r.Code
	}
	return r.Code[:5]
}

// isGuGun reports whether the row names a whole gu, gun or city rather
// than a dong.
func (r Region) isGuGun() bool {
	return len(r.Code) == 10 && r.Code[5:] == "00000"
}

// RegionResult is the answer of a region search.
type RegionResult struct {
	RegionCode string   `json:"region_code"`
	FullName   string   `json:"full_name"`
	Matches    []Region `json:"matches"`
}

// Regions is an immutable table of active legal districts.
type Regions struct {
	rows []Region
	lawd map[string]struct{}
}

var defaultRegions = sync.OnceValue(func() *Regions {
	r, err := ParseRegions(strings.NewReader(embeddedRegionCodes))
	if err != nil {
		panic(fmt.Sprintf("realestate: embedded region table: %v", err))
	}
	return r
})

// DefaultRegions returns the table compiled into the binary.
func DefaultRegions() *Regions {
	return defaultRegions()
}

// LoadRegions reads a region table from path. An empty path returns the
// embedded table.
func LoadRegions(path string) (*Regions, error) {
	if path == "" {
		return DefaultRegions(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open region file: %w", err)
	}
	defer f.Close()
	return ParseRegions(f)
}

// ParseRegions reads tab separated code, name and status columns. The first
// line is a header. Rows whose status is not 존재 are dropped.
func ParseRegions(r io.Reader) (*Regions, error) {
	regions := &Regions{lawd: make(map[string]struct{})}

	sc := bufio.NewScanner(r)
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		parts := strings.Split(strings.TrimRight(sc.Text(), "\r"), "\t")
		if len(parts) < 3 || parts[2] != statusActive {
			continue
		}
		row := Region{Code: parts[0], Name: norm.NFC.String(parts[1])}
		regions.rows = append(regions.rows, row)
		regions.lawd[row.LAWDCode()] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read region file: %w", err)
	}
	if len(regions.rows) == 0 {
		return nil, ErrNoRegions
	}
	return regions, nil
}

// Len returns the number of active rows.
func (r *Regions) Len() int {
	return len(r.rows)
}

// Known reports whether code is the LAWD code of an active district.
func (r *Regions) Known(code string) bool {
	_, ok := r.lawd[code]
	return ok
}

// Search finds rows whose name contains every whitespace separated token of
// query. Gu and gun rows sort first, then by code, and the first row is
// the representative answer.
func (r *Regions) Search(query string) (*RegionResult, error) {
	query = strings.TrimSpace(norm.NFC.String(query))
	if query == "" {
		return nil, &toolerr.InputError{Field: "query", Reason: "must not be empty", Example: "마포구"}
	}

	tokens := strings.Fields(query)
	var matched []Region
	for _, row := range r.rows {
		if containsAll(row.Name, tokens) {
			matched = append(matched, row)
		}
	}
	if len(matched) == 0 {
		env := toolerr.New(toolerr.KindInvalidInput,
			"No region found for: "+query,
			"Try a shorter name such as the district alone, e.g. 마포구 or 강남구.")
		env.Code = "no_match"
		return nil, env
	}

	sort.SliceStable(matched, func(i, j int) bool {
		gi, gj := matched[i].isGuGun(), matched[j].isGuGun()
		if gi != gj {
			return gi
		}
		return matched[i].Code < matched[j].Code
	})

	best := matched[0]
	return &RegionResult{
		RegionCode: best.LAWDCode(),
		FullName:   best.Name,
		Matches:    matched,
	}, nil
}

func containsAll(name string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(name, tok) {
			return false
		}
	}
	return true
}
