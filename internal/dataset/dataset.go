// Package dataset loads heat-flow measurements and plate boundary points from
// their source tables and drops rows that cannot be scored.
package dataset

import (
	"context"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geothermal-cli/internal/fetcher"
)

// Drop reasons recorded in LoadStats.
const (
	DropMissingCoords       = "missing_coords"
	DropMissingHeatFlow     = "missing_heat_flow"
	DropNonPositiveHeatFlow = "non_positive_heat_flow"
	DropOutOfRangeCoords    = "out_of_range_coords"
)

var (
	// ErrNoMeasurements is returned when no measurement survives filtering.
	ErrNoMeasurements = eris.New("dataset: no usable measurements")
	// ErrNoBoundaries is returned when no boundary point survives filtering.
	ErrNoBoundaries = eris.New("dataset: no usable boundary points")
)

// LoadStats counts what happened to the rows of one source table.
type LoadStats struct {
	RowsRead int
	Kept     int
	Dropped  map[string]int
}

func newStats() *LoadStats {
	return &LoadStats{Dropped: make(map[string]int)}
}

func (s *LoadStats) drop(reason string) {
	s.Dropped[reason]++
}

// TotalDropped sums drops over every reason.
func (s *LoadStats) TotalDropped() int {
	n := 0
	for _, v := range s.Dropped {
		n += v
	}
	return n
}

// Loader resolves configured sources to local files before parsing them.
type Loader struct {
	resolver *fetcher.Resolver
}

// NewLoader creates a Loader. A nil resolver only accepts local paths.
func NewLoader(resolver *fetcher.Resolver) *Loader {
	if resolver == nil {
		resolver = fetcher.NewResolver(nil, "")
	}
	return &Loader{resolver: resolver}
}

// resolve returns a local path for source. For archives each of wantExts is
// tried in order.
func (l *Loader) resolve(ctx context.Context, source string, wantExts ...string) (string, error) {
	ext := strings.ToLower(filepath.Ext(source))
	if fetcher.IsRemote(source) {
		ext = strings.ToLower(filepath.Ext(strings.SplitN(source, "?", 2)[0]))
	}
	if ext != ".zip" {
		return l.resolver.Resolve(ctx, source, ext)
	}

	var lastErr error
	for _, want := range wantExts {
		p, err := l.resolver.Resolve(ctx, source, want)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// parseNumber parses a cell into a float. Blank, NaN, infinite and
// unparseable cells are reported as absent.
func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// headerIndex maps trimmed, lower-cased column names to their position.
// The first occurrence of a duplicated name wins.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimRight(h, "\x00")))
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}

func requireColumns(idx map[string]int, names ...string) ([]int, error) {
	cols := make([]int, len(names))
	var missing []string
	for i, n := range names {
		c, ok := idx[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			missing = append(missing, n)
			continue
		}
		cols[i] = c
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("dataset: missing columns %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func validCoords(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
