package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Validate checks the settings a command mode depends on. Recognized modes
// are "run", "paths", "store" and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run":
		errs = append(errs, c.validateMeasurements()...)
		errs = append(errs, c.validateBoundaries()...)
		errs = append(errs, c.validateOutput()...)
	case "paths":
		errs = append(errs, c.validateBoundaries()...)
		errs = append(errs, c.validateOutput()...)
	case "store":
		errs = append(errs, c.validateStore()...)
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server.rate_limit must be >= 0")
		}
		errs = append(errs, c.validateOutput()...)
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateMeasurements() []string {
	var errs []string
	m := c.Input.Measurements
	if m.Path == "" {
		errs = append(errs, "input.measurements.path is required")
	}
	if m.HeaderRow < 0 {
		errs = append(errs, "input.measurements.header_row must be >= 0")
	}
	if m.LatColumn == "" || m.LonColumn == "" {
		errs = append(errs, "input.measurements lat_column and lon_column are required")
	}
	if m.CorrectedColumn == "" && m.RawColumn == "" {
		errs = append(errs, "input.measurements needs corrected_column or raw_column")
	}
	return append(errs, validateCSVChars("input.measurements", m.Delimiter, m.Comment)...)
}

func (c *Config) validateBoundaries() []string {
	var errs []string
	b := c.Input.Boundaries
	if b.Path == "" {
		errs = append(errs, "input.boundaries.path is required")
	}
	if b.LatColumn == "" || b.LonColumn == "" {
		errs = append(errs, "input.boundaries lat_column and lon_column are required")
	}
	if b.PlateColumn == "" {
		errs = append(errs, "input.boundaries.plate_column is required")
	}
	return append(errs, validateCSVChars("input.boundaries", b.Delimiter, b.Comment)...)
}

// validateCSVChars checks the delimiter and comment settings of a CSV
// source. An empty delimiter means ','; an empty comment disables comments.
func validateCSVChars(prefix, delimiter, comment string) []string {
	var errs []string
	d := ','
	if delimiter != "" {
		if utf8.RuneCountInString(delimiter) != 1 || strings.ContainsAny(delimiter, "\"\r\n") {
			errs = append(errs, fmt.Sprintf("%s.delimiter must be a single character other than quote or newline, got %q", prefix, delimiter))
		}
		d, _ = utf8.DecodeRuneInString(delimiter)
	}
	if comment != "" {
		c, _ := utf8.DecodeRuneInString(comment)
		switch {
		case utf8.RuneCountInString(comment) != 1 || strings.ContainsAny(comment, "\"\r\n"):
			errs = append(errs, fmt.Sprintf("%s.comment must be a single character other than quote or newline, got %q", prefix, comment))
		case c == d:
			errs = append(errs, prefix+".comment must differ from the delimiter")
		}
	}
	return errs
}

func (c *Config) validateOutput() []string {
	var errs []string
	if c.Output.Dir == "" {
		errs = append(errs, "output.dir is required")
	}
	files := []struct{ key, name string }{
		{"output.heatmap_file", c.Output.HeatmapFile},
		{"output.sites_file", c.Output.SitesFile},
		{"output.paths_file", c.Output.PathsFile},
	}
	for _, f := range files {
		if f.name == "" || strings.ContainsAny(f.name, `/\`) {
			errs = append(errs, f.key+" must be a plain file name")
		}
	}
	if c.Output.GeoJSON && (c.Output.GeoJSONFile == "" || strings.ContainsAny(c.Output.GeoJSONFile, `/\`)) {
		errs = append(errs, "output.geojson_file must be a plain file name")
	}
	return errs
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case DriverNone:
		return nil
	case DriverSQLite, DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
		return nil
	default:
		return []string{fmt.Sprintf("store.driver must be sqlite, postgres or none, got %q", c.Store.Driver)}
	}
}
