// Package scorer computes composite geothermal potential scores from heat flow
// and plate-boundary proximity.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geothermal-cli/internal/config"
)

// DefaultScoreConfig returns a config.ScoreConfig with the reference weights.
// Heat flow carries 70% of the composite, boundary proximity the rest.
func DefaultScoreConfig() config.ScoreConfig {
	return config.ScoreConfig{
		CapQuantile: 0.995,
		SigmaKM:     300.0,
		HeatWeight:  0.70,
		Concurrency: 4,
	}
}

// ValidateConfig checks that a ScoreConfig is internally consistent.
func ValidateConfig(c config.ScoreConfig) error {
	var errs []string

	if c.CapQuantile <= 0 || c.CapQuantile > 1 {
		errs = append(errs, fmt.Sprintf("cap_quantile must be in (0, 1], got %g", c.CapQuantile))
	}
	if c.SigmaKM <= 0 {
		errs = append(errs, fmt.Sprintf("sigma_km must be > 0, got %g", c.SigmaKM))
	}
	if c.HeatWeight < 0 || c.HeatWeight > 1 {
		errs = append(errs, fmt.Sprintf("heat_weight must be in [0, 1], got %g", c.HeatWeight))
	}
	if c.Concurrency < 0 {
		errs = append(errs, "concurrency must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
