package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/channelfit/internal/scaling"
)

// DefaultConfigPath is the path to the canonical fit defaults file.
const DefaultConfigPath = "config/channelfit.defaults.json"

// FitConfig represents the root configuration for a fit: where the cube
// comes from, how the model grid is set up, what the prior looks like and
// how long to sample. Fields are pointers so that partial files fall back
// to the Get* defaults.
type FitConfig struct {
	// Observation
	CubePath          *string  `json:"cube_path,omitempty" toml:"cube_path,omitempty" yaml:"cube_path,omitempty"`
	CenterRA          *float64 `json:"center_ra_deg,omitempty" toml:"center_ra_deg,omitempty" yaml:"center_ra_deg,omitempty"`
	CenterDec         *float64 `json:"center_dec_deg,omitempty" toml:"center_dec_deg,omitempty" yaml:"center_dec_deg,omitempty"`
	DistancePC        *float64 `json:"distance_pc,omitempty" toml:"distance_pc,omitempty" yaml:"distance_pc,omitempty"`
	VSys              *float64 `json:"vsys,omitempty" toml:"vsys,omitempty" yaml:"vsys,omitempty"`
	VMin              *float64 `json:"vmin,omitempty" toml:"vmin,omitempty" yaml:"vmin,omitempty"`
	VMax              *float64 `json:"vmax,omitempty" toml:"vmax,omitempty" yaml:"vmax,omitempty"`
	XSkip             *int     `json:"xskip,omitempty" toml:"xskip,omitempty" yaml:"xskip,omitempty"`
	YSkip             *int     `json:"yskip,omitempty" toml:"yskip,omitempty" yaml:"yskip,omitempty"`
	Sigma             *float64 `json:"sigma,omitempty" toml:"sigma,omitempty" yaml:"sigma,omitempty"` // nil means estimate from the edge channels
	CenteringVelocity *bool    `json:"centering_velocity,omitempty" toml:"centering_velocity,omitempty" yaml:"centering_velocity,omitempty"`

	// Model setup
	PA       *float64  `json:"pa,omitempty" toml:"pa,omitempty" yaml:"pa,omitempty"`
	Incl     *float64  `json:"incl,omitempty" toml:"incl,omitempty" yaml:"incl,omitempty"`
	RMax     *float64  `json:"rmax,omitempty" toml:"rmax,omitempty" yaml:"rmax,omitempty"`
	VLim     []float64 `json:"vlim,omitempty" toml:"vlim,omitempty" yaml:"vlim,omitempty"` // blue min, blue max, red min, red max
	NLayer   *int      `json:"nlayer,omitempty" toml:"nlayer,omitempty" yaml:"nlayer,omitempty"`
	Envelope *bool     `json:"envelope,omitempty" toml:"envelope,omitempty" yaml:"envelope,omitempty"`
	Scaling  *string   `json:"scaling,omitempty" toml:"scaling,omitempty" yaml:"scaling,omitempty"`
	Combine  *bool     `json:"combine,omitempty" toml:"combine,omitempty" yaml:"combine,omitempty"`

	// Prior: one entry per parameter name. Names left out use the
	// default range.
	Params map[string]ParamEntry `json:"params,omitempty" toml:"params,omitempty" yaml:"params,omitempty"`

	// Sampler
	WalkersPerDim *int    `json:"walkers_per_dim,omitempty" toml:"walkers_per_dim,omitempty" yaml:"walkers_per_dim,omitempty"`
	Burnin        *int    `json:"burnin,omitempty" toml:"burnin,omitempty" yaml:"burnin,omitempty"`
	Steps         *int    `json:"steps,omitempty" toml:"steps,omitempty" yaml:"steps,omitempty"`
	Seed          *uint64 `json:"seed,omitempty" toml:"seed,omitempty" yaml:"seed,omitempty"`
	Workers       *int    `json:"workers,omitempty" toml:"workers,omitempty" yaml:"workers,omitempty"`

	// Output
	FileHead  *string `json:"filehead,omitempty" toml:"filehead,omitempty" yaml:"filehead,omitempty"`
	Plots     *bool   `json:"plots,omitempty" toml:"plots,omitempty" yaml:"plots,omitempty"`
	TraceHTML *bool   `json:"trace_html,omitempty" toml:"trace_html,omitempty" yaml:"trace_html,omitempty"`
}

// ParamEntry is either a fixed value or a [lo, hi] prior range. Setting
// both is an error.
type ParamEntry struct {
	Fixed *float64  `json:"fixed,omitempty" toml:"fixed,omitempty" yaml:"fixed,omitempty"`
	Range []float64 `json:"range,omitempty" toml:"range,omitempty" yaml:"range,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyFitConfig returns a FitConfig with all fields set to nil.
func EmptyFitConfig() *FitConfig {
	return &FitConfig{}
}

// LoadFitConfig loads a FitConfig from a JSON, TOML or YAML file chosen by
// extension. The file must be under the max file size.
func LoadFitConfig(path string) (*FitConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".toml", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .toml or .yaml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyFitConfig()
	switch ext {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", strings.TrimPrefix(ext, "."), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *FitConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadFitConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. Parameter
// names are checked later against the model's parameter list.
func (c *FitConfig) Validate() error {
	if c.DistancePC != nil && *c.DistancePC <= 0 {
		return fmt.Errorf("distance_pc must be positive, got %f", *c.DistancePC)
	}
	if c.XSkip != nil && *c.XSkip < 1 {
		return fmt.Errorf("xskip must be at least 1, got %d", *c.XSkip)
	}
	if c.YSkip != nil && *c.YSkip < 1 {
		return fmt.Errorf("yskip must be at least 1, got %d", *c.YSkip)
	}
	if c.Sigma != nil && *c.Sigma <= 0 {
		return fmt.Errorf("sigma must be positive, got %f", *c.Sigma)
	}
	if c.VMin != nil && c.VMax != nil && *c.VMin >= *c.VMax {
		return fmt.Errorf("vmin (%f) must be below vmax (%f)", *c.VMin, *c.VMax)
	}
	if c.RMax != nil && *c.RMax <= 0 {
		return fmt.Errorf("rmax must be positive, got %f", *c.RMax)
	}
	if c.VLim != nil {
		if len(c.VLim) != 4 {
			return fmt.Errorf("vlim must have 4 values, got %d", len(c.VLim))
		}
		if c.VLim[0] > c.VLim[1] || c.VLim[2] > c.VLim[3] {
			return fmt.Errorf("vlim windows must be ordered, got %v", c.VLim)
		}
	}
	if c.NLayer != nil && (*c.NLayer < 1 || *c.NLayer > 12) {
		return fmt.Errorf("nlayer must be between 1 and 12, got %d", *c.NLayer)
	}
	if c.Scaling != nil {
		if _, err := scaling.ParsePolicy(*c.Scaling); err != nil {
			return err
		}
	}
	for name, p := range c.Params {
		if p.Fixed != nil && p.Range != nil {
			return fmt.Errorf("param %s: fixed and range are mutually exclusive", name)
		}
		if p.Range != nil {
			if len(p.Range) != 2 {
				return fmt.Errorf("param %s: range must have 2 values, got %d", name, len(p.Range))
			}
			if p.Range[0] >= p.Range[1] {
				return fmt.Errorf("param %s: range lower bound %g must be below upper bound %g", name, p.Range[0], p.Range[1])
			}
		}
	}
	if c.WalkersPerDim != nil && *c.WalkersPerDim < 1 {
		return fmt.Errorf("walkers_per_dim must be positive, got %d", *c.WalkersPerDim)
	}
	if c.Burnin != nil && *c.Burnin < 0 {
		return fmt.Errorf("burnin must be non-negative, got %d", *c.Burnin)
	}
	if c.Steps != nil && *c.Steps < 1 {
		return fmt.Errorf("steps must be positive, got %d", *c.Steps)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", *c.Workers)
	}
	return nil
}

// GetCubePath returns the cube path or an empty string.
func (c *FitConfig) GetCubePath() string {
	if c.CubePath == nil {
		return ""
	}
	return *c.CubePath
}

// HasCenter reports whether both sky centre coordinates are set.
func (c *FitConfig) HasCenter() bool {
	return c.CenterRA != nil && c.CenterDec != nil
}

// GetDistancePC returns the distance_pc value or the default.
func (c *FitConfig) GetDistancePC() float64 {
	if c.DistancePC == nil {
		return 1
	}
	return *c.DistancePC
}

// GetVSys returns the vsys value or the default.
func (c *FitConfig) GetVSys() float64 {
	if c.VSys == nil {
		return 0
	}
	return *c.VSys
}

// GetXSkip returns the xskip value or the default.
func (c *FitConfig) GetXSkip() int {
	if c.XSkip == nil {
		return 1
	}
	return *c.XSkip
}

// GetYSkip returns the yskip value or the default.
func (c *FitConfig) GetYSkip() int {
	if c.YSkip == nil {
		return 1
	}
	return *c.YSkip
}

// GetCenteringVelocity returns the centering_velocity value or the default.
func (c *FitConfig) GetCenteringVelocity() bool {
	if c.CenteringVelocity == nil {
		return false
	}
	return *c.CenteringVelocity
}

// GetPA returns the pa value in degrees or the default.
func (c *FitConfig) GetPA() float64 {
	if c.PA == nil {
		return 0
	}
	return *c.PA
}

// GetIncl returns the baseline inclination in degrees or the default.
func (c *FitConfig) GetIncl() float64 {
	if c.Incl == nil {
		return 90
	}
	return *c.Incl
}

// GetRMax returns the rmax value in au or the default.
func (c *FitConfig) GetRMax() float64 {
	if c.RMax == nil {
		return 1e4
	}
	return *c.RMax
}

// GetVLim returns the fit windows or the default.
func (c *FitConfig) GetVLim() [4]float64 {
	if len(c.VLim) != 4 {
		return [4]float64{-100, 0, 0, 100}
	}
	return [4]float64{c.VLim[0], c.VLim[1], c.VLim[2], c.VLim[3]}
}

// GetNLayer returns the nlayer value or the default.
func (c *FitConfig) GetNLayer() int {
	if c.NLayer == nil {
		return 4
	}
	return *c.NLayer
}

// GetEnvelope returns the envelope value or the default.
func (c *FitConfig) GetEnvelope() bool {
	if c.Envelope == nil {
		return true
	}
	return *c.Envelope
}

// GetScaling returns the scaling policy or the default.
func (c *FitConfig) GetScaling() scaling.Policy {
	if c.Scaling == nil {
		return scaling.Uniform
	}
	p, err := scaling.ParsePolicy(*c.Scaling)
	if err != nil {
		return scaling.Uniform // default on parse error
	}
	return p
}

// GetCombine returns the combine value or the default.
func (c *FitConfig) GetCombine() bool {
	if c.Combine == nil {
		return false
	}
	return *c.Combine
}

// GetWalkersPerDim returns the walkers_per_dim value or the default.
func (c *FitConfig) GetWalkersPerDim() int {
	if c.WalkersPerDim == nil {
		return 16
	}
	return *c.WalkersPerDim
}

// GetBurnin returns the burnin value or the default.
func (c *FitConfig) GetBurnin() int {
	if c.Burnin == nil {
		return 1000
	}
	return *c.Burnin
}

// GetSteps returns the steps value or the default.
func (c *FitConfig) GetSteps() int {
	if c.Steps == nil {
		return 1000
	}
	return *c.Steps
}

// GetSeed returns the sampler seed and whether one was configured.
func (c *FitConfig) GetSeed() (uint64, bool) {
	if c.Seed == nil {
		return 0, false
	}
	return *c.Seed, true
}

// GetWorkers returns the workers value or the default.
func (c *FitConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// GetFileHead returns the output file prefix or the default.
func (c *FitConfig) GetFileHead() string {
	if c.FileHead == nil || *c.FileHead == "" {
		return "channelfit"
	}
	return *c.FileHead
}

// GetPlots returns the plots value or the default.
func (c *FitConfig) GetPlots() bool {
	if c.Plots == nil {
		return true
	}
	return *c.Plots
}

// GetTraceHTML returns the trace_html value or the default.
func (c *FitConfig) GetTraceHTML() bool {
	if c.TraceHTML == nil {
		return true
	}
	return *c.TraceHTML
}

// DefaultFitConfig returns a FitConfig with every optional field set to
// its default. Observation fields without a default (cube path, centre,
// velocity limits, sigma, seed) stay nil.
func DefaultFitConfig() *FitConfig {
	return &FitConfig{
		DistancePC:        ptrFloat64(1),
		VSys:              ptrFloat64(0),
		XSkip:             ptrInt(1),
		YSkip:             ptrInt(1),
		CenteringVelocity: ptrBool(false),
		PA:                ptrFloat64(0),
		Incl:              ptrFloat64(90),
		RMax:              ptrFloat64(1e4),
		VLim:              []float64{-100, 0, 0, 100},
		NLayer:            ptrInt(4),
		Envelope:          ptrBool(true),
		Scaling:           ptrString(string(scaling.Uniform)),
		Combine:           ptrBool(false),
		WalkersPerDim:     ptrInt(16),
		Burnin:            ptrInt(1000),
		Steps:             ptrInt(1000),
		Workers:           ptrInt(1),
		FileHead:          ptrString("channelfit"),
		Plots:             ptrBool(true),
		TraceHTML:         ptrBool(true),
	}
}
