package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/channelfit/internal/config"
	"github.com/banshee-data/channelfit/internal/cube"
	"github.com/banshee-data/channelfit/internal/fit"
	"github.com/banshee-data/channelfit/internal/fitscube"
	"github.com/banshee-data/channelfit/internal/model"
	"github.com/banshee-data/channelfit/internal/monitoring"
	"github.com/banshee-data/channelfit/internal/security"
)

// loadConfig reads the --config file and overlays the environment.
func (a *app) loadConfig() (*config.FitConfig, error) {
	if a.configPath == "" {
		return nil, errors.New("--config is required")
	}
	cfg, err := config.LoadFitConfig(a.configPath)
	if err != nil {
		return nil, err
	}
	a.env.Apply(cfg)
	if cfg.GetCubePath() == "" {
		return nil, errors.New("config has no cube_path")
	}
	return cfg, nil
}

// loadOptions maps the observation settings of cfg onto the cube
// loader. The sky is always cropped to +-rmax around the centre.
func loadOptions(cfg *config.FitConfig) cube.LoadOptions {
	rmax := cfg.GetRMax()
	lo, hi := -rmax, rmax
	opts := cube.LoadOptions{
		DistancePC:        cfg.GetDistancePC(),
		VSys:              cfg.GetVSys(),
		XMin:              &lo,
		XMax:              &hi,
		YMin:              &lo,
		YMax:              &hi,
		VMin:              cfg.VMin,
		VMax:              cfg.VMax,
		XSkip:             cfg.GetXSkip(),
		YSkip:             cfg.GetYSkip(),
		Sigma:             cfg.Sigma,
		CenteringVelocity: cfg.GetCenteringVelocity(),
	}
	if cfg.HasCenter() {
		opts.CenterRA, opts.CenterDec = cfg.CenterRA, cfg.CenterDec
	}
	return opts
}

func modelSetup(cfg *config.FitConfig) model.Setup {
	return model.Setup{
		PA:       cfg.GetPA(),
		Incl:     cfg.GetIncl(),
		RMax:     cfg.GetRMax(),
		Layers:   cfg.GetNLayer(),
		Windows:  cube.WindowsFrom(cfg.GetVLim()),
		Envelope: cfg.GetEnvelope(),
		Scaling:  cfg.GetScaling(),
	}
}

// loadObservation reads and preprocesses the configured cube.
func loadObservation(cfg *config.FitConfig) (*cube.Observation, error) {
	raw, err := fitscube.ReadFile(cfg.GetCubePath())
	if err != nil {
		return nil, err
	}
	obs, err := cube.Load(raw, loadOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.GetCubePath(), err)
	}
	monitoring.Logf("cube %s: %d x %d pixels, %d channels, sigma %.3e",
		cfg.GetCubePath(), len(obs.X), len(obs.Y), len(obs.V), obs.Sigma)
	return obs, nil
}

func buildModel(cfg *config.FitConfig) (*model.Model, error) {
	obs, err := loadObservation(cfg)
	if err != nil {
		return nil, err
	}
	return model.New(obs, modelSetup(cfg))
}

// fitOptions builds sampler options. Without a configured seed the clock
// seeds the run and the seed is logged.
func fitOptions(cfg *config.FitConfig) fit.Options {
	seed, ok := cfg.GetSeed()
	if !ok {
		seed = uint64(time.Now().UnixNano())
		monitoring.Logf("seed %d", seed)
	}
	return fit.Options{
		WalkersPerDim: cfg.GetWalkersPerDim(),
		Burnin:        cfg.GetBurnin(),
		Steps:         cfg.GetSteps(),
		Seed:          seed,
		Workers:       cfg.GetWorkers(),
		Combine:       cfg.GetCombine(),
	}
}

// outputHead resolves the output file prefix: the flag, else filehead,
// placed under CHANNELFIT_OUTPUT_DIR when that is set and the prefix is
// relative.
func (a *app) outputHead(flag string, cfg *config.FitConfig) (string, error) {
	head := flag
	if head == "" {
		head = cfg.GetFileHead()
	}
	if a.env.OutputDir != "" && !filepath.IsAbs(head) {
		head = filepath.Join(a.env.OutputDir, head)
		if err := security.ValidatePathWithinDirectory(head, a.env.OutputDir); err != nil {
			return "", err
		}
	}
	if dir := filepath.Dir(head); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}
	return head, nil
}

// dbPath resolves the run database: the flag, else CHANNELFIT_DB.
func (a *app) dbPath(flag string) string {
	if flag != "" {
		return flag
	}
	return a.env.DBPath
}
