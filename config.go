package knora

import (
	"os"
	"sort"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Target is a registry and the asset store paired with it.
type Target struct {
	Registry   string `yaml:"registry"`
	AssetStore string `yaml:"assetstore"`
}

// Targets maps a target name to its endpoint pair.
type Targets map[string]Target

// DefaultTargets returns the well-known deployments.
func DefaultTargets() Targets {
	return Targets{
		"local": {Registry: "http://localhost:3333", AssetStore: "http://localhost:1024"},
		"test":  {Registry: "http://knora-test.unil.ch:80", AssetStore: "http://sipi-test.unil.ch:80"},
		"demo":  {Registry: "http://knora-demo.unil.ch:80", AssetStore: "http://sipi-demo.unil.ch:80"},
		"prod":  {Registry: "http://knora.unil.ch:80", AssetStore: "http://sipi.unil.ch:80"},
	}
}

// Lookup returns the named target or a CONFIGURATION error.
func (t Targets) Lookup(name string) (Target, error) {
	target, ok := t[name]
	if !ok {
		return Target{}, ConfigurationError("bad target: %q (known: %v)", name, t.Names())
	}
	return target, nil
}

// Names returns the target names in sorted order.
func (t Targets) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type targetsFile struct {
	Targets Targets `yaml:"targets"`
}

// LoadTargets reads a YAML file of the form
//
//	targets:
//	  local:
//	    registry: http://localhost:3333
//	    assetstore: http://localhost:1024
func LoadTargets(path string) (Targets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read targets file")
	}
	return ParseTargets(data)
}

// ParseTargets decodes the YAML targets document and validates every entry.
func ParseTargets(data []byte) (Targets, error) {
	var file targetsFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, errors.Wrap(err, "failed to parse targets file")
	}
	if len(file.Targets) == 0 {
		return nil, ConfigurationError("targets file defines no targets")
	}
	for name, target := range file.Targets {
		if target.Registry == "" || target.AssetStore == "" {
			return nil, ConfigurationError("target %q needs both registry and assetstore", name)
		}
	}
	return file.Targets, nil
}

// EnvConfig is the environment surface read by LoadEnv. Every key carries
// the KNORA_ prefix, e.g. KNORA_TARGET or KNORA_MAX_ATTEMPTS.
type EnvConfig struct {
	Target            string        `default:"local"`
	TargetsFile       string        `split_words:"true"`
	DryRun            bool          `split_words:"true" default:"false"`
	AssetStoreSession bool          `split_words:"true" default:"true"`
	Source            string
	RequestTimeout    time.Duration `split_words:"true" default:"30s"`
	MaxAttempts       int           `split_words:"true" default:"10"`
	BackoffUnit       time.Duration `split_words:"true" default:"1s"`
	RateLimit         float64       `split_words:"true" default:"0"`
	LogLevel          string        `split_words:"true" default:"info"`
	LogDevelopment    bool          `split_words:"true" default:"false"`
}

// LoadEnv loads EnvConfig from KNORA_* environment variables.
func LoadEnv() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("knora", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	return &cfg, nil
}

// Resolve selects the target and builds the client Config and RetryPolicy.
// The targets file, when set, replaces the default table.
func (e *EnvConfig) Resolve(logger *zap.Logger, metrics *Metrics) (Config, RetryPolicy, error) {
	targets := DefaultTargets()
	if e.TargetsFile != "" {
		loaded, err := LoadTargets(e.TargetsFile)
		if err != nil {
			return Config{}, RetryPolicy{}, err
		}
		targets = loaded
	}

	target, err := targets.Lookup(e.Target)
	if err != nil {
		return Config{}, RetryPolicy{}, err
	}
	if e.MaxAttempts < 1 {
		return Config{}, RetryPolicy{}, ConfigurationError("max attempts must be at least 1, got %d", e.MaxAttempts)
	}

	config := Config{
		Target:               target,
		DryRun:               e.DryRun,
		UseAssetStoreSession: e.AssetStoreSession,
		Source:               e.Source,
		RequestTimeout:       e.RequestTimeout,
		RateLimit:            e.RateLimit,
		Logger:               logger,
		Metrics:              metrics,
	}
	policy := RetryPolicy{
		MaxAttempts: e.MaxAttempts,
		BackoffUnit: e.BackoffUnit,
		Logger:      logger,
	}
	return config, policy, nil
}
