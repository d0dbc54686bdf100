package backtester

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"swarmbt/internal/backtest"
	"swarmbt/internal/combiner"
	"swarmbt/internal/indicator"
	"swarmbt/internal/optimizer"
	"swarmbt/internal/regime"
)

// Config is the full application configuration. Every component carries its
// own config block; the YAML file overrides the defaults field by field.
type Config struct {
	DataFile     string   `yaml:"data_file"`
	ModelPath    string   `yaml:"model_path"` // xgboost model; empty = equal-weight predictor
	SignalSource string   `yaml:"signal_source"`
	Seed         int64    `yaml:"seed"`
	Variants     []string `yaml:"variants"`

	Backtest  backtest.Config             `yaml:"backtest"`
	Regime    regime.Config               `yaml:"regime"`
	Optimizer optimizer.Config            `yaml:"optimizer"`
	Combiner  combiner.Config             `yaml:"combiner"`
	MACD      indicator.MACDConfig        `yaml:"macd"`
	Enhanced  indicator.EnhancedMACDConfig `yaml:"enhanced_macd"`
	RSI       indicator.RSIConfig         `yaml:"rsi"`
}

func DefaultAppConfig() Config {
	return Config{
		SignalSource: "macd",
		Seed:         42,
		Variants: []string{
			string(backtest.VariantHybrid),
			string(backtest.VariantMACDOnly),
			string(backtest.VariantPredictorOnly),
			string(backtest.VariantOptimizer),
			string(backtest.VariantEqualWeight),
		},
		Backtest:  backtest.DefaultConfig(),
		Regime:    regime.DefaultConfig(),
		Optimizer: optimizer.DefaultConfig(),
		Combiner:  combiner.DefaultConfig(),
		MACD:      indicator.DefaultMACDConfig(),
		Enhanced:  indicator.DefaultEnhancedMACDConfig(),
		RSI:       indicator.DefaultRSIConfig(),
	}
}

// LoadConfig reads a YAML file over the defaults. A missing path returns
// the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultAppConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Backtest.Validate(); err != nil {
		return cfg, err
	}
	if err := cfg.Regime.Validate(); err != nil {
		return cfg, err
	}
	if err := cfg.Optimizer.Validate(); err != nil {
		return cfg, err
	}
	if err := cfg.Combiner.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
