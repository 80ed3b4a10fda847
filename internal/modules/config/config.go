package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	presetFilePathENV = "STRATEGIES_FILE"
)

// Config ...
type Config struct {
	Service struct {
		Name       string `mapstructure:"name"`
		HealthAddr string `mapstructure:"health_addr"`
	} `mapstructure:"service"`

	Binance struct {
		APIKey    string `mapstructure:"api_key"`
		APISecret string `mapstructure:"api_secret"`
		Testnet   bool   `mapstructure:"testnet"`
	} `mapstructure:"binance"`

	DB string `mapstructure:"db_dsn"`

	Telegram struct {
		Token  string `mapstructure:"token"`
		ChatID int64  `mapstructure:"chat_id"`
	} `mapstructure:"telegram"`

	Jaeger struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"jaeger"`

	Executor struct {
		RecheckDelay time.Duration `mapstructure:"recheck_delay"`
		MaxRechecks  int           `mapstructure:"max_rechecks"`
		Backoff      float64       `mapstructure:"backoff"`
	} `mapstructure:"executor"`

	SeedCandleLimit int `mapstructure:"seed_candle_limit"`

	// Strategies are loaded from the separate preset file, not the main config.
	Strategies []StrategyPreset `mapstructure:"-"`
}

// StrategyPreset is one declarative activation from configs/strategies.yaml.
type StrategyPreset struct {
	Symbol     string  `yaml:"symbol"`
	Timeframe  string  `yaml:"timeframe"`
	Strategy   string  `yaml:"strategy"`
	BalancePct float64 `yaml:"balance_pct"`
	TakeProfit float64 `yaml:"take_profit"`
	StopLoss   float64 `yaml:"stop_loss"`

	MinVolume float64 `yaml:"min_volume"`
	EMAFast   int     `yaml:"ema_fast"`
	EMASlow   int     `yaml:"ema_slow"`
	EMASignal int     `yaml:"ema_signal"`
}

func NewConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("service.name", "signal_engine")
	v.SetDefault("service.health_addr", ":8080")
	v.SetDefault("executor.recheck_delay", "2s")
	v.SetDefault("executor.max_rechecks", 30)
	v.SetDefault("executor.backoff", 1.5)
	v.SetDefault("seed_candle_limit", 1000)
	v.SetDefault("jaeger.port", 6831)

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	v.SetConfigFile("configs/" + configFileName)
	if err := v.ReadInConfig(); err != nil {
		// env-only runs are fine, a missing file is not fatal
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	v.SetEnvPrefix("ENGINE")
	v.AutomaticEnv()
	_ = v.BindEnv("binance.api_key", "BINANCE_API_KEY")
	_ = v.BindEnv("binance.api_secret", "BINANCE_API_SECRET")
	_ = v.BindEnv("db_dsn", "DATABASE_DSN")
	_ = v.BindEnv("telegram.token", "TELEGRAM_TOKEN")
	_ = v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	presets, err := loadPresets()
	if err != nil {
		return nil, err
	}
	config.Strategies = presets

	return config, nil
}

// loadPresets decodes the declarative strategy list. No file means no
// pre-activated strategies, which is a valid deployment.
func loadPresets() ([]StrategyPreset, error) {
	name := os.Getenv(presetFilePathENV)
	if name == "" {
		name = "strategies.yaml"
	}
	file, err := os.Open("configs/" + name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "open strategies file")
	}
	defer func() {
		_ = file.Close()
	}()

	var doc struct {
		Strategies []StrategyPreset `yaml:"strategies"`
	}
	if err := yaml.NewDecoder(file).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode strategies file")
	}
	return doc.Strategies, nil
}
