package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
// Environment variables use the CP_ prefix with underscores for dots,
// e.g. CP_ENGINE_EPSILON overrides engine.epsilon.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults matching DefaultConfig
	v.SetDefault("engine.epsilon", 0.01)
	v.SetDefault("engine.auto_fix_ceiling", 50.0)
	v.SetDefault("engine.strict_scenarios", false)
	v.SetDefault("claims.auto_approve_threshold", 100.0)
	v.SetDefault("batch.workers", 4)
	v.SetDefault("payroll.max_regular_hours_week", 40.0)
	v.SetDefault("payroll.max_overtime_hours_week", 20.0)
	v.SetDefault("db.url", "sqlite://crewpay.db")

	v.SetEnvPrefix("CP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Engine: EngineConfig{
			Epsilon:         decimalValue(v, "engine.epsilon"),
			AutoFixCeiling:  decimalValue(v, "engine.auto_fix_ceiling"),
			StrictScenarios: v.GetBool("engine.strict_scenarios"),
		},
		Claims: ClaimsConfig{
			AutoApproveThreshold: decimalValue(v, "claims.auto_approve_threshold"),
		},
		Batch: BatchConfig{
			Workers: v.GetInt("batch.workers"),
		},
		Payroll: PayrollConfig{
			MaxRegularHoursWeek:  decimalValue(v, "payroll.max_regular_hours_week"),
			MaxOvertimeHoursWeek: decimalValue(v, "payroll.max_overtime_hours_week"),
		},
		DB: DBConfig{
			URL: v.GetString("db.url"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decimalValue reads a money/hours tunable as a string first so exact
// decimal inputs ("0.01") survive without a float round-trip.
func decimalValue(v *viper.Viper, key string) decimal.Decimal {
	if s := v.GetString(key); s != "" {
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return decimal.NewFromFloat(v.GetFloat64(key))
}
