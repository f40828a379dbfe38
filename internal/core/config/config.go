// Package config provides configuration management for crew-pay services.
package config

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the full service configuration.
// Loaded via LoadConfig with CLI flags > environment > config file >
// defaults precedence.
type Config struct {
	Engine  EngineConfig
	Claims  ClaimsConfig
	Batch   BatchConfig
	Payroll PayrollConfig
	DB      DBConfig
}

// EngineConfig tunes evaluation and discrepancy detection.
type EngineConfig struct {
	// Epsilon is the money comparison tolerance. Differences at or under
	// it are rounding noise, never discrepancies.
	Epsilon decimal.Decimal

	// AutoFixCeiling bounds the absolute difference auto-fix may touch.
	AutoFixCeiling decimal.Decimal

	// StrictScenarios makes zero matched scenarios an evaluation error.
	StrictScenarios bool
}

// ClaimsConfig tunes claim adjudication.
type ClaimsConfig struct {
	// AutoApproveThreshold marks full approvals at or under this amount
	// auto-approved. Zero disables auto-approval.
	AutoApproveThreshold decimal.Decimal
}

// BatchConfig tunes batch evaluation.
type BatchConfig struct {
	Workers int
}

// PayrollConfig tunes payroll sanity validation.
type PayrollConfig struct {
	MaxRegularHoursWeek  decimal.Decimal
	MaxOvertimeHoursWeek decimal.Decimal
}

// DBConfig holds the rule-set store connection.
type DBConfig struct {
	// URL selects the driver by scheme: sqlite:// or postgres://
	URL string
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Epsilon:        decimal.NewFromFloat(0.01),
			AutoFixCeiling: decimal.NewFromInt(50),
		},
		Claims: ClaimsConfig{
			AutoApproveThreshold: decimal.NewFromInt(100),
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Payroll: PayrollConfig{
			MaxRegularHoursWeek:  decimal.NewFromInt(40),
			MaxOvertimeHoursWeek: decimal.NewFromInt(20),
		},
		DB: DBConfig{
			URL: "sqlite://crewpay.db",
		},
	}
}

// validateConfig checks every tunable for a sane range.
func validateConfig(cfg *Config) error {
	if cfg.Engine.Epsilon.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("engine.epsilon must be positive, got %s", cfg.Engine.Epsilon)
	}
	if cfg.Engine.AutoFixCeiling.IsNegative() {
		return fmt.Errorf("engine.auto_fix_ceiling cannot be negative, got %s", cfg.Engine.AutoFixCeiling)
	}
	if cfg.Claims.AutoApproveThreshold.IsNegative() {
		return fmt.Errorf("claims.auto_approve_threshold cannot be negative, got %s", cfg.Claims.AutoApproveThreshold)
	}
	if cfg.Batch.Workers <= 0 {
		return fmt.Errorf("batch.workers must be positive, got %d", cfg.Batch.Workers)
	}
	if cfg.Payroll.MaxRegularHoursWeek.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("payroll.max_regular_hours_week must be positive, got %s", cfg.Payroll.MaxRegularHoursWeek)
	}
	if cfg.Payroll.MaxOvertimeHoursWeek.IsNegative() {
		return fmt.Errorf("payroll.max_overtime_hours_week cannot be negative, got %s", cfg.Payroll.MaxOvertimeHoursWeek)
	}
	if cfg.DB.URL == "" {
		return fmt.Errorf("db.url must be set")
	}
	return nil
}
