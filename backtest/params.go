package backtest

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every *ConfigurationError.
var ErrConfiguration = errors.New("invalid strategy parameters")

// ErrInsufficientData is returned by callers that need a minimum history.
// Run itself treats a short series as zero usable bars.
var ErrInsufficientData = errors.New("insufficient data")

// ConfigurationError names the parameter that failed validation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Params configures the RSI lot strategy.
type Params struct {
	OscillatorPeriod     int     `json:"oscillator_period" yaml:"oscillator_period"`
	OversoldThreshold    float64 `json:"oversold_threshold" yaml:"oversold_threshold"`
	OverboughtThreshold  float64 `json:"overbought_threshold" yaml:"overbought_threshold"`
	PartialExitThreshold float64 `json:"partial_exit_threshold" yaml:"partial_exit_threshold"`
	PartialExitFraction  float64 `json:"partial_exit_fraction" yaml:"partial_exit_fraction"`
	InitialCapital       float64 `json:"initial_capital" yaml:"initial_capital"`
	EntryFraction        float64 `json:"entry_fraction" yaml:"entry_fraction"`
	BuyFeeRate           float64 `json:"buy_fee_rate" yaml:"buy_fee_rate"`
	SellFeeRate          float64 `json:"sell_fee_rate" yaml:"sell_fee_rate"`
	MaxEntries           int     `json:"max_entries" yaml:"max_entries"`
	StopLossFraction     float64 `json:"stop_loss_fraction" yaml:"stop_loss_fraction"`
}

// DefaultParams uses Taiwan cash-equity costs: 0.1425% brokerage on both
// sides plus 0.3% transaction tax on the sell.
func DefaultParams() Params {
	return Params{
		OscillatorPeriod:     14,
		OversoldThreshold:    30,
		OverboughtThreshold:  70,
		PartialExitThreshold: 60,
		PartialExitFraction:  0.5,
		InitialCapital:       1_000_000,
		EntryFraction:        0.1,
		BuyFeeRate:           0.001425,
		SellFeeRate:          0.004425,
		MaxEntries:           5,
		StopLossFraction:     0.10,
	}
}

// Validate returns a *ConfigurationError for the first violated constraint.
// Comparisons are written so NaN fails every check.
func (p Params) Validate() error {
	if p.OscillatorPeriod < 2 {
		return configErr("oscillator_period", "must be >= 2, got %d", p.OscillatorPeriod)
	}
	if !(p.OverboughtThreshold > 0 && p.OverboughtThreshold < 100) {
		return configErr("overbought_threshold", "must be in (0, 100), got %g", p.OverboughtThreshold)
	}
	if !(p.OversoldThreshold > 0 && p.OversoldThreshold < p.OverboughtThreshold) {
		return configErr("oversold_threshold", "must be in (0, overbought_threshold=%g), got %g",
			p.OverboughtThreshold, p.OversoldThreshold)
	}
	if !(p.PartialExitThreshold > p.OversoldThreshold && p.PartialExitThreshold < p.OverboughtThreshold) {
		return configErr("partial_exit_threshold", "must be in (oversold_threshold=%g, overbought_threshold=%g), got %g",
			p.OversoldThreshold, p.OverboughtThreshold, p.PartialExitThreshold)
	}
	if !(p.PartialExitFraction > 0 && p.PartialExitFraction < 1) {
		return configErr("partial_exit_fraction", "must be in (0, 1), got %g", p.PartialExitFraction)
	}
	if !(p.InitialCapital > 0) {
		return configErr("initial_capital", "must be positive, got %g", p.InitialCapital)
	}
	if !(p.EntryFraction > 0 && p.EntryFraction <= 1) {
		return configErr("entry_fraction", "must be in (0, 1], got %g", p.EntryFraction)
	}
	if !(p.BuyFeeRate >= 0) {
		return configErr("buy_fee_rate", "must be >= 0, got %g", p.BuyFeeRate)
	}
	if !(p.SellFeeRate >= 0 && p.SellFeeRate < 1) {
		return configErr("sell_fee_rate", "must be in [0, 1), got %g", p.SellFeeRate)
	}
	if p.MaxEntries < 1 {
		return configErr("max_entries", "must be >= 1, got %d", p.MaxEntries)
	}
	if !(p.StopLossFraction > 0 && p.StopLossFraction < 1) {
		return configErr("stop_loss_fraction", "must be in (0, 1), got %g", p.StopLossFraction)
	}
	return nil
}
