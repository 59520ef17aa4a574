package powerflow

import (
	"encoding/json"
	"fmt"
)

// Transformer branch models accepted for TrafoMode.
const (
	TrafoModePi = "pi"
	TrafoModeT  = "t"
)

// Options configures a power flow run.
type Options struct {
	// TrafoMode selects the transformer equivalent circuit. Networks without
	// transformers solve identically under either mode.
	TrafoMode    string  `json:"TrafoMode"`
	ToleranceMVA float64 `json:"ToleranceMVA"`
	MaxIteration int     `json:"MaxIteration"`
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		TrafoMode:    TrafoModePi,
		ToleranceMVA: 1e-8,
		MaxIteration: 100,
	}
}

// NewOptions decodes jsonConfig over DefaultOptions. Keys absent from the
// document keep their default value.
func NewOptions(jsonConfig []byte) (Options, error) {
	opts := DefaultOptions()
	err := json.Unmarshal(jsonConfig, &opts)
	if err != nil {
		return Options{}, err
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate reports the first out-of-range option.
func (o Options) Validate() error {
	switch o.TrafoMode {
	case TrafoModePi, TrafoModeT:
	default:
		return fmt.Errorf("unknown trafo mode %q", o.TrafoMode)
	}
	if !(o.ToleranceMVA > 0) {
		return fmt.Errorf("tolerance %v MVA must be positive", o.ToleranceMVA)
	}
	if o.MaxIteration < 0 {
		return fmt.Errorf("max iteration %d must not be negative", o.MaxIteration)
	}
	return nil
}
