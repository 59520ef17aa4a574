// Package case33bw provides the IEEE 33-bus radial distribution feeder of
// Baran and Wu (1989): 12.66 kV, 33 buses, 32 sectionalising lines, and a
// total load of 3.715 MW / 2.3 MVAr. Bus IDs run 0..32 with the substation at
// bus 0. Lines 32..36 are the five normally open tie lines and are out of
// service.
//
// The source data carries no thermal ratings. Every line is given a synthetic
// 0.4 kA rating so loading percentages can be reported.
package case33bw

import (
	_ "embed"
	"encoding/json"

	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
)

//go:embed case33bw.json
var jsonConfig []byte

// Load returns the validated 33-bus network.
func Load() (network.Network, error) {
	return network.New(jsonConfig)
}

// Config returns a fresh, unvalidated copy of the feeder description.
func Config() (network.Config, error) {
	config := network.Config{}
	err := json.Unmarshal(jsonConfig, &config)
	return config, err
}
