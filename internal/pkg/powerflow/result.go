package powerflow

import (
	"math"

	"github.com/google/uuid"
	"golang.org/x/exp/constraints"
)

// Result holds the steady state of a solved network. Bus and line results are
// in the definition order of the network.
type Result struct {
	Network    uuid.UUID
	Slack      int // reference bus ID
	Iterations int
	Mismatch   float64 // MVA
	Buses      []BusResult
	Lines      []LineResult
}

// BusResult is the solved state of one bus. PMW and QMVar are the power drawn
// from the network at the bus, so generation reports negative values.
type BusResult struct {
	Bus   int
	VmPU  float64
	VaRad float64
	PMW   float64
	QMVar float64
}

// VaDegree returns the voltage angle in degrees.
func (b BusResult) VaDegree() float64 {
	return b.VaRad * 180 / math.Pi
}

// LineResult is the solved flow on one line. Flows are positive into the line.
type LineResult struct {
	Line           int
	FromBus        int
	ToBus          int
	PFromMW        float64
	QFromMVar      float64
	PToMW          float64
	QToMVar        float64
	PlMW           float64
	QlMVar         float64
	IFromKA        float64
	IToKA          float64
	IKA            float64
	LoadingPercent float64
}

// Summary condenses a Result into system-level figures.
type Summary struct {
	MinVmPU    float64
	MinVmBus   int
	MaxVmPU    float64
	MaxVmBus   int
	LossMW     float64
	LossMVar   float64
	SlackPMW   float64 // injected by the slack
	SlackQMVar float64
	MaxLoading float64
	MaxLine    int
}

// Summary returns voltage extremes, total losses and the slack injection.
func (r Result) Summary() Summary {
	s := Summary{
		MinVmPU: math.Inf(1),
		MaxVmPU: math.Inf(-1),
	}
	for _, b := range r.Buses {
		if b.VmPU < s.MinVmPU {
			s.MinVmPU, s.MinVmBus = b.VmPU, b.Bus
		}
		if b.VmPU > s.MaxVmPU {
			s.MaxVmPU, s.MaxVmBus = b.VmPU, b.Bus
		}
	}
	for _, l := range r.Lines {
		s.LossMW += l.PlMW
		s.LossMVar += l.QlMVar
		if l.LoadingPercent > s.MaxLoading {
			s.MaxLoading, s.MaxLine = l.LoadingPercent, l.Line
		}
	}
	for _, b := range r.Buses {
		if b.Bus == r.Slack {
			s.SlackPMW, s.SlackQMVar = -b.PMW, -b.QMVar
		}
	}
	return s
}

// VoltageViolations returns the buses whose magnitude lies outside
// [minPU, maxPU].
func (r Result) VoltageViolations(minPU, maxPU float64) []BusResult {
	out := make([]BusResult, 0)
	for _, b := range r.Buses {
		if !within(b.VmPU, minPU, maxPU) {
			out = append(out, b)
		}
	}
	return out
}

func within[T constraints.Ordered](v, lo, hi T) bool {
	return v >= lo && v <= hi
}
