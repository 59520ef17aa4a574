/*
powerflow.go Steady-state AC power flow. Solve builds the bus admittance matrix
of a network and runs Newton-Raphson on the polar power balance equations until
the largest bus mismatch falls below the configured tolerance.
*/

package powerflow

import (
	"log"
	"math"
	"math/cmplx"

	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
)

// Solve runs a power flow on n. An invalid network is rejected with a
// *network.InvalidNetworkError before any iteration; a run that exhausts
// opts.MaxIteration returns a *ConvergenceError.
func Solve(n network.Network, opts Options) (Result, error) {
	if err := n.Validate(); err != nil {
		return Result{}, err
	}
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	m := newModel(n)
	v, iter, mismatch, err := newtonRaphson(m, opts.ToleranceMVA, opts.MaxIteration)
	if err != nil {
		log.Printf("[Powerflow] network %v: %v\n", n.PID(), err)
		return Result{}, err
	}
	log.Printf("[Powerflow] network %v: converged in %d iterations (mismatch %.3g MVA)\n",
		n.PID(), iter, mismatch)

	buses := n.Buses()
	slack, _ := n.Slack()
	return Result{
		Network:    n.PID(),
		Slack:      slack.ID,
		Iterations: iter,
		Mismatch:   mismatch,
		Buses:      m.busResults(buses, v),
		Lines:      m.lineResults(n.Lines(), v),
	}, nil
}

func (m model) busResults(buses []network.Bus, v []complex128) []BusResult {
	ibus := m.currents(v)
	res := make([]BusResult, len(buses))
	for i, b := range buses {
		s := v[i] * cmplx.Conj(ibus[i]) * complex(m.snMVA, 0)
		res[i] = BusResult{
			Bus:   b.ID,
			VmPU:  cmplx.Abs(v[i]),
			VaRad: cmplx.Phase(v[i]),
			PMW:   -real(s),
			QMVar: -imag(s),
		}
	}
	return res
}

func (m model) lineResults(lines []network.Line, v []complex128) []LineResult {
	res := make([]LineResult, len(lines))
	sn := complex(m.snMVA, 0)
	for k, l := range lines {
		if !m.closed[k] {
			res[k] = LineResult{Line: l.ID, FromBus: l.FromBus, ToBus: l.ToBus}
			continue
		}
		f, t := m.from[k], m.to[k]
		iFrom := m.ys[k] * (v[f] - v[t])
		iTo := -iFrom
		sFrom := v[f] * cmplx.Conj(iFrom) * sn
		sTo := v[t] * cmplx.Conj(iTo) * sn

		ibase := m.snMVA / (math.Sqrt(3) * m.vnKV[f])
		iFromKA := cmplx.Abs(iFrom) * ibase
		iToKA := cmplx.Abs(iTo) * ibase
		iKA := math.Max(iFromKA, iToKA)

		res[k] = LineResult{
			Line:           l.ID,
			FromBus:        l.FromBus,
			ToBus:          l.ToBus,
			PFromMW:        real(sFrom),
			QFromMVar:      imag(sFrom),
			PToMW:          real(sTo),
			QToMVar:        imag(sTo),
			PlMW:           real(sFrom + sTo),
			QlMVar:         imag(sFrom + sTo),
			IFromKA:        iFromKA,
			IToKA:          iToKA,
			IKA:            iKA,
			LoadingPercent: iKA / m.maxIKA[k] * 100,
		}
	}
	return res
}
