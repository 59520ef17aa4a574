package powerflow

import (
	"math"
	"math/cmplx"

	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"gonum.org/v1/gonum/mat"
)

// model is the per-unit view of a network, indexed by bus position.
type model struct {
	snMVA  float64
	ybus   *mat.CDense
	ys     []complex128 // series admittance per line
	closed []bool
	from   []int
	to     []int
	sbus   []complex128 // scheduled injection
	v0     []complex128 // initial voltage
	slack  int
	pv     []int
	pq     []int
	vnKV   []float64
	maxIKA []float64
}

// newModel converts n to per-unit on its own base and assembles Ybus. n must
// already be valid.
func newModel(n network.Network) model {
	buses := n.Buses()
	lines := n.Lines()
	sn := n.SnMVA()

	m := model{
		snMVA:  sn,
		ybus:   mat.NewCDense(len(buses), len(buses), nil),
		ys:     make([]complex128, len(lines)),
		closed: make([]bool, len(lines)),
		from:   make([]int, len(lines)),
		to:     make([]int, len(lines)),
		sbus:   make([]complex128, len(buses)),
		v0:     make([]complex128, len(buses)),
		pv:     make([]int, 0),
		pq:     make([]int, 0),
		vnKV:   make([]float64, len(buses)),
		maxIKA: make([]float64, len(lines)),
	}

	slackVa := 0.0
	for i, b := range buses {
		m.vnKV[i] = b.VnKV
		m.sbus[i] = complex(b.PGenMW-b.PLoadMW, b.QGenMVar-b.QLoadMVar) / complex(sn, 0)
		if b.Type == network.Slack {
			m.slack = i
			slackVa = b.VaSetDegree * math.Pi / 180
		}
	}

	for i, b := range buses {
		switch b.Type {
		case network.Slack:
			m.v0[i] = cmplx.Rect(b.VmSetPU, slackVa)
		case network.PV:
			m.pv = append(m.pv, i)
			m.v0[i] = cmplx.Rect(b.VmSetPU, slackVa)
		default:
			m.pq = append(m.pq, i)
			m.v0[i] = cmplx.Rect(1, slackVa)
		}
	}

	for k, l := range lines {
		f, _ := n.Index(l.FromBus)
		t, _ := n.Index(l.ToBus)
		zbase := buses[f].VnKV * buses[f].VnKV / sn
		ys := 1 / complex(l.ROhm/zbase, l.XOhm/zbase)

		m.ys[k] = ys
		m.from[k] = f
		m.to[k] = t
		m.maxIKA[k] = l.MaxIKA
		m.closed[k] = l.InService
		if !l.InService {
			continue
		}

		m.ybus.Set(f, f, m.ybus.At(f, f)+ys)
		m.ybus.Set(t, t, m.ybus.At(t, t)+ys)
		m.ybus.Set(f, t, m.ybus.At(f, t)-ys)
		m.ybus.Set(t, f, m.ybus.At(t, f)-ys)
	}
	return m
}

// currents returns Ybus * v.
func (m model) currents(v []complex128) []complex128 {
	n := len(v)
	ibus := make([]complex128, n)
	for i := 0; i < n; i++ {
		var sum complex128
		for k := 0; k < n; k++ {
			sum += m.ybus.At(i, k) * v[k]
		}
		ibus[i] = sum
	}
	return ibus
}
