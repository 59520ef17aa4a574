package powerflow

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/ohowland/cgc_powerflow/internal/lib/network/case33bw"
	"github.com/ohowland/cgc_powerflow/internal/pkg/network"
	"gotest.tools/v3/assert"
)

func loadCase33(t *testing.T) network.Network {
	t.Helper()
	n, err := case33bw.Load()
	assert.NilError(t, err)
	return n
}

func threeBus() network.Config {
	return network.Config{
		Name:  "three bus",
		SnMVA: 1,
		FHz:   50,
		Buses: []network.Bus{
			{ID: 0, VnKV: 12.66, Type: network.Slack, VmSetPU: 1},
			{ID: 1, VnKV: 12.66, Type: network.PQ, PLoadMW: 0.1, QLoadMVar: 0.06},
			{ID: 2, VnKV: 12.66, Type: network.PQ, PLoadMW: 0.09, QLoadMVar: 0.04},
		},
		Lines: []network.Line{
			{ID: 0, FromBus: 0, ToBus: 1, ROhm: 0.0922, XOhm: 0.047, MaxIKA: 0.4, InService: true},
			{ID: 1, FromBus: 1, ToBus: 2, ROhm: 0.493, XOhm: 0.2511, MaxIKA: 0.4, InService: true},
		},
	}
}

func inDelta(a, b, delta float64) bool {
	return math.Abs(a-b) <= delta
}

func TestSolveCase33(t *testing.T) {
	n := loadCase33(t)
	res, err := Solve(n, DefaultOptions())
	assert.NilError(t, err)

	assert.Equal(t, res.Network, n.PID())
	assert.Equal(t, res.Iterations, 4)
	assert.Assert(t, res.Mismatch < DefaultOptions().ToleranceMVA)
	assert.Equal(t, len(res.Buses), 33)
	assert.Equal(t, len(res.Lines), 37)

	for _, b := range res.Buses {
		assert.Assert(t, b.VmPU >= 0.85 && b.VmPU <= 1.05, "bus %d at %v p.u.", b.Bus, b.VmPU)
	}

	s := res.Summary()
	assert.Equal(t, s.MinVmBus, 17)
	assert.Assert(t, inDelta(s.MinVmPU, 0.91309, 1e-4), "min voltage %v", s.MinVmPU)
	assert.Assert(t, inDelta(s.LossMW, 0.20268, 1e-4), "losses %v MW", s.LossMW)
	assert.Assert(t, inDelta(s.LossMVar, 0.13514, 1e-4), "losses %v MVAr", s.LossMVar)
	assert.Assert(t, inDelta(s.SlackPMW, 3.91768, 1e-4), "slack %v MW", s.SlackPMW)
}

func TestSlackBusHoldsReference(t *testing.T) {
	res, err := Solve(loadCase33(t), DefaultOptions())
	assert.NilError(t, err)

	slack := res.Buses[0]
	assert.Equal(t, slack.Bus, 0)
	assert.Equal(t, res.Slack, 0)
	assert.Equal(t, slack.VmPU, 1.0)
	assert.Equal(t, slack.VaRad, 0.0)
	assert.Assert(t, slack.PMW < 0, "slack should inject, got %v MW", slack.PMW)
}

func TestSolveIsIdempotent(t *testing.T) {
	n := loadCase33(t)
	r1, err := Solve(n, DefaultOptions())
	assert.NilError(t, err)
	r2, err := Solve(n, DefaultOptions())
	assert.NilError(t, err)

	assert.DeepEqual(t, r1, r2)
}

func TestPowerBalance(t *testing.T) {
	n := loadCase33(t)
	res, err := Solve(n, DefaultOptions())
	assert.NilError(t, err)

	var loadP, loadQ float64
	for _, b := range n.Buses() {
		loadP += b.PLoadMW
		loadQ += b.QLoadMVar
	}
	s := res.Summary()
	assert.Assert(t, inDelta(s.SlackPMW, loadP+s.LossMW, 1e-6))
	assert.Assert(t, inDelta(s.SlackQMVar, loadQ+s.LossMVar, 1e-6))
}

func TestScheduledInjectionsAreMet(t *testing.T) {
	n := loadCase33(t)
	res, err := Solve(n, DefaultOptions())
	assert.NilError(t, err)

	for i, b := range n.Buses() {
		if b.Type != network.PQ {
			continue
		}
		assert.Assert(t, inDelta(res.Buses[i].PMW, b.PLoadMW, 1e-8), "bus %d P", b.ID)
		assert.Assert(t, inDelta(res.Buses[i].QMVar, b.QLoadMVar, 1e-8), "bus %d Q", b.ID)
	}
}

func TestLineFlows(t *testing.T) {
	res, err := Solve(loadCase33(t), DefaultOptions())
	assert.NilError(t, err)

	head := res.Lines[0]
	assert.Equal(t, head.FromBus, 0)
	assert.Equal(t, head.ToBus, 1)
	assert.Assert(t, head.PFromMW > 0)
	assert.Assert(t, head.PToMW < 0)
	assert.Assert(t, inDelta(head.PlMW, head.PFromMW+head.PToMW, 1e-12))
	assert.Assert(t, inDelta(head.IKA, 0.21036, 1e-4), "head current %v kA", head.IKA)
	assert.Assert(t, inDelta(head.LoadingPercent, head.IKA/0.4*100, 1e-9))

	for _, l := range res.Lines {
		assert.Assert(t, l.PlMW >= 0, "line %d losses %v", l.Line, l.PlMW)
		assert.Assert(t, inDelta(l.IFromKA, l.IToKA, 1e-12))
	}
}

func TestMaxIterationZero(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxIteration = 0

	_, err := Solve(loadCase33(t), opts)

	var convErr *ConvergenceError
	assert.Assert(t, errors.As(err, &convErr), "expected ConvergenceError, got %v", err)
	assert.Equal(t, convErr.Iterations, 0)
	assert.Equal(t, convErr.MaxIteration, 0)
	assert.Assert(t, !convErr.Singular)
	// flat start: the largest mismatch is the 0.6 MVAr load at bus 29
	assert.Assert(t, inDelta(convErr.Mismatch, 0.6, 1e-9), "mismatch %v", convErr.Mismatch)
	assert.ErrorContains(t, err, "did not converge after 0 of 0 iterations")
}

func TestIterationCapReportsLastMismatch(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxIteration = 1

	_, err := Solve(loadCase33(t), opts)

	var convErr *ConvergenceError
	assert.Assert(t, errors.As(err, &convErr))
	assert.Equal(t, convErr.Iterations, 1)
	assert.Assert(t, convErr.Mismatch < 0.6 && convErr.Mismatch > opts.ToleranceMVA)
}

func TestInvalidNetworkIsRejectedBeforeSolving(t *testing.T) {
	_, err := Solve(network.Network{}, DefaultOptions())

	var invalid *network.InvalidNetworkError
	assert.Assert(t, errors.As(err, &invalid))
}

func TestInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.TrafoMode = "hv"
	_, err := Solve(loadCase33(t), opts)
	assert.ErrorContains(t, err, `unknown trafo mode "hv"`)
}

func TestTrafoModeDoesNotChangeResult(t *testing.T) {
	n := loadCase33(t)
	pi := DefaultOptions()
	tee := DefaultOptions()
	tee.TrafoMode = TrafoModeT

	r1, err := Solve(n, pi)
	assert.NilError(t, err)
	r2, err := Solve(n, tee)
	assert.NilError(t, err)

	assert.DeepEqual(t, r1, r2)
}

func TestPVBusHoldsSetpoint(t *testing.T) {
	cfg := threeBus()
	cfg.Buses[2].Type = network.PV
	cfg.Buses[2].VmSetPU = 1.0
	cfg.Buses[2].PGenMW = 0.05

	n, err := network.Build(cfg)
	assert.NilError(t, err)
	res, err := Solve(n, DefaultOptions())
	assert.NilError(t, err)

	pv := res.Buses[2]
	assert.Assert(t, inDelta(pv.VmPU, 1.0, 1e-12))
	assert.Assert(t, inDelta(pv.PMW, 0.09-0.05, 1e-8))
	// holding 1.0 p.u. downstream of a loaded line needs reactive support
	assert.Assert(t, pv.QMVar < 0)
}

func TestSlackAngleShiftsAllAngles(t *testing.T) {
	base, err := network.Build(threeBus())
	assert.NilError(t, err)

	cfg := threeBus()
	cfg.Buses[0].VaSetDegree = 30
	shifted, err := network.Build(cfg)
	assert.NilError(t, err)

	r1, err := Solve(base, DefaultOptions())
	assert.NilError(t, err)
	r2, err := Solve(shifted, DefaultOptions())
	assert.NilError(t, err)

	assert.Assert(t, inDelta(r2.Buses[0].VaDegree(), 30, 1e-9))
	for i := range r1.Buses {
		assert.Assert(t, inDelta(r2.Buses[i].VaRad-r1.Buses[i].VaRad, math.Pi/6, 1e-9))
	}
	assert.DeepEqual(t, r1.Lines, r2.Lines, cmpopts.EquateApprox(0, 1e-9))
}

func TestVoltageViolations(t *testing.T) {
	res, err := Solve(loadCase33(t), DefaultOptions())
	assert.NilError(t, err)

	assert.Equal(t, len(res.VoltageViolations(0.85, 1.05)), 0)

	low := res.VoltageViolations(0.95, 1.05)
	assert.Equal(t, len(low), 21)
	for _, b := range low {
		assert.Assert(t, b.VmPU < 0.95)
	}

	// the substation, bus 1 and the lateral 18-21
	assert.Equal(t, len(res.VoltageViolations(0.5, 0.99)), 6)
}

func TestYbusRowsSumToZero(t *testing.T) {
	m := newModel(loadCase33(t))
	r, c := m.ybus.Dims()
	assert.Equal(t, r, 33)
	assert.Equal(t, c, 33)

	for i := 0; i < r; i++ {
		var sum complex128
		for k := 0; k < c; k++ {
			sum += m.ybus.At(i, k)
		}
		assert.Assert(t, inDelta(real(sum), 0, 1e-9) && inDelta(imag(sum), 0, 1e-9), "row %d", i)
	}
}

func TestModelPartitionsBuses(t *testing.T) {
	m := newModel(loadCase33(t))
	assert.Equal(t, m.slack, 0)
	assert.Equal(t, len(m.pv), 0)
	assert.Equal(t, len(m.pq), 32)
	assert.Assert(t, inDelta(real(m.sbus[29]), -0.2, 1e-12))
	assert.Assert(t, inDelta(imag(m.sbus[29]), -0.6, 1e-12))
}

func TestOpenLinesCarryNoFlow(t *testing.T) {
	n := loadCase33(t)
	res, err := Solve(n, DefaultOptions())
	assert.NilError(t, err)

	for i, l := range n.Lines() {
		if l.InService {
			continue
		}
		assert.DeepEqual(t, res.Lines[i], LineResult{Line: l.ID, FromBus: l.FromBus, ToBus: l.ToBus})
	}

	m := newModel(n)
	assert.Equal(t, m.ybus.At(17, 32), complex(0, 0))
	assert.Equal(t, m.ybus.At(32, 17), complex(0, 0))
}

func TestClosingTieLineMeshesTheFeeder(t *testing.T) {
	base, err := Solve(loadCase33(t), DefaultOptions())
	assert.NilError(t, err)

	cfg, err := case33bw.Config()
	assert.NilError(t, err)
	// tie 35 joins the far ends of the main trunk (bus 17) and the lateral at bus 32
	cfg.Lines[35].InService = true
	n, err := network.Build(cfg)
	assert.NilError(t, err)

	res, err := Solve(n, DefaultOptions())
	assert.NilError(t, err)

	tie := res.Lines[35]
	assert.Assert(t, tie.IKA > 0)
	assert.Assert(t, inDelta(tie.PlMW, tie.PFromMW+tie.PToMW, 1e-12))
	assert.Assert(t, res.Summary().MinVmPU > base.Summary().MinVmPU)
}

func TestTieLineCanFeedIsolatedSection(t *testing.T) {
	cfg, err := case33bw.Config()
	assert.NilError(t, err)
	// open the last trunk section so bus 17 hangs off the tie alone
	cfg.Lines[16].InService = false
	cfg.Lines[35].InService = true
	n, err := network.Build(cfg)
	assert.NilError(t, err)

	res, err := Solve(n, DefaultOptions())
	assert.NilError(t, err)

	assert.DeepEqual(t, res.Lines[16], LineResult{Line: 16, FromBus: 16, ToBus: 17})
	tie := res.Lines[35]
	assert.Assert(t, tie.PFromMW < 0, "bus 17 should draw through the tie, got %v MW", tie.PFromMW)
	assert.Assert(t, inDelta(-tie.PFromMW, n.Buses()[17].PLoadMW, 1e-6))
}
