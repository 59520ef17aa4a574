package powerflow

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// newtonRaphson solves the polar power flow equations from m.v0. The unknowns
// are the angles at pv and pq buses followed by the magnitudes at pq buses.
func newtonRaphson(m model, tol float64, maxIteration int) ([]complex128, int, float64, error) {
	v := append([]complex128(nil), m.v0...)
	va := make([]float64, len(v))
	vm := make([]float64, len(v))
	for i := range v {
		va[i] = cmplx.Phase(v[i])
		vm[i] = cmplx.Abs(v[i])
	}

	pvpq := append(append([]int(nil), m.pv...), m.pq...)
	f := m.mismatch(v, pvpq)
	norm := floats.Norm(f, math.Inf(1)) * m.snMVA

	for iter := 0; ; iter++ {
		if norm < tol {
			return v, iter, norm, nil
		}
		if iter >= maxIteration {
			return v, iter, norm, &ConvergenceError{
				Iterations:   iter,
				MaxIteration: maxIteration,
				Mismatch:     norm,
			}
		}

		j := m.jacobian(v, pvpq)
		var dx mat.VecDense
		if err := dx.SolveVec(j, mat.NewVecDense(len(f), f)); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
				return v, iter, norm, &ConvergenceError{
					Iterations:   iter,
					MaxIteration: maxIteration,
					Mismatch:     norm,
					Singular:     true,
				}
			}
		}

		for r, i := range pvpq {
			va[i] -= dx.AtVec(r)
		}
		for r, i := range m.pq {
			vm[i] -= dx.AtVec(len(pvpq) + r)
		}
		for i := range v {
			v[i] = cmplx.Rect(vm[i], va[i])
		}

		f = m.mismatch(v, pvpq)
		norm = floats.Norm(f, math.Inf(1)) * m.snMVA
	}
}

// mismatch returns [ΔP at pvpq; ΔQ at pq] in per-unit.
func (m model) mismatch(v []complex128, pvpq []int) []float64 {
	ibus := m.currents(v)
	f := make([]float64, len(pvpq)+len(m.pq))
	for r, i := range pvpq {
		f[r] = real(v[i]*cmplx.Conj(ibus[i]) - m.sbus[i])
	}
	for r, i := range m.pq {
		f[len(pvpq)+r] = imag(v[i]*cmplx.Conj(ibus[i]) - m.sbus[i])
	}
	return f
}

// jacobian assembles
//
//	| dP/dVa[pvpq,pvpq]  dP/dVm[pvpq,pq] |
//	| dQ/dVa[pq,pvpq]    dQ/dVm[pq,pq]   |
//
// from the complex derivatives of the bus injections S = V conj(Ybus V).
func (m model) jacobian(v []complex128, pvpq []int) *mat.Dense {
	ibus := m.currents(v)
	npvpq := len(pvpq)
	size := npvpq + len(m.pq)
	j := mat.NewDense(size, size, nil)

	dVa := func(i, k int) complex128 {
		d := -m.ybus.At(i, k) * v[k]
		if i == k {
			d += ibus[i]
		}
		return 1i * v[i] * cmplx.Conj(d)
	}
	dVm := func(i, k int) complex128 {
		vn := v[k] / complex(cmplx.Abs(v[k]), 0)
		d := v[i] * cmplx.Conj(m.ybus.At(i, k)*vn)
		if i == k {
			d += cmplx.Conj(ibus[i]) * vn
		}
		return d
	}

	for r, i := range pvpq {
		for c, k := range pvpq {
			j.Set(r, c, real(dVa(i, k)))
		}
		for c, k := range m.pq {
			j.Set(r, npvpq+c, real(dVm(i, k)))
		}
	}
	for r, i := range m.pq {
		for c, k := range pvpq {
			j.Set(npvpq+r, c, imag(dVa(i, k)))
		}
		for c, k := range m.pq {
			j.Set(npvpq+r, npvpq+c, imag(dVm(i, k)))
		}
	}
	return j
}
