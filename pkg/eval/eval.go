// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package eval computes concrete values and error metrics of symbolic
// expressions under an assignment, and emulates (possibly mutated) witness
// traces.
package eval

import (
	"fmt"
	"math/big"

	"github.com/Koukyosyumei/zkFuzz/pkg/field"
	"github.com/Koukyosyumei/zkFuzz/pkg/symbolic"
)

// Assignment maps free symbols onto concrete field elements.
type Assignment map[symbolic.Name]*big.Int

// Clone copies an assignment.
func (a Assignment) Clone() Assignment {
	c := make(Assignment, len(a))
	for k, v := range a {
		c[k] = v
	}
	//
	return c
}

// Value evaluates an expression to a canonical field element.  Relational
// and boolean nodes evaluate to 0 or 1.  Division by zero and references to
// unassigned symbols are reported as errors, never as panics.
func Value(a *symbolic.Arena, fld *field.Field, e symbolic.ExprID, sigma Assignment) (*big.Int, error) {
	switch a.Op(e) {
	case symbolic.CONST:
		return a.Value(e), nil
	case symbolic.VAR, symbolic.SIGNAL:
		if v, ok := sigma[a.NameOf(e)]; ok {
			return v, nil
		}
		//
		return nil, fmt.Errorf("unassigned symbol %s", a.NameOf(e))
	case symbolic.NEG:
		v, err := Value(a, fld, a.Operand(e, 0), sigma)
		if err != nil {
			return nil, err
		}
		//
		return fld.Neg(v), nil
	case symbolic.NOT:
		v, err := Value(a, fld, a.Operand(e, 0), sigma)
		if err != nil {
			return nil, err
		}
		//
		return boolToField(v.Sign() == 0), nil
	case symbolic.COND:
		c, err := Value(a, fld, a.Operand(e, 0), sigma)
		if err != nil {
			return nil, err
		}
		//
		if c.Sign() != 0 {
			return Value(a, fld, a.Operand(e, 1), sigma)
		}
		//
		return Value(a, fld, a.Operand(e, 2), sigma)
	}
	// Binary operators.
	x, err := Value(a, fld, a.Operand(e, 0), sigma)
	if err != nil {
		return nil, err
	}
	//
	y, err := Value(a, fld, a.Operand(e, 1), sigma)
	if err != nil {
		return nil, err
	}
	//
	switch a.Op(e) {
	case symbolic.ADD:
		return fld.Add(x, y), nil
	case symbolic.SUB:
		return fld.Sub(x, y), nil
	case symbolic.MUL:
		return fld.Mul(x, y), nil
	case symbolic.DIV:
		return fld.Div(x, y)
	case symbolic.POW:
		return fld.Pow(x, y), nil
	case symbolic.EQ:
		return boolToField(x.Cmp(y) == 0), nil
	case symbolic.NEQ:
		return boolToField(x.Cmp(y) != 0), nil
	case symbolic.LT:
		return boolToField(fld.CmpSigned(x, y) < 0), nil
	case symbolic.LEQ:
		return boolToField(fld.CmpSigned(x, y) <= 0), nil
	case symbolic.GT:
		return boolToField(fld.CmpSigned(x, y) > 0), nil
	case symbolic.GEQ:
		return boolToField(fld.CmpSigned(x, y) >= 0), nil
	case symbolic.AND:
		return boolToField(x.Sign() != 0 && y.Sign() != 0), nil
	case symbolic.OR:
		return boolToField(x.Sign() != 0 || y.Sign() != 0), nil
	default:
		return nil, fmt.Errorf("unexpected operator %s", a.Op(e))
	}
}

func boolToField(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	//
	return big.NewInt(0)
}

// ErrorOf computes the non-negative error of a constraint under an
// assignment, where zero means satisfied.  Equalities score their signed
// distance, comparisons a piecewise linear penalty, conjunction the sum and
// disjunction the minimum of their members.
func ErrorOf(a *symbolic.Arena, fld *field.Field, e symbolic.ExprID, sigma Assignment) (*big.Int, error) {
	switch a.Op(e) {
	case symbolic.EQ:
		x, y, err := operands(a, fld, e, sigma)
		if err != nil {
			return nil, err
		}
		//
		return fld.AbsDist(x, y), nil
	case symbolic.NEQ:
		x, y, err := operands(a, fld, e, sigma)
		if err != nil {
			return nil, err
		}
		//
		return boolToField(x.Cmp(y) == 0), nil
	case symbolic.LT, symbolic.LEQ, symbolic.GT, symbolic.GEQ:
		x, y, err := operands(a, fld, e, sigma)
		if err != nil {
			return nil, err
		}
		//
		return relationalPenalty(a.Op(e), fld, x, y), nil
	case symbolic.AND:
		l, err := ErrorOf(a, fld, a.Operand(e, 0), sigma)
		if err != nil {
			return nil, err
		}
		//
		r, err := ErrorOf(a, fld, a.Operand(e, 1), sigma)
		if err != nil {
			return nil, err
		}
		//
		return new(big.Int).Add(l, r), nil
	case symbolic.OR:
		l, err := ErrorOf(a, fld, a.Operand(e, 0), sigma)
		if err != nil {
			return nil, err
		}
		//
		r, err := ErrorOf(a, fld, a.Operand(e, 1), sigma)
		if err != nil {
			return nil, err
		}
		//
		if l.Cmp(r) <= 0 {
			return l, nil
		}
		//
		return r, nil
	case symbolic.NOT:
		inner, err := ErrorOf(a, fld, a.Operand(e, 0), sigma)
		if err != nil {
			return nil, err
		}
		//
		return boolToField(inner.Sign() == 0), nil
	default:
		// A bare value used as a constraint is satisfied when non-zero.
		v, err := Value(a, fld, e, sigma)
		if err != nil {
			return nil, err
		}
		//
		return boolToField(v.Sign() == 0), nil
	}
}

func operands(a *symbolic.Arena, fld *field.Field, e symbolic.ExprID, sigma Assignment) (*big.Int, *big.Int, error) {
	x, err := Value(a, fld, a.Operand(e, 0), sigma)
	if err != nil {
		return nil, nil, err
	}
	//
	y, err := Value(a, fld, a.Operand(e, 1), sigma)
	if err != nil {
		return nil, nil, err
	}
	//
	return x, y, nil
}

// relationalPenalty maps a violated comparison onto its distance from
// holding, e.g. Lt(a,b) -> max(0, a-b+1) over signed representatives.
func relationalPenalty(op symbolic.Op, fld *field.Field, x, y *big.Int) *big.Int {
	var (
		sx = fld.Signed(x)
		sy = fld.Signed(y)
		d  = new(big.Int).Sub(sx, sy)
	)
	//
	switch op {
	case symbolic.LT:
		d.Add(d, big.NewInt(1))
	case symbolic.GT:
		d.Neg(d)
		d.Add(d, big.NewInt(1))
	case symbolic.GEQ:
		d.Neg(d)
	}
	//
	if d.Sign() < 0 {
		return big.NewInt(0)
	}
	//
	return d
}

// Total sums the error of a constraint set and counts its unsatisfied
// members, the tie-break of the fitness ordering.  Evaluation faults count
// as unsatisfiable, surfacing as a maximal error.
func Total(a *symbolic.Arena, fld *field.Field, cs []symbolic.Constraint, sigma Assignment) (*big.Int, int) {
	var (
		sum   = big.NewInt(0)
		unsat = 0
	)
	//
	for _, c := range cs {
		e, err := ErrorOf(a, fld, c.Expr, sigma)
		if err != nil {
			// An unevaluable constraint can never be satisfied here.
			sum.Add(sum, fld.Modulus())
			unsat++
			//
			continue
		}
		//
		if e.Sign() != 0 {
			unsat++
		}
		//
		sum.Add(sum, e)
	}
	//
	return sum, unsat
}

// Satisfied reports whether every constraint of the set holds.
func Satisfied(a *symbolic.Arena, fld *field.Field, cs []symbolic.Constraint, sigma Assignment) bool {
	sum, _ := Total(a, fld, cs, sigma)
	return sum.Sign() == 0
}

// EmulateTrace runs a witness trace under an input assignment, mutating
// sigma in place: an equality whose left-hand side is a still-unassigned
// signal acts as an assignment; guards and assertions are checked; other
// constraint emissions have no runtime effect.  A failed check does not
// stop the run, so every downstream signal still receives a value, as if
// all checks were removed.  It returns whether the trace ran clean and, if
// not, the position of the first failing entry.
func EmulateTrace(a *symbolic.Arena, fld *field.Field, trace []symbolic.Constraint, sigma Assignment) (bool, int) {
	var (
		ok      = true
		failPos = -1
	)
	//
	fail := func(i int) {
		if ok {
			ok, failPos = false, i
		}
	}
	//
	for i, c := range trace {
		if a.Op(c.Expr) == symbolic.EQ {
			lhs := a.Operand(c.Expr, 0)
			//
			if a.Op(lhs) == symbolic.SIGNAL {
				if _, done := sigma[a.NameOf(lhs)]; !done {
					v, err := Value(a, fld, a.Operand(c.Expr, 1), sigma)
					if err != nil {
						fail(i)
					} else {
						sigma[a.NameOf(lhs)] = v
					}
					//
					continue
				}
			}
		}
		// Witness generation only aborts on guards and assertions (and on
		// unevaluable values); plain constraint emissions are not runtime
		// checks.
		if c.Kind != symbolic.GUARD && c.Kind != symbolic.ASSERTION {
			continue
		}
		//
		e, err := ErrorOf(a, fld, c.Expr, sigma)
		if err != nil || e.Sign() != 0 {
			fail(i)
		}
	}
	//
	return ok, failPos
}
