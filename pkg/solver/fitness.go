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
package solver

import (
	"math/big"

	"github.com/Koukyosyumei/zkFuzz/pkg/eval"
	"github.com/Koukyosyumei/zkFuzz/pkg/symbolic"
)

// applyMutation rewrites the right-hand sides of the mutated hints,
// leaving every other trace entry shared with the original.
func (e *Engine) applyMutation(m ProgramMutation) []symbolic.Constraint {
	if len(m) == 0 {
		return e.state.Trace
	}
	//
	trace := make([]symbolic.Constraint, len(e.state.Trace))
	copy(trace, e.state.Trace)
	//
	for site, rhs := range m {
		lhs := e.arena.Operand(trace[site].Expr, 0)
		trace[site] = symbolic.Constraint{
			Expr: e.arena.Binary(symbolic.EQ, lhs, rhs),
			Kind: trace[site].Kind,
		}
	}
	//
	return trace
}

// evaluateFitness scores one program mutation against the whole input
// population.  The score is the negated side-constraint error of the best
// input; zero scores carry a classified counterexample.
//
// Classification follows the trace/constraint consistency rules: a clean
// original run violating the side constraints is over-constrained; a failing
// original run whose witness nevertheless satisfies them, or a mutated
// witness which satisfies them with a different output, is under-constrained.
func (e *Engine) evaluateFitness(m ProgramMutation, inputsPop []eval.Assignment) (int, *big.Int, *CounterExample) {
	var (
		mutated  = e.applyMutation(m)
		maxIdx   = 0
		maxScore = new(big.Int).Neg(e.fld.Modulus())
	)
	//
	for i, inp := range inputsPop {
		// Run the original program on this input.
		sigmaOrig := inp.Clone()
		okOrig, failPos := eval.EmulateTrace(e.arena, e.fld, e.state.Trace, sigmaOrig)
		satOrig := eval.Satisfied(e.arena, e.fld, e.state.Side, sigmaOrig)
		//
		if okOrig && !satOrig {
			// The original, unmutated trace violates its own side
			// constraints.
			return i, big.NewInt(0), &CounterExample{
				Flag:              OverConstrained,
				ViolatedCondition: e.firstViolated(sigmaOrig),
				Assignment:        sigmaOrig,
			}
		}
		//
		if !okOrig && satOrig {
			// The original program crashes, yet its witness, with all
			// guards removed, satisfies the side constraints.
			return i, big.NewInt(0), &CounterExample{
				Flag:              UnderConstrained,
				Under:             UnexpectedTrace,
				ViolatedCondition: e.arena.String(e.state.Trace[failPos].Expr),
				Assignment:        sigmaOrig,
			}
		}
		// Run the mutated program.
		sigmaMut := inp.Clone()
		eval.EmulateTrace(e.arena, e.fld, mutated, sigmaMut)
		//
		errSide, _ := eval.Total(e.arena, e.fld, e.state.Side, sigmaMut)
		score := new(big.Int).Neg(errSide)
		//
		if errSide.Sign() == 0 {
			if !okOrig {
				// The original program fails on this input while the
				// mutated witness is accepted.
				return i, big.NewInt(0), &CounterExample{
					Flag:              UnderConstrained,
					Under:             UnexpectedTrace,
					ViolatedCondition: e.arena.String(e.state.Trace[failPos].Expr),
					Assignment:        sigmaMut,
				}
			}
			// Both witnesses are accepted; any output disagreement means
			// the constraints admit multiple witnesses.
			for _, out := range e.outputs {
				vo, okO := sigmaOrig[out]
				vm, okM := sigmaMut[out]
				//
				if okO && okM && vo.Cmp(vm) != 0 {
					return i, big.NewInt(0), &CounterExample{
						Flag:           UnderConstrained,
						Under:          NonDeterministic,
						TargetOutput:   out,
						ExpectedOutput: vo,
						Assignment:     sigmaMut,
					}
				}
			}
			// The mutation reproduced the original witness; worthless.
			score = new(big.Int).Neg(e.fld.Modulus())
		}
		//
		if score.Cmp(maxScore) > 0 {
			maxIdx = i
			maxScore = score
		}
	}
	//
	return maxIdx, maxScore, nil
}

// firstViolated renders the first side constraint the assignment fails,
// for diagnostics.
func (e *Engine) firstViolated(sigma eval.Assignment) string {
	for _, c := range e.state.Side {
		err, evalErr := eval.ErrorOf(e.arena, e.fld, c.Expr, sigma)
		if evalErr != nil || err.Sign() != 0 {
			return e.arena.String(c.Expr)
		}
	}
	//
	return ""
}
