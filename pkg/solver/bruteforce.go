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

	log "github.com/sirupsen/logrus"

	"github.com/Koukyosyumei/zkFuzz/pkg/eval"
	"github.com/Koukyosyumei/zkFuzz/pkg/field"
	"github.com/Koukyosyumei/zkFuzz/pkg/symbolic"
)

// RunWitnessGenerator emulates the original program on concrete inputs by
// picking the finalized path whose guards the inputs satisfy.  When no path
// runs clean the program crashes on this input; the returned position is
// the first failing trace entry of the last path tried.
func RunWitnessGenerator(arena *symbolic.Arena, fld *field.Field,
	states []*symbolic.State, inputs eval.Assignment) (eval.Assignment, bool, int) {
	//
	var (
		lastSigma eval.Assignment
		lastPos   = -1
	)
	//
	for _, s := range states {
		sigma := inputs.Clone()
		//
		if ok, pos := eval.EmulateTrace(arena, fld, s.Trace, sigma); ok {
			return sigma, true, -1
		} else {
			lastSigma, lastPos = sigma, pos
		}
	}
	//
	return lastSigma, false, lastPos
}

// BruteForce exhaustively tries small witness assignments, each free symbol
// ranging over {0, 1, -1}, and cross-checks the trace constraints against
// the side constraints.  The full state list is needed to re-run the
// witness generator on candidate inputs, whatever path they take.  It is
// complete only on that domain; a nil return means nothing was found there.
func BruteForce(arena *symbolic.Arena, fld *field.Field, state *symbolic.State,
	states []*symbolic.State, inputs, outputs []symbolic.Name) *CounterExample {
	//
	if state.Unsatisfiable {
		return nil
	}
	//
	exprs := make([]symbolic.ExprID, 0, len(state.Trace)+len(state.Side))
	for _, c := range state.Trace {
		exprs = append(exprs, c.Expr)
	}
	//
	for _, c := range state.Side {
		exprs = append(exprs, c.Expr)
	}
	//
	var (
		variables  = arena.FreeSymbols(exprs...)
		candidates = []*big.Int{
			big.NewInt(0),
			big.NewInt(1),
			fld.Reduce(big.NewInt(-1)),
		}
		assignment = make(eval.Assignment, len(variables))
		iterations = 0
	)
	//
	bf := &bruteForcer{
		arena: arena, fld: fld, state: state, states: states,
		inputs: inputs, outputs: outputs,
		variables: variables, candidates: candidates,
	}
	//
	cex := bf.search(0, assignment, &iterations)
	//
	log.Infof("brute force finished after %d assignments over %d symbols",
		iterations, len(variables))
	//
	return cex
}

type bruteForcer struct {
	arena      *symbolic.Arena
	fld        *field.Field
	state      *symbolic.State
	states     []*symbolic.State
	inputs     []symbolic.Name
	outputs    []symbolic.Name
	variables  []symbolic.Name
	candidates []*big.Int
}

func (b *bruteForcer) search(index int, assignment eval.Assignment, iterations *int) *CounterExample {
	if index == len(b.variables) {
		*iterations++
		return b.verify(assignment)
	}
	//
	v := b.variables[index]
	//
	for _, c := range b.candidates {
		assignment[v] = c
		//
		if cex := b.search(index+1, assignment, iterations); cex != nil {
			return cex
		}
	}
	//
	delete(assignment, v)
	//
	return nil
}

// verify classifies one complete witness candidate: accepted by the trace
// but rejected by the side constraints means over-constrained; the reverse,
// with an output differing from the trace-generated one, means
// under-constrained.
func (b *bruteForcer) verify(assignment eval.Assignment) *CounterExample {
	satTrace := eval.Satisfied(b.arena, b.fld, b.state.Trace, assignment)
	satSide := eval.Satisfied(b.arena, b.fld, b.state.Side, assignment)
	//
	if satTrace && !satSide {
		cex := &CounterExample{
			Flag:       OverConstrained,
			Assignment: assignment.Clone(),
		}
		//
		for _, c := range b.state.Side {
			err, evalErr := eval.ErrorOf(b.arena, b.fld, c.Expr, assignment)
			if evalErr != nil || err.Sign() != 0 {
				cex.ViolatedCondition = b.arena.String(c.Expr)
				break
			}
		}
		//
		return cex
	}
	//
	if !satTrace && satSide {
		// Re-run the witness generator on the inputs alone and compare the
		// outputs it produces against the candidate witness.
		inputsOnly := make(eval.Assignment, len(b.inputs))
		for _, in := range b.inputs {
			if v, ok := assignment[in]; ok {
				inputsOnly[in] = v
			}
		}
		//
		sigma, ok, failPos := RunWitnessGenerator(b.arena, b.fld, b.states, inputsOnly)
		//
		if !ok {
			cex := &CounterExample{
				Flag:       UnderConstrained,
				Under:      UnexpectedTrace,
				Assignment: assignment.Clone(),
			}
			//
			if failPos >= 0 {
				cex.ViolatedCondition = b.arena.String(b.states[len(b.states)-1].Trace[failPos].Expr)
			}
			//
			return cex
		}
		//
		for _, out := range b.outputs {
			vo, okO := sigma[out]
			vc, okC := assignment[out]
			//
			if okO && okC && vo.Cmp(vc) != 0 {
				return &CounterExample{
					Flag:           UnderConstrained,
					Under:          NonDeterministic,
					TargetOutput:   out,
					ExpectedOutput: vo,
					Assignment:     assignment.Clone(),
				}
			}
		}
	}
	//
	return nil
}
