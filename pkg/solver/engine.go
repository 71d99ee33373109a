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
	"context"
	"math/big"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Koukyosyumei/zkFuzz/pkg/eval"
	"github.com/Koukyosyumei/zkFuzz/pkg/field"
	"github.com/Koukyosyumei/zkFuzz/pkg/symbolic"
)

// ProgramMutation substitutes the right-hand sides of selected witness
// hints, keyed by their position in the trace.
type ProgramMutation map[int]symbolic.ExprID

// Engine is the genetic search over (program mutation, input assignment)
// pairs for one finalized state.
type Engine struct {
	arena   *symbolic.Arena
	fld     *field.Field
	state   *symbolic.State
	inputs  []symbolic.Name
	outputs []symbolic.Name
	cfg     Config
	// HeuristicsRange widens the near-modulus band constants are drawn
	// from.
	HeuristicsRange int64
	rng             *rand.Rand
	seed            uint64
	// sites are the trace positions of witness hints, the only mutable
	// entries of a program mutation.
	sites []int
	// inputScores carries the best score seen per input individual, feeding
	// tournament selection of the input population.
	inputScores []*big.Int
}

// NewEngine prepares a search over the given finalized state.  A zero seed
// in the configuration draws one from the clock; any other seed makes the
// whole run reproducible.
func NewEngine(arena *symbolic.Arena, fld *field.Field, state *symbolic.State,
	inputs, outputs []symbolic.Name, cfg Config) *Engine {
	//
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	//
	e := &Engine{
		arena:           arena,
		fld:             fld,
		state:           state,
		inputs:          inputs,
		outputs:         outputs,
		cfg:             cfg,
		HeuristicsRange: 100,
		rng:             rand.New(rand.NewSource(int64(seed))),
		seed:            seed,
	}
	//
	if cfg.FitnessFunction != "" && cfg.FitnessFunction != "error" {
		log.Warnf("unknown fitness function %q, falling back to the error metric",
			cfg.FitnessFunction)
	}
	//
	for i, c := range state.Trace {
		if c.Kind == symbolic.HINT {
			e.sites = append(e.sites, i)
		}
	}
	//
	return e
}

// Search runs the evolution loop until a counterexample classifies, the
// generation budget runs out, or the context is cancelled.
func (e *Engine) Search(ctx context.Context) *Result {
	result := &Result{Seed: e.seed}
	//
	if e.state.Unsatisfiable {
		// Tainted states are excluded from the search target.
		return result
	}
	//
	log.Infof("mutation search: %d trace / %d side constraints, %d inputs, %d mutation sites",
		len(e.state.Trace), len(e.state.Side), len(e.inputs), len(e.sites))
	//
	var (
		programs  = e.initPrograms()
		inputsPop = e.initInputs()
		scores    = make([]*big.Int, len(programs))
	)
	//
	e.inputScores = make([]*big.Int, len(inputsPop))
	//
	for g := 0; g < e.cfg.MaxGenerations; g++ {
		select {
		case <-ctx.Done():
			result.Generations = g
			return result
		default:
		}
		//
		if g > 0 {
			if e.cfg.InputUpdateInterval > 0 && g%e.cfg.InputUpdateInterval == 0 {
				inputsPop = e.evolveInputs(inputsPop)
			}
			//
			programs = e.evolvePrograms(programs, scores)
		}
		//
		var (
			best *big.Int
			cex  *CounterExample
		)
		//
		for i, prog := range programs {
			inputIdx, score, c := e.evaluateFitness(prog, inputsPop)
			scores[i] = score
			//
			if best == nil || score.Cmp(best) > 0 {
				best = score
			}
			//
			if prev := e.inputScores[inputIdx]; prev == nil || score.Cmp(prev) > 0 {
				e.inputScores[inputIdx] = score
			}
			//
			if c != nil {
				cex = c
				break
			}
		}
		//
		result.Generations = g + 1
		result.FitnessLog = append(result.FitnessLog, GenerationLog{
			Generation: g,
			BestScore:  best.String(),
		})
		//
		log.Debugf("generation %d/%d best score %s", g, e.cfg.MaxGenerations, best)
		//
		if cex != nil {
			log.Infof("counterexample found in generation %d", g)
			result.CounterExample = cex
			//
			return result
		}
	}
	//
	log.Infof("no counterexample found after %d generations", e.cfg.MaxGenerations)
	//
	return result
}

// ============================================================================
// Sampling
// ============================================================================

// drawInputValue samples a field element by weighted choice across the
// configured value ranges.
func (e *Engine) drawInputValue() *big.Int {
	var (
		roll = e.rng.Float64()
		acc  = 0.0
		idx  = len(e.cfg.RandomValueRanges) - 1
	)
	//
	for i, p := range e.cfg.RandomValueProbs {
		acc += p
		if roll < acc {
			idx = i
			break
		}
	}
	//
	r := e.cfg.RandomValueRanges[idx]
	//
	return e.fld.RandRange(e.rng, r.Lo, r.Hi)
}

// drawConstant samples a mutation constant: either a small signed value or
// one from the band just below the modulus, whose width the heuristics
// range controls.
func (e *Engine) drawConstant() *big.Int {
	if e.rng.Intn(2) == 0 {
		return e.fld.RandRange(e.rng, big.NewInt(-10), big.NewInt(10))
	}
	//
	p := e.fld.Modulus()
	//
	return e.fld.RandRange(e.rng, new(big.Int).Sub(p, big.NewInt(e.HeuristicsRange)), p)
}

// ============================================================================
// Program population
// ============================================================================

// initPrograms seeds the program population with the identity mutation plus
// random single- and multi-point mutations.
func (e *Engine) initPrograms() []ProgramMutation {
	pop := make([]ProgramMutation, 0, e.cfg.ProgramPopulationSize)
	pop = append(pop, ProgramMutation{})
	//
	for len(pop) < e.cfg.ProgramPopulationSize {
		m := ProgramMutation{}
		//
		if len(e.sites) > 0 {
			points := 1 + e.rng.Intn(len(e.sites))
			//
			for i := 0; i < points; i++ {
				site := e.sites[e.rng.Intn(len(e.sites))]
				m[site] = e.mutationExpr(site)
			}
		}
		//
		pop = append(pop, m)
	}
	//
	return pop
}

// mutationExpr draws a replacement right-hand side for the hint at the
// given trace position: a random constant, an arithmetic recombination of
// free symbols, or an operator swap of the original expression.
func (e *Engine) mutationExpr(site int) symbolic.ExprID {
	orig := e.arena.Operand(e.state.Trace[site].Expr, 1)
	free := e.arena.FreeSymbols(orig)
	//
	switch e.rng.Intn(3) {
	case 0:
		return e.arena.Const(e.drawConstant())
	case 1:
		if len(free) > 0 {
			ops := []symbolic.Op{symbolic.ADD, symbolic.SUB, symbolic.MUL}
			sym := e.arena.Var(free[e.rng.Intn(len(free))])
			//
			return e.arena.Binary(ops[e.rng.Intn(len(ops))], orig, sym)
		}
		//
		return e.arena.Const(e.drawConstant())
	default:
		if swapped, ok := e.operatorSwap(orig); ok {
			return swapped
		}
		//
		return e.arena.Const(e.drawConstant())
	}
}

// operatorSwap replaces the top-level arithmetic operator of an expression
// with a different one.
func (e *Engine) operatorSwap(expr symbolic.ExprID) (symbolic.ExprID, bool) {
	op := e.arena.Op(expr)
	//
	candidates := []symbolic.Op{symbolic.ADD, symbolic.SUB, symbolic.MUL, symbolic.DIV}
	swappable := false
	//
	for _, c := range candidates {
		if c == op {
			swappable = true
			break
		}
	}
	//
	if !swappable {
		return symbolic.None, false
	}
	//
	for {
		next := candidates[e.rng.Intn(len(candidates))]
		if next != op {
			return e.arena.Binary(next, e.arena.Operand(expr, 0), e.arena.Operand(expr, 1)), true
		}
	}
}

// evolvePrograms produces the next program generation by fitness
// proportional selection, site-swapping crossover, point mutation and
// operator swaps.
func (e *Engine) evolvePrograms(pop []ProgramMutation, scores []*big.Int) []ProgramMutation {
	next := make([]ProgramMutation, 0, len(pop))
	//
	for len(next) < len(pop) {
		var (
			p1    = e.selectProgram(pop, scores)
			p2    = e.selectProgram(pop, scores)
			child ProgramMutation
		)
		//
		if e.rng.Float64() < e.cfg.CrossoverRate {
			child = e.crossoverPrograms(p1, p2)
		} else {
			child = p1.clone()
		}
		//
		if e.rng.Float64() < e.cfg.MutationRate && len(e.sites) > 0 {
			site := e.sites[e.rng.Intn(len(e.sites))]
			child[site] = e.arena.Const(e.drawConstant())
		}
		//
		if e.rng.Float64() < e.cfg.OperatorMutationRate && len(e.sites) > 0 {
			site := e.sites[e.rng.Intn(len(e.sites))]
			//
			target, ok := child[site]
			if !ok {
				target = e.arena.Operand(e.state.Trace[site].Expr, 1)
			}
			//
			if swapped, swok := e.operatorSwap(target); swok {
				child[site] = swapped
			}
		}
		//
		next = append(next, child)
	}
	//
	return next
}

func (m ProgramMutation) clone() ProgramMutation {
	c := make(ProgramMutation, len(m))
	for k, v := range m {
		c[k] = v
	}
	//
	return c
}

// crossoverPrograms mixes the mutation sites of two parents: a site set in
// both comes from either with equal chance, a site set only in the first
// parent is always kept, and one set only in the second is kept half the
// time.  Sites are visited in trace order so a fixed seed replays
// identically.
func (e *Engine) crossoverPrograms(p1, p2 ProgramMutation) ProgramMutation {
	child := ProgramMutation{}
	//
	for _, site := range e.sites {
		var (
			v1, ok1 = p1[site]
			v2, ok2 = p2[site]
		)
		//
		switch {
		case ok1 && ok2:
			if e.rng.Intn(2) == 0 {
				child[site] = v1
			} else {
				child[site] = v2
			}
		case ok1:
			child[site] = v1
		case ok2:
			if e.rng.Intn(2) == 0 {
				child[site] = v2
			}
		}
	}
	//
	return child
}

// selectProgram picks an individual with probability proportional to its
// score offset above the population minimum.
func (e *Engine) selectProgram(pop []ProgramMutation, scores []*big.Int) ProgramMutation {
	min := scores[0]
	for _, s := range scores[1:] {
		if s != nil && s.Cmp(min) < 0 {
			min = s
		}
	}
	//
	var (
		weights = make([]*big.Int, len(pop))
		total   = big.NewInt(0)
	)
	//
	for i, s := range scores {
		if s == nil {
			weights[i] = big.NewInt(0)
			continue
		}
		//
		weights[i] = new(big.Int).Sub(s, min)
		total.Add(total, weights[i])
	}
	//
	if total.Sign() <= 0 {
		return pop[e.rng.Intn(len(pop))]
	}
	//
	target := new(big.Int).Rand(e.rng, total)
	//
	for i, w := range weights {
		if target.Cmp(w) < 0 {
			return pop[i]
		}
		//
		target.Sub(target, w)
	}
	//
	return pop[0]
}

// ============================================================================
// Input population
// ============================================================================

func (e *Engine) randomInput() eval.Assignment {
	a := make(eval.Assignment, len(e.inputs))
	for _, n := range e.inputs {
		a[n] = e.drawInputValue()
	}
	//
	return a
}

// initInputs builds the initial input population.  The "coverage" method
// additionally hill-climbs towards inputs that exercise distinct branch
// patterns of the state's guards.
func (e *Engine) initInputs() []eval.Assignment {
	pop := make([]eval.Assignment, e.cfg.InputPopulationSize)
	for i := range pop {
		pop[i] = e.randomInput()
	}
	//
	if e.cfg.InputInitializationMethod == "coverage" {
		e.maximizeGuardCoverage(pop)
	}
	//
	return pop
}

// guardPattern fingerprints which guards of the trace an input satisfies.
func (e *Engine) guardPattern(sigma eval.Assignment) string {
	var (
		trial = sigma.Clone()
		buf   = make([]byte, 0, 16)
	)
	//
	eval.EmulateTrace(e.arena, e.fld, e.state.Trace, trial)
	//
	for _, c := range e.state.Trace {
		if c.Kind != symbolic.GUARD {
			continue
		}
		//
		err, evalErr := eval.ErrorOf(e.arena, e.fld, c.Expr, trial)
		if evalErr == nil && err.Sign() == 0 {
			buf = append(buf, '1')
		} else {
			buf = append(buf, '0')
		}
	}
	//
	return string(buf)
}

// maximizeGuardCoverage mutates the population in place, keeping mutants
// which reach branch patterns not seen before.
func (e *Engine) maximizeGuardCoverage(pop []eval.Assignment) {
	seen := make(map[string]bool)
	for _, in := range pop {
		seen[e.guardPattern(in)] = true
	}
	//
	for iter := 0; iter < e.cfg.InputGenerationMaxIteration; iter++ {
		improved := false
		//
		for i, in := range pop {
			mutant := in.Clone()
			//
			for _, n := range e.inputs {
				if e.rng.Intn(2) == 0 {
					mutant[n] = e.drawInputValue()
				}
			}
			//
			if pat := e.guardPattern(mutant); !seen[pat] {
				seen[pat] = true
				pop[i] = mutant
				improved = true
			}
		}
		//
		if !improved {
			break
		}
	}
}

// evolveInputs produces the next input generation by tournament selection,
// single-point or uniform crossover, and per-gene or full-reinit mutation.
func (e *Engine) evolveInputs(pop []eval.Assignment) []eval.Assignment {
	next := make([]eval.Assignment, 0, len(pop))
	//
	for len(next) < len(pop) {
		var (
			p1    = e.tournamentInput(pop)
			p2    = e.tournamentInput(pop)
			child eval.Assignment
		)
		//
		if e.rng.Float64() < e.cfg.InputGenerationCrossoverRate {
			if e.rng.Intn(2) == 0 {
				child = e.singlePointCrossover(p1, p2)
			} else {
				child = e.uniformCrossover(p1, p2)
			}
		} else {
			child = p1.Clone()
		}
		//
		if e.rng.Float64() < e.cfg.InputGenerationMutationRate {
			if e.rng.Float64() < e.cfg.InputGenerationSinglepointMutationRate {
				if len(e.inputs) > 0 {
					n := e.inputs[e.rng.Intn(len(e.inputs))]
					child[n] = e.drawInputValue()
				}
			} else {
				child = e.randomInput()
			}
		}
		//
		next = append(next, child)
	}
	// Scores of the previous generation no longer describe the new one.
	e.inputScores = make([]*big.Int, len(next))
	//
	return next
}

func (e *Engine) tournamentInput(pop []eval.Assignment) eval.Assignment {
	var (
		i = e.rng.Intn(len(pop))
		j = e.rng.Intn(len(pop))
	)
	//
	si, sj := e.inputScores[i], e.inputScores[j]
	//
	switch {
	case si == nil:
		return pop[j]
	case sj == nil:
		return pop[i]
	case si.Cmp(sj) >= 0:
		return pop[i]
	default:
		return pop[j]
	}
}

func (e *Engine) singlePointCrossover(p1, p2 eval.Assignment) eval.Assignment {
	var (
		child = make(eval.Assignment, len(e.inputs))
		cut   = e.rng.Intn(len(e.inputs) + 1)
	)
	//
	for i, n := range e.inputs {
		if i < cut {
			child[n] = p1[n]
		} else {
			child[n] = p2[n]
		}
	}
	//
	return child
}

func (e *Engine) uniformCrossover(p1, p2 eval.Assignment) eval.Assignment {
	child := make(eval.Assignment, len(e.inputs))
	//
	for _, n := range e.inputs {
		if e.rng.Intn(2) == 0 {
			child[n] = p1[n]
		} else {
			child[n] = p2[n]
		}
	}
	//
	return child
}
