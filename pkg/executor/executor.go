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

// Package executor walks the circuit AST and produces, per reachable path,
// a finalized symbolic state carrying the value map, the trace constraints
// T(P) and the side constraints S(C).
package executor

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	log "github.com/sirupsen/logrus"

	"github.com/Koukyosyumei/zkFuzz/pkg/ast"
	"github.com/Koukyosyumei/zkFuzz/pkg/symbolic"
	"github.com/Koukyosyumei/zkFuzz/pkg/util/stack"
)

// MainOwner is the instance path of the main component.
const MainOwner = "main"

type frameKind uint8

const (
	blockFrame frameKind = iota
	loopFrame
)

// frame is one continuation on a task's explicit stack: a statement list
// with a program counter, or a loop head re-evaluated on every visit.
type frame struct {
	kind  frameKind
	owner string
	depth uint
	body  []ast.Stmt
	pc    int
	// loop-only fields
	cond  ast.Expr
	step  ast.Stmt
	iters uint
}

// instance tracks a component whose body execution is deferred until every
// input signal has been connected.
type instance struct {
	template    string
	owner       string
	depth       uint
	pending     map[symbolic.Name]bool
	executed    bool
	whitelisted bool
}

func (c *instance) clone() *instance {
	n := &instance{
		template:    c.template,
		owner:       c.owner,
		depth:       c.depth,
		pending:     make(map[symbolic.Name]bool, len(c.pending)),
		executed:    c.executed,
		whitelisted: c.whitelisted,
	}
	//
	for k := range c.pending {
		n.pending[k] = true
	}
	//
	return n
}

// task pairs a symbolic state with its remaining program.  Branching clones
// the whole task, so no mutable structure is shared between paths.
type task struct {
	state     *symbolic.State
	frames    []frame
	instances map[string]*instance
}

func (t *task) clone() *task {
	n := &task{
		state:     t.state.Clone(),
		frames:    make([]frame, len(t.frames)),
		instances: make(map[string]*instance, len(t.instances)),
	}
	//
	copy(n.frames, t.frames)
	//
	for k, v := range t.instances {
		n.instances[k] = v.clone()
	}
	//
	return n
}

func (t *task) top() *frame {
	return &t.frames[len(t.frames)-1]
}

func (t *task) push(f frame) {
	t.frames = append(t.frames, f)
}

func (t *task) pop() {
	t.frames = t.frames[:len(t.frames)-1]
}

// Executor symbolically interprets a circuit.
type Executor struct {
	circuit *ast.Circuit
	setting Setting
	arena   *symbolic.Arena
	// finals are the finalized states, deduplicated by their
	// (values, side constraints) key.
	finals    []*symbolic.State
	finalKeys map[string]bool
	warnings  []Warning
	// signals records the declared kind of every flattened signal name.
	signals map[symbolic.Name]ast.SignalKind
	inputs  []symbolic.Name
	outputs []symbolic.Name
	// coverage has one pair of bits per if statement (else/then).
	coverage *bitset.BitSet
	branchID map[ast.Stmt]uint
}

// New constructs an executor for the given circuit.
func New(circuit *ast.Circuit, setting Setting) *Executor {
	return &Executor{
		circuit:   circuit,
		setting:   setting,
		arena:     symbolic.NewArena(setting.Field),
		finalKeys: make(map[string]bool),
		signals:   make(map[symbolic.Name]ast.SignalKind),
		coverage:  bitset.New(64),
		branchID:  make(map[ast.Stmt]uint),
	}
}

// Arena returns the expression arena shared by all states of this run.
func (e *Executor) Arena() *symbolic.Arena {
	return e.arena
}

// Warnings returns the analyzer limitations encountered so far.
func (e *Executor) Warnings() []Warning {
	return e.warnings
}

// InputSignals returns the flattened input signals of the main component.
func (e *Executor) InputSignals() []symbolic.Name {
	return e.inputs
}

// OutputSignals returns the flattened output signals of the main component.
func (e *Executor) OutputSignals() []symbolic.Name {
	return e.outputs
}

// CoverageCount returns the number of branch directions exercised across all
// executions so far.
func (e *Executor) CoverageCount() uint {
	return e.coverage.Count()
}

// Execute interprets the main component and returns every finalized state.
// Data-driven faults surface as warnings or tainted states, never as errors;
// the error return covers malformed circuits only.
func (e *Executor) Execute() ([]*symbolic.State, error) {
	tmpl, ok := e.circuit.Templates[e.circuit.Main]
	if !ok {
		return nil, fmt.Errorf("main template %q not found", e.circuit.Main)
	}
	//
	root := &task{
		state:     symbolic.NewState(MainOwner),
		instances: make(map[string]*instance),
	}
	// Bind main template parameters, concretely by default or as fresh free
	// variables under --symbolic_template_params.
	if err := e.bindParams(root, MainOwner, MainOwner, tmpl, e.circuit.MainArgs, e.setting.SymbolicTemplateParams); err != nil {
		return nil, err
	}
	//
	if err := e.prescan(root, MainOwner, tmpl, true); err != nil {
		return nil, err
	}
	//
	root.push(frame{kind: blockFrame, owner: MainOwner, body: tmpl.Body})
	// Depth-first over an explicit work list; language-level recursion depth
	// stays constant regardless of circuit depth.
	worklist := stack.New[*task]()
	worklist.Push(root)
	//
	for !worklist.IsEmpty() {
		t := worklist.Pop()
		worklist.PushAll(e.step(t))
	}
	//
	return e.finals, nil
}

// step advances a task by one statement (or frame transition), returning its
// successor tasks.  An empty result means the task finalized or was
// abandoned.
func (e *Executor) step(t *task) []*task {
	// Unwind completed frames.
	for len(t.frames) > 0 {
		f := t.top()
		if f.kind == loopFrame {
			return e.stepLoop(t)
		}
		//
		if f.pc < len(f.body) {
			break
		}
		//
		t.pop()
	}
	//
	if len(t.frames) == 0 {
		e.finalize(t)
		return nil
	}
	//
	f := t.top()
	stmt := f.body[f.pc]
	f.pc++
	//
	return e.exec(t, f.owner, f.depth, stmt)
}

func (e *Executor) exec(t *task, owner string, depth uint, stmt ast.Stmt) []*task {
	switch st := stmt.(type) {
	case *ast.SignalDecl:
		// Signals were materialized during the owning template's prescan.
		return []*task{t}
	case *ast.VarDecl:
		return e.execVarDecl(t, owner, st)
	case *ast.Assign:
		return e.execAssign(t, owner, st)
	case *ast.WitnessHint:
		return e.execHint(t, owner, st)
	case *ast.EqualityConstraint:
		return e.execEquality(t, owner, st)
	case *ast.Component:
		return e.execComponent(t, owner, depth, st)
	case *ast.If:
		return e.execIf(t, owner, depth, st)
	case *ast.For:
		return e.execFor(t, owner, depth, st)
	case *ast.Assert:
		return e.execAssert(t, owner, st)
	default:
		return e.abandon(t, UnsupportedNode, owner, fmt.Sprintf("statement %T outside the analyzable core", stmt))
	}
}

// abandon drops the current path, recording a structured warning.  Analysis
// continues on the remaining paths.
func (e *Executor) abandon(t *task, kind WarningKind, owner, msg string) []*task {
	w := Warning{Kind: kind, Owner: owner, Message: msg}
	e.warnings = append(e.warnings, w)
	//
	log.Warnf("%s: %s (%s)", kind, msg, owner)
	//
	return nil
}

// ============================================================================
// Statements
// ============================================================================

func (e *Executor) execVarDecl(t *task, owner string, st *ast.VarDecl) []*task {
	name := symbolic.Qualify(owner, st.Name)
	// Array variables materialize lazily on indexed access.
	if len(st.Dims) > 0 {
		return []*task{t}
	}
	//
	if st.Init != nil {
		v, err := e.eval(t, owner, nil, st.Init)
		if err != nil {
			return e.abandon(t, UnsupportedNode, owner, err.Error())
		}
		//
		t.state.Bind(name, e.arena.Simplify(v))
	}
	//
	return []*task{t}
}

func (e *Executor) execAssign(t *task, owner string, st *ast.Assign) []*task {
	name, err := e.resolveName(t, owner, nil, st.Target)
	if err != nil {
		return e.abandon(t, UnsupportedNode, owner, err.Error())
	}
	//
	if _, isSignal := e.signals[name]; isSignal {
		return e.abandon(t, UnsupportedNode, owner,
			fmt.Sprintf("plain assignment to signal %s", name))
	}
	//
	rhs, err := e.eval(t, owner, nil, st.Rhs)
	if err != nil {
		return e.abandon(t, UnsupportedNode, owner, err.Error())
	}
	// Re-assignment of a variable overwrites.
	t.state.Bind(name, e.arena.Simplify(rhs))
	//
	return []*task{t}
}

func (e *Executor) execHint(t *task, owner string, st *ast.WitnessHint) []*task {
	rhs, err := e.eval(t, owner, nil, st.Rhs)
	if err != nil {
		return e.abandon(t, UnsupportedNode, owner, err.Error())
	}
	//
	rhs = e.arena.Simplify(rhs)
	//
	name, err := e.resolveName(t, owner, nil, st.Target)
	if err != nil {
		// A hint whose left-hand side is not a unique signal does not
		// propagate; record the limitation and continue on this path.
		e.warnings = append(e.warnings, Warning{
			Kind: NonUniqueHintTarget, Owner: owner, Message: err.Error(),
		})
		//
		return []*task{t}
	}
	//
	if err := e.assignSignal(t, name, rhs, false); err != nil {
		return e.abandon(t, UnsupportedNode, owner, err.Error())
	}
	//
	return e.afterConnection(t, name)
}

func (e *Executor) execEquality(t *task, owner string, st *ast.EqualityConstraint) []*task {
	rhs, err := e.eval(t, owner, nil, st.Rhs)
	if err != nil {
		return e.abandon(t, UnsupportedNode, owner, err.Error())
	}
	//
	rhs = e.arena.Simplify(rhs)
	// Both <== and a === with a bare unassigned signal on the left assign
	// the value; a general === merely records the equality.
	if name, err := e.resolveName(t, owner, nil, st.Lhs); err == nil {
		if _, isSignal := e.signals[name]; isSignal && !t.state.Assigned(name) {
			if err := e.assignSignal(t, name, rhs, true); err != nil {
				return e.abandon(t, UnsupportedNode, owner, err.Error())
			}
			//
			return e.afterConnection(t, name)
		} else if isSignal && st.Assign {
			return e.abandon(t, UnsupportedNode, owner,
				fmt.Sprintf("signal %s assigned twice", name))
		}
	} else if st.Assign {
		return e.abandon(t, UnsupportedNode, owner, err.Error())
	}
	//
	lhs, err := e.eval(t, owner, nil, st.Lhs)
	if err != nil {
		return e.abandon(t, UnsupportedNode, owner, err.Error())
	}
	//
	eq := e.arena.Simplify(e.arena.Binary(symbolic.EQ, lhs, rhs))
	t.state.PushBoth(eq)
	e.taint(t, eq)
	//
	return []*task{t}
}

// assignSignal binds a signal value and records the entailed equality: on
// the trace only for hints, on both constraint sets for <== and ===.
func (e *Executor) assignSignal(t *task, name symbolic.Name, rhs symbolic.ExprID, constrained bool) error {
	if _, ok := e.signals[name]; !ok {
		return fmt.Errorf("assignment to undeclared signal %s", name)
	}
	//
	if err := t.state.BindSignal(name, rhs); err != nil {
		return err
	}
	//
	eq := e.arena.Binary(symbolic.EQ, e.arena.Signal(name), rhs)
	//
	if constrained {
		t.state.PushBoth(eq)
	} else {
		t.state.PushTrace(symbolic.Constraint{Expr: eq, Kind: symbolic.HINT})
	}
	//
	e.taint(t, eq)
	//
	return nil
}

// taint marks the state unsatisfiable when the expression divides by a
// constant zero.  Tainted states are retained for reporting but excluded
// from the search target.
func (e *Executor) taint(t *task, expr symbolic.ExprID) {
	if !t.state.Unsatisfiable && e.arena.HasZeroDivision(expr) {
		t.state.Unsatisfiable = true
	}
}

// afterConnection fires a deferred component body once its last input was
// connected.
func (e *Executor) afterConnection(t *task, name symbolic.Name) []*task {
	inst, ok := t.instances[name.Owner()]
	if !ok {
		return []*task{t}
	}
	//
	delete(inst.pending, name)
	//
	if len(inst.pending) > 0 || inst.executed || inst.whitelisted {
		return []*task{t}
	}
	//
	inst.executed = true
	tmpl := e.circuit.Templates[inst.template]
	t.push(frame{kind: blockFrame, owner: inst.owner, depth: inst.depth, body: tmpl.Body})
	//
	return []*task{t}
}

func (e *Executor) execComponent(t *task, owner string, depth uint, st *ast.Component) []*task {
	if depth+1 > e.setting.MaxDepth {
		return e.abandon(t, DepthExceeded, owner,
			fmt.Sprintf("component %s exceeds inlining depth %d", st.Name, e.setting.MaxDepth))
	}
	//
	tmpl, ok := e.circuit.Templates[st.Template]
	if !ok {
		return e.abandon(t, UnsupportedNode, owner,
			fmt.Sprintf("unknown template %s", st.Template))
	}
	//
	owners, err := e.instanceOwners(t, owner, st)
	if err != nil {
		return e.abandon(t, UnsupportedNode, owner, err.Error())
	}
	//
	for _, childOwner := range owners {
		inst := &instance{
			template:    st.Template,
			owner:       childOwner,
			depth:       depth + 1,
			pending:     make(map[symbolic.Name]bool),
			whitelisted: e.setting.Whitelist[st.Template],
		}
		//
		if err := e.bindParams(t, owner, childOwner, tmpl, st.Args, false); err != nil {
			return e.abandon(t, UnsupportedNode, owner, err.Error())
		}
		//
		if err := e.prescanInstance(t, childOwner, tmpl, inst); err != nil {
			return e.abandon(t, UnsupportedNode, owner, err.Error())
		}
		//
		t.instances[childOwner] = inst
		// A component without inputs runs immediately.
		if len(inst.pending) == 0 && !inst.whitelisted {
			inst.executed = true
			t.push(frame{kind: blockFrame, owner: childOwner, depth: inst.depth, body: tmpl.Body})
		}
	}
	//
	return []*task{t}
}

func (e *Executor) execIf(t *task, owner string, depth uint, st *ast.If) []*task {
	cond, err := e.eval(t, owner, nil, st.Cond)
	if err != nil {
		return e.abandon(t, UnsupportedNode, owner, err.Error())
	}
	//
	cond = e.arena.Simplify(cond)
	//
	if e.arena.IsConst(cond) {
		taken := e.arena.Value(cond).Sign() != 0
		e.cover(st, taken)
		//
		body := st.Then
		if !taken {
			body = st.Else
		}
		//
		if len(body) > 0 {
			t.push(frame{kind: blockFrame, owner: owner, depth: depth, body: body})
		}
		//
		return []*task{t}
	}
	// Symbolic condition: fork, guarding each path by the branch condition
	// it committed to.
	other := t.clone()
	//
	e.cover(st, true)
	e.cover(st, false)
	//
	succ := make([]*task, 0, 2)
	//
	thenGuard := e.arena.Simplify(e.arena.Binary(symbolic.EQ, cond, e.arena.One()))
	t.state.PushTrace(symbolic.Constraint{Expr: thenGuard, Kind: symbolic.GUARD})
	//
	if len(st.Then) > 0 {
		t.push(frame{kind: blockFrame, owner: owner, depth: depth, body: st.Then})
	}
	//
	elseGuard := e.arena.Simplify(e.arena.Binary(symbolic.EQ, cond, e.arena.Zero()))
	other.state.PushTrace(symbolic.Constraint{Expr: elseGuard, Kind: symbolic.GUARD})
	//
	if len(st.Else) > 0 {
		other.push(frame{kind: blockFrame, owner: owner, depth: depth, body: st.Else})
	}
	// The else path is pushed first so the then path is explored first.
	succ = append(succ, other, t)
	//
	return succ
}

func (e *Executor) execFor(t *task, owner string, depth uint, st *ast.For) []*task {
	if st.Init != nil {
		succ := e.exec(t, owner, depth, st.Init)
		if len(succ) != 1 || succ[0] != t {
			// Loop initializers are plain declarations or assignments.
			return e.abandon(t, UnsupportedNode, owner, "unsupported loop initializer")
		}
	}
	//
	t.push(frame{
		kind:  loopFrame,
		owner: owner,
		depth: depth,
		body:  st.Body,
		cond:  st.Cond,
		step:  st.Step,
	})
	//
	return []*task{t}
}

// stepLoop re-evaluates a loop head.  Loops unroll while the condition stays
// concrete; a condition containing free symbols is out of the analyzable
// core.
func (e *Executor) stepLoop(t *task) []*task {
	f := t.top()
	//
	cond, err := e.eval(t, f.owner, nil, f.cond)
	if err != nil {
		return e.abandon(t, UnsupportedNode, f.owner, err.Error())
	}
	//
	cond = e.arena.Simplify(cond)
	//
	if !e.arena.IsConst(cond) {
		return e.abandon(t, SymbolicLoopBound, f.owner,
			fmt.Sprintf("loop bound %s never becomes concrete", e.arena.String(cond)))
	}
	//
	if e.arena.Value(cond).Sign() == 0 {
		t.pop()
		return []*task{t}
	}
	//
	f.iters++
	if f.iters > e.setting.MaxLoopIterations {
		return e.abandon(t, SymbolicLoopBound, f.owner,
			fmt.Sprintf("loop exceeded %d unrolled iterations", e.setting.MaxLoopIterations))
	}
	// One iteration: body then step, after which control returns here.
	body := f.body
	if f.step != nil {
		body = append(append([]ast.Stmt{}, f.body...), f.step)
	}
	//
	t.push(frame{kind: blockFrame, owner: f.owner, depth: f.depth, body: body})
	//
	return []*task{t}
}

func (e *Executor) execAssert(t *task, owner string, st *ast.Assert) []*task {
	cond, err := e.eval(t, owner, nil, st.Cond)
	if err != nil {
		return e.abandon(t, UnsupportedNode, owner, err.Error())
	}
	//
	cond = e.arena.Simplify(cond)
	eq := e.arena.Simplify(e.arena.Binary(symbolic.EQ, cond, e.arena.One()))
	t.state.PushTrace(symbolic.Constraint{Expr: eq, Kind: symbolic.ASSERTION})
	e.taint(t, eq)
	//
	return []*task{t}
}

// ============================================================================
// Finalization & coverage
// ============================================================================

func (e *Executor) finalize(t *task) {
	key := t.state.Key(e.arena)
	if e.finalKeys[key] {
		return
	}
	//
	e.finalKeys[key] = true
	e.finals = append(e.finals, t.state)
	//
	log.Debugf("finalized state %d: |trace|=%d |side|=%d compression=%.2f unsat=%v",
		len(e.finals), len(t.state.Trace), len(t.state.Side),
		t.state.CompressionRate(), t.state.Unsatisfiable)
}

func (e *Executor) cover(st ast.Stmt, taken bool) {
	id, ok := e.branchID[st]
	if !ok {
		id = uint(len(e.branchID))
		e.branchID[st] = id
	}
	//
	bit := 2 * id
	if taken {
		bit++
	}
	//
	e.coverage.Set(bit)
}
