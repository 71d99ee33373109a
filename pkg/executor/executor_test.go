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
package executor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Koukyosyumei/zkFuzz/internal/fixtures"
	"github.com/Koukyosyumei/zkFuzz/pkg/ast"
	"github.com/Koukyosyumei/zkFuzz/pkg/eval"
	"github.com/Koukyosyumei/zkFuzz/pkg/field"
	"github.com/Koukyosyumei/zkFuzz/pkg/symbolic"
)

func testField(t *testing.T) *field.Field {
	t.Helper()
	//
	f, err := field.New(big.NewInt(101))
	require.NoError(t, err)
	//
	return f
}

func execute(t *testing.T, c *ast.Circuit, setting Setting) (*Executor, []*symbolic.State) {
	t.Helper()
	//
	exe := New(c, setting)
	states, err := exe.Execute()
	require.NoError(t, err)
	//
	return exe, states
}

func TestIsZeroSafeForksTwoStates(t *testing.T) {
	exe, states := execute(t, fixtures.IsZeroSafe(), DefaultSetting(testField(t)))
	//
	require.Len(t, states, 2)
	//
	for _, s := range states {
		assert.False(t, s.Unsatisfiable)
		// Three signals, all present in the value map before finalization.
		for _, name := range []symbolic.Name{"main.in", "main.out", "main.inv"} {
			_, ok := s.Get(name)
			assert.True(t, ok, "missing %s", name)
		}
		// <== and === contribute the side constraints; the hint does not.
		assert.Len(t, s.Side, 2)
	}
	//
	assert.Equal(t, []symbolic.Name{"main.in"}, exe.InputSignals())
	assert.Equal(t, []symbolic.Name{"main.out"}, exe.OutputSignals())
}

func TestSideConstraintsAreSubsetOfTrace(t *testing.T) {
	for _, circuit := range []*ast.Circuit{
		fixtures.IsZeroSafe(),
		fixtures.LessThan8(),
		fixtures.Sum3(),
		fixtures.PolynomialIdentity(),
	} {
		_, states := execute(t, circuit, DefaultSetting(testField(t)))
		//
		for _, s := range states {
			inTrace := make(map[symbolic.ExprID]bool)
			for _, c := range s.Trace {
				inTrace[c.Expr] = true
			}
			//
			for _, c := range s.Side {
				assert.True(t, inTrace[c.Expr], "side constraint missing from trace")
			}
		}
	}
}

func TestTraceSelfConsistent(t *testing.T) {
	// For a branch-free circuit, emulating the trace from fresh inputs must
	// satisfy every trace constraint.
	exe, states := execute(t, fixtures.Sum3(), DefaultSetting(testField(t)))
	require.Len(t, states, 1)
	//
	var (
		s     = states[0]
		sigma = eval.Assignment{
			"main.in[0]": big.NewInt(7),
			"main.in[1]": big.NewInt(11),
			"main.in[2]": big.NewInt(13),
		}
	)
	//
	ok, _ := eval.EmulateTrace(exe.Arena(), exe.Arena().Field(), s.Trace, sigma)
	assert.True(t, ok)
	//
	sum, unsat := eval.Total(exe.Arena(), exe.Arena().Field(), s.Trace, sigma)
	assert.Zero(t, sum.Sign())
	assert.Zero(t, unsat)
	// 7 + 11 + 13
	assert.Equal(t, int64(31), sigma["main.out"].Int64())
}

func TestLoopUnrolling(t *testing.T) {
	// out <== in * 2^4, computed by a counted loop over a variable.
	c := ast.NewCircuit()
	c.AddTemplate(&ast.Template{
		Name: "Double4",
		Body: []ast.Stmt{
			fixtures.In("in"),
			fixtures.Out("out"),
			&ast.VarDecl{Name: "acc", Init: fixtures.Id("in")},
			&ast.For{
				Init: &ast.VarDecl{Name: "i", Init: fixtures.Num(0)},
				Cond: fixtures.Lt(fixtures.Id("i"), fixtures.Num(4)),
				Step: &ast.Assign{Target: fixtures.Id("i"),
					Rhs: fixtures.Add(fixtures.Id("i"), fixtures.Num(1))},
				Body: []ast.Stmt{
					&ast.Assign{Target: fixtures.Id("acc"),
						Rhs: fixtures.Add(fixtures.Id("acc"), fixtures.Id("acc"))},
				},
			},
			fixtures.CAssign(fixtures.Id("out"), fixtures.Id("acc")),
		},
	})
	c.SetMain("Double4")
	//
	exe, states := execute(t, c, DefaultSetting(testField(t)))
	require.Len(t, states, 1)
	//
	sigma := eval.Assignment{"main.in": big.NewInt(3)}
	ok, _ := eval.EmulateTrace(exe.Arena(), exe.Arena().Field(), states[0].Trace, sigma)
	require.True(t, ok)
	// 3 * 16 = 48
	assert.Equal(t, int64(48), sigma["main.out"].Int64())
}

func TestSymbolicLoopBoundRejected(t *testing.T) {
	// A loop bounded by an input signal is outside the analyzable core.
	c := ast.NewCircuit()
	c.AddTemplate(&ast.Template{
		Name: "Unbounded",
		Body: []ast.Stmt{
			fixtures.In("n"),
			fixtures.Out("out"),
			&ast.For{
				Init: &ast.VarDecl{Name: "i", Init: fixtures.Num(0)},
				Cond: fixtures.Lt(fixtures.Id("i"), fixtures.Id("n")),
				Step: &ast.Assign{Target: fixtures.Id("i"),
					Rhs: fixtures.Add(fixtures.Id("i"), fixtures.Num(1))},
				Body: []ast.Stmt{},
			},
			fixtures.CAssign(fixtures.Id("out"), fixtures.Num(0)),
		},
	})
	c.SetMain("Unbounded")
	//
	exe, states := execute(t, c, DefaultSetting(testField(t)))
	//
	assert.Empty(t, states)
	require.NotEmpty(t, exe.Warnings())
	assert.Equal(t, SymbolicLoopBound, exe.Warnings()[0].Kind)
}

func TestSignalReassignmentAbandonsPath(t *testing.T) {
	c := ast.NewCircuit()
	c.AddTemplate(&ast.Template{
		Name: "Twice",
		Body: []ast.Stmt{
			fixtures.Out("x"),
			fixtures.Hint(fixtures.Id("x"), fixtures.Num(1)),
			fixtures.Hint(fixtures.Id("x"), fixtures.Num(2)),
		},
	})
	c.SetMain("Twice")
	//
	exe, states := execute(t, c, DefaultSetting(testField(t)))
	//
	assert.Empty(t, states)
	assert.NotEmpty(t, exe.Warnings())
}

func TestZeroDivisionTaintsState(t *testing.T) {
	c := ast.NewCircuit()
	c.AddTemplate(&ast.Template{
		Name: "BadDiv",
		Body: []ast.Stmt{
			fixtures.In("in"),
			fixtures.Out("out"),
			fixtures.Hint(fixtures.Id("out"), fixtures.Div(fixtures.Id("in"), fixtures.Num(0))),
		},
	})
	c.SetMain("BadDiv")
	//
	_, states := execute(t, c, DefaultSetting(testField(t)))
	//
	require.Len(t, states, 1)
	assert.True(t, states[0].Unsatisfiable)
}

func TestComponentInlining(t *testing.T) {
	exe, states := execute(t, fixtures.Sum3(), DefaultSetting(testField(t)))
	require.Len(t, states, 1)
	//
	s := states[0]
	// Child signals live under the instance prefix.
	for _, name := range []symbolic.Name{
		"main.adders[0].a", "main.adders[0].c", "main.adders[1].c",
	} {
		_, ok := s.Get(name)
		assert.True(t, ok, "missing %s", name)
	}
	// Every connection is a side constraint as well.
	assert.True(t, len(s.Side) >= 5)
	assert.Equal(t, 3, len(exe.InputSignals()))
}

func TestFunctionCallSubstitution(t *testing.T) {
	// function square(x) { return x * x } wired into out <== square(in).
	c := ast.NewCircuit()
	c.AddFunction(&ast.Function{
		Name:   "square",
		Params: []string{"x"},
		Body: []ast.Stmt{
			&ast.Return{Expr: fixtures.Mul(fixtures.Id("x"), fixtures.Id("x"))},
		},
	})
	c.AddTemplate(&ast.Template{
		Name: "Square",
		Body: []ast.Stmt{
			fixtures.In("in"),
			fixtures.Out("out"),
			fixtures.CAssign(fixtures.Id("out"),
				&ast.Call{Fn: "square", Args: []ast.Expr{fixtures.Id("in")}}),
		},
	})
	c.SetMain("Square")
	//
	exe, states := execute(t, c, DefaultSetting(testField(t)))
	require.Len(t, states, 1)
	//
	sigma := eval.Assignment{"main.in": big.NewInt(9)}
	ok, _ := eval.EmulateTrace(exe.Arena(), exe.Arena().Field(), states[0].Trace, sigma)
	require.True(t, ok)
	// 81 mod 101
	assert.Equal(t, int64(81), sigma["main.out"].Int64())
}

func TestSymbolicTemplateParams(t *testing.T) {
	setting := DefaultSetting(testField(t))
	setting.SymbolicTemplateParams = true
	setting.MaxDepth = 4
	//
	_, states := execute(t, fixtures.Recursive(), setting)
	// One finalized state per reachable recursion depth within the bound.
	require.Len(t, states, int(setting.MaxDepth)+1)
	//
	seen := make(map[int]bool)
	for _, s := range states {
		assert.False(t, seen[len(s.Side)], "two states with identical side size")
		seen[len(s.Side)] = true
	}
}

func TestConcreteTemplateParams(t *testing.T) {
	exe, states := execute(t, fixtures.Recursive(), DefaultSetting(testField(t)))
	// Recursive(2) unrolls deterministically into a single path.
	require.Len(t, states, 1)
	//
	sigma := eval.Assignment{"main.in": big.NewInt(5)}
	ok, _ := eval.EmulateTrace(exe.Arena(), exe.Arena().Field(), states[0].Trace, sigma)
	require.True(t, ok)
	// in + 2
	assert.Equal(t, int64(7), sigma["main.out"].Int64())
}

func TestWhitelistSkipsTemplate(t *testing.T) {
	setting := DefaultSetting(testField(t))
	setting.Whitelist = map[string]bool{"Add2": true}
	//
	_, states := execute(t, fixtures.Sum3(), setting)
	require.Len(t, states, 1)
	// The adder bodies were skipped, so no c <== a + b equalities exist
	// beyond the five connection constraints.
	assert.Len(t, states[0].Side, 5)
}

func TestBranchCoverage(t *testing.T) {
	exe, _ := execute(t, fixtures.IsZeroSafe(), DefaultSetting(testField(t)))
	// One if statement, both directions reached.
	assert.Equal(t, uint(2), exe.CoverageCount())
}
