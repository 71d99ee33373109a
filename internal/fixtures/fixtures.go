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

// Package fixtures provides hand-built circuit ASTs exercising the
// well-known trace/constraint failure classes, shared across test suites.
package fixtures

import (
	"math/big"

	"github.com/Koukyosyumei/zkFuzz/pkg/ast"
)

// ============================================================================
// AST construction helpers
// ============================================================================

// Num builds an integer literal.
func Num(v int64) ast.Expr { return &ast.Number{Value: big.NewInt(v)} }

// Id builds an identifier reference.
func Id(name string) ast.Expr { return &ast.Ident{Name: name} }

// Idx builds an array access with a literal index.
func Idx(base string, i int64) ast.Expr {
	return &ast.Index{Base: Id(base), Index: Num(i)}
}

// Mem builds a component signal access.
func Mem(comp, sig string) ast.Expr {
	return &ast.Member{Base: Id(comp), Name: sig}
}

// Bin builds an infix application.
func Bin(op ast.InfixOp, l, r ast.Expr) ast.Expr {
	return &ast.Infix{Op: op, Lhs: l, Rhs: r}
}

// Helpers for the common operators.
func Add(l, r ast.Expr) ast.Expr { return Bin(ast.OpAdd, l, r) }
func Sub(l, r ast.Expr) ast.Expr { return Bin(ast.OpSub, l, r) }
func Mul(l, r ast.Expr) ast.Expr { return Bin(ast.OpMul, l, r) }
func Div(l, r ast.Expr) ast.Expr { return Bin(ast.OpDiv, l, r) }
func NEq(l, r ast.Expr) ast.Expr { return Bin(ast.OpNEq, l, r) }
func Lt(l, r ast.Expr) ast.Expr  { return Bin(ast.OpLt, l, r) }
func GEq(l, r ast.Expr) ast.Expr { return Bin(ast.OpGEq, l, r) }
func Gt(l, r ast.Expr) ast.Expr  { return Bin(ast.OpGt, l, r) }

// Neg builds a unary negation.
func Neg(x ast.Expr) ast.Expr { return &ast.Prefix{Op: ast.OpNeg, X: x} }

// Tern builds a conditional expression.
func Tern(c, a, b ast.Expr) ast.Expr { return &ast.Ternary{Cond: c, Then: a, Else: b} }

// In declares an input signal.
func In(name string, dims ...ast.Expr) ast.Stmt {
	return &ast.SignalDecl{Name: name, Kind: ast.INPUT, Dims: dims}
}

// Out declares an output signal.
func Out(name string, dims ...ast.Expr) ast.Stmt {
	return &ast.SignalDecl{Name: name, Kind: ast.OUTPUT, Dims: dims}
}

// Inter declares an intermediate signal.
func Inter(name string, dims ...ast.Expr) ast.Stmt {
	return &ast.SignalDecl{Name: name, Kind: ast.INTERMEDIATE, Dims: dims}
}

// Hint builds a witness hint target <-- rhs.
func Hint(target ast.Expr, rhs ast.Expr) ast.Stmt {
	return &ast.WitnessHint{Target: target, Rhs: rhs}
}

// CAssign builds the constraining assignment target <== rhs.
func CAssign(target ast.Expr, rhs ast.Expr) ast.Stmt {
	return &ast.EqualityConstraint{Lhs: target, Rhs: rhs, Assign: true}
}

// CEq builds the bare equality lhs === rhs.
func CEq(lhs, rhs ast.Expr) ast.Stmt {
	return &ast.EqualityConstraint{Lhs: lhs, Rhs: rhs}
}

// ============================================================================
// Circuits
// ============================================================================

// IsZeroSafe is the classic well-constrained IsZero: the inverse hint is
// branch-split on in != 0 and the result is pinned by in*out === 0.
func IsZeroSafe() *ast.Circuit {
	c := ast.NewCircuit()
	//
	c.AddTemplate(&ast.Template{
		Name: "IsZero",
		Body: []ast.Stmt{
			In("in"),
			Out("out"),
			Inter("inv"),
			&ast.If{
				Cond: NEq(Id("in"), Num(0)),
				Then: []ast.Stmt{Hint(Id("inv"), Div(Num(1), Id("in")))},
				Else: []ast.Stmt{Hint(Id("inv"), Num(0))},
			},
			CAssign(Id("out"), Add(Mul(Neg(Id("in")), Id("inv")), Num(1))),
			CEq(Mul(Id("in"), Id("out")), Num(0)),
		},
	})
	//
	c.SetMain("IsZero")
	//
	return c
}

// IsZeroVulnerable drops the in*out === 0 side constraint, leaving the
// inverse hint unconstrained: mutating it yields a second witness.
func IsZeroVulnerable() *ast.Circuit {
	c := ast.NewCircuit()
	//
	c.AddTemplate(&ast.Template{
		Name: "IsZero",
		Body: []ast.Stmt{
			In("in"),
			Out("out"),
			Inter("inv"),
			Hint(Id("inv"), Tern(NEq(Id("in"), Num(0)), Div(Num(1), Id("in")), Num(0))),
			CAssign(Id("out"), Add(Mul(Neg(Id("in")), Id("inv")), Num(1))),
		},
	})
	//
	c.SetMain("IsZero")
	//
	return c
}

// LessThan8 compares two inputs assumed to fit eight bits.  The domain
// assumption lives in trace-only assertions, so an input near the modulus
// makes the witness generator abort while the side constraints still accept
// a witness computed on the wrapped-around signed representative.
func LessThan8() *ast.Circuit {
	c := ast.NewCircuit()
	//
	c.AddTemplate(&ast.Template{
		Name: "LessThan",
		Body: []ast.Stmt{
			In("in", Num(2)),
			Out("out"),
			&ast.Assert{Cond: GEq(Idx("in", 0), Num(0))},
			&ast.Assert{Cond: Lt(Idx("in", 0), Num(256))},
			&ast.Assert{Cond: GEq(Idx("in", 1), Num(0))},
			&ast.Assert{Cond: Lt(Idx("in", 1), Num(256))},
			Hint(Id("out"), Tern(Lt(Idx("in", 0), Idx("in", 1)), Num(1), Num(0))),
			CEq(Mul(Id("out"), Sub(Num(1), Id("out"))), Num(0)),
		},
	})
	//
	c.SetMain("LessThan")
	//
	return c
}

// PolynomialIdentity pins an output to a polynomial which is identically
// zero in any commutative ring; no assignment can tell trace and side
// constraints apart.
func PolynomialIdentity() *ast.Circuit {
	var (
		c  = ast.NewCircuit()
		ab = Add(Id("a"), Id("b"))
	)
	//
	c.AddTemplate(&ast.Template{
		Name: "Identity",
		Body: []ast.Stmt{
			In("a"),
			In("b"),
			Out("out"),
			CEq(Id("out"),
				Sub(
					Add(Mul(Id("a"), Id("a")),
						Add(Mul(Num(2), Mul(Id("a"), Id("b"))), Mul(Id("b"), Id("b")))),
					Mul(ab, ab))),
		},
	})
	//
	c.SetMain("Identity")
	//
	return c
}

// OverConstrained pins a hinted signal to a different constant than its
// side constraint demands.
func OverConstrained() *ast.Circuit {
	c := ast.NewCircuit()
	//
	c.AddTemplate(&ast.Template{
		Name: "Conflict",
		Body: []ast.Stmt{
			Out("x"),
			Hint(Id("x"), Num(3)),
			CEq(Id("x"), Num(4)),
		},
	})
	//
	c.SetMain("Conflict")
	//
	return c
}

// Recursive chains len copies of itself, adding one per level.  Under
// symbolic template parameters every reachable recursion depth finalizes as
// its own state.
func Recursive() *ast.Circuit {
	c := ast.NewCircuit()
	//
	c.AddTemplate(&ast.Template{
		Name:   "Recursive",
		Params: []string{"len"},
		Body: []ast.Stmt{
			In("in"),
			Out("out"),
			&ast.If{
				Cond: Gt(Id("len"), Num(0)),
				Then: []ast.Stmt{
					&ast.Component{Name: "sub", Template: "Recursive",
						Args: []ast.Expr{Sub(Id("len"), Num(1))}},
					CAssign(Mem("sub", "in"), Id("in")),
					CAssign(Id("out"), Add(Mem("sub", "out"), Num(1))),
				},
				Else: []ast.Stmt{
					CAssign(Id("out"), Id("in")),
				},
			},
		},
	})
	//
	c.SetMain("Recursive", Num(2))
	//
	return c
}

// Sum3 adds three inputs through a chain of two-input adders, exercising
// component arrays and connections between component instances.
func Sum3() *ast.Circuit {
	c := ast.NewCircuit()
	//
	c.AddTemplate(&ast.Template{
		Name: "Add2",
		Body: []ast.Stmt{
			In("a"),
			In("b"),
			Out("c"),
			CAssign(Id("c"), Add(Id("a"), Id("b"))),
		},
	})
	//
	c.AddTemplate(&ast.Template{
		Name: "Sum3",
		Body: []ast.Stmt{
			In("in", Num(3)),
			Out("out"),
			&ast.Component{Name: "adders", Dims: []ast.Expr{Num(2)}, Template: "Add2"},
			CAssign(&ast.Member{Base: Idx("adders", 0), Name: "a"}, Idx("in", 0)),
			CAssign(&ast.Member{Base: Idx("adders", 0), Name: "b"}, Idx("in", 1)),
			CAssign(&ast.Member{Base: Idx("adders", 1), Name: "a"},
				&ast.Member{Base: Idx("adders", 0), Name: "c"}),
			CAssign(&ast.Member{Base: Idx("adders", 1), Name: "b"}, Idx("in", 2)),
			CAssign(Id("out"), &ast.Member{Base: Idx("adders", 1), Name: "c"}),
		},
	})
	//
	c.SetMain("Sum3")
	//
	return c
}
