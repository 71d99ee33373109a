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
package symbolic

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Koukyosyumei/zkFuzz/pkg/field"
)

func newArena(t *testing.T) *Arena {
	t.Helper()
	//
	f, err := field.New(big.NewInt(101))
	require.NoError(t, err)
	//
	return NewArena(f)
}

func TestConstantFolding(t *testing.T) {
	a := newArena(t)
	//
	sum := a.Simplify(a.Binary(ADD, a.ConstInt64(40), a.ConstInt64(2)))
	assert.Equal(t, int64(42), a.Value(sum).Int64())
	//
	prod := a.Simplify(a.Binary(MUL, a.ConstInt64(25), a.ConstInt64(5)))
	assert.Equal(t, int64(24), a.Value(prod).Int64()) // 125 mod 101
	//
	pow := a.Simplify(a.Binary(POW, a.ConstInt64(2), a.ConstInt64(10)))
	assert.Equal(t, int64(14), a.Value(pow).Int64()) // 1024 mod 101
}

func TestIdentities(t *testing.T) {
	var (
		a = newArena(t)
		x = a.Var("main.x")
	)
	//
	assert.Equal(t, x, a.Simplify(a.Binary(ADD, x, a.Zero())))
	assert.Equal(t, x, a.Simplify(a.Binary(MUL, x, a.One())))
	assert.Equal(t, a.Zero(), a.Simplify(a.Binary(MUL, x, a.Zero())))
	assert.Equal(t, a.Zero(), a.Simplify(a.Binary(SUB, x, x)))
	assert.Equal(t, x, a.Simplify(a.Unary(NEG, a.Unary(NEG, x))))
	assert.Equal(t, x, a.Simplify(a.Unary(NOT, a.Unary(NOT, x))))
}

func TestCanonicalSumDetectsEquality(t *testing.T) {
	var (
		a = newArena(t)
		x = a.Var("main.x")
		y = a.Var("main.y")
	)
	// x + y and y + x canonicalize identically.
	s1 := a.Simplify(a.Binary(ADD, x, y))
	s2 := a.Simplify(a.Binary(ADD, y, x))
	assert.Equal(t, s1, s2)
	// (x + y) - y collapses to x.
	s3 := a.Simplify(a.Binary(SUB, a.Binary(ADD, x, y), y))
	assert.Equal(t, x, s3)
	// 2x merges from x + x.
	s4 := a.Simplify(a.Binary(ADD, x, x))
	s5 := a.Simplify(a.Binary(MUL, a.ConstInt64(2), x))
	assert.Equal(t, s5, s4)
}

func TestDivIsNotFolded(t *testing.T) {
	var (
		a = newArena(t)
		x = a.Var("main.x")
	)
	// A symbolic denominator survives untouched.
	d := a.Simplify(a.Binary(DIV, a.One(), x))
	assert.Equal(t, DIV, a.Op(d))
	// A zero denominator is preserved, not folded.
	z := a.Simplify(a.Binary(DIV, x, a.Zero()))
	assert.Equal(t, DIV, a.Op(z))
	assert.True(t, a.HasZeroDivision(z))
	// A non-zero constant denominator with constant numerator folds.
	q := a.Simplify(a.Binary(DIV, a.ConstInt64(10), a.ConstInt64(2)))
	assert.Equal(t, int64(5), a.Value(q).Int64())
}

func TestCondSimplification(t *testing.T) {
	var (
		a = newArena(t)
		x = a.Var("main.x")
		y = a.Var("main.y")
	)
	//
	assert.Equal(t, x, a.Simplify(a.Cond(a.One(), x, y)))
	assert.Equal(t, y, a.Simplify(a.Cond(a.Zero(), x, y)))
	assert.Equal(t, x, a.Simplify(a.Cond(y, x, x)))
}

func TestRelationalUsesSignedOrder(t *testing.T) {
	a := newArena(t)
	// 100 = -1 mod 101, hence -1 < 1 holds.
	lt := a.Simplify(a.Binary(LT, a.ConstInt64(100), a.ConstInt64(1)))
	assert.Equal(t, a.One(), lt)
	//
	gt := a.Simplify(a.Binary(GT, a.ConstInt64(100), a.ConstInt64(1)))
	assert.Equal(t, a.Zero(), gt)
}

func TestSubstitute(t *testing.T) {
	var (
		a = newArena(t)
		x = a.Var("main.x")
		y = a.Signal("main.y")
		e = a.Binary(ADD, a.Binary(MUL, x, y), x)
	)
	//
	r := a.Substitute(e, Substitution{"main.x": a.ConstInt64(3)})
	r = a.Simplify(r)
	// 3y + 3
	free := a.FreeSymbols(r)
	assert.Equal(t, []Name{"main.y"}, free)
	// Substituting nothing preserves identity.
	assert.Equal(t, e, a.Substitute(e, Substitution{}))
}

func TestFreeSymbols(t *testing.T) {
	var (
		a = newArena(t)
		e = a.Binary(ADD,
			a.Binary(MUL, a.Var("main.a"), a.Signal("main.b")),
			a.Cond(a.Var("main.c"), a.ConstInt64(1), a.Var("main.a")))
	)
	//
	assert.Equal(t, []Name{"main.a", "main.b", "main.c"}, a.FreeSymbols(e))
}

// genExpr produces random expression trees over two variables and small
// constants.
func genExpr(a *Arena) gopter.Gen {
	leaves := gen.OneGenOf(
		gen.Int64Range(-5, 5).Map(func(v int64) ExprID { return a.ConstInt64(v) }),
		gen.Const(a.Var("main.x")),
		gen.Const(a.Var("main.y")),
	)
	//
	ops := []Op{ADD, SUB, MUL, EQ, NEQ, LT, AND, OR}
	//
	combine := func(vals []interface{}) ExprID {
		var (
			op = ops[vals[0].(int)]
			l  = vals[1].(ExprID)
			r  = vals[2].(ExprID)
		)
		//
		return a.Binary(op, l, r)
	}
	//
	depth1 := gopter.CombineGens(
		gen.IntRange(0, len(ops)-1), leaves, leaves,
	).Map(combine)
	//
	depth2 := gopter.CombineGens(
		gen.IntRange(0, len(ops)-1), depth1, depth1,
	).Map(combine)
	//
	return gen.OneGenOf(leaves, depth1, depth2)
}

func TestSimplifyIsIdempotent(t *testing.T) {
	var (
		a          = newArena(t)
		parameters = gopter.DefaultTestParameters()
	)
	//
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)
	//
	properties.Property("simplify(simplify(e)) == simplify(e)", prop.ForAll(
		func(e ExprID) bool {
			s := a.Simplify(e)
			return a.Simplify(s) == s
		}, genExpr(a)))
	//
	properties.TestingRun(t)
}
