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
	"sort"
)

// Simplify rewrites an expression into its canonical form: constants folded,
// identities applied (x+0, x*1, x*0, x-x, double negation and double boolean
// negation collapsed), sums and products flattened into coefficient-sorted
// chains.  Simplification is pure and idempotent; results are memoized per
// arena.  Division is never folded unless the denominator simplifies to a
// non-zero constant.
func (a *Arena) Simplify(e ExprID) ExprID {
	if r, ok := a.simplified[e]; ok {
		return r
	}
	//
	r := a.simplifyNode(e)
	a.simplified[e] = r
	// A canonical form is its own canonical form.
	a.simplified[r] = r
	//
	return r
}

func (a *Arena) simplifyNode(e ExprID) ExprID {
	switch a.Op(e) {
	case CONST, VAR, SIGNAL:
		return e
	case ADD, SUB:
		return a.simplifySum(e)
	case MUL, NEG:
		return a.simplifyProduct(e)
	case DIV:
		return a.simplifyDiv(e)
	case POW:
		return a.simplifyPow(e)
	case EQ, NEQ:
		return a.simplifyEquality(e)
	case LT, LEQ, GT, GEQ:
		return a.simplifyRelational(e)
	case AND, OR:
		return a.simplifyConnective(e)
	case NOT:
		return a.simplifyNot(e)
	case COND:
		return a.simplifyCond(e)
	default:
		return e
	}
}

// ============================================================================
// Sums
// ============================================================================

// collectSum accumulates coeff*e into the running linear combination,
// descending through nested sums and negations.
func (a *Arena) collectSum(e ExprID, coeff *big.Int, terms map[ExprID]*big.Int, k *big.Int) {
	switch a.Op(e) {
	case ADD:
		a.collectSum(a.Operand(e, 0), coeff, terms, k)
		a.collectSum(a.Operand(e, 1), coeff, terms, k)
	case SUB:
		a.collectSum(a.Operand(e, 0), coeff, terms, k)
		a.collectSum(a.Operand(e, 1), new(big.Int).Neg(coeff), terms, k)
	case NEG:
		a.collectSum(a.Operand(e, 0), new(big.Int).Neg(coeff), terms, k)
	default:
		t := a.Simplify(e)
		//
		switch {
		case a.Op(t) == CONST:
			k.Add(k, new(big.Int).Mul(coeff, a.Value(t)))
		case a.Op(t) == ADD || a.Op(t) == SUB || a.Op(t) == NEG:
			// Simplification exposed another sum; fold it in.
			a.collectSum(t, coeff, terms, k)
		case a.Op(t) == MUL && a.Op(a.Operand(t, 0)) == CONST:
			// Canonical products carry their coefficient leftmost.
			c := new(big.Int).Mul(coeff, a.Value(a.Operand(t, 0)))
			a.addTerm(terms, a.Operand(t, 1), c)
		default:
			a.addTerm(terms, t, coeff)
		}
	}
}

func (a *Arena) addTerm(terms map[ExprID]*big.Int, t ExprID, coeff *big.Int) {
	if c, ok := terms[t]; ok {
		c.Add(c, coeff)
	} else {
		terms[t] = new(big.Int).Set(coeff)
	}
}

func (a *Arena) simplifySum(e ExprID) ExprID {
	var (
		terms = make(map[ExprID]*big.Int)
		k     = big.NewInt(0)
	)
	//
	a.collectSum(e, big.NewInt(1), terms, k)
	// Order terms deterministically.
	ids := make([]ExprID, 0, len(terms))
	//
	for t, c := range terms {
		if a.fld.Reduce(c).Sign() != 0 {
			ids = append(ids, t)
		}
	}
	//
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	// Rebuild as a left-associated chain of coefficient-scaled terms.
	acc := None
	//
	for _, t := range ids {
		c := a.fld.Reduce(terms[t])
		//
		var scaled ExprID
		if c.Cmp(oneInt) == 0 {
			scaled = t
		} else {
			scaled = a.Binary(MUL, a.Const(c), t)
		}
		//
		if acc == None {
			acc = scaled
		} else {
			acc = a.Binary(ADD, acc, scaled)
		}
	}
	//
	kc := a.fld.Reduce(k)
	if acc == None {
		return a.Const(kc)
	} else if kc.Sign() != 0 {
		acc = a.Binary(ADD, acc, a.Const(kc))
	}
	//
	return acc
}

// ============================================================================
// Products
// ============================================================================

func (a *Arena) collectProduct(e ExprID, coeff *big.Int, factors *[]ExprID) {
	switch a.Op(e) {
	case MUL:
		a.collectProduct(a.Operand(e, 0), coeff, factors)
		a.collectProduct(a.Operand(e, 1), coeff, factors)
	case NEG:
		coeff.Neg(coeff)
		a.collectProduct(a.Operand(e, 0), coeff, factors)
	default:
		f := a.Simplify(e)
		//
		switch {
		case a.Op(f) == CONST:
			coeff.Mul(coeff, a.Value(f))
		case a.Op(f) == MUL || a.Op(f) == NEG:
			a.collectProduct(f, coeff, factors)
		default:
			*factors = append(*factors, f)
		}
	}
}

func (a *Arena) simplifyProduct(e ExprID) ExprID {
	var (
		coeff   = big.NewInt(1)
		factors []ExprID
	)
	//
	a.collectProduct(e, coeff, &factors)
	//
	c := a.fld.Reduce(coeff)
	if c.Sign() == 0 {
		return a.Zero()
	}
	//
	sort.Slice(factors, func(i, j int) bool { return factors[i] < factors[j] })
	//
	acc := None
	for _, f := range factors {
		if acc == None {
			acc = f
		} else {
			acc = a.Binary(MUL, acc, f)
		}
	}
	//
	switch {
	case acc == None:
		return a.Const(c)
	case c.Cmp(oneInt) == 0:
		return acc
	default:
		return a.Binary(MUL, a.Const(c), acc)
	}
}

// ============================================================================
// Division & exponentiation
// ============================================================================

func (a *Arena) simplifyDiv(e ExprID) ExprID {
	var (
		num = a.Simplify(a.Operand(e, 0))
		den = a.Simplify(a.Operand(e, 1))
	)
	// A zero denominator is preserved untouched; the executor taints any
	// state which depends on such a node.
	if a.IsZeroConst(den) {
		return a.Binary(DIV, num, den)
	}
	//
	if a.IsConst(den) {
		if a.IsConst(num) {
			q, err := a.fld.Div(a.Value(num), a.Value(den))
			if err == nil {
				return a.Const(q)
			}
		} else if a.IsOneConst(den) {
			return num
		}
	}
	//
	return a.Binary(DIV, num, den)
}

func (a *Arena) simplifyPow(e ExprID) ExprID {
	var (
		base = a.Simplify(a.Operand(e, 0))
		exp  = a.Simplify(a.Operand(e, 1))
	)
	//
	if a.IsConst(exp) {
		if a.IsZeroConst(exp) {
			return a.One()
		} else if a.IsOneConst(exp) {
			return base
		} else if a.IsConst(base) {
			return a.Const(a.fld.Pow(a.Value(base), a.Value(exp)))
		}
	}
	//
	return a.Binary(POW, base, exp)
}

// ============================================================================
// Relational & boolean
// ============================================================================

func (a *Arena) boolConst(b bool) ExprID {
	if b {
		return a.One()
	}
	//
	return a.Zero()
}

func (a *Arena) simplifyEquality(e ExprID) ExprID {
	var (
		op = a.Op(e)
		x  = a.Simplify(a.Operand(e, 0))
		y  = a.Simplify(a.Operand(e, 1))
	)
	//
	if x == y {
		return a.boolConst(op == EQ)
	}
	//
	if a.IsConst(x) && a.IsConst(y) {
		eq := a.Value(x).Cmp(a.Value(y)) == 0
		return a.boolConst(eq == (op == EQ))
	}
	// Symmetric, so order operands canonically.
	if y < x {
		x, y = y, x
	}
	//
	return a.Binary(op, x, y)
}

func (a *Arena) simplifyRelational(e ExprID) ExprID {
	var (
		op = a.Op(e)
		x  = a.Simplify(a.Operand(e, 0))
		y  = a.Simplify(a.Operand(e, 1))
	)
	// Canonicalize strict/non-strict comparisons to point left.
	if op == GT {
		op, x, y = LT, y, x
	} else if op == GEQ {
		op, x, y = LEQ, y, x
	}
	//
	if a.IsConst(x) && a.IsConst(y) {
		c := a.fld.CmpSigned(a.Value(x), a.Value(y))
		if op == LT {
			return a.boolConst(c < 0)
		}
		//
		return a.boolConst(c <= 0)
	}
	//
	return a.Binary(op, x, y)
}

func (a *Arena) simplifyConnective(e ExprID) ExprID {
	var (
		op = a.Op(e)
		x  = a.Simplify(a.Operand(e, 0))
		y  = a.Simplify(a.Operand(e, 1))
	)
	//
	if x == y {
		return x
	}
	// Constant absorption over {0,1} operands.
	for _, pair := range [2][2]ExprID{{x, y}, {y, x}} {
		c, other := pair[0], pair[1]
		if !a.IsConst(c) {
			continue
		}
		//
		truthy := a.Value(c).Sign() != 0
		if (op == AND && !truthy) || (op == OR && truthy) {
			return a.boolConst(op == OR)
		}
		//
		return other
	}
	//
	if y < x {
		x, y = y, x
	}
	//
	return a.Binary(op, x, y)
}

func (a *Arena) simplifyNot(e ExprID) ExprID {
	x := a.Simplify(a.Operand(e, 0))
	//
	if a.Op(x) == NOT {
		return a.Operand(x, 0)
	}
	//
	if a.IsConst(x) {
		return a.boolConst(a.Value(x).Sign() == 0)
	}
	//
	return a.Unary(NOT, x)
}

func (a *Arena) simplifyCond(e ExprID) ExprID {
	var (
		c = a.Simplify(a.Operand(e, 0))
		x = a.Simplify(a.Operand(e, 1))
		y = a.Simplify(a.Operand(e, 2))
	)
	//
	if a.IsConst(c) {
		if a.Value(c).Sign() != 0 {
			return x
		}
		//
		return y
	}
	//
	if x == y {
		return x
	}
	//
	return a.Cond(c, x, y)
}
