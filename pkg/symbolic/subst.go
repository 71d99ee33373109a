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

import "sort"

// Substitution maps free symbols onto replacement expressions.
type Substitution map[Name]ExprID

// Substitute replaces every free variable and signal occurring in sigma by
// its image.  Untouched sub-expressions keep their identity, so structural
// sharing survives the rewrite.
func (a *Arena) Substitute(e ExprID, sigma Substitution) ExprID {
	if len(sigma) == 0 {
		return e
	}
	//
	memo := make(map[ExprID]ExprID)
	//
	return a.substitute(e, sigma, memo)
}

func (a *Arena) substitute(e ExprID, sigma Substitution, memo map[ExprID]ExprID) ExprID {
	if r, ok := memo[e]; ok {
		return r
	}
	//
	var r ExprID
	//
	switch op := a.Op(e); op {
	case CONST:
		r = e
	case VAR, SIGNAL:
		if img, ok := sigma[a.NameOf(e)]; ok && img != e {
			r = img
		} else {
			r = e
		}
	case NEG, NOT:
		x := a.substitute(a.Operand(e, 0), sigma, memo)
		if x == a.Operand(e, 0) {
			r = e
		} else {
			r = a.Unary(op, x)
		}
	case COND:
		c := a.substitute(a.Operand(e, 0), sigma, memo)
		x := a.substitute(a.Operand(e, 1), sigma, memo)
		y := a.substitute(a.Operand(e, 2), sigma, memo)
		//
		if c == a.Operand(e, 0) && x == a.Operand(e, 1) && y == a.Operand(e, 2) {
			r = e
		} else {
			r = a.Cond(c, x, y)
		}
	default:
		x := a.substitute(a.Operand(e, 0), sigma, memo)
		y := a.substitute(a.Operand(e, 1), sigma, memo)
		//
		if x == a.Operand(e, 0) && y == a.Operand(e, 1) {
			r = e
		} else {
			r = a.Binary(op, x, y)
		}
	}
	//
	memo[e] = r
	//
	return r
}

// FreeSymbols returns the names of all variables and signals occurring in
// the given expressions, sorted for determinism.
func (a *Arena) FreeSymbols(exprs ...ExprID) []Name {
	seen := make(map[Name]bool)
	//
	for _, e := range exprs {
		a.freeSymbols(e, seen)
	}
	//
	names := make([]Name, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	//
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	//
	return names
}

func (a *Arena) freeSymbols(e ExprID, seen map[Name]bool) {
	switch op := a.Op(e); op {
	case VAR, SIGNAL:
		seen[a.NameOf(e)] = true
	case CONST:
		// no symbols
	default:
		for i := 0; i < op.Arity(); i++ {
			a.freeSymbols(a.Operand(e, i), seen)
		}
	}
}
