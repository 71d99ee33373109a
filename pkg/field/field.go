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
package field

import (
	"errors"
	"fmt"
	"math/big"
	"math/rand"
)

// ErrDivisionByZero signals an attempt to invert (or divide by) the zero
// element of the field.
var ErrDivisionByZero = errors.New("division by zero")

// Field captures modular arithmetic over a prime modulus chosen at run time.
// Elements are canonical residues, that is big integers x with 0 <= x < p.
// All operations accept canonical inputs and produce canonical outputs.
type Field struct {
	modulus *big.Int
	// half is floor(p/2), used to decide which residues represent negative
	// values under the signed interpretation.
	half *big.Int
}

// New constructs a field for the given prime modulus.  The modulus must be at
// least two; primality is assumed, not checked.
func New(modulus *big.Int) (*Field, error) {
	if modulus == nil || modulus.Cmp(big.NewInt(2)) < 0 {
		return nil, fmt.Errorf("invalid field modulus %v", modulus)
	}
	//
	half := new(big.Int).Rsh(modulus, 1)
	//
	return &Field{modulus: new(big.Int).Set(modulus), half: half}, nil
}

// Modulus returns the prime p defining this field.
func (f *Field) Modulus() *big.Int {
	return f.modulus
}

// Reduce maps an arbitrary integer onto its canonical residue.  Negative
// inputs are wrapped around, hence Reduce(-1) = p-1.
func (f *Field) Reduce(x *big.Int) *big.Int {
	r := new(big.Int).Mod(x, f.modulus)
	// big.Int.Mod already yields a result in [0,p) for positive modulus
	return r
}

// Add computes x + y mod p.
func (f *Field) Add(x, y *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Add(x, y))
}

// Sub computes x - y mod p.
func (f *Field) Sub(x, y *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Sub(x, y))
}

// Mul computes x * y mod p.
func (f *Field) Mul(x, y *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Mul(x, y))
}

// Neg computes -x mod p.
func (f *Field) Neg(x *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Neg(x))
}

// Inv computes the multiplicative inverse of x via the extended Euclidean
// algorithm, or fails with ErrDivisionByZero when x = 0.
func (f *Field) Inv(x *big.Int) (*big.Int, error) {
	if x.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	//
	inv := new(big.Int).ModInverse(x, f.modulus)
	if inv == nil {
		// Only reachable when x shares a factor with a non-prime modulus.
		return nil, ErrDivisionByZero
	}
	//
	return inv, nil
}

// Div computes x / y mod p, failing with ErrDivisionByZero when y = 0.
func (f *Field) Div(x, y *big.Int) (*big.Int, error) {
	inv, err := f.Inv(y)
	if err != nil {
		return nil, err
	}
	//
	return f.Mul(x, inv), nil
}

// Pow computes x^e mod p for a non-negative exponent.
func (f *Field) Pow(x, e *big.Int) *big.Int {
	return new(big.Int).Exp(x, e, f.modulus)
}

// PowU computes x^e mod p for a machine-word exponent.
func (f *Field) PowU(x *big.Int, e uint64) *big.Int {
	return f.Pow(x, new(big.Int).SetUint64(e))
}

// Signed maps a canonical residue onto its signed representative, treating
// values above p/2 as negative.  Thus Signed(p-1) = -1.
func (f *Field) Signed(x *big.Int) *big.Int {
	if x.Cmp(f.half) > 0 {
		return new(big.Int).Sub(x, f.modulus)
	}
	//
	return new(big.Int).Set(x)
}

// CmpSigned compares two canonical residues under the signed interpretation,
// returning -1, 0 or 1 as for big.Int.Cmp.
func (f *Field) CmpSigned(x, y *big.Int) int {
	return f.Signed(x).Cmp(f.Signed(y))
}

// AbsDist computes |a - b| on signed representatives, the distance metric the
// constraint evaluator uses for equality penalties.
func (f *Field) AbsDist(a, b *big.Int) *big.Int {
	d := f.Signed(f.Sub(a, b))
	return d.Abs(d)
}

// Rand draws a uniform field element from the given generator.
func (f *Field) Rand(rng *rand.Rand) *big.Int {
	return new(big.Int).Rand(rng, f.modulus)
}

// RandRange draws an element uniformly from [lo, hi), reducing the result
// into the field.  Negative bounds are permitted, e.g. [-10, 10).
func (f *Field) RandRange(rng *rand.Rand, lo, hi *big.Int) *big.Int {
	width := new(big.Int).Sub(hi, lo)
	if width.Sign() <= 0 {
		return f.Reduce(lo)
	}
	//
	v := new(big.Int).Rand(rng, width)
	v.Add(v, lo)
	//
	return f.Reduce(v)
}
