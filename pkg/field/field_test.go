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
	"math/big"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsDegenerateModulus(t *testing.T) {
	_, err := New(big.NewInt(1))
	assert.Error(t, err)
	//
	_, err = New(nil)
	assert.Error(t, err)
}

func TestReduceWrapsNegatives(t *testing.T) {
	f, err := New(big.NewInt(101))
	require.NoError(t, err)
	//
	assert.Equal(t, int64(100), f.Reduce(big.NewInt(-1)).Int64())
	assert.Equal(t, int64(0), f.Reduce(big.NewInt(101)).Int64())
	assert.Equal(t, int64(3), f.Reduce(big.NewInt(205)).Int64())
}

func TestInvFailsOnZero(t *testing.T) {
	f, _ := New(big.NewInt(101))
	//
	_, err := f.Inv(big.NewInt(0))
	assert.ErrorIs(t, err, ErrDivisionByZero)
	//
	_, err = f.Div(big.NewInt(5), big.NewInt(0))
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestSignedRepresentative(t *testing.T) {
	f, _ := New(big.NewInt(101))
	// 51 > 101/2, hence represents 51-101 = -50.
	assert.Equal(t, int64(-50), f.Signed(big.NewInt(51)).Int64())
	assert.Equal(t, int64(50), f.Signed(big.NewInt(50)).Int64())
	// p-1 compares below 1 under the signed order.
	assert.Equal(t, -1, f.CmpSigned(big.NewInt(100), big.NewInt(1)))
	assert.Equal(t, 1, f.CmpSigned(big.NewInt(2), big.NewInt(100)))
}

func TestAbsDist(t *testing.T) {
	f, _ := New(big.NewInt(101))
	//
	assert.Equal(t, int64(1), f.AbsDist(big.NewInt(3), big.NewInt(4)).Int64())
	assert.Equal(t, int64(1), f.AbsDist(big.NewInt(4), big.NewInt(3)).Int64())
	assert.Equal(t, int64(0), f.AbsDist(big.NewInt(7), big.NewInt(7)).Int64())
	// 100 = -1, hence distance to 0 is 1, not 100.
	assert.Equal(t, int64(1), f.AbsDist(big.NewInt(100), big.NewInt(0)).Int64())
}

func TestRandRange(t *testing.T) {
	var (
		f, _ = New(big.NewInt(101))
		rng  = rand.New(rand.NewSource(1))
	)
	//
	for i := 0; i < 100; i++ {
		v := f.RandRange(rng, big.NewInt(-10), big.NewInt(10))
		s := f.Signed(v)
		//
		assert.True(t, s.Cmp(big.NewInt(-10)) >= 0 && s.Cmp(big.NewInt(10)) < 0,
			"signed value %s outside [-10,10)", s)
	}
}

func TestPresets(t *testing.T) {
	for _, name := range []string{
		"bn128", "bls12381", "goldilocks", "grumpkin", "pallas", "vesta", "secq256r1",
	} {
		p, err := Preset(name)
		require.NoError(t, err, name)
		assert.True(t, p.ProbablyPrime(20), "%s modulus not prime", name)
	}
	//
	_, err := Preset("ed25519")
	assert.Error(t, err)
}

func TestFieldAxioms(t *testing.T) {
	var (
		f          = BN254()
		parameters = gopter.DefaultTestParameters()
	)
	//
	parameters.MinSuccessfulTests = 200
	//
	properties := gopter.NewProperties(parameters)
	elements := gen.UInt64().Map(func(v uint64) *big.Int {
		return f.Reduce(new(big.Int).SetUint64(v))
	})
	//
	properties.Property("a + (-a) == 0", prop.ForAll(
		func(a *big.Int) bool {
			return f.Add(a, f.Neg(a)).Sign() == 0
		}, elements))
	//
	properties.Property("a * a^-1 == 1 for a != 0", prop.ForAll(
		func(a *big.Int) bool {
			if a.Sign() == 0 {
				return true
			}
			//
			inv, err := f.Inv(a)
			if err != nil {
				return false
			}
			//
			return f.Mul(a, inv).Cmp(big.NewInt(1)) == 0
		}, elements))
	//
	properties.Property("outputs stay canonical", prop.ForAll(
		func(a, b *big.Int) bool {
			for _, v := range []*big.Int{f.Add(a, b), f.Sub(a, b), f.Mul(a, b), f.Neg(a)} {
				if v.Sign() < 0 || v.Cmp(f.Modulus()) >= 0 {
					return false
				}
			}
			//
			return true
		}, elements, elements))
	//
	properties.TestingRun(t)
}
