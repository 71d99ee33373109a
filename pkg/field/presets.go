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
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
)

// Scalar field moduli for curves which gnark-crypto does not expose through
// an ecc.ID.  Goldilocks is 2^64 - 2^32 + 1; pallas and vesta form the
// 2-cycle used by Halo-style recursion; secq256r1 is the cycle partner of
// secp256r1.
var (
	goldilocksModulus = mustParse("18446744069414584321")
	pallasModulus     = mustParse(
		"28948022309329048855892746252171976963363056481941647379679742748393362948097")
	vestaModulus = mustParse(
		"28948022309329048855892746252171976963363056481941560715954676764349967630337")
	secq256r1Modulus = mustParse(
		"115792089210356248762697446949407573530086143415290314195533631308867097853951")
)

// Preset looks up the scalar-field modulus of a named curve.  The names
// mirror the accepted values of the "-p" option.
func Preset(name string) (*big.Int, error) {
	switch name {
	case "bn128":
		return ecc.BN254.ScalarField(), nil
	case "bls12381":
		return ecc.BLS12_381.ScalarField(), nil
	case "grumpkin":
		return ecc.GRUMPKIN.ScalarField(), nil
	case "goldilocks":
		return goldilocksModulus, nil
	case "pallas":
		return pallasModulus, nil
	case "vesta":
		return vestaModulus, nil
	case "secq256r1":
		return secq256r1Modulus, nil
	default:
		return nil, fmt.Errorf("unknown curve %q", name)
	}
}

// BN254 constructs the default field, the BN254 scalar field.
func BN254() *Field {
	f, err := New(ecc.BN254.ScalarField())
	if err != nil {
		panic(err)
	}
	//
	return f
}

func mustParse(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid modulus literal " + s)
	}
	//
	return v
}
