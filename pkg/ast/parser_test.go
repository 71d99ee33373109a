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
package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubParser struct{}

func (stubParser) Parse(path string) (*Circuit, error) {
	return NewCircuit(), nil
}

func TestParserRegistry(t *testing.T) {
	RegisterParser("stub", stubParser{})
	//
	p, err := LookupParser("stub")
	require.NoError(t, err)
	//
	c, err := p.Parse("whatever")
	require.NoError(t, err)
	assert.NotNil(t, c.Templates)
	//
	_, err = LookupParser("missing")
	assert.Error(t, err)
	//
	assert.Panics(t, func() { RegisterParser("stub", stubParser{}) })
	assert.Panics(t, func() { RegisterParser("nil", nil) })
}

func TestCircuitConstruction(t *testing.T) {
	c := NewCircuit()
	c.AddTemplate(&Template{Name: "T", Params: []string{"n"}})
	c.AddFunction(&Function{Name: "f"})
	c.SetMain("T", &Number{})
	//
	assert.Len(t, c.Templates, 1)
	assert.Len(t, c.Functions, 1)
	assert.Equal(t, "T", c.Main)
	assert.Len(t, c.MainArgs, 1)
}
