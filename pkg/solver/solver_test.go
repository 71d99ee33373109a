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
package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Koukyosyumei/zkFuzz/internal/fixtures"
	"github.com/Koukyosyumei/zkFuzz/pkg/executor"
	"github.com/Koukyosyumei/zkFuzz/pkg/field"
	"github.com/Koukyosyumei/zkFuzz/pkg/symbolic"
)

func symName(s string) symbolic.Name {
	return symbolic.Name(s)
}

func TestQuickSafeIsZeroIsWellConstrained(t *testing.T) {
	fld := field.BN254()
	exe := executor.New(fixtures.IsZeroSafe(), executor.DefaultSetting(fld))
	//
	states, err := exe.Execute()
	require.NoError(t, err)
	require.Len(t, states, 2)
	//
	for _, s := range states {
		cex := BruteForce(exe.Arena(), fld, s, states,
			exe.InputSignals(), exe.OutputSignals())
		assert.Nil(t, cex, "safe IsZero misclassified")
	}
}

func TestGAVulnerableIsZeroIsNonDeterministic(t *testing.T) {
	fld := field.BN254()
	exe := executor.New(fixtures.IsZeroVulnerable(), executor.DefaultSetting(fld))
	//
	states, err := exe.Execute()
	require.NoError(t, err)
	require.Len(t, states, 1)
	//
	cfg := DefaultConfig(fld)
	cfg.Seed = 13057132941229430025
	//
	engine := NewEngine(exe.Arena(), fld, states[0],
		exe.InputSignals(), exe.OutputSignals(), cfg)
	//
	res := engine.Search(context.Background())
	require.NotNil(t, res.CounterExample)
	//
	cex := res.CounterExample
	assert.Equal(t, UnderConstrained, cex.Flag)
	assert.Equal(t, NonDeterministic, cex.Under)
	assert.Equal(t, "main.out", string(cex.TargetOutput))
	// The inverse hint only matters when in != 0.
	require.Contains(t, cex.Assignment, symName("main.in"))
	assert.NotZero(t, cex.Assignment[symName("main.in")].Sign())
	// The found witness disagrees with the trace-generated output.
	assert.NotEqual(t, cex.ExpectedOutput.String(),
		cex.Assignment[symName("main.out")].String())
}

func TestGALessThanOverflowIsUnexpectedTrace(t *testing.T) {
	fld := field.BN254()
	exe := executor.New(fixtures.LessThan8(), executor.DefaultSetting(fld))
	//
	states, err := exe.Execute()
	require.NoError(t, err)
	require.Len(t, states, 1)
	//
	cfg := DefaultConfig(fld)
	cfg.Seed = 29
	//
	engine := NewEngine(exe.Arena(), fld, states[0],
		exe.InputSignals(), exe.OutputSignals(), cfg)
	//
	res := engine.Search(context.Background())
	require.NotNil(t, res.CounterExample)
	//
	cex := res.CounterExample
	assert.Equal(t, UnderConstrained, cex.Flag)
	assert.Equal(t, UnexpectedTrace, cex.Under)
	// The witnessing input lies outside the intended 8-bit domain.
	outside := false
	//
	for _, in := range []string{"main.in[0]", "main.in[1]"} {
		if v, ok := cex.Assignment[symName(in)]; ok && fld.Signed(v).Sign() < 0 {
			outside = true
		}
	}
	//
	assert.True(t, outside, "counterexample stays in the intended domain")
}

func TestGAPolynomialIdentityIsWellConstrained(t *testing.T) {
	fld := field.BN254()
	exe := executor.New(fixtures.PolynomialIdentity(), executor.DefaultSetting(fld))
	//
	states, err := exe.Execute()
	require.NoError(t, err)
	require.Len(t, states, 1)
	//
	cfg := DefaultConfig(fld)
	cfg.Seed = 7
	cfg.MaxGenerations = 15
	//
	engine := NewEngine(exe.Arena(), fld, states[0],
		exe.InputSignals(), exe.OutputSignals(), cfg)
	//
	res := engine.Search(context.Background())
	assert.Nil(t, res.CounterExample)
	assert.Equal(t, 15, res.Generations)
}

func TestQuickPolynomialIdentityIsWellConstrained(t *testing.T) {
	fld := field.BN254()
	exe := executor.New(fixtures.PolynomialIdentity(), executor.DefaultSetting(fld))
	//
	states, err := exe.Execute()
	require.NoError(t, err)
	//
	cex := BruteForce(exe.Arena(), fld, states[0], states,
		exe.InputSignals(), exe.OutputSignals())
	assert.Nil(t, cex)
}

func TestGAOverConstrained(t *testing.T) {
	fld := field.BN254()
	exe := executor.New(fixtures.OverConstrained(), executor.DefaultSetting(fld))
	//
	states, err := exe.Execute()
	require.NoError(t, err)
	require.Len(t, states, 1)
	//
	cfg := DefaultConfig(fld)
	cfg.Seed = 3
	//
	engine := NewEngine(exe.Arena(), fld, states[0],
		exe.InputSignals(), exe.OutputSignals(), cfg)
	//
	res := engine.Search(context.Background())
	require.NotNil(t, res.CounterExample)
	assert.Equal(t, OverConstrained, res.CounterExample.Flag)
	// x carries the trace-generated value.
	assert.Equal(t, "3", res.CounterExample.Assignment[symName("main.x")].String())
}

func TestSearchDeterminism(t *testing.T) {
	run := func() *Result {
		fld := field.BN254()
		exe := executor.New(fixtures.IsZeroVulnerable(), executor.DefaultSetting(fld))
		//
		states, err := exe.Execute()
		require.NoError(t, err)
		//
		cfg := DefaultConfig(fld)
		cfg.Seed = 42
		//
		engine := NewEngine(exe.Arena(), fld, states[0],
			exe.InputSignals(), exe.OutputSignals(), cfg)
		//
		return engine.Search(context.Background())
	}
	//
	var (
		r1 = run()
		r2 = run()
	)
	//
	require.Equal(t, r1.Generations, r2.Generations)
	assert.Equal(t, r1.FitnessLog, r2.FitnessLog)
	//
	require.NotNil(t, r1.CounterExample)
	require.NotNil(t, r2.CounterExample)
	assert.Equal(t, r1.CounterExample.FlagType(), r2.CounterExample.FlagType())
	//
	for k, v := range r1.CounterExample.Assignment {
		assert.Equal(t, v.String(), r2.CounterExample.Assignment[k].String())
	}
}

func TestCancellationStopsSearch(t *testing.T) {
	fld := field.BN254()
	exe := executor.New(fixtures.PolynomialIdentity(), executor.DefaultSetting(fld))
	//
	states, err := exe.Execute()
	require.NoError(t, err)
	//
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	//
	engine := NewEngine(exe.Arena(), fld, states[0],
		exe.InputSignals(), exe.OutputSignals(), DefaultConfig(fld))
	//
	res := engine.Search(ctx)
	assert.Nil(t, res.CounterExample)
	assert.Zero(t, res.Generations)
}

func TestUnsatisfiableStateIsExcluded(t *testing.T) {
	fld := field.BN254()
	exe := executor.New(fixtures.IsZeroVulnerable(), executor.DefaultSetting(fld))
	//
	states, err := exe.Execute()
	require.NoError(t, err)
	//
	states[0].Unsatisfiable = true
	//
	engine := NewEngine(exe.Arena(), fld, states[0],
		exe.InputSignals(), exe.OutputSignals(), DefaultConfig(fld))
	//
	res := engine.Search(context.Background())
	assert.Nil(t, res.CounterExample)
	assert.Zero(t, res.Generations)
}
