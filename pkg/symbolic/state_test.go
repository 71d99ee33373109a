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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	n := Qualify("main.sub", "out")
	assert.Equal(t, Name("main.sub.out"), n)
	assert.Equal(t, "out", n.Local())
	assert.Equal(t, "main.sub", n.Owner())
	//
	i := Indexed(n, 3)
	assert.Equal(t, Name("main.sub.out[3]"), i)
	assert.Equal(t, Name("main.sub.out"), i.Base())
}

func TestStateSignalAssignment(t *testing.T) {
	var (
		a = newArena(t)
		s = NewState("main")
	)
	//
	require.NoError(t, s.BindSignal("main.x", a.ConstInt64(1)))
	assert.True(t, s.Assigned("main.x"))
	// Signals are single-assignment.
	assert.Error(t, s.BindSignal("main.x", a.ConstInt64(2)))
	// Variables overwrite freely.
	s.Bind("main.v", a.ConstInt64(1))
	s.Bind("main.v", a.ConstInt64(2))
	//
	v, ok := s.Get("main.v")
	require.True(t, ok)
	assert.Equal(t, int64(2), a.Value(v).Int64())
}

func TestPushBothKeepsSideWithinTrace(t *testing.T) {
	var (
		a  = newArena(t)
		s  = NewState("main")
		eq = a.Binary(EQ, a.Signal("main.x"), a.ConstInt64(1))
	)
	//
	s.PushTrace(Constraint{Expr: eq, Kind: HINT})
	s.PushBoth(eq)
	//
	assert.Len(t, s.Trace, 2)
	assert.Len(t, s.Side, 1)
	assert.InDelta(t, 0.5, s.CompressionRate(), 1e-9)
}

func TestCloneIsolation(t *testing.T) {
	var (
		a = newArena(t)
		s = NewState("main")
	)
	//
	require.NoError(t, s.BindSignal("main.x", a.ConstInt64(1)))
	//
	c := s.Clone()
	c.Bind("main.y", a.ConstInt64(5))
	c.PushTrace(Constraint{Expr: a.One(), Kind: GUARD})
	//
	_, ok := s.Get("main.y")
	assert.False(t, ok)
	assert.Empty(t, s.Trace)
	// Clones of the same state compare equal until they diverge.
	assert.NotEqual(t, s.Key(a), c.Key(a))
	assert.Equal(t, s.Key(a), s.Clone().Key(a))
}
