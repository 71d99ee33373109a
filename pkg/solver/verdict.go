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

// Package solver hunts for counterexamples demonstrating an inconsistency
// between the trace constraints of a circuit and its side constraints,
// either by bounded brute force or by a genetic search over (program
// mutation, input assignment) pairs.
package solver

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/Koukyosyumei/zkFuzz/pkg/eval"
	"github.com/Koukyosyumei/zkFuzz/pkg/symbolic"
)

// Flag is the top-level verdict of a search.
type Flag uint8

const (
	// WellConstrained means the search exhausted its budget without finding
	// a counterexample.  It is never a proof.
	WellConstrained Flag = iota
	// UnderConstrained means the side constraints admit a witness the trace
	// program does not produce.
	UnderConstrained
	// OverConstrained means the trace-generated witness violates the side
	// constraints.
	OverConstrained
)

func (f Flag) String() string {
	switch f {
	case WellConstrained:
		return "WellConstrained"
	case UnderConstrained:
		return "UnderConstrained"
	default:
		return "OverConstrained"
	}
}

// UnderKind refines an under-constrained verdict.
type UnderKind uint8

const (
	// UnexpectedTrace: the original trace aborts while the side constraints
	// accept an alternative witness.
	UnexpectedTrace UnderKind = iota
	// NonDeterministic: a different value of an output satisfies the side
	// constraints.
	NonDeterministic
)

func (k UnderKind) String() string {
	if k == UnexpectedTrace {
		return "UnexpectedTrace"
	}
	//
	return "NonDeterministic"
}

// CounterExample is a concrete assignment exhibiting a failure, together
// with the diagnostics the report sink serializes.
type CounterExample struct {
	Flag  Flag
	Under UnderKind
	// TargetOutput names the non-deterministic output, when applicable.
	TargetOutput symbolic.Name
	// ExpectedOutput is the value the original trace produces for the
	// target output.
	ExpectedOutput *big.Int
	// ViolatedCondition renders the first violated or unexpected
	// constraint, when applicable.
	ViolatedCondition string
	// Assignment maps every free symbol onto the witnessing field element.
	Assignment eval.Assignment
}

// FlagType renders the verdict in its serialized form, e.g.
// "UnderConstrained-NonDeterministic".
func (c *CounterExample) FlagType() string {
	if c.Flag == UnderConstrained {
		return fmt.Sprintf("%s-%s", c.Flag, c.Under)
	}
	//
	return c.Flag.String()
}

func (c *CounterExample) String() string {
	var sb strings.Builder
	//
	fmt.Fprintf(&sb, "counterexample: %s\n", c.FlagType())
	//
	if c.TargetOutput != "" {
		fmt.Fprintf(&sb, "  target output: %s (expected %s)\n", c.TargetOutput, c.ExpectedOutput)
	}
	//
	if c.ViolatedCondition != "" {
		fmt.Fprintf(&sb, "  violated: %s\n", c.ViolatedCondition)
	}
	//
	names := make([]symbolic.Name, 0, len(c.Assignment))
	for n := range c.Assignment {
		names = append(names, n)
	}
	//
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	//
	for _, n := range names {
		fmt.Fprintf(&sb, "  %s = %s\n", n, c.Assignment[n])
	}
	//
	return sb.String()
}

// GenerationLog is one entry of the per-generation fitness log.
type GenerationLog struct {
	Generation int    `json:"generation"`
	BestScore  string `json:"best_score"`
}

// Result is the outcome of a search: a counterexample, or nil when the
// budget was exhausted.
type Result struct {
	CounterExample *CounterExample
	// Generations is the number of generations actually run.
	Generations int
	// Seed is the seed the run used, for reproduction.
	Seed uint64
	// FitnessLog records the best score per generation.
	FitnessLog []GenerationLog
}
