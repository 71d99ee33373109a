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

// Package stats summarises constraint sets and circuit ASTs for the
// --print_stats family of flags.
package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/Koukyosyumei/zkFuzz/pkg/symbolic"
)

// ConstraintStats aggregates operator counts and expression depths over a
// constraint set.
type ConstraintStats struct {
	// Total is the number of constraints seen.
	Total int
	// Operators counts occurrences per operator.
	Operators map[string]int
	// MaxDepth is the deepest expression seen.
	MaxDepth int
	//
	depthSum int
}

// NewConstraintStats constructs an empty aggregate.
func NewConstraintStats() *ConstraintStats {
	return &ConstraintStats{Operators: make(map[string]int)}
}

// Update folds one constraint into the aggregate.
func (s *ConstraintStats) Update(a *symbolic.Arena, e symbolic.ExprID) {
	s.Total++
	//
	d := s.walk(a, e)
	s.depthSum += d
	//
	if d > s.MaxDepth {
		s.MaxDepth = d
	}
}

func (s *ConstraintStats) walk(a *symbolic.Arena, e symbolic.ExprID) int {
	op := a.Op(e)
	//
	if op.Arity() == 0 {
		return 1
	}
	//
	s.Operators[op.String()]++
	//
	max := 0
	for i := 0; i < op.Arity(); i++ {
		if d := s.walk(a, a.Operand(e, i)); d > max {
			max = d
		}
	}
	//
	return max + 1
}

// AvgDepth reports the mean expression depth.
func (s *ConstraintStats) AvgDepth() float64 {
	if s.Total == 0 {
		return 0
	}
	//
	return float64(s.depthSum) / float64(s.Total)
}

func (s *ConstraintStats) sortedOperators() []string {
	ops := make([]string, 0, len(s.Operators))
	for op := range s.Operators {
		ops = append(ops, op)
	}
	//
	sort.Strings(ops)
	//
	return ops
}

// PrintSummary renders the aggregate as an aligned table no wider than the
// given width.
func PrintSummary(w io.Writer, title string, s *ConstraintStats, width int) {
	if width <= 0 || width > 64 {
		width = 64
	}
	//
	fmt.Fprintf(w, "%s\n", title)
	fmt.Fprintf(w, "  total constraints : %d\n", s.Total)
	fmt.Fprintf(w, "  avg depth         : %.2f\n", s.AvgDepth())
	fmt.Fprintf(w, "  max depth         : %d\n", s.MaxDepth)
	//
	for _, op := range s.sortedOperators() {
		label := fmt.Sprintf("  %-18s: %d", op, s.Operators[op])
		if len(label) > width {
			label = label[:width]
		}
		//
		fmt.Fprintln(w, label)
	}
}

// WriteCSV emits the aggregates in machine-readable form, one row per
// (set, operator) pair.
func WriteCSV(w io.Writer, sets map[string]*ConstraintStats) {
	fmt.Fprintln(w, "set,operator,count")
	//
	names := make([]string, 0, len(sets))
	for n := range sets {
		names = append(names, n)
	}
	//
	sort.Strings(names)
	//
	for _, n := range names {
		s := sets[n]
		fmt.Fprintf(w, "%s,total,%d\n", n, s.Total)
		//
		for _, op := range s.sortedOperators() {
			fmt.Fprintf(w, "%s,%s,%d\n", n, op, s.Operators[op])
		}
	}
}
