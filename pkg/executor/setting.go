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
package executor

import "github.com/Koukyosyumei/zkFuzz/pkg/field"

// Setting collects the knobs of a symbolic execution run.
type Setting struct {
	// Field is the prime field all arithmetic reduces into.
	Field *field.Field
	// SymbolicTemplateParams treats the parameters of the main template as
	// fresh free variables rather than binding the concrete arguments.
	SymbolicTemplateParams bool
	// PropagateSubstitution inlines the computed value of a signal wherever
	// the signal is referenced, instead of keeping the symbolic signal atom.
	// This is the extra aggressive simplification pass.
	PropagateSubstitution bool
	// Whitelist names templates exempt from analysis; their bodies are not
	// executed and their outputs stay free.
	Whitelist map[string]bool
	// MaxDepth bounds component inlining depth; paths exceeding it are
	// abandoned with a warning.
	MaxDepth uint
	// MaxLoopIterations bounds loop unrolling; loops running longer are
	// abandoned with a warning.
	MaxLoopIterations uint
}

// DefaultSetting returns the setting used when no flags override it.
func DefaultSetting(fld *field.Field) Setting {
	return Setting{
		Field:             fld,
		MaxDepth:          64,
		MaxLoopIterations: 4096,
	}
}

// WarningKind classifies analyzer limitations, which never abort the run.
type WarningKind uint8

const (
	// SymbolicLoopBound marks a loop whose bound never became concrete, or
	// which ran past the unrolling limit.
	SymbolicLoopBound WarningKind = iota
	// NonUniqueHintTarget marks a witness hint whose left-hand side is not a
	// unique signal; such hints do not propagate values.
	NonUniqueHintTarget
	// DepthExceeded marks a path abandoned at the inlining depth bound.
	DepthExceeded
	// UnsupportedNode marks an AST construct outside the analyzable core.
	UnsupportedNode
)

func (k WarningKind) String() string {
	switch k {
	case SymbolicLoopBound:
		return "symbolic-loop-bound"
	case NonUniqueHintTarget:
		return "non-unique-hint-target"
	case DepthExceeded:
		return "depth-exceeded"
	default:
		return "unsupported-node"
	}
}

// Warning is a structured analyzer-limitation report.
type Warning struct {
	Kind    WarningKind
	Owner   string
	Message string
}
