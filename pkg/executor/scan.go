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

import (
	"fmt"

	"github.com/Koukyosyumei/zkFuzz/pkg/ast"
	"github.com/Koukyosyumei/zkFuzz/pkg/symbolic"
)

// prescan materializes every signal declared at the top level of a template
// body under the given owner: each flattened name is registered with its
// kind and bound to its own symbolic atom, so references ahead of assignment
// stay symbolic.  Template parameters must already be bound, since array
// dimensions may mention them.
func (e *Executor) prescan(t *task, owner string, tmpl *ast.Template, isMain bool) error {
	for _, stmt := range tmpl.Body {
		decl, ok := stmt.(*ast.SignalDecl)
		if !ok {
			continue
		}
		//
		names, err := e.flattenDecl(t, owner, decl)
		if err != nil {
			return fmt.Errorf("template %s: %w", tmpl.Name, err)
		}
		//
		for _, n := range names {
			e.signals[n] = decl.Kind
			t.state.Bind(n, e.arena.Signal(n))
			//
			if isMain {
				switch decl.Kind {
				case ast.INPUT:
					e.inputs = append(e.inputs, n)
				case ast.OUTPUT:
					e.outputs = append(e.outputs, n)
				}
			}
		}
	}
	//
	return nil
}

// prescanInstance prescans a component instance, additionally recording its
// input signals as pending connections.
func (e *Executor) prescanInstance(t *task, owner string, tmpl *ast.Template, inst *instance) error {
	if err := e.prescan(t, owner, tmpl, false); err != nil {
		return err
	}
	//
	for _, stmt := range tmpl.Body {
		decl, ok := stmt.(*ast.SignalDecl)
		if !ok || decl.Kind != ast.INPUT {
			continue
		}
		//
		names, err := e.flattenDecl(t, owner, decl)
		if err != nil {
			return err
		}
		//
		for _, n := range names {
			inst.pending[n] = true
		}
	}
	//
	return nil
}

// flattenDecl expands a possibly array-shaped declaration into its flattened
// names, e.g. out[2][2] -> out[0][0] .. out[1][1].
func (e *Executor) flattenDecl(t *task, owner string, decl *ast.SignalDecl) ([]symbolic.Name, error) {
	dims, err := e.evalDims(t, owner, decl.Dims)
	if err != nil {
		return nil, fmt.Errorf("signal %s: %w", decl.Name, err)
	}
	//
	return flatten(symbolic.Qualify(owner, decl.Name), dims), nil
}

// evalDims evaluates declaration dimensions, all of which must be statically
// known once parameters are bound.
func (e *Executor) evalDims(t *task, owner string, dims []ast.Expr) ([]int, error) {
	out := make([]int, len(dims))
	//
	for i, d := range dims {
		n, err := e.constIndex(t, owner, nil, d)
		if err != nil {
			return nil, err
		}
		//
		if n < 0 {
			return nil, fmt.Errorf("negative array dimension %d", n)
		}
		//
		out[i] = n
	}
	//
	return out, nil
}

func flatten(base symbolic.Name, dims []int) []symbolic.Name {
	if len(dims) == 0 {
		return []symbolic.Name{base}
	}
	//
	var out []symbolic.Name
	for i := 0; i < dims[0]; i++ {
		out = append(out, flatten(symbolic.Indexed(base, i), dims[1:])...)
	}
	//
	return out
}

// instanceOwners expands a component declaration into the owner path of each
// instance it creates, one per flattened index for array components.
func (e *Executor) instanceOwners(t *task, owner string, st *ast.Component) ([]string, error) {
	base := symbolic.Qualify(owner, st.Name)
	//
	dims, err := e.evalDims(t, owner, st.Dims)
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", st.Name, err)
	}
	//
	names := flatten(base, dims)
	out := make([]string, len(names))
	//
	for i, n := range names {
		out[i] = string(n)
	}
	//
	return out, nil
}
