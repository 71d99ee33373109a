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
package stats

import (
	"fmt"
	"io"

	"github.com/Koukyosyumei/zkFuzz/pkg/ast"
)

// ASTStats counts the building blocks of a circuit.
type ASTStats struct {
	Templates   int
	Functions   int
	Statements  int
	Expressions int
	Signals     int
	Components  int
	Constraints int
}

// CollectAST walks the whole circuit and tallies its nodes.
func CollectAST(c *ast.Circuit) ASTStats {
	var s ASTStats
	//
	for _, t := range c.Templates {
		s.Templates++
		s.countStmts(t.Body)
	}
	//
	for _, f := range c.Functions {
		s.Functions++
		s.countStmts(f.Body)
	}
	//
	return s
}

func (s *ASTStats) countStmts(body []ast.Stmt) {
	for _, stmt := range body {
		s.Statements++
		//
		switch st := stmt.(type) {
		case *ast.SignalDecl:
			s.Signals++
			s.countExprs(st.Dims...)
		case *ast.VarDecl:
			s.countExprs(st.Dims...)
			s.countExprs(st.Init)
		case *ast.Assign:
			s.countExprs(st.Target, st.Rhs)
		case *ast.WitnessHint:
			s.countExprs(st.Target, st.Rhs)
		case *ast.EqualityConstraint:
			s.Constraints++
			s.countExprs(st.Lhs, st.Rhs)
		case *ast.Component:
			s.Components++
			s.countExprs(st.Dims...)
			s.countExprs(st.Args...)
		case *ast.If:
			s.countExprs(st.Cond)
			s.countStmts(st.Then)
			s.countStmts(st.Else)
		case *ast.For:
			if st.Init != nil {
				s.countStmts([]ast.Stmt{st.Init})
			}
			//
			s.countExprs(st.Cond)
			//
			if st.Step != nil {
				s.countStmts([]ast.Stmt{st.Step})
			}
			//
			s.countStmts(st.Body)
		case *ast.Return:
			s.countExprs(st.Expr)
		case *ast.Assert:
			s.countExprs(st.Cond)
		}
	}
}

func (s *ASTStats) countExprs(exprs ...ast.Expr) {
	for _, e := range exprs {
		if e == nil {
			continue
		}
		//
		s.Expressions++
		//
		switch x := e.(type) {
		case *ast.Index:
			s.countExprs(x.Base, x.Index)
		case *ast.Member:
			s.countExprs(x.Base)
		case *ast.Infix:
			s.countExprs(x.Lhs, x.Rhs)
		case *ast.Prefix:
			s.countExprs(x.X)
		case *ast.Ternary:
			s.countExprs(x.Cond, x.Then, x.Else)
		case *ast.Call:
			s.countExprs(x.Args...)
		}
	}
}

// Print renders the tally.
func (s ASTStats) Print(w io.Writer) {
	fmt.Fprintf(w, "ast statistics\n")
	fmt.Fprintf(w, "  templates   : %d\n", s.Templates)
	fmt.Fprintf(w, "  functions   : %d\n", s.Functions)
	fmt.Fprintf(w, "  statements  : %d\n", s.Statements)
	fmt.Fprintf(w, "  expressions : %d\n", s.Expressions)
	fmt.Fprintf(w, "  signals     : %d\n", s.Signals)
	fmt.Fprintf(w, "  components  : %d\n", s.Components)
	fmt.Fprintf(w, "  constraints : %d\n", s.Constraints)
}
