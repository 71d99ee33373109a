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
package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Koukyosyumei/zkFuzz/pkg/ast"
)

// printAST renders the parsed circuit as an indented tree.
func printAST(w io.Writer, c *ast.Circuit) {
	names := make([]string, 0, len(c.Templates))
	for n := range c.Templates {
		names = append(names, n)
	}
	//
	sort.Strings(names)
	//
	for _, n := range names {
		t := c.Templates[n]
		fmt.Fprintf(w, "template %s(%s)\n", t.Name, strings.Join(t.Params, ", "))
		printStmts(w, t.Body, 1)
	}
	//
	names = names[:0]
	for n := range c.Functions {
		names = append(names, n)
	}
	//
	sort.Strings(names)
	//
	for _, n := range names {
		f := c.Functions[n]
		fmt.Fprintf(w, "function %s(%s)\n", f.Name, strings.Join(f.Params, ", "))
		printStmts(w, f.Body, 1)
	}
	//
	fmt.Fprintf(w, "component main = %s\n", c.Main)
}

func printStmts(w io.Writer, body []ast.Stmt, depth int) {
	pad := strings.Repeat("  ", depth)
	//
	for _, stmt := range body {
		switch st := stmt.(type) {
		case *ast.SignalDecl:
			fmt.Fprintf(w, "%ssignal %s %s%s\n", pad, st.Kind, st.Name, dimsString(st.Dims))
		case *ast.VarDecl:
			if st.Init != nil {
				fmt.Fprintf(w, "%svar %s = %s\n", pad, st.Name, exprString(st.Init))
			} else {
				fmt.Fprintf(w, "%svar %s%s\n", pad, st.Name, dimsString(st.Dims))
			}
		case *ast.Assign:
			fmt.Fprintf(w, "%s%s = %s\n", pad, exprString(st.Target), exprString(st.Rhs))
		case *ast.WitnessHint:
			fmt.Fprintf(w, "%s%s <-- %s\n", pad, exprString(st.Target), exprString(st.Rhs))
		case *ast.EqualityConstraint:
			op := "==="
			if st.Assign {
				op = "<=="
			}
			//
			fmt.Fprintf(w, "%s%s %s %s\n", pad, exprString(st.Lhs), op, exprString(st.Rhs))
		case *ast.Component:
			fmt.Fprintf(w, "%scomponent %s%s = %s(...)\n", pad, st.Name, dimsString(st.Dims), st.Template)
		case *ast.If:
			fmt.Fprintf(w, "%sif %s\n", pad, exprString(st.Cond))
			printStmts(w, st.Then, depth+1)
			//
			if len(st.Else) > 0 {
				fmt.Fprintf(w, "%selse\n", pad)
				printStmts(w, st.Else, depth+1)
			}
		case *ast.For:
			fmt.Fprintf(w, "%sfor (...; %s; ...)\n", pad, exprString(st.Cond))
			printStmts(w, st.Body, depth+1)
		case *ast.Return:
			fmt.Fprintf(w, "%sreturn %s\n", pad, exprString(st.Expr))
		case *ast.Assert:
			fmt.Fprintf(w, "%sassert %s\n", pad, exprString(st.Cond))
		default:
			fmt.Fprintf(w, "%s%T\n", pad, stmt)
		}
	}
}

var infixSymbols = map[ast.InfixOp]string{
	ast.OpAdd: "+", ast.OpSub: "-", ast.OpMul: "*", ast.OpDiv: "/",
	ast.OpPow: "**", ast.OpEq: "==", ast.OpNEq: "!=", ast.OpLt: "<",
	ast.OpLEq: "<=", ast.OpGt: ">", ast.OpGEq: ">=", ast.OpAnd: "&&",
	ast.OpOr: "||",
}

func exprString(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.Number:
		return x.Value.String()
	case *ast.Ident:
		return x.Name
	case *ast.Index:
		return fmt.Sprintf("%s[%s]", exprString(x.Base), exprString(x.Index))
	case *ast.Member:
		return fmt.Sprintf("%s.%s", exprString(x.Base), x.Name)
	case *ast.Infix:
		return fmt.Sprintf("(%s %s %s)", exprString(x.Lhs), infixSymbols[x.Op], exprString(x.Rhs))
	case *ast.Prefix:
		if x.Op == ast.OpNeg {
			return fmt.Sprintf("(-%s)", exprString(x.X))
		}
		//
		return fmt.Sprintf("(!%s)", exprString(x.X))
	case *ast.Ternary:
		return fmt.Sprintf("(%s ? %s : %s)",
			exprString(x.Cond), exprString(x.Then), exprString(x.Else))
	case *ast.Call:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = exprString(a)
		}
		//
		return fmt.Sprintf("%s(%s)", x.Fn, strings.Join(args, ", "))
	default:
		return fmt.Sprintf("%T", e)
	}
}

func dimsString(dims []ast.Expr) string {
	var sb strings.Builder
	for _, d := range dims {
		fmt.Fprintf(&sb, "[%s]", exprString(d))
	}
	//
	return sb.String()
}
