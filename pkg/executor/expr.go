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

var infix2op = map[ast.InfixOp]symbolic.Op{
	ast.OpAdd: symbolic.ADD,
	ast.OpSub: symbolic.SUB,
	ast.OpMul: symbolic.MUL,
	ast.OpDiv: symbolic.DIV,
	ast.OpPow: symbolic.POW,
	ast.OpEq:  symbolic.EQ,
	ast.OpNEq: symbolic.NEQ,
	ast.OpLt:  symbolic.LT,
	ast.OpLEq: symbolic.LEQ,
	ast.OpGt:  symbolic.GT,
	ast.OpGEq: symbolic.GEQ,
	ast.OpAnd: symbolic.AND,
	ast.OpOr:  symbolic.OR,
}

// eval translates an AST expression into the arena, resolving every symbol
// through the current state (or through the local scope of a function body
// when scope is non-nil).
func (e *Executor) eval(t *task, owner string, scope map[string]symbolic.ExprID, x ast.Expr) (symbolic.ExprID, error) {
	switch x := x.(type) {
	case *ast.Number:
		return e.arena.Const(x.Value), nil
	case *ast.Ident, *ast.Index, *ast.Member:
		name, err := e.resolveName(t, owner, scope, x)
		if err != nil {
			return symbolic.None, err
		}
		//
		if scope != nil {
			if v, ok := scope[string(name)]; ok {
				return v, nil
			}
			//
			return symbolic.None, fmt.Errorf("unknown symbol %s in function body", name)
		}
		//
		return e.lookup(t, name)
	case *ast.Infix:
		lhs, err := e.eval(t, owner, scope, x.Lhs)
		if err != nil {
			return symbolic.None, err
		}
		//
		rhs, err := e.eval(t, owner, scope, x.Rhs)
		if err != nil {
			return symbolic.None, err
		}
		//
		return e.arena.Binary(infix2op[x.Op], lhs, rhs), nil
	case *ast.Prefix:
		v, err := e.eval(t, owner, scope, x.X)
		if err != nil {
			return symbolic.None, err
		}
		//
		if x.Op == ast.OpNeg {
			return e.arena.Unary(symbolic.NEG, v), nil
		}
		//
		return e.arena.Unary(symbolic.NOT, v), nil
	case *ast.Ternary:
		c, err := e.eval(t, owner, scope, x.Cond)
		if err != nil {
			return symbolic.None, err
		}
		//
		a, err := e.eval(t, owner, scope, x.Then)
		if err != nil {
			return symbolic.None, err
		}
		//
		b, err := e.eval(t, owner, scope, x.Else)
		if err != nil {
			return symbolic.None, err
		}
		//
		return e.arena.Cond(c, a, b), nil
	case *ast.Call:
		return e.evalCall(t, owner, scope, x)
	default:
		return symbolic.None, fmt.Errorf("expression %T outside the analyzable core", x)
	}
}

// lookup resolves a symbol through the state's value map.  References to an
// assigned signal normally stay symbolic; under --propagate_substitution the
// computed value is inlined instead.
func (e *Executor) lookup(t *task, name symbolic.Name) (symbolic.ExprID, error) {
	if _, isSignal := e.signals[name]; isSignal {
		if t.state.Assigned(name) && !e.setting.PropagateSubstitution {
			return e.arena.Signal(name), nil
		}
	}
	//
	if v, ok := t.state.Get(name); ok {
		return v, nil
	}
	//
	return symbolic.None, fmt.Errorf("reference to undeclared or unassigned symbol %s", name)
}

// resolveName flattens an assignment target or symbol reference into a
// qualified name.  Array indices must be statically known by the time they
// are resolved.
func (e *Executor) resolveName(t *task, owner string, scope map[string]symbolic.ExprID, x ast.Expr) (symbolic.Name, error) {
	switch x := x.(type) {
	case *ast.Ident:
		if scope != nil {
			return symbolic.Name(x.Name), nil
		}
		//
		return symbolic.Qualify(owner, x.Name), nil
	case *ast.Index:
		base, err := e.resolveName(t, owner, scope, x.Base)
		if err != nil {
			return "", err
		}
		//
		idx, err := e.constIndex(t, owner, scope, x.Index)
		if err != nil {
			return "", err
		}
		//
		return symbolic.Indexed(base, idx), nil
	case *ast.Member:
		base, err := e.resolveName(t, owner, scope, x.Base)
		if err != nil {
			return "", err
		}
		//
		return symbolic.Name(string(base) + "." + x.Name), nil
	default:
		return "", fmt.Errorf("expression %T does not name a symbol", x)
	}
}

// constIndex evaluates an array index which must simplify to a constant.
func (e *Executor) constIndex(t *task, owner string, scope map[string]symbolic.ExprID, x ast.Expr) (int, error) {
	v, err := e.eval(t, owner, scope, x)
	if err != nil {
		return 0, err
	}
	//
	v = e.arena.Simplify(v)
	if !e.arena.IsConst(v) {
		return 0, fmt.Errorf("array index %s is not statically known", e.arena.String(v))
	}
	//
	if !e.arena.Value(v).IsInt64() {
		return 0, fmt.Errorf("array index %s out of range", e.arena.Value(v))
	}
	//
	return int(e.arena.Value(v).Int64()), nil
}

// bindParams binds template parameters under the callee owner, either to the
// evaluated caller-side arguments or, for the main template under
// --symbolic_template_params, to fresh free variables.
func (e *Executor) bindParams(t *task, callerOwner, childOwner string, tmpl *ast.Template, args []ast.Expr, symbolicMode bool) error {
	if symbolicMode {
		for _, p := range tmpl.Params {
			name := symbolic.Qualify(childOwner, p)
			t.state.Bind(name, e.arena.Var(name))
		}
		//
		return nil
	}
	//
	if len(args) != len(tmpl.Params) {
		return fmt.Errorf("template %s expects %d arguments, got %d",
			tmpl.Name, len(tmpl.Params), len(args))
	}
	//
	for i, p := range tmpl.Params {
		v, err := e.eval(t, callerOwner, nil, args[i])
		if err != nil {
			return err
		}
		//
		t.state.Bind(symbolic.Qualify(childOwner, p), e.arena.Simplify(v))
	}
	//
	return nil
}

// ============================================================================
// Function calls
// ============================================================================

// evalCall substitutes the arguments into a pure function body and evaluates
// it symbolically; the returned expression replaces the call site.
func (e *Executor) evalCall(t *task, owner string, scope map[string]symbolic.ExprID, x *ast.Call) (symbolic.ExprID, error) {
	fn, ok := e.circuit.Functions[x.Fn]
	if !ok {
		return symbolic.None, fmt.Errorf("unknown function %s", x.Fn)
	}
	//
	if len(x.Args) != len(fn.Params) {
		return symbolic.None, fmt.Errorf("function %s expects %d arguments, got %d",
			x.Fn, len(fn.Params), len(x.Args))
	}
	//
	env := make(map[string]symbolic.ExprID, len(fn.Params))
	//
	for i, p := range fn.Params {
		v, err := e.eval(t, owner, scope, x.Args[i])
		if err != nil {
			return symbolic.None, err
		}
		//
		env[p] = e.arena.Simplify(v)
	}
	//
	ret, returned, err := e.runLocal(t, fn.Name, env, fn.Body)
	if err != nil {
		return symbolic.None, err
	}
	//
	if !returned {
		return symbolic.None, fmt.Errorf("function %s fell off the end without returning", x.Fn)
	}
	//
	return ret, nil
}

// runLocal interprets a function body over a local environment.  Functions
// are signal-free and their control flow must become concrete once the
// arguments are substituted; anything else is an analyzer limitation.
func (e *Executor) runLocal(t *task, fname string, env map[string]symbolic.ExprID, body []ast.Stmt) (symbolic.ExprID, bool, error) {
	for _, stmt := range body {
		switch st := stmt.(type) {
		case *ast.VarDecl:
			if len(st.Dims) > 0 {
				continue
			}
			//
			if st.Init != nil {
				v, err := e.eval(t, fname, env, st.Init)
				if err != nil {
					return symbolic.None, false, err
				}
				//
				env[st.Name] = e.arena.Simplify(v)
			}
		case *ast.Assign:
			name, err := e.resolveName(t, fname, env, st.Target)
			if err != nil {
				return symbolic.None, false, err
			}
			//
			v, err := e.eval(t, fname, env, st.Rhs)
			if err != nil {
				return symbolic.None, false, err
			}
			//
			env[string(name)] = e.arena.Simplify(v)
		case *ast.If:
			taken, err := e.concreteCond(t, fname, env, st.Cond)
			if err != nil {
				return symbolic.None, false, err
			}
			//
			branch := st.Then
			if !taken {
				branch = st.Else
			}
			//
			ret, returned, err := e.runLocal(t, fname, env, branch)
			if err != nil || returned {
				return ret, returned, err
			}
		case *ast.For:
			if st.Init != nil {
				if _, _, err := e.runLocal(t, fname, env, []ast.Stmt{st.Init}); err != nil {
					return symbolic.None, false, err
				}
			}
			//
			for iters := uint(0); ; iters++ {
				if iters > e.setting.MaxLoopIterations {
					return symbolic.None, false,
						fmt.Errorf("loop in function %s exceeded %d iterations", fname, e.setting.MaxLoopIterations)
				}
				//
				taken, err := e.concreteCond(t, fname, env, st.Cond)
				if err != nil {
					return symbolic.None, false, err
				}
				//
				if !taken {
					break
				}
				//
				ret, returned, err := e.runLocal(t, fname, env, st.Body)
				if err != nil || returned {
					return ret, returned, err
				}
				//
				if st.Step != nil {
					if _, _, err := e.runLocal(t, fname, env, []ast.Stmt{st.Step}); err != nil {
						return symbolic.None, false, err
					}
				}
			}
		case *ast.Return:
			v, err := e.eval(t, fname, env, st.Expr)
			if err != nil {
				return symbolic.None, false, err
			}
			//
			return e.arena.Simplify(v), true, nil
		default:
			return symbolic.None, false,
				fmt.Errorf("statement %T not permitted in function %s", stmt, fname)
		}
	}
	//
	return symbolic.None, false, nil
}

func (e *Executor) concreteCond(t *task, fname string, env map[string]symbolic.ExprID, cond ast.Expr) (bool, error) {
	v, err := e.eval(t, fname, env, cond)
	if err != nil {
		return false, err
	}
	//
	v = e.arena.Simplify(v)
	if !e.arena.IsConst(v) {
		return false, fmt.Errorf("condition %s in function %s never becomes concrete",
			e.arena.String(v), fname)
	}
	//
	return e.arena.Value(v).Sign() != 0, nil
}
