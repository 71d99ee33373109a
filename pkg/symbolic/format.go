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
	"fmt"
	"strings"
)

// String renders an expression in fully parenthesised infix form.  Constants
// above p/2 are shown as their signed representatives, matching the signed
// interpretation used by comparisons.
func (a *Arena) String(e ExprID) string {
	var sb strings.Builder
	//
	a.format(e, &sb)
	//
	return sb.String()
}

func (a *Arena) format(e ExprID, sb *strings.Builder) {
	switch op := a.Op(e); op {
	case CONST:
		sb.WriteString(a.fld.Signed(a.Value(e)).String())
	case VAR, SIGNAL:
		sb.WriteString(string(a.NameOf(e)))
	case NEG:
		sb.WriteString("(-")
		a.format(a.Operand(e, 0), sb)
		sb.WriteString(")")
	case NOT:
		sb.WriteString("(!")
		a.format(a.Operand(e, 0), sb)
		sb.WriteString(")")
	case COND:
		sb.WriteString("(")
		a.format(a.Operand(e, 0), sb)
		sb.WriteString(" ? ")
		a.format(a.Operand(e, 1), sb)
		sb.WriteString(" : ")
		a.format(a.Operand(e, 2), sb)
		sb.WriteString(")")
	default:
		fmt.Fprintf(sb, "(")
		a.format(a.Operand(e, 0), sb)
		fmt.Fprintf(sb, " %s ", op)
		a.format(a.Operand(e, 1), sb)
		fmt.Fprintf(sb, ")")
	}
}
