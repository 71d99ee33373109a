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

// Name identifies a signal or variable as a dotted path rooted at the main
// template instance, e.g. "main.inv" or "main.sub.out[3]".  Array indices
// with statically known values are flattened into the name itself.
type Name string

// Qualify prefixes a local identifier with its owning template instance.
func Qualify(owner, local string) Name {
	return Name(owner + "." + local)
}

// Indexed appends a statically known array index to a name.
func Indexed(base Name, index int) Name {
	return Name(fmt.Sprintf("%s[%d]", base, index))
}

// Local strips the owner prefix, returning the trailing identifier including
// any flattened indices.
func (n Name) Local() string {
	s := string(n)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	//
	return s
}

// Owner returns the owning instance path, or "" for an unqualified name.
func (n Name) Owner() string {
	s := string(n)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[:i]
	}
	//
	return ""
}

// Base strips any flattened array indices, e.g. "main.out[3]" -> "main.out".
func (n Name) Base() Name {
	s := string(n)
	if i := strings.Index(s, "["); i >= 0 {
		return Name(s[:i])
	}
	//
	return n
}
