// Copyright (c) 2025, the authproof authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logic

// This file implements String() functions for pretty-printing elements.
// The formula, judgement, and sequent printers round-trip with the parser.

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	precedenceForall = iota // lowest
	precedenceSays
	precedenceImplies
	precedenceAtom // predicates, constants, variables, sign
)

func precedence(f Form) int {
	switch f.(type) {
	case Forall:
		return precedenceForall
	case Says:
		return precedenceSays
	case Implies:
		return precedenceImplies
	default:
		return precedenceAtom
	}
}

func printForm(out *bytes.Buffer, min int, f Form) {
	if precedence(f) < min {
		out.WriteString("(")
		printForm(out, precedenceForall, f)
		out.WriteString(")")
		return
	}
	switch f := f.(type) {
	case Var:
		out.WriteString(string(f))
	case Const:
		if f {
			out.WriteString("true")
		} else {
			out.WriteString("false")
		}
	case Implies:
		// Left-associative: a chain prints flat, while a right-nested
		// consequent keeps its parens.
		printForm(out, precedenceImplies, f.Antecedent)
		out.WriteString(" -> ")
		printForm(out, precedenceAtom, f.Consequent)
	case Says:
		fmt.Fprintf(out, "%s says ", f.Speaker)
		printForm(out, precedenceImplies, f.Message)
	case IsKey:
		fmt.Fprintf(out, "iskey(%s, %s)", f.Agent, f.Key)
	case Sign:
		out.WriteString("sign(")
		printForm(out, precedenceForall, f.Message)
		fmt.Fprintf(out, ", %s)", f.Key)
	case IsCA:
		fmt.Fprintf(out, "ca(%s)", f.Agent)
	case Open:
		fmt.Fprintf(out, "open(%s, %s)", f.Agent, f.Resource)
	case Forall:
		fmt.Fprintf(out, "@%s . ", f.Var)
		printForm(out, precedenceForall, f.Body)
	case Apply:
		fmt.Fprintf(out, "%s(%s)", f.Fn, f.Arg)
	}
}

// String returns the variable's name.
func (t Var) String() string { return string(t) }

// String returns the agent's name, '#' included.
func (t Agent) String() string { return string(t) }

// String returns the bracketed key fingerprint.
func (t Key) String() string { return string(t) }

// String returns the angle-quoted resource name.
func (t Resource) String() string { return string(t) }

func (f Const) String() string   { return formString(f) }
func (f Implies) String() string { return formString(f) }
func (f Says) String() string    { return formString(f) }
func (f IsKey) String() string   { return formString(f) }
func (f Sign) String() string    { return formString(f) }
func (f IsCA) String() string    { return formString(f) }
func (f Open) String() string    { return formString(f) }
func (f Forall) String() string  { return formString(f) }
func (f Apply) String() string   { return formString(f) }

func formString(f Form) string {
	var out bytes.Buffer
	printForm(&out, precedenceForall, f)
	return out.String()
}

// String returns the judgement as "F true".
func (j Proposition) String() string {
	var out bytes.Buffer
	printForm(&out, precedenceForall, j.P)
	out.WriteString(" true")
	return out.String()
}

// String returns the judgement as "A aff F".
func (j Affirmation) String() string {
	var out bytes.Buffer
	fmt.Fprintf(&out, "%s aff ", j.A)
	printForm(&out, precedenceForall, j.P)
	return out.String()
}

// String returns the sequent as "J, ..., J |- J".
func (s Sequent) String() string {
	parts := make([]string, len(s.Gamma))
	for i, j := range s.Gamma {
		parts[i] = j.String()
	}
	if len(parts) == 0 {
		return fmt.Sprintf("|- %v", s.Delta)
	}
	return fmt.Sprintf("%s |- %v", strings.Join(parts, ", "), s.Delta)
}

// String returns the rule as premises over a line, with its name.
func (r Rule) String() string {
	var out bytes.Buffer
	for _, prem := range r.Premises {
		fmt.Fprintf(&out, "%v\n", prem)
	}
	fmt.Fprintf(&out, "--------------- %s\n%v", r.Name, r.Conclusion)
	return out.String()
}

// String returns the substitution as "x => t" pairs.
func (rho Subst) String() string {
	parts := make([]string, 0, len(rho))
	for v, e := range rho {
		parts = append(parts, fmt.Sprintf("%v => %v", v, e))
	}
	return strings.Join(parts, ", ")
}

// String returns an indented rendering of the proof tree. Closed nodes are
// tagged with their rule name; open obligations are tagged "open".
func (p *Proof) String() string {
	var out bytes.Buffer
	printProof(&out, p, 0)
	return out.String()
}

func printProof(out *bytes.Buffer, b Branch, depth int) {
	indent := strings.Repeat("  ", depth)
	switch b := b.(type) {
	case Sequent:
		fmt.Fprintf(out, "%sopen: %v\n", indent, b)
	case *Proof:
		fmt.Fprintf(out, "%s[%s] %v\n", indent, b.Rule.Name, b.Conclusion)
		for _, prem := range b.Premises {
			printProof(out, prem, depth+1)
		}
	}
}
