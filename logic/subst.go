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

// Subst maps variables to the terms or formulas they stand for. A
// substitution is always applied as a single simultaneous map, never
// iteratively composed in place.
type Subst map[Var]Element

// Clone returns a copy of the substitution that can be extended without
// affecting the original.
func (rho Subst) Clone() Subst {
	out := make(Subst, len(rho)+1)
	for v, e := range rho {
		out[v] = e
	}
	return out
}

// without returns a copy of the substitution with the given variable
// removed.
func (rho Subst) without(x Var) Subst {
	out := make(Subst, len(rho))
	for v, e := range rho {
		if v != x {
			out[v] = e
		}
	}
	return out
}

// ApplyTerm applies the substitution to a term. A variable bound to a
// non-term is left in place.
func ApplyTerm(t Term, rho Subst) Term {
	if x, ok := t.(Var); ok {
		if b, ok := rho[x].(Term); ok {
			return b
		}
	}
	return t
}

// ApplyForm applies the substitution to a formula. The bound variable of a
// quantifier shadows any binding of the same name, so substitution is
// capture-avoiding with respect to the quantifier's own variable.
func ApplyForm(p Form, rho Subst) Form {
	switch p := p.(type) {
	case Var:
		if b, ok := rho[p].(Form); ok {
			return b
		}
		return p
	case Const:
		return p
	case Implies:
		return Implies{ApplyForm(p.Antecedent, rho), ApplyForm(p.Consequent, rho)}
	case Says:
		return Says{ApplyTerm(p.Speaker, rho), ApplyForm(p.Message, rho)}
	case IsKey:
		return IsKey{ApplyTerm(p.Agent, rho), ApplyTerm(p.Key, rho)}
	case Sign:
		return Sign{ApplyForm(p.Message, rho), ApplyTerm(p.Key, rho)}
	case IsCA:
		return IsCA{ApplyTerm(p.Agent, rho)}
	case Open:
		return Open{ApplyTerm(p.Agent, rho), ApplyTerm(p.Resource, rho)}
	case Forall:
		return Forall{p.Var, ApplyForm(p.Body, rho.without(p.Var))}
	case Apply:
		// A template application resolves to whatever its metavariable is
		// bound to; the argument is consumed during matching.
		return ApplyForm(p.Fn, rho)
	}
	return p
}

// ApplyJudgement applies the substitution to a judgement.
func ApplyJudgement(j Judgement, rho Subst) Judgement {
	switch j := j.(type) {
	case Proposition:
		return Proposition{ApplyForm(j.P, rho)}
	case Affirmation:
		return Affirmation{ApplyTerm(j.A, rho), ApplyForm(j.P, rho)}
	}
	return j
}

// ApplySequent applies the substitution to every judgement of a sequent.
func ApplySequent(seq Sequent, rho Subst) Sequent {
	gamma := make([]Judgement, len(seq.Gamma))
	for i, p := range seq.Gamma {
		gamma[i] = ApplyJudgement(p, rho)
	}
	return Sequent{Gamma: gamma, Delta: ApplyJudgement(seq.Delta, rho)}
}
