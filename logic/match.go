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

// This file implements first-order matching of rule templates against
// concrete formulas, judgements, and sequents. Match failure is an ordinary
// outcome, reported as a nil substitution or an empty enumeration, never as
// an error.

// equation is a single template/value pair awaiting unification.
type equation struct {
	pat Element
	val Element
}

// holeFor returns the bookkeeping variable that records which argument
// variable a template application's metavariable was first seen with.
func holeFor(fn Var) Var {
	return Var("@P" + string(fn))
}

// matchElems finds a substitution rho extending the given one such that
// applying rho to each equation's template yields its value. A template
// variable bound by an earlier equation must match consistently; no
// occurs-check is needed for this grammar. Returns nil when no assignment
// reconciles the equations.
func matchElems(eqs []equation, rho Subst) Subst {
	if rho == nil {
		return nil
	}
	if len(eqs) == 0 {
		return rho
	}
	pat, val := eqs[0].pat, eqs[0].val
	rest := eqs[1:]

	switch pat := pat.(type) {
	case Var:
		if prev, bound := rho[pat]; bound {
			if prev == val {
				return matchElems(rest, rho)
			}
			return nil
		}
		ext := rho.Clone()
		ext[pat] = val
		return matchElems(rest, ext)

	case Apply:
		return matchApply(pat, val, rest, rho)

	case Forall:
		other, ok := val.(Forall)
		if !ok {
			return nil
		}
		// Shadow the template's bound variable, rename the concrete bound
		// variable to it, and match the bodies. The bound variable never
		// escapes into the result.
		body := ApplyForm(other.Body, Subst{other.Var: pat.Var})
		res := matchElems(
			append([]equation{{pat.Body, body}}, rest...),
			rho.without(pat.Var),
		)
		if res == nil {
			return nil
		}
		return res.without(pat.Var)

	case Implies:
		if o, ok := val.(Implies); ok {
			return matchElems(append([]equation{
				{pat.Antecedent, o.Antecedent},
				{pat.Consequent, o.Consequent},
			}, rest...), rho)
		}
		return nil

	case Says:
		if o, ok := val.(Says); ok {
			return matchElems(append([]equation{
				{pat.Speaker, o.Speaker},
				{pat.Message, o.Message},
			}, rest...), rho)
		}
		return nil

	case IsKey:
		if o, ok := val.(IsKey); ok {
			return matchElems(append([]equation{
				{pat.Agent, o.Agent},
				{pat.Key, o.Key},
			}, rest...), rho)
		}
		return nil

	case Sign:
		if o, ok := val.(Sign); ok {
			return matchElems(append([]equation{
				{pat.Message, o.Message},
				{pat.Key, o.Key},
			}, rest...), rho)
		}
		return nil

	case IsCA:
		if o, ok := val.(IsCA); ok {
			return matchElems(append([]equation{{pat.Agent, o.Agent}}, rest...), rho)
		}
		return nil

	case Open:
		if o, ok := val.(Open); ok {
			return matchElems(append([]equation{
				{pat.Agent, o.Agent},
				{pat.Resource, o.Resource},
			}, rest...), rho)
		}
		return nil

	default:
		// Ground constants: agents, keys, resources, true/false.
		if pat == val {
			return matchElems(rest, rho)
		}
		return nil
	}
}

// matchApply unifies a template application P(x) against a concrete
// formula. The first occurrence of P binds the metavariable to the whole
// formula and records the argument variable; a later occurrence P(e)
// re-matches the recorded pattern against the formula to infer the term
// that e must stand for.
func matchApply(pat Apply, val Element, rest []equation, rho Subst) Subst {
	hole := holeFor(pat.Fn)
	if _, seen := rho[hole]; !seen {
		ext := rho.Clone()
		ext[pat.Fn] = val
		ext[hole] = pat.Arg
		return matchElems(rest, ext)
	}

	argVar, ok := rho[hole].(Var)
	if !ok {
		return nil
	}
	ext := rho.Clone()
	if b, bound := rho[pat.Arg]; bound {
		ext[argVar] = b
	} else {
		ext[pat.Arg] = argVar
	}
	ext = matchElems([]equation{{rho[pat.Fn], val}}, ext)
	if ext == nil {
		return nil
	}
	inferred, ok := ext[argVar]
	if !ok {
		return nil
	}
	out := ext.without(argVar).without(pat.Arg)
	out[pat.Arg] = inferred
	return matchElems(rest, out)
}

// MatchForm attempts to unify a template formula against a concrete
// formula, extending rho. Returns nil on failure.
func MatchForm(pat, val Form, rho Subst) Subst {
	if rho == nil {
		rho = Subst{}
	}
	return matchElems([]equation{{pat, val}}, rho)
}

// matchJudgements unifies template/value judgement pairs. An affirmation
// template with a variable principal binds the variable to the concrete
// principal; rebinding it to a different principal fails.
func matchJudgements(pairs [][2]Judgement, rho Subst) Subst {
	if rho == nil {
		return nil
	}
	eqs := []equation{}
	for _, pair := range pairs {
		switch pat := pair[0].(type) {
		case Proposition:
			val, ok := pair[1].(Proposition)
			if !ok {
				return nil
			}
			eqs = append(eqs, equation{pat.P, val.P})
		case Affirmation:
			val, ok := pair[1].(Affirmation)
			if !ok {
				return nil
			}
			switch a := pat.A.(type) {
			case Var:
				if prev, bound := rho[a]; bound {
					if prev != Element(val.A) {
						return nil
					}
				} else {
					rho = rho.Clone()
					rho[a] = val.A
				}
				eqs = append(eqs, equation{pat.P, val.P})
			case Agent:
				if a != val.A {
					return nil
				}
				eqs = append(eqs, equation{pat.P, val.P})
			default:
				return nil
			}
		default:
			return nil
		}
	}
	return matchElems(eqs, rho)
}

// MatchSequent enumerates the substitutions under which the template
// sequent matches the concrete one: the goals must unify, and each template
// assumption must unify with some assumption of the concrete context. The
// context may contain several candidates for one slot, so there can be many
// unifiers; each is reported to found in a fixed order determined by the
// concrete context's own ordering, and enumeration stops early when found
// returns false. Extra, unrelated assumptions in the concrete context never
// prevent a match.
func MatchSequent(tpl, seq Sequent, rho Subst, found func(Subst) bool) {
	if rho == nil {
		rho = Subst{}
	}
	if ApplySequent(tpl, rho).Equal(seq) {
		if !found(rho) {
			return
		}
	}
	rho = matchJudgements([][2]Judgement{{tpl.Delta, seq.Delta}}, rho)
	if rho == nil {
		return
	}
	if len(tpl.Gamma) == 0 {
		found(rho)
		return
	}
	if len(tpl.Gamma) > len(seq.Gamma) {
		return
	}
	eachArrangement(seq.Gamma, len(tpl.Gamma), func(cand []Judgement) bool {
		pairs := make([][2]Judgement, len(tpl.Gamma))
		for i := range tpl.Gamma {
			pairs[i] = [2]Judgement{tpl.Gamma[i], cand[i]}
		}
		if c := matchJudgements(pairs, rho); c != nil {
			return found(c)
		}
		return true
	})
}

// MatchRule collects every substitution under which the rule's conclusion
// template matches the sequent. An empty result is a match failure.
func MatchRule(r Rule, seq Sequent) []Subst {
	var out []Subst
	MatchSequent(r.Conclusion, seq, Subst{}, func(rho Subst) bool {
		out = append(out, rho)
		return true
	})
	return out
}

// eachArrangement visits every ordered selection of k judgements from
// items, in lexicographic index order, until the visitor returns false.
func eachArrangement(items []Judgement, k int, visit func([]Judgement) bool) bool {
	sel := make([]Judgement, 0, k)
	used := make([]bool, len(items))
	var rec func() bool
	rec = func() bool {
		if len(sel) == k {
			return visit(append([]Judgement(nil), sel...))
		}
		for i, it := range items {
			if used[i] {
				continue
			}
			used[i] = true
			sel = append(sel, it)
			if !rec() {
				return false
			}
			sel = sel[:len(sel)-1]
			used[i] = false
		}
		return true
	}
	return rec()
}
