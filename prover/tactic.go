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

// Package prover constructs proofs of authorization sequents. The core is a
// small set of composable tactics; on top of them, Prove analyzes the
// delegation structure of a credential context and assembles a tactic
// pipeline for the goal.
package prover

import (
	"github.com/golang/glog"

	"github.com/jlmucb/authproof/logic"
	"github.com/jlmucb/authproof/verifier"
)

// Tactic attempts to make progress on a sequent. Apply returns candidate
// proofs of the sequent, possibly with open obligations left for other
// tactics; an empty result means the tactic does not apply. Failure to
// apply is an ordinary outcome, not an error.
type Tactic interface {
	Apply(seq logic.Sequent) []*logic.Proof
}

// appendProof adds pf to pfs unless an identical proof is already present.
// Tactics return proof sets; the slice plus the seen map keeps set semantics
// with a deterministic order.
func appendProof(pfs []*logic.Proof, seen map[string]bool, pf *logic.Proof) []*logic.Proof {
	key := pf.String()
	if seen[key] {
		return pfs
	}
	seen[key] = true
	return append(pfs, pf)
}

// dedupJudgements drops later duplicates, keeping first-occurrence order.
func dedupJudgements(gamma []logic.Judgement) []logic.Judgement {
	seen := make(map[logic.Judgement]bool, len(gamma))
	out := make([]logic.Judgement, 0, len(gamma))
	for _, j := range gamma {
		if !seen[j] {
			seen[j] = true
			out = append(out, j)
		}
	}
	return out
}

// RuleTactic applies one named rule of the calculus as a single proof step.
// The quantifier rules have application-directed premises that matching
// cannot compute, so they are rejected; use InstantiateForallTactic for
// those.
type RuleTactic struct {
	Rule logic.Rule
}

// NewRuleTactic returns a RuleTactic for the given rule. It panics when
// given a quantifier rule.
func NewRuleTactic(r logic.Rule) RuleTactic {
	switch r.Name {
	case "@L", "@R", "@Laff":
		panic("prover: RuleTactic cannot be applied to quantifier rules")
	}
	return RuleTactic{Rule: r}
}

// Apply unifies the rule's conclusion against seq and returns one candidate
// proof per unifier. Assumptions consumed by the match are removed from the
// premises, so repeated application of the same rule terminates; the rest of
// the context is carried into every premise.
func (t RuleTactic) Apply(seq logic.Sequent) []*logic.Proof {
	var pfs []*logic.Proof
	seen := map[string]bool{}
	for _, rho := range logic.MatchRule(t.Rule, seq) {
		ruleGamma := make(map[logic.Judgement]bool)
		for _, j := range logic.ApplySequent(t.Rule.Conclusion, rho).Gamma {
			ruleGamma[j] = true
		}
		var redGamma []logic.Judgement
		for _, j := range seq.Gamma {
			if !ruleGamma[j] {
				redGamma = append(redGamma, j)
			}
		}
		prems := make([]logic.Branch, len(t.Rule.Premises))
		for i, tpl := range t.Rule.Premises {
			prem := logic.ApplySequent(tpl, rho)
			prems[i] = logic.Sequent{
				Gamma: dedupJudgements(append(append([]logic.Judgement{}, prem.Gamma...), redGamma...)),
				Delta: prem.Delta,
			}
		}
		pfs = appendProof(pfs, seen, &logic.Proof{Premises: prems, Conclusion: seq, Rule: t.Rule})
	}
	return pfs
}

// InstantiateForallTactic instantiates quantified assumptions. For every
// quantified formula in the context and every ground element, it produces a
// proof with one @L (or @Laff) step whose premise assumes the instantiated
// body. By default the quantified assumption is removed from the premise so
// the step is never repeated; set Keep to retain it when several instances
// of the same assumption are needed.
type InstantiateForallTactic struct {
	Grounds []logic.Element
	Keep    bool
}

func (t InstantiateForallTactic) Apply(seq logic.Sequent) []*logic.Proof {
	var pfs []*logic.Proof
	seen := map[string]bool{}
	inGamma := make(map[logic.Judgement]bool, len(seq.Gamma))
	for _, j := range seq.Gamma {
		inGamma[j] = true
	}
	for _, p := range seq.Gamma {
		prop, ok := p.(logic.Proposition)
		if !ok {
			continue
		}
		fa, ok := prop.P.(logic.Forall)
		if !ok {
			continue
		}
		for _, e := range t.Grounds {
			instance := logic.Proposition{P: logic.ApplyForm(fa.Body, logic.Subst{fa.Var: e})}
			if inGamma[instance] {
				continue
			}
			var gamma []logic.Judgement
			for _, r := range seq.Gamma {
				if t.Keep || r != p {
					gamma = append(gamma, r)
				}
			}
			gamma = append(gamma, instance)
			rule := logic.ForallLeft
			if _, ok := seq.Delta.(logic.Affirmation); ok {
				rule = logic.ForallLeftAff
			}
			pfs = appendProof(pfs, seen, &logic.Proof{
				Premises:   []logic.Branch{logic.Sequent{Gamma: gamma, Delta: seq.Delta}},
				Conclusion: seq,
				Rule:       rule,
			})
		}
	}
	return pfs
}

// SignTactic turns a signed credential in the context into a says
// assumption. It cuts in "A says P" where the credential is sign(P, k) and
// the context binds k to A with an iskey assumption; the left premise of the
// cut is closed with one sign step, and the right premise is left open with
// the says formula added to the context.
type SignTactic struct {
	Cred   logic.Sign
	Signer logic.Agent
}

func (t SignTactic) Apply(seq logic.Sequent) []*logic.Proof {
	iskey := logic.IsKey{Agent: t.Signer, Key: t.Cred.Key}
	says := logic.Says{Speaker: t.Signer, Message: t.Cred.Message}
	if !seq.Assumes(logic.Proposition{P: t.Cred}) || !seq.Assumes(logic.Proposition{P: iskey}) {
		return nil
	}
	// Nothing to do if the says formula is already assumed.
	if seq.Assumes(logic.Proposition{P: says}) {
		return nil
	}
	id := NewRuleTactic(logic.Identity)
	pfIsKey := GetOneProof(logic.Sequent{Gamma: seq.Gamma, Delta: logic.Proposition{P: iskey}}, id)
	pfCred := GetOneProof(logic.Sequent{Gamma: seq.Gamma, Delta: logic.Proposition{P: t.Cred}}, id)
	if pfIsKey == nil || pfCred == nil {
		return nil
	}
	cutGoal := logic.Sequent{Gamma: seq.Gamma, Delta: logic.Proposition{P: says}}
	pfCutGoal := &logic.Proof{
		Premises:   []logic.Branch{pfIsKey, pfCred},
		Conclusion: cutGoal,
		Rule:       logic.SignRule,
	}
	newGoal := logic.Sequent{
		Gamma: append(append([]logic.Judgement{}, seq.Gamma...), logic.Proposition{P: says}),
		Delta: seq.Delta,
	}
	rule := logic.Cut
	if _, ok := seq.Delta.(logic.Affirmation); ok {
		rule = logic.AffCut
	}
	return []*logic.Proof{{
		Premises:   []logic.Branch{pfCutGoal, newGoal},
		Conclusion: seq,
		Rule:       rule,
	}}
}

// CertTactic turns a certificate in the context into an iskey assumption.
// The certificate is a statement sign(iskey(B, k), kca) issued by a trusted
// authority CA; the tactic cuts in iskey(B, k), closing the left premise
// with one cert step over a sign step, and leaves the right premise open
// with the key binding added to the context.
type CertTactic struct {
	Cert logic.Sign
	CA   logic.Agent
}

func (t CertTactic) Apply(seq logic.Sequent) []*logic.Proof {
	vouched, ok := t.Cert.Message.(logic.IsKey)
	if !ok {
		return nil
	}
	caKey := logic.IsKey{Agent: t.CA, Key: t.Cert.Key}
	isCA := logic.IsCA{Agent: t.CA}
	reqs := []logic.Judgement{
		logic.Proposition{P: t.Cert},
		logic.Proposition{P: caKey},
		logic.Proposition{P: isCA},
	}
	for _, r := range reqs {
		if !seq.Assumes(r) {
			return nil
		}
	}
	if seq.Assumes(logic.Proposition{P: vouched}) {
		return nil
	}
	id := NewRuleTactic(logic.Identity)
	pfCAKey := GetOneProof(logic.Sequent{Gamma: seq.Gamma, Delta: logic.Proposition{P: caKey}}, id)
	pfCert := GetOneProof(logic.Sequent{Gamma: seq.Gamma, Delta: logic.Proposition{P: t.Cert}}, id)
	pfCA := GetOneProof(logic.Sequent{Gamma: seq.Gamma, Delta: logic.Proposition{P: isCA}}, id)
	if pfCAKey == nil || pfCert == nil || pfCA == nil {
		return nil
	}
	says := logic.Says{Speaker: t.CA, Message: vouched}
	pfSays := &logic.Proof{
		Premises:   []logic.Branch{pfCAKey, pfCert},
		Conclusion: logic.Sequent{Gamma: seq.Gamma, Delta: logic.Proposition{P: says}},
		Rule:       logic.SignRule,
	}
	pfCutGoal := &logic.Proof{
		Premises:   []logic.Branch{pfCA, pfSays},
		Conclusion: logic.Sequent{Gamma: seq.Gamma, Delta: logic.Proposition{P: vouched}},
		Rule:       logic.CertRule,
	}
	newGoal := logic.Sequent{
		Gamma: append(append([]logic.Judgement{}, seq.Gamma...), logic.Proposition{P: vouched}),
		Delta: seq.Delta,
	}
	rule := logic.Cut
	if _, ok := seq.Delta.(logic.Affirmation); ok {
		rule = logic.AffCut
	}
	return []*logic.Proof{{
		Premises:   []logic.Branch{pfCutGoal, newGoal},
		Conclusion: seq,
		Rule:       rule,
	}}
}

// ThenTactic applies a sequence of tactics, chaining proofs from later
// tactics onto the open branches left by earlier ones. With PassOn set, a
// tactic that produces nothing is skipped and the next one is tried on the
// same sequent; without it, the sequence stops at the first tactic that
// fails to apply.
type ThenTactic struct {
	Ts     []Tactic
	PassOn bool
}

// Then returns a ThenTactic over ts with PassOn enabled, which is what
// nearly every pipeline wants.
func Then(ts ...Tactic) ThenTactic {
	return ThenTactic{Ts: ts, PassOn: true}
}

func (t ThenTactic) Apply(seq logic.Sequent) []*logic.Proof {
	if len(t.Ts) == 0 {
		return nil
	}
	t1 := t.Ts[0]
	t2 := ThenTactic{Ts: t.Ts[1:], PassOn: t.PassOn}
	firstPfs := t1.Apply(seq)
	if len(firstPfs) == 0 {
		if t.PassOn {
			return t2.Apply(seq)
		}
		return nil
	}
	var pfs []*logic.Proof
	seen := map[string]bool{}
	for _, pf1 := range firstPfs {
		var obs []logic.Sequent
		for _, ob := range verifier.Obligations(pf1) {
			if !ob.Equal(seq) {
				obs = append(obs, ob)
			}
		}
		// A proof with no remaining branches is done; later tactics cannot
		// improve on it.
		if len(obs) == 0 {
			return []*logic.Proof{pf1}
		}
		subPfs := make([][]logic.Branch, len(obs))
		any := false
		for i, ob := range obs {
			for _, sub := range t2.Apply(ob) {
				subPfs[i] = append(subPfs[i], sub)
			}
			if len(subPfs[i]) == 0 {
				// Leave the branch open in every combination.
				subPfs[i] = []logic.Branch{obs[i]}
			} else {
				any = true
			}
		}
		if !any {
			pfs = appendProof(pfs, seen, pf1)
			continue
		}
		// Try every combination of branch proofs; which ones close is only
		// known after chaining.
		eachCombination(subPfs, func(comb []logic.Branch) {
			chains := make(map[string]logic.Branch, len(obs))
			for i, ob := range obs {
				chains[ob.String()] = comb[i]
			}
			pfs = appendProof(pfs, seen, chain(pf1, chains))
		})
	}
	return pfs
}

// eachCombination visits the cartesian product of the option slices.
func eachCombination(options [][]logic.Branch, visit func([]logic.Branch)) {
	comb := make([]logic.Branch, len(options))
	var rec func(i int)
	rec = func(i int) {
		if i == len(options) {
			visit(append([]logic.Branch(nil), comb...))
			return
		}
		for _, o := range options[i] {
			comb[i] = o
			rec(i + 1)
		}
	}
	rec(0)
}

// OrElseTactic applies tactics in order until one produces proofs, and
// returns those.
type OrElseTactic struct {
	Ts []Tactic
}

func (t OrElseTactic) Apply(seq logic.Sequent) []*logic.Proof {
	for _, sub := range t.Ts {
		if pfs := sub.Apply(seq); len(pfs) > 0 {
			return pfs
		}
	}
	return nil
}

// defaultRepeatLimit bounds RepeatTactic when no explicit limit is given.
const defaultRepeatLimit = 32

// RepeatTactic applies T repeatedly, threading each round through the open
// branches of the last, until T no longer applies or Max rounds have run.
type RepeatTactic struct {
	T   Tactic
	Max int
}

func (t RepeatTactic) Apply(seq logic.Sequent) []*logic.Proof {
	max := t.Max
	if max <= 0 {
		max = defaultRepeatLimit
	}
	ts := make([]Tactic, max)
	for i := range ts {
		ts[i] = t.T
	}
	return ThenTactic{Ts: ts, PassOn: false}.Apply(seq)
}

// chain replaces open branches of pf with the proofs in chains, keyed by the
// obligation's printed form. Branches without a mapping stay open.
func chain(pf *logic.Proof, chains map[string]logic.Branch) *logic.Proof {
	if mapped, ok := chains[pf.Conclusion.String()]; ok {
		if sub, ok := mapped.(*logic.Proof); ok {
			return sub
		}
	}
	prems := make([]logic.Branch, len(pf.Premises))
	for i, prem := range pf.Premises {
		switch prem := prem.(type) {
		case *logic.Proof:
			prems[i] = chain(prem, chains)
		case logic.Sequent:
			if mapped, ok := chains[prem.String()]; ok {
				prems[i] = mapped
			} else {
				prems[i] = prem
			}
		default:
			prems[i] = prem
		}
	}
	return &logic.Proof{Premises: prems, Conclusion: pf.Conclusion, Rule: pf.Rule}
}

// GetOneProof applies the tactic and returns the first resulting proof that
// is closed and valid, or nil if there is none.
func GetOneProof(seq logic.Sequent, t Tactic) *logic.Proof {
	for _, pf := range t.Apply(seq) {
		if len(verifier.Obligations(pf)) == 0 {
			return pf
		}
		if glog.V(3) {
			glog.Infof("discarding incomplete candidate for %v:\n%v", seq, pf)
		}
	}
	return nil
}
