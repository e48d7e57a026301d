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

// Package verifier checks proof objects against the rule table. A proof is
// valid when every node applies its rule correctly, and closed when no bare
// sequent obligations remain. The checker is deliberately lenient about
// implicit weakening: a premise may drop assumptions freely, since the
// calculus admits weakening without an explicit proof step.
package verifier

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/jlmucb/authproof/logic"
)

// CheckStep validates the root rule application of a proof node, ignoring
// whether its sub-derivations are themselves valid. A non-nil error means
// the node is malformed: a bug in whatever constructed the proof, never a
// recoverable runtime condition.
func CheckStep(pf *logic.Proof) error {
	if _, ok := logic.Calculus[pf.Rule.Name]; !ok {
		return fmt.Errorf("verifier: unknown rule %q", pf.Rule.Name)
	}
	var err error
	switch pf.Rule.Name {
	case "id":
		err = checkIdentity(pf)
	case "botL":
		err = checkFalseLeft(pf)
	case "->R":
		err = checkImpRight(pf)
	case "->L", "->Laff":
		err = checkImpLeft(pf)
	case "@L", "@Laff":
		err = checkForallLeft(pf)
	case "@R":
		err = checkForallRight(pf)
	case "W":
		err = checkWeaken(pf)
	case "cut", "affcut":
		err = checkCut(pf)
	case "aff":
		err = checkAff(pf)
	case "saysL":
		err = checkSaysLeft(pf)
	case "saysR":
		err = checkSaysRight(pf)
	case "sign":
		err = checkSign(pf)
	case "cert":
		err = checkCert(pf)
	default:
		err = fmt.Errorf("verifier: rule %q has no checker", pf.Rule.Name)
	}
	if err != nil && glog.V(2) {
		glog.Infof("illegal proof step at %v: %v", pf.Conclusion, err)
	}
	return err
}

// Obligations returns the sequents still to be discharged for the proof to
// be closed. Bare sequent leaves are obligations; a node whose rule
// application fails CheckStep contributes its own conclusion as an
// obligation.
func Obligations(pf *logic.Proof) []logic.Sequent {
	if err := CheckStep(pf); err != nil {
		return []logic.Sequent{pf.Conclusion}
	}
	var obs []logic.Sequent
	for _, prem := range pf.Premises {
		switch prem := prem.(type) {
		case logic.Sequent:
			obs = append(obs, prem)
		case *logic.Proof:
			obs = append(obs, Obligations(prem)...)
		}
	}
	return obs
}

// Closed reports whether the proof is both valid and free of obligations.
func Closed(pf *logic.Proof) bool {
	return len(Obligations(pf)) == 0
}

// Validate returns a descriptive error for the first malformed node of the
// proof, or nil if every rule application checks out. Open obligations are
// not an error here; use Obligations for those.
func Validate(pf *logic.Proof) error {
	if err := CheckStep(pf); err != nil {
		return err
	}
	for _, prem := range pf.Premises {
		if sub, ok := prem.(*logic.Proof); ok {
			if err := Validate(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

func judgementSet(gamma []logic.Judgement) map[logic.Judgement]bool {
	out := make(map[logic.Judgement]bool, len(gamma))
	for _, j := range gamma {
		out[j] = true
	}
	return out
}

// subtract returns the members of gamma not present in other.
func subtract(gamma []logic.Judgement, other map[logic.Judgement]bool) []logic.Judgement {
	var out []logic.Judgement
	for _, j := range gamma {
		if !other[j] {
			out = append(out, j)
		}
	}
	return out
}

func premiseCount(pf *logic.Proof, n int) error {
	if len(pf.Premises) != n {
		return fmt.Errorf("%s rule has %d premises, %d are given",
			pf.Rule.Name, n, len(pf.Premises))
	}
	return nil
}

func propositionGoal(pf *logic.Proof) (logic.Proposition, error) {
	p, ok := pf.Conclusion.Delta.(logic.Proposition)
	if !ok {
		return logic.Proposition{}, fmt.Errorf(
			"%s rule must have a truth judgement as goal, got %v",
			pf.Rule.Name, pf.Conclusion.Delta)
	}
	return p, nil
}

func checkIdentity(pf *logic.Proof) error {
	if err := premiseCount(pf, 0); err != nil {
		return err
	}
	if _, err := propositionGoal(pf); err != nil {
		return err
	}
	if !pf.Conclusion.Assumes(pf.Conclusion.Delta) {
		return fmt.Errorf("proof goal (%v) not in assumptions", pf.Conclusion.Delta)
	}
	return nil
}

func checkFalseLeft(pf *logic.Proof) error {
	if err := premiseCount(pf, 0); err != nil {
		return err
	}
	if _, err := propositionGoal(pf); err != nil {
		return err
	}
	if !pf.Conclusion.Assumes(logic.Proposition{P: logic.Const(false)}) {
		return fmt.Errorf("assumption false not present")
	}
	return nil
}

func checkImpRight(pf *logic.Proof) error {
	if err := premiseCount(pf, 1); err != nil {
		return err
	}
	goal, err := propositionGoal(pf)
	if err != nil {
		return err
	}
	imp, ok := goal.P.(logic.Implies)
	if !ok {
		return fmt.Errorf("->R rule expects implication goal, got %v", goal)
	}
	prem := pf.Premises[0].Endsequent()
	if (logic.Proposition{P: imp.Consequent}) != prem.Delta {
		return fmt.Errorf("%v must be the premise goal, got %v", imp.Consequent, prem.Delta)
	}
	allowed := judgementSet(pf.Conclusion.Gamma)
	allowed[logic.Proposition{P: imp.Antecedent}] = true
	if extra := subtract(prem.Gamma, allowed); len(extra) > 0 {
		return fmt.Errorf("illegal assumptions in premise: %v", extra)
	}
	return nil
}

func checkImpLeft(pf *logic.Proof) error {
	found := false
	for _, j := range pf.Conclusion.Gamma {
		if p, ok := j.(logic.Proposition); ok {
			if _, ok := p.P.(logic.Implies); ok {
				found = true
			}
		}
	}
	if !found {
		return fmt.Errorf("->L rule needs an implication in the assumptions")
	}
	if err := premiseCount(pf, 2); err != nil {
		return err
	}
	prem0 := pf.Premises[0].Endsequent()
	prem1 := pf.Premises[1].Endsequent()
	if pf.Conclusion.Delta != prem1.Delta {
		return fmt.Errorf("%v must be the right premise goal, got %v",
			pf.Conclusion.Delta, prem1.Delta)
	}
	conc := judgementSet(pf.Conclusion.Gamma)
	if extra := subtract(prem0.Gamma, conc); len(extra) > 0 {
		return fmt.Errorf("illegal assumptions in left premise: %v", extra)
	}
	// The right premise may additionally assume any consequent whose
	// implication from the left premise goal is among the assumptions.
	left, ok := prem0.Delta.(logic.Proposition)
	if !ok {
		return fmt.Errorf("left premise goal must be a truth judgement, got %v", prem0.Delta)
	}
	for _, j := range subtract(prem1.Gamma, conc) {
		p, ok := j.(logic.Proposition)
		if !ok || !conc[logic.Proposition{P: logic.Implies{Antecedent: left.P, Consequent: p.P}}] {
			return fmt.Errorf("illegal assumptions in right premise: %v", j)
		}
	}
	return nil
}

func checkForallLeft(pf *logic.Proof) error {
	var foralls []logic.Forall
	for _, j := range pf.Conclusion.Gamma {
		if p, ok := j.(logic.Proposition); ok {
			if fa, ok := p.P.(logic.Forall); ok {
				foralls = append(foralls, fa)
			}
		}
	}
	if len(foralls) == 0 {
		return fmt.Errorf("@L rule needs a quantified formula in the assumptions")
	}
	if err := premiseCount(pf, 1); err != nil {
		return err
	}
	prem := pf.Premises[0].Endsequent()
	if pf.Conclusion.Delta != prem.Delta {
		return fmt.Errorf("goals do not match: %v, %v", pf.Conclusion.Delta, prem.Delta)
	}
	conc := judgementSet(pf.Conclusion.Gamma)
	added := subtract(prem.Gamma, conc)
	removed := subtract(pf.Conclusion.Gamma, judgementSet(prem.Gamma))
	if len(added) != 1 || len(removed) > 1 {
		return fmt.Errorf("premise must add exactly one instance of a quantified assumption")
	}
	inst, ok := added[0].(logic.Proposition)
	if !ok {
		return fmt.Errorf("instance must be a truth judgement, got %v", added[0])
	}
	// The quantified assumption may be retained or dropped; either way some
	// quantified assumption of the conclusion must instantiate to the new
	// premise assumption.
	candidates := foralls
	if len(removed) == 1 {
		rp, ok := removed[0].(logic.Proposition)
		if !ok {
			return fmt.Errorf("removed assumption must be a truth judgement")
		}
		fa, ok := rp.P.(logic.Forall)
		if !ok {
			return fmt.Errorf("removed assumption must be quantified, got %v", rp)
		}
		candidates = []logic.Forall{fa}
	}
	for _, fa := range candidates {
		rho := logic.MatchForm(fa.Body, inst.P, nil)
		if rho == nil {
			continue
		}
		ground, ok := rho[fa.Var]
		if !ok {
			continue
		}
		if logic.ApplyForm(fa.Body, logic.Subst{fa.Var: ground}) == inst.P {
			return nil
		}
	}
	return fmt.Errorf("could not unify %v with a quantified assumption", inst.P)
}

func checkForallRight(pf *logic.Proof) error {
	goal, err := propositionGoal(pf)
	if err != nil {
		return err
	}
	fa, ok := goal.P.(logic.Forall)
	if !ok {
		return fmt.Errorf("@R rule needs quantified formula as goal")
	}
	if err := premiseCount(pf, 1); err != nil {
		return err
	}
	prem := pf.Premises[0].Endsequent()
	pd, ok := prem.Delta.(logic.Proposition)
	if !ok {
		return fmt.Errorf("@R premise goal must be a truth judgement, got %v", prem.Delta)
	}
	rho := logic.MatchForm(fa.Body, pd.P, nil)
	if rho == nil {
		return fmt.Errorf("could not unify %v with %v", pd.P, fa.Body)
	}
	ground, ok := rho[fa.Var]
	if !ok {
		return fmt.Errorf("could not unify %v with %v", pd.P, fa.Body)
	}
	if logic.ApplyForm(fa.Body, rho) != pd.P {
		return fmt.Errorf("could not unify %v with %v", pd.P, fa.Body)
	}
	// Eigenvariable condition: the chosen instance must be new.
	if v, ok := ground.(logic.Var); ok && logic.Vars(pf.Conclusion)[v] {
		return fmt.Errorf("illegal substitution, %v already appears in sequent", v)
	}
	return nil
}

func checkWeaken(pf *logic.Proof) error {
	if err := premiseCount(pf, 1); err != nil {
		return err
	}
	prem := pf.Premises[0].Endsequent()
	if pf.Conclusion.Delta != prem.Delta {
		return fmt.Errorf("goals do not match: %v, %v", pf.Conclusion.Delta, prem.Delta)
	}
	if extra := subtract(prem.Gamma, judgementSet(pf.Conclusion.Gamma)); len(extra) > 0 {
		return fmt.Errorf("premise assumptions are not subset of conclusion: %v", extra)
	}
	return nil
}

func checkCut(pf *logic.Proof) error {
	if err := premiseCount(pf, 2); err != nil {
		return err
	}
	prem0 := pf.Premises[0].Endsequent()
	prem1 := pf.Premises[1].Endsequent()
	if pf.Conclusion.Delta != prem1.Delta {
		return fmt.Errorf("goals do not match: %v, %v", pf.Conclusion.Delta, prem1.Delta)
	}
	conc := judgementSet(pf.Conclusion.Gamma)
	if extra := subtract(prem0.Gamma, conc); len(extra) > 0 {
		return fmt.Errorf("illegal assumptions in left premise: %v", extra)
	}
	allowed := judgementSet(pf.Conclusion.Gamma)
	allowed[prem0.Delta] = true
	if extra := subtract(prem1.Gamma, allowed); len(extra) > 0 {
		return fmt.Errorf("illegal assumptions in right premise: %v", extra)
	}
	return nil
}

func checkAff(pf *logic.Proof) error {
	if err := premiseCount(pf, 1); err != nil {
		return err
	}
	aff, ok := pf.Conclusion.Delta.(logic.Affirmation)
	if !ok {
		return fmt.Errorf("conclusion must be an affirmation judgement, got %v",
			pf.Conclusion.Delta)
	}
	prem := pf.Premises[0].Endsequent()
	pd, ok := prem.Delta.(logic.Proposition)
	if !ok {
		return fmt.Errorf("premise must be a truth judgement, got %v", prem.Delta)
	}
	if aff.P != pd.P {
		return fmt.Errorf("premise goal does not match conclusion affirmation")
	}
	if extra := subtract(prem.Gamma, judgementSet(pf.Conclusion.Gamma)); len(extra) > 0 {
		return fmt.Errorf("premise assumptions are not subset of conclusion: %v", extra)
	}
	return nil
}

func checkSaysLeft(pf *logic.Proof) error {
	found := false
	for _, j := range pf.Conclusion.Gamma {
		if p, ok := j.(logic.Proposition); ok {
			if _, ok := p.P.(logic.Says); ok {
				found = true
			}
		}
	}
	if !found {
		return fmt.Errorf("saysL rule needs a says formula in the assumptions")
	}
	if err := premiseCount(pf, 1); err != nil {
		return err
	}
	aff, ok := pf.Conclusion.Delta.(logic.Affirmation)
	if !ok {
		return fmt.Errorf("saysL rule must be applied with affirmation in goal")
	}
	prem := pf.Premises[0].Endsequent()
	if pf.Conclusion.Delta != prem.Delta {
		return fmt.Errorf("goals do not match: %v, %v", pf.Conclusion.Delta, prem.Delta)
	}
	// New premise assumptions are legal exactly when the affirming agent
	// says them in the conclusion's context.
	conc := judgementSet(pf.Conclusion.Gamma)
	for _, j := range subtract(prem.Gamma, conc) {
		p, ok := j.(logic.Proposition)
		if !ok || !conc[logic.Proposition{P: logic.Says{Speaker: aff.A, Message: p.P}}] {
			return fmt.Errorf("illegal assumptions in premise: %v", j)
		}
	}
	return nil
}

func checkSaysRight(pf *logic.Proof) error {
	goal, err := propositionGoal(pf)
	if err != nil {
		return err
	}
	says, ok := goal.P.(logic.Says)
	if !ok {
		return fmt.Errorf("saysR rule requires says formula as goal, got %v", goal.P)
	}
	if err := premiseCount(pf, 1); err != nil {
		return err
	}
	prem := pf.Premises[0].Endsequent()
	aff, ok := prem.Delta.(logic.Affirmation)
	if !ok {
		return fmt.Errorf("saysR rule requires affirmation as premise goal, got %v", prem.Delta)
	}
	if says.Speaker != aff.A {
		return fmt.Errorf("mismatched agents: %v and %v", says.Speaker, aff.A)
	}
	if says.Message != aff.P {
		return fmt.Errorf("mismatched statements: (%v) and (%v)", says.Message, aff.P)
	}
	if extra := subtract(prem.Gamma, judgementSet(pf.Conclusion.Gamma)); len(extra) > 0 {
		return fmt.Errorf("premise assumptions are not subset of conclusion: %v", extra)
	}
	return nil
}

func checkSign(pf *logic.Proof) error {
	goal, err := propositionGoal(pf)
	if err != nil {
		return err
	}
	says, ok := goal.P.(logic.Says)
	if !ok {
		return fmt.Errorf("sign rule requires says formula as goal, got %v", goal.P)
	}
	if err := premiseCount(pf, 2); err != nil {
		return err
	}
	prem0 := pf.Premises[0].Endsequent()
	prem1 := pf.Premises[1].Endsequent()
	d0, ok := prem0.Delta.(logic.Proposition)
	if !ok {
		return fmt.Errorf("left premise of sign rule should be truth judgement, got %v", prem0.Delta)
	}
	iskey, ok := d0.P.(logic.IsKey)
	if !ok {
		return fmt.Errorf("left premise of sign rule should be iskey formula")
	}
	d1, ok := prem1.Delta.(logic.Proposition)
	if !ok {
		return fmt.Errorf("right premise of sign rule should be truth judgement, got %v", prem1.Delta)
	}
	sig, ok := d1.P.(logic.Sign)
	if !ok {
		return fmt.Errorf("right premise of sign rule should be sign formula")
	}
	if says.Speaker != iskey.Agent {
		return fmt.Errorf("agents should match: %v and %v", says.Speaker, iskey.Agent)
	}
	if says.Message != sig.Message {
		return fmt.Errorf("formulas should match: (%v), (%v)", says.Message, sig.Message)
	}
	if iskey.Key != sig.Key {
		return fmt.Errorf("keys should match: %v and %v", iskey.Key, sig.Key)
	}
	conc := judgementSet(pf.Conclusion.Gamma)
	if extra := subtract(prem0.Gamma, conc); len(extra) > 0 {
		return fmt.Errorf("left premise assumptions are not subset of conclusion: %v", extra)
	}
	if extra := subtract(prem1.Gamma, conc); len(extra) > 0 {
		return fmt.Errorf("right premise assumptions are not subset of conclusion: %v", extra)
	}
	return nil
}

func checkCert(pf *logic.Proof) error {
	goal, err := propositionGoal(pf)
	if err != nil {
		return err
	}
	iskey, ok := goal.P.(logic.IsKey)
	if !ok {
		return fmt.Errorf("cert rule requires iskey formula as goal, got %v", goal.P)
	}
	if err := premiseCount(pf, 2); err != nil {
		return err
	}
	prem0 := pf.Premises[0].Endsequent()
	prem1 := pf.Premises[1].Endsequent()
	d0, ok := prem0.Delta.(logic.Proposition)
	if !ok {
		return fmt.Errorf("left premise of cert rule should be truth judgement, got %v", prem0.Delta)
	}
	ca, ok := d0.P.(logic.IsCA)
	if !ok {
		return fmt.Errorf("left premise of cert rule should be ca formula")
	}
	d1, ok := prem1.Delta.(logic.Proposition)
	if !ok {
		return fmt.Errorf("right premise of cert rule should be truth judgement, got %v", prem1.Delta)
	}
	says, ok := d1.P.(logic.Says)
	if !ok {
		return fmt.Errorf("right premise of cert rule should be says formula")
	}
	vouched, ok := says.Message.(logic.IsKey)
	if !ok {
		return fmt.Errorf("right premise of cert rule should say an iskey formula")
	}
	if iskey.Agent != vouched.Agent {
		return fmt.Errorf("agents should match: %v and %v", iskey.Agent, vouched.Agent)
	}
	if ca.Agent != says.Speaker {
		return fmt.Errorf("agents should match: %v and %v", ca.Agent, says.Speaker)
	}
	if iskey.Key != vouched.Key {
		return fmt.Errorf("keys should match: (%v), (%v)", iskey.Key, vouched.Key)
	}
	conc := judgementSet(pf.Conclusion.Gamma)
	if extra := subtract(prem0.Gamma, conc); len(extra) > 0 {
		return fmt.Errorf("left premise assumptions are not subset of conclusion: %v", extra)
	}
	if extra := subtract(prem1.Gamma, conc); len(extra) > 0 {
		return fmt.Errorf("right premise assumptions are not subset of conclusion: %v", extra)
	}
	return nil
}
