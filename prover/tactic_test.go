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

package prover

import (
	"testing"

	"github.com/jlmucb/authproof/logic"
	"github.com/jlmucb/authproof/verifier"
)

func TestRuleTacticIdentity(t *testing.T) {
	seq := logic.MustParseSequent("p true, q true |- p true")
	pfs := NewRuleTactic(logic.Identity).Apply(seq)
	if len(pfs) != 1 {
		t.Fatalf("got %d proofs, want 1", len(pfs))
	}
	if !verifier.Closed(pfs[0]) {
		t.Errorf("identity proof not closed:\n%v", pfs[0])
	}

	if pfs := NewRuleTactic(logic.Identity).Apply(logic.MustParseSequent("p true |- q true")); len(pfs) != 0 {
		t.Errorf("identity applied to unprovable sequent: %v", pfs)
	}
}

func TestRuleTacticRejectsQuantifiers(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("no panic for quantifier rule")
		}
	}()
	NewRuleTactic(logic.ForallLeft)
}

func TestRuleTacticCarriesContext(t *testing.T) {
	seq := logic.MustParseSequent("p -> q true, s true |- q true")
	pfs := NewRuleTactic(logic.ImpLeft).Apply(seq)
	if len(pfs) != 1 {
		t.Fatalf("got %d proofs, want 1", len(pfs))
	}
	// The matched implication is consumed; the unrelated assumption rides
	// along into both premises.
	for _, prem := range pfs[0].Premises {
		ps := prem.Endsequent()
		if ps.Assumes(logic.Proposition{P: logic.MustParseForm("p -> q")}) {
			t.Errorf("matched assumption not consumed: %v", ps)
		}
		if !ps.Assumes(logic.Proposition{P: logic.Var("s")}) {
			t.Errorf("context not carried: %v", ps)
		}
	}
}

func TestThenTacticClosesImplication(t *testing.T) {
	seq := logic.MustParseSequent("p -> q true, p true |- q true")
	pf := GetOneProof(seq, Then(
		NewRuleTactic(logic.ImpLeft),
		NewRuleTactic(logic.Identity),
	))
	if pf == nil {
		t.Fatal("no proof found")
	}
	if len(verifier.Obligations(pf)) != 0 {
		t.Errorf("proof has open obligations:\n%v", pf)
	}
	if !pf.Conclusion.Equal(seq) {
		t.Errorf("proof concludes %v", pf.Conclusion)
	}
}

func TestThenTacticPassOn(t *testing.T) {
	seq := logic.MustParseSequent("p true |- p true")
	// ImpLeft does not apply; with PassOn the identity still runs.
	pf := GetOneProof(seq, Then(
		NewRuleTactic(logic.ImpLeft),
		NewRuleTactic(logic.Identity),
	))
	if pf == nil {
		t.Fatal("pass-on did not reach the identity tactic")
	}

	strict := ThenTactic{Ts: []Tactic{
		NewRuleTactic(logic.ImpLeft),
		NewRuleTactic(logic.Identity),
	}}
	if pfs := strict.Apply(seq); len(pfs) != 0 {
		t.Errorf("strict sequencing should stop at the failing tactic, got %v", pfs)
	}
}

func TestOrElseTactic(t *testing.T) {
	seq := logic.MustParseSequent("p true |- p true")
	pfs := OrElseTactic{Ts: []Tactic{
		NewRuleTactic(logic.ImpLeft),
		NewRuleTactic(logic.Identity),
	}}.Apply(seq)
	if len(pfs) != 1 {
		t.Fatalf("got %d proofs, want 1", len(pfs))
	}
	if !verifier.Closed(pfs[0]) {
		t.Error("proof not closed")
	}
}

func TestRepeatTacticTerminates(t *testing.T) {
	seq := logic.MustParseSequent("p -> q true, q -> r true, p true |- r true")
	pf := GetOneProof(seq, Then(
		RepeatTactic{T: OrElseTactic{Ts: []Tactic{
			NewRuleTactic(logic.Identity),
			NewRuleTactic(logic.ImpLeft),
		}}, Max: 8},
	))
	if pf == nil {
		t.Fatal("no proof found")
	}
	if len(verifier.Obligations(pf)) != 0 {
		t.Errorf("proof has open obligations:\n%v", pf)
	}

	// A tactic that can never close anything must still terminate.
	hopeless := logic.MustParseSequent("p true |- q true")
	if pfs := (RepeatTactic{T: NewRuleTactic(logic.Identity), Max: 4}).Apply(hopeless); len(pfs) != 0 {
		t.Errorf("got %v, want none", pfs)
	}
}

func TestInstantiateForallTactic(t *testing.T) {
	seq := logic.MustParseSequent("@x . open(x, <f>) true |- open(#a, <f>) true")
	pfs := InstantiateForallTactic{Grounds: []logic.Element{logic.Agent("#a")}}.Apply(seq)
	if len(pfs) != 1 {
		t.Fatalf("got %d proofs, want 1", len(pfs))
	}
	if err := verifier.CheckStep(pfs[0]); err != nil {
		t.Fatalf("instantiation step invalid: %v", err)
	}
	prem := pfs[0].Premises[0].Endsequent()
	if !prem.Assumes(logic.Proposition{P: logic.MustParseForm("open(#a, <f>)")}) {
		t.Errorf("instance missing from premise: %v", prem)
	}
	if prem.Assumes(seq.Gamma[0]) {
		t.Errorf("quantified assumption not removed: %v", prem)
	}

	kept := InstantiateForallTactic{Grounds: []logic.Element{logic.Agent("#a")}, Keep: true}.Apply(seq)
	if len(kept) != 1 {
		t.Fatalf("got %d proofs, want 1", len(kept))
	}
	keptPrem := kept[0].Premises[0].Endsequent()
	if !keptPrem.Assumes(seq.Gamma[0]) {
		t.Errorf("quantified assumption dropped despite Keep: %v", keptPrem)
	}
	if err := verifier.CheckStep(kept[0]); err != nil {
		t.Errorf("kept instantiation step invalid: %v", err)
	}
}

func TestInstantiateForallPicksAffRule(t *testing.T) {
	seq := logic.MustParseSequent("@x . open(x, <f>) true |- #a aff q")
	pfs := InstantiateForallTactic{Grounds: []logic.Element{logic.Agent("#a")}}.Apply(seq)
	if len(pfs) != 1 {
		t.Fatalf("got %d proofs, want 1", len(pfs))
	}
	if pfs[0].Rule.Name != "@Laff" {
		t.Errorf("got rule %q, want @Laff", pfs[0].Rule.Name)
	}
}

func TestSignTactic(t *testing.T) {
	seq := logic.MustParseSequent(
		"iskey(#a, [k]) true, sign(open(#b, <f>), [k]) true |- #a says open(#b, <f>) true")
	tac := SignTactic{
		Cred:   logic.MustParseForm("sign(open(#b, <f>), [k])").(logic.Sign),
		Signer: logic.Agent("#a"),
	}
	pfs := tac.Apply(seq)
	if len(pfs) != 1 {
		t.Fatalf("got %d proofs, want 1", len(pfs))
	}
	pf := pfs[0]
	if pf.Rule.Name != "cut" {
		t.Errorf("got rule %q, want cut", pf.Rule.Name)
	}
	obs := verifier.Obligations(pf)
	if len(obs) != 1 {
		t.Fatalf("want one open branch, got %v", obs)
	}
	if !obs[0].Assumes(logic.Proposition{P: logic.MustParseForm("#a says open(#b, <f>)")}) {
		t.Errorf("says formula missing from open branch: %v", obs[0])
	}

	// Closing the remaining branch yields a complete proof.
	full := GetOneProof(seq, Then(tac, NewRuleTactic(logic.Identity)))
	if full == nil {
		t.Fatal("no closed proof found")
	}

	// Without the key binding the tactic does not apply.
	missing := logic.MustParseSequent("sign(open(#b, <f>), [k]) true |- #a says open(#b, <f>) true")
	if pfs := tac.Apply(missing); len(pfs) != 0 {
		t.Errorf("tactic applied without iskey assumption: %v", pfs)
	}
}

func TestCertTactic(t *testing.T) {
	seq := logic.MustParseSequent(
		"ca(#ca) true, iskey(#ca, [kca]) true, sign(iskey(#b, [kb]), [kca]) true |- q true")
	tac := CertTactic{
		Cert: logic.MustParseForm("sign(iskey(#b, [kb]), [kca])").(logic.Sign),
		CA:   logic.Agent("#ca"),
	}
	pfs := tac.Apply(seq)
	if len(pfs) != 1 {
		t.Fatalf("got %d proofs, want 1", len(pfs))
	}
	obs := verifier.Obligations(pfs[0])
	if len(obs) != 1 {
		t.Fatalf("want one open branch, got %v", obs)
	}
	if !obs[0].Assumes(logic.Proposition{P: logic.MustParseForm("iskey(#b, [kb])")}) {
		t.Errorf("key binding missing from open branch: %v", obs[0])
	}

	// The tactic is a no-op once the binding is established.
	established := logic.MustParseSequent(
		"ca(#ca) true, iskey(#ca, [kca]) true, sign(iskey(#b, [kb]), [kca]) true, iskey(#b, [kb]) true |- q true")
	if pfs := tac.Apply(established); len(pfs) != 0 {
		t.Errorf("tactic reapplied after binding established: %v", pfs)
	}
}

func TestGetOneProofRejectsOpen(t *testing.T) {
	seq := logic.MustParseSequent("p -> q true, p true |- q true")
	// ImpLeft alone leaves open branches, so no closed proof exists.
	if pf := GetOneProof(seq, NewRuleTactic(logic.ImpLeft)); pf != nil {
		t.Errorf("open proof returned:\n%v", pf)
	}
}
