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

import "testing"

func TestMatchRuleIdentity(t *testing.T) {
	tests := []struct {
		seq   string
		count int
	}{
		{"p true |- p true", 1},
		{"p true |- q true", 0},
		// Extra assumptions never prevent a match.
		{"p true, q true |- q true", 1},
		{"open(#a, <f>) true, q true |- open(#a, <f>) true", 1},
	}
	for _, tt := range tests {
		rhos := MatchRule(Identity, MustParseSequent(tt.seq))
		if len(rhos) != tt.count {
			t.Errorf("MatchRule(id, %q) yields %d substitutions, want %d",
				tt.seq, len(rhos), tt.count)
		}
	}
}

func TestMatchRuleImpLeftEnumerates(t *testing.T) {
	seq := MustParseSequent("a -> b true, c -> d true |- d true")
	rhos := MatchRule(ImpLeft, seq)
	if len(rhos) != 2 {
		t.Fatalf("got %d substitutions, want 2", len(rhos))
	}
	// Enumeration follows context order.
	if rhos[0][Var("P")] != Element(Var("a")) || rhos[1][Var("P")] != Element(Var("c")) {
		t.Errorf("unexpected bindings: %v, %v", rhos[0], rhos[1])
	}
	for _, rho := range rhos {
		if rho[Var("R")] != Element(Var("d")) {
			t.Errorf("goal binding missing in %v", rho)
		}
	}
}

func TestMatchFormRepeatedVariable(t *testing.T) {
	pat := MustParseForm("p -> p")
	if rho := MatchForm(pat, MustParseForm("a -> b"), nil); rho != nil {
		t.Errorf("inconsistent binding accepted: %v", rho)
	}
	rho := MatchForm(pat, MustParseForm("a -> a"), nil)
	if rho == nil {
		t.Fatal("consistent binding rejected")
	}
	if rho[Var("p")] != Element(Var("a")) {
		t.Errorf("got %v, want p => a", rho)
	}
}

func TestMatchFormForall(t *testing.T) {
	pat := MustParseForm("@x . open(x, r)")
	val := MustParseForm("@y . open(y, <f>)")
	rho := MatchForm(pat, val, nil)
	if rho == nil {
		t.Fatal("quantified match failed")
	}
	if rho[Var("r")] != Element(Resource("<f>")) {
		t.Errorf("resource binding missing: %v", rho)
	}
	// The bound variable never escapes into the substitution.
	if _, ok := rho[Var("x")]; ok {
		t.Errorf("bound variable leaked: %v", rho)
	}
}

func TestMatchFormSaysSpeaker(t *testing.T) {
	pat := MustParseForm("A says open(x, r)")
	val := MustParseForm("#b says open(#c, <f>)")
	rho := MatchForm(pat, val, nil)
	if rho == nil {
		t.Fatal("match failed")
	}
	if rho[Var("A")] != Element(Agent("#b")) {
		t.Errorf("speaker binding wrong: %v", rho)
	}
	if rho[Var("x")] != Element(Agent("#c")) || rho[Var("r")] != Element(Resource("<f>")) {
		t.Errorf("argument bindings wrong: %v", rho)
	}
}

func TestMatchRuleSaysLeftPinsSpeaker(t *testing.T) {
	// The affirmation goal fixes the speaker, so only the first assumption
	// can match.
	seq := MustParseSequent("#a says p true, #b says q true |- #a aff r")
	rhos := MatchRule(SaysLeft, seq)
	if len(rhos) != 1 {
		t.Fatalf("got %d substitutions, want 1", len(rhos))
	}
	if rhos[0][Var("P")] != Element(Var("p")) {
		t.Errorf("matched the wrong assumption: %v", rhos[0])
	}
}

func TestApplyFormShadowing(t *testing.T) {
	f := MustParseForm("@x . open(x, r)")
	got := ApplyForm(f, Subst{Var("x"): Agent("#a"), Var("r"): Resource("<f>")})
	want := MustParseForm("@x . open(x, <f>)")
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestApplySequent(t *testing.T) {
	seq := MustParseSequent("P true |- A aff Q")
	rho := Subst{
		Var("P"): MustParseForm("open(#b, <f>)"),
		Var("A"): Agent("#a"),
		Var("Q"): Var("P"),
	}
	got := ApplySequent(seq, rho)
	if got.String() != "open(#b, <f>) true |- #a aff P" {
		t.Errorf("got %v", got)
	}
}

func TestVarsExcludesBound(t *testing.T) {
	f := MustParseForm("@x . open(x, r)")
	vs := Vars(f)
	if vs[Var("x")] {
		t.Error("bound variable reported free")
	}
	if !vs[Var("r")] {
		t.Error("free variable missing")
	}
}

func TestFreshVar(t *testing.T) {
	f := MustParseForm("v0 -> v1")
	v := FreshVar(f, "v")
	if v != Var("v2") {
		t.Errorf("got %v, want v2", v)
	}
	if Vars(f)[v] {
		t.Errorf("%v is not fresh", v)
	}
}

func TestCalculusComplete(t *testing.T) {
	names := []string{
		"id", "botL", "->R", "->L", "->Laff", "@R", "@L", "@Laff",
		"W", "cut", "affcut", "aff", "saysL", "saysR", "sign", "cert",
	}
	if len(Calculus) != len(names) {
		t.Errorf("calculus has %d rules, want %d", len(Calculus), len(names))
	}
	for _, name := range names {
		if _, ok := Calculus[name]; !ok {
			t.Errorf("rule %q missing from calculus", name)
		}
	}
}
