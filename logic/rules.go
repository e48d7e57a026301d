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

// This file defines the fixed rule table of the calculus. The table is
// initialized once and never mutated.

func rule(name string, conclusion string, premises ...string) Rule {
	prems := make([]Sequent, len(premises))
	for i, p := range premises {
		prems[i] = MustParseSequent(p)
	}
	return Rule{Premises: prems, Conclusion: MustParseSequent(conclusion), Name: name}
}

var (
	// Identity closes a goal that appears among the assumptions.
	Identity = rule("id", "P true |- P true")

	// FalseLeft closes any goal under an absurd assumption.
	FalseLeft = rule("botL", "false true |- P true")

	// ImpRight proves an implication by assuming its antecedent.
	ImpRight = rule("->R", "|- P -> Q true", "P true |- Q true")

	// ImpLeft uses an implication assumption: prove the antecedent, then
	// continue with the consequent assumed.
	ImpLeft = rule("->L", "P -> Q true |- R true",
		"|- P true", "Q true |- R true")

	// ImpLeftAff is ImpLeft for affirmation goals.
	ImpLeftAff = rule("->Laff", "P -> Q true |- A aff R",
		"|- P true", "Q true |- A aff R")

	// ForallRight proves a universal goal for an arbitrary instance.
	ForallRight = rule("@R", "|- @x . P(x)", "|- P(y)")

	// ForallLeft instantiates a universal assumption. Application-directed:
	// tactics choose the instance, matching cannot infer it.
	ForallLeft = rule("@L", "@x . P(x) |- Q", "P(e) |- Q")

	// ForallLeftAff is ForallLeft for affirmation goals.
	ForallLeftAff = rule("@Laff", "@x . P(x) |- A aff Q", "P(e) |- A aff Q")

	// Weaken discards an assumption. The calculus also permits implicit
	// weakening at every step, so this rule is rarely needed.
	Weaken = rule("W", "P true, Q true |- R true", "Q true |- R true")

	// Cut proves an auxiliary fact and makes it available as an
	// assumption for the remaining goal.
	Cut = rule("cut", "|- Q true", "|- P true", "P true |- Q true")

	// AffCut is Cut for affirmation goals.
	AffCut = rule("affcut", "|- A aff Q", "|- P true", "P true |- A aff Q")

	// Aff affirms any true statement.
	Aff = rule("aff", "|- A aff P", "|- P true")

	// SaysLeft moves a statement by A into the context of a goal affirmed
	// by A.
	SaysLeft = rule("saysL", "A says P true |- A aff Q", "P true |- A aff Q")

	// SaysRight internalizes an affirmation as a says formula.
	SaysRight = rule("saysR", "|- A says P true", "|- A aff P")

	// SignRule derives a says formula from a raw signed statement once the
	// signing key is known to belong to a principal.
	SignRule = rule("sign", "|- A says P true",
		"|- iskey(A, pk) true", "|- sign(P, pk) true")

	// CertRule accepts a key binding vouched for by a trusted certificate
	// authority.
	CertRule = rule("cert", "|- iskey(B, pk) true",
		"|- ca(A) true", "|- (A says iskey(B, pk)) true")
)

// Calculus is the rule table, indexed by rule name.
var Calculus = map[string]Rule{}

func init() {
	for _, r := range []Rule{
		Identity, FalseLeft, ImpRight, ImpLeft, ImpLeftAff,
		ForallRight, ForallLeft, ForallLeftAff, Weaken,
		Cut, AffCut, Aff, SaysLeft, SaysRight, SignRule, CertRule,
	} {
		Calculus[r.Name] = r
	}
}
