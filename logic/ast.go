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

// Package logic implements the term model of the authorization logic: typed
// constants, formulas, judgements, sequents, inference rules, and proof
// trees, together with substitution, first-order matching against rule
// templates, and a parser and printer for the concrete syntax.
//
// All values in this package are immutable once constructed; transformations
// always produce new values, so everything is freely shareable.
package logic

// Element is any element of the logic: a term, a formula, a judgement, a
// sequent, or a proof.
type Element interface {

	// String returns the concrete-syntax text for the element.
	String() string

	isElement() // marker
}

// isElement ensures only appropriate types can be assigned to an Element.
func (t Var) isElement()         {}
func (t Agent) isElement()       {}
func (t Key) isElement()         {}
func (t Resource) isElement()    {}
func (f Const) isElement()       {}
func (f Implies) isElement()     {}
func (f Says) isElement()        {}
func (f IsKey) isElement()       {}
func (f Sign) isElement()        {}
func (f IsCA) isElement()        {}
func (f Open) isElement()        {}
func (f Forall) isElement()      {}
func (f Apply) isElement()       {}
func (j Proposition) isElement() {}
func (j Affirmation) isElement() {}
func (s Sequent) isElement()     {}
func (p *Proof) isElement()      {}

// These declarations ensure all the appropriate types can be assigned to an
// Element.
var _ Element = Var("x")
var _ Element = Agent("#a")
var _ Element = Key("[k]")
var _ Element = Resource("<r>")
var _ Element = Const(true)
var _ Element = Implies{}
var _ Element = Says{}
var _ Element = IsKey{}
var _ Element = Sign{}
var _ Element = IsCA{}
var _ Element = Open{}
var _ Element = Forall{}
var _ Element = Apply{}
var _ Element = Proposition{}
var _ Element = Affirmation{}
var _ Element = Sequent{}
var _ Element = &Proof{}

// Term is an argument to a predicate: an agent, a key, a resource, or a
// variable standing for one of those. A variable is untyped at the term
// level; its kind is fixed only by the position it occupies.
type Term interface {
	Element
	Identical(other Term) bool
	isTerm() // marker
}

// isTerm ensures only appropriate types can be assigned to a Term.
func (t Var) isTerm()      {}
func (t Agent) isTerm()    {}
func (t Key) isTerm()      {}
func (t Resource) isTerm() {}

// Var is a variable. It can stand for a term in any term position, or for a
// whole formula when it appears in formula position within a rule template.
type Var string

// Agent is a named principal. Its text always begins with '#'.
type Agent string

// Key is a public-key fingerprint. Its text is bracketed, e.g. "[ab12]".
type Key string

// Resource is a named resource. Its text is angle-quoted, e.g. "<shared>".
type Resource string

// Identical checks if a Var is identical to another Term.
func (t Var) Identical(other Term) bool { return t == other }

// Identical checks if an Agent is identical to another Term.
func (t Agent) Identical(other Term) bool { return t == other }

// Identical checks if a Key is identical to another Term.
func (t Key) Identical(other Term) bool { return t == other }

// Identical checks if a Resource is identical to another Term.
func (t Resource) Identical(other Term) bool { return t == other }

// Form is a formula of the logic. Formulas are compared structurally; no
// alpha-equivalence is assumed.
type Form interface {
	Element
	isForm() // marker
}

// isForm ensures only appropriate types can be assigned to a Form.
func (t Var) isForm()     {}
func (f Const) isForm()   {}
func (f Implies) isForm() {}
func (f Says) isForm()    {}
func (f IsKey) isForm()   {}
func (f Sign) isForm()    {}
func (f IsCA) isForm()    {}
func (f Open) isForm()    {}
func (f Forall) isForm()  {}
func (f Apply) isForm()   {}

// Const conveys formula "true" or formula "false".
type Const bool

// Implies conveys formula "Antecedent -> Consequent".
type Implies struct {
	Antecedent Form
	Consequent Form
}

// Says conveys formula "Speaker says Message". Speaker is an Agent or a Var.
type Says struct {
	Speaker Term
	Message Form
}

// IsKey conveys formula "iskey(Agent, Key)", binding a public key to the
// principal that holds it.
type IsKey struct {
	Agent Term
	Key   Term
}

// Sign conveys formula "sign(Message, Key)": a raw signed statement with no
// principal attached yet.
type Sign struct {
	Message Form
	Key     Term
}

// IsCA conveys formula "ca(Agent)": the agent is a trusted certificate
// authority.
type IsCA struct {
	Agent Term
}

// Open conveys formula "open(Agent, Resource)": permission for the agent to
// act on the resource.
type Open struct {
	Agent    Term
	Resource Term
}

// Forall conveys formula "@Var . Body", with Var bound in Body.
type Forall struct {
	Var  Var
	Body Form
}

// Apply is a template application "P(x)": a formula metavariable applied to
// a term variable. It appears only inside rule templates for the quantifier
// rules, where matching must relate an instantiated body to its pattern.
type Apply struct {
	Fn  Var
	Arg Var
}

// Judgement is either a Proposition ("F true") or an Affirmation
// ("A aff F").
type Judgement interface {
	Element
	isJudgement() // marker
}

func (j Proposition) isJudgement() {}
func (j Affirmation) isJudgement() {}

// Proposition asserts that a formula is true.
type Proposition struct {
	P Form
}

// Affirmation asserts that a principal affirms a formula. A is an Agent or,
// in rule templates, a Var.
type Affirmation struct {
	A Term
	P Form
}

// Sequent is a context of assumed judgements (Gamma) and one goal judgement
// (Delta). Context order is irrelevant semantically; rules match against an
// arbitrary sub-multiset of Gamma, and extra assumptions never break a
// match.
type Sequent struct {
	Gamma []Judgement
	Delta Judgement
}

// Equal reports structural equality of two sequents, context order
// included.
func (s Sequent) Equal(o Sequent) bool {
	if len(s.Gamma) != len(o.Gamma) || s.Delta != o.Delta {
		return false
	}
	for i := range s.Gamma {
		if s.Gamma[i] != o.Gamma[i] {
			return false
		}
	}
	return true
}

// Assumes reports whether j appears in the context of s.
func (s Sequent) Assumes(j Judgement) bool {
	for _, p := range s.Gamma {
		if p == j {
			return true
		}
	}
	return false
}

// Rule is a named inference rule: premise templates and one conclusion
// template. Rules are fixed, pre-defined data; the prover never constructs
// them dynamically.
type Rule struct {
	Premises   []Sequent
	Conclusion Sequent
	Name       string
}

// Branch is one premise position of a proof node: either a closed
// sub-derivation (*Proof) or a bare sequent that is still an open
// obligation.
type Branch interface {
	// Endsequent returns the sequent proved by a closed branch, or the
	// obligation itself for an open one.
	Endsequent() Sequent

	String() string

	isBranch() // marker
}

func (s Sequent) isBranch() {}
func (p *Proof) isBranch()  {}

// Endsequent returns the open obligation itself.
func (s Sequent) Endsequent() Sequent { return s }

// Endsequent returns the conclusion of the derivation.
func (p *Proof) Endsequent() Sequent { return p.Conclusion }

// Proof is a tree of rule applications. A proof is closed iff every leaf is
// itself a Proof; bare Sequent branches are obligations still to be
// discharged. Proofs are built bottom-up by tactics and never mutated;
// splicing a sub-proof for an open leaf produces a new tree that shares
// unchanged subtrees.
type Proof struct {
	Premises   []Branch
	Conclusion Sequent
	Rule       Rule
}

// Closed reports whether the proof tree has no bare sequent leaves. It does
// not validate rule applications; see the verifier package for that.
func (p *Proof) Closed() bool {
	for _, prem := range p.Premises {
		sub, ok := prem.(*Proof)
		if !ok || !sub.Closed() {
			return false
		}
	}
	return true
}

// NewSequent copies the given context and goal into a fresh sequent.
func NewSequent(gamma []Judgement, delta Judgement) Sequent {
	g := make([]Judgement, len(gamma))
	copy(g, gamma)
	return Sequent{Gamma: g, Delta: delta}
}
