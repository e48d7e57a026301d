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

package cred

// This file translates between the credential layer and the logic: building
// sequent contexts from credentials and certificates, collecting the
// credentials a proof cites, and rebasing a proof onto a context rebuilt
// from verified objects.

import (
	"fmt"

	"github.com/jlmucb/authproof/logic"
)

// BuildContext produces the assumption list for a set of credentials. The
// context opens with the trust anchors, ca(A) and iskey(A, [k]) for each
// authority, followed by the certificate vouchers sign(iskey(B, [k]), [kca])
// and then the credentials themselves as sign formulas. Every signator must
// have a certificate among cas or certs.
func BuildContext(cas, certs []Certificate, creds []Credential) ([]logic.Judgement, error) {
	chain := make(map[logic.Agent]Certificate, len(cas)+len(certs))
	for _, c := range append(append([]Certificate{}, cas...), certs...) {
		chain[c.Agent] = c
	}
	var gamma []logic.Judgement
	seen := map[logic.Judgement]bool{}
	add := func(j logic.Judgement) {
		if !seen[j] {
			seen[j] = true
			gamma = append(gamma, j)
		}
	}
	for _, ca := range cas {
		add(logic.Proposition{P: logic.IsCA{Agent: ca.Agent}})
		add(logic.Proposition{P: logic.IsKey{Agent: ca.Agent, Key: ca.Fingerprint()}})
	}
	for _, cert := range certs {
		issuer, ok := chain[cert.Cred.Signator]
		if !ok {
			return nil, fmt.Errorf("cred: no certificate for issuer %v of %v",
				cert.Cred.Signator, cert.Agent)
		}
		add(logic.Proposition{P: cert.Cred.SignFormula(issuer.Fingerprint())})
	}
	for _, c := range creds {
		signer, ok := chain[c.Signator]
		if !ok {
			return nil, fmt.Errorf("cred: no certificate for signator %v", c.Signator)
		}
		add(logic.Proposition{P: c.SignFormula(signer.Fingerprint())})
	}
	return gamma, nil
}

func signsInForm(f logic.Form, out []logic.Sign) []logic.Sign {
	switch f := f.(type) {
	case logic.Sign:
		return append(out, f)
	case logic.Implies:
		return signsInForm(f.Consequent, signsInForm(f.Antecedent, out))
	case logic.Says:
		return signsInForm(f.Message, out)
	case logic.Forall:
		return signsInForm(f.Body, out)
	default:
		return out
	}
}

func signsInJudgement(j logic.Judgement, out []logic.Sign) []logic.Sign {
	switch j := j.(type) {
	case logic.Proposition:
		return signsInForm(j.P, out)
	case logic.Affirmation:
		return signsInForm(j.P, out)
	}
	return out
}

// GatherCredentials collects the sign formulas a proof actually proves:
// those appearing in the goal of any sequent in the tree. Assumptions are
// deliberately not scanned, so the result names only the credentials the
// proof depends on, not everything that happened to be in context.
func GatherCredentials(b logic.Branch) []logic.Sign {
	var out []logic.Sign
	var walk func(b logic.Branch)
	walk = func(b logic.Branch) {
		switch b := b.(type) {
		case logic.Sequent:
			out = signsInJudgement(b.Delta, out)
		case *logic.Proof:
			out = signsInJudgement(b.Conclusion.Delta, out)
			for _, prem := range b.Premises {
				walk(prem)
			}
		}
	}
	walk(b)
	var dedup []logic.Sign
	seen := map[logic.Sign]bool{}
	for _, s := range out {
		if !seen[s] {
			seen[s] = true
			dedup = append(dedup, s)
		}
	}
	return dedup
}

func casInForm(f logic.Form, out []logic.Agent) []logic.Agent {
	switch f := f.(type) {
	case logic.IsCA:
		if a, ok := f.Agent.(logic.Agent); ok {
			return append(out, a)
		}
		return out
	case logic.Implies:
		return casInForm(f.Consequent, casInForm(f.Antecedent, out))
	case logic.Says:
		return casInForm(f.Message, out)
	case logic.Sign:
		return casInForm(f.Message, out)
	case logic.Forall:
		return casInForm(f.Body, out)
	default:
		return out
	}
}

// GatherCAs collects the agents named in ca formulas anywhere in the proof.
func GatherCAs(b logic.Branch) []logic.Agent {
	var out []logic.Agent
	collect := func(s logic.Sequent) {
		for _, j := range s.Gamma {
			if p, ok := j.(logic.Proposition); ok {
				out = casInForm(p.P, out)
			}
		}
		if p, ok := s.Delta.(logic.Proposition); ok {
			out = casInForm(p.P, out)
		}
	}
	var walk func(b logic.Branch)
	walk = func(b logic.Branch) {
		switch b := b.(type) {
		case logic.Sequent:
			collect(b)
		case *logic.Proof:
			collect(b.Conclusion)
			for _, prem := range b.Premises {
				walk(prem)
			}
		}
	}
	walk(b)
	var dedup []logic.Agent
	seen := map[logic.Agent]bool{}
	for _, a := range out {
		if !seen[a] {
			seen[a] = true
			dedup = append(dedup, a)
		}
	}
	return dedup
}

// RebaseProof rewrites every sequent of the proof onto the given context.
// Credential assumptions not present in gamma are dropped; all other
// assumptions are kept, and gamma is appended. Requests strip their proofs
// with an empty gamma to keep the wire form small, and the verifier rebases
// them onto a context rebuilt from the verified credentials.
func RebaseProof(pf *logic.Proof, gamma []logic.Judgement) *logic.Proof {
	b := rebaseBranch(pf, gamma)
	out, _ := b.(*logic.Proof)
	return out
}

func rebaseBranch(b logic.Branch, gamma []logic.Judgement) logic.Branch {
	inGamma := make(map[logic.Judgement]bool, len(gamma))
	for _, j := range gamma {
		inGamma[j] = true
	}
	switch b := b.(type) {
	case logic.Sequent:
		return rebaseSequent(b, gamma, inGamma)
	case *logic.Proof:
		prems := make([]logic.Branch, len(b.Premises))
		for i, prem := range b.Premises {
			prems[i] = rebaseBranch(prem, gamma)
		}
		return &logic.Proof{
			Premises:   prems,
			Conclusion: rebaseSequent(b.Conclusion, gamma, inGamma),
			Rule:       b.Rule,
		}
	}
	return b
}

func rebaseSequent(s logic.Sequent, gamma []logic.Judgement, inGamma map[logic.Judgement]bool) logic.Sequent {
	var kept []logic.Judgement
	seen := map[logic.Judgement]bool{}
	add := func(j logic.Judgement) {
		if !seen[j] {
			seen[j] = true
			kept = append(kept, j)
		}
	}
	for _, j := range s.Gamma {
		if p, ok := j.(logic.Proposition); ok {
			if _, isSign := p.P.(logic.Sign); isSign && !inGamma[j] {
				continue
			}
		}
		add(j)
	}
	for _, j := range gamma {
		add(j)
	}
	return logic.Sequent{Gamma: kept, Delta: s.Delta}
}
