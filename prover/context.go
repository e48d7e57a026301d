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

// This file analyzes sequent contexts: which agents are certificate
// authorities, which keys belong to whom, and which credentials are
// available. Key ownership is established either by a bare iskey assumption
// or by a certificate signed with a CA's key.

import "github.com/jlmucb/authproof/logic"

// CAs returns the agents declared as certificate authorities in the context,
// in order of appearance.
func CAs(seq logic.Sequent) []logic.Agent {
	var cas []logic.Agent
	seen := map[logic.Agent]bool{}
	for _, j := range seq.Gamma {
		p, ok := j.(logic.Proposition)
		if !ok {
			continue
		}
		isca, ok := p.P.(logic.IsCA)
		if !ok {
			continue
		}
		if a, ok := isca.Agent.(logic.Agent); ok && !seen[a] {
			seen[a] = true
			cas = append(cas, a)
		}
	}
	return cas
}

// CAForKey returns the certificate authority that holds the key, if the
// context contains both iskey(A, k) and ca(A).
func CAForKey(k logic.Key, seq logic.Sequent) (logic.Agent, bool) {
	for _, j := range seq.Gamma {
		p, ok := j.(logic.Proposition)
		if !ok {
			continue
		}
		iskey, ok := p.P.(logic.IsKey)
		if !ok || iskey.Key != logic.Term(k) {
			continue
		}
		a, ok := iskey.Agent.(logic.Agent)
		if !ok {
			continue
		}
		if seq.Assumes(logic.Proposition{P: logic.IsCA{Agent: a}}) {
			return a, true
		}
	}
	return "", false
}

// IsCAKey reports whether the key belongs to a certificate authority.
func IsCAKey(k logic.Key, seq logic.Sequent) bool {
	_, ok := CAForKey(k, seq)
	return ok
}

// KeyOwners maps each key in the context to the agent that holds it.
// Ownership comes from bare iskey assumptions and from certificates
// sign(iskey(A, k), kca) issued under a CA key. Conflicting claims keep the
// first binding seen; iskey assumptions take precedence over certificates.
func KeyOwners(seq logic.Sequent) map[logic.Key]logic.Agent {
	owners := make(map[logic.Key]logic.Agent)
	bind := func(kt, at logic.Term) {
		k, ok := kt.(logic.Key)
		if !ok {
			return
		}
		a, ok := at.(logic.Agent)
		if !ok {
			return
		}
		if _, bound := owners[k]; !bound {
			owners[k] = a
		}
	}
	for _, j := range seq.Gamma {
		p, ok := j.(logic.Proposition)
		if !ok {
			continue
		}
		if iskey, ok := p.P.(logic.IsKey); ok {
			bind(iskey.Key, iskey.Agent)
		}
	}
	for _, j := range seq.Gamma {
		p, ok := j.(logic.Proposition)
		if !ok {
			continue
		}
		cert, ok := p.P.(logic.Sign)
		if !ok {
			continue
		}
		vouched, ok := cert.Message.(logic.IsKey)
		if !ok {
			continue
		}
		caKey, ok := cert.Key.(logic.Key)
		if !ok || !IsCAKey(caKey, seq) {
			continue
		}
		bind(vouched.Key, vouched.Agent)
	}
	return owners
}

// IsKeyOf reports whether the context establishes that the key belongs to
// the agent, by bare assumption or CA-issued certificate.
func IsKeyOf(k logic.Key, a logic.Agent, seq logic.Sequent) bool {
	if seq.Assumes(logic.Proposition{P: logic.IsKey{Agent: a, Key: k}}) {
		return true
	}
	for _, j := range seq.Gamma {
		p, ok := j.(logic.Proposition)
		if !ok {
			continue
		}
		cert, ok := p.P.(logic.Sign)
		if !ok {
			continue
		}
		vouched, ok := cert.Message.(logic.IsKey)
		if !ok || vouched.Agent != logic.Term(a) || vouched.Key != logic.Term(k) {
			continue
		}
		if caKey, ok := cert.Key.(logic.Key); ok && IsCAKey(caKey, seq) {
			return true
		}
	}
	return false
}

// HasCredential looks for a credential sign(p, k) in the context whose
// signing key belongs to the agent.
func HasCredential(a logic.Agent, p logic.Form, seq logic.Sequent) (logic.Sign, bool) {
	for _, j := range seq.Gamma {
		prop, ok := j.(logic.Proposition)
		if !ok {
			continue
		}
		cred, ok := prop.P.(logic.Sign)
		if !ok || cred.Message != p {
			continue
		}
		if k, ok := cred.Key.(logic.Key); ok && IsKeyOf(k, a, seq) {
			return cred, true
		}
	}
	return logic.Sign{}, false
}
