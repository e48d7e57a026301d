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

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jlmucb/authproof/logic"
	"github.com/jlmucb/authproof/verifier"
)

// Request verification failures.
var (
	ErrBadCertificate = errors.New("cred: certificate verification failed")
	ErrBadCredential  = errors.New("cred: credential signature verification failed")
	ErrBadSignature   = errors.New("cred: request signature verification failed")
	ErrProofRejected  = errors.New("cred: proof does not establish the request")
)

// AccessRequest asks an authorization server to honor a claim of the form
// "A says open(B, R)". It carries a proof of the claim, the credentials and
// certificates the proof cites, and the requester's signature over the
// request id and the claim.
type AccessRequest struct {
	ID        uuid.UUID
	Agent     logic.Agent
	Goal      logic.Form
	Proof     *logic.Proof
	Signature string
	Creds     []Credential
	Certs     []Certificate
}

// NewAccessRequest builds a request from a proof on behalf of an agent. The
// proof's goal must be a says formula over an open statement; the proof is
// stripped of credential assumptions for transport, since the verifier
// rebuilds them from the attached credentials. The requester need not be
// the agent named in the claim.
func NewAccessRequest(pf *logic.Proof, agent logic.Agent, priv ed25519.PrivateKey,
	creds []Credential, certs []Certificate) (*AccessRequest, error) {

	goal, ok := pf.Conclusion.Delta.(logic.Proposition)
	if !ok {
		return nil, fmt.Errorf("cred: invalid access goal %v", pf.Conclusion.Delta)
	}
	says, ok := goal.P.(logic.Says)
	if !ok {
		return nil, fmt.Errorf("cred: invalid access goal %v", goal.P)
	}
	if _, ok := says.Message.(logic.Open); !ok {
		return nil, fmt.Errorf("cred: invalid access goal %v", goal.P)
	}
	id := uuid.New()
	return &AccessRequest{
		ID:        id,
		Agent:     agent,
		Goal:      goal.P,
		Proof:     RebaseProof(pf, nil),
		Signature: signWithContext(priv, requestSigningContext, requestMessage(id, goal.P)),
		Creds:     creds,
		Certs:     certs,
	}, nil
}

func requestMessage(id uuid.UUID, goal logic.Form) string {
	return id.String() + "\x00" + goal.String()
}

// VerifyRequest checks an access request end to end: certificate chains up
// to the roots, credential signatures, the requester's signature, and
// finally the proof itself, rebased onto a context built only from the
// verified credentials. On success it returns the granted claim.
func VerifyRequest(req *AccessRequest, roots []logic.Agent) (logic.Form, error) {
	chain := make(map[logic.Agent]Certificate, len(req.Certs))
	for _, cert := range req.Certs {
		chain[cert.Agent] = cert
	}
	for _, cert := range req.Certs {
		if !VerifyCertificate(cert, chain, roots) {
			return nil, fmt.Errorf("%w: %v", ErrBadCertificate, cert.Agent)
		}
	}
	for _, c := range req.Creds {
		signer, ok := chain[c.Signator]
		if !ok {
			return nil, fmt.Errorf("%w: no certificate for %v", ErrBadCredential, c.Signator)
		}
		if !c.Verify(signer.PublicKey) {
			return nil, fmt.Errorf("%w: %v", ErrBadCredential, c)
		}
	}

	requester, ok := chain[req.Agent]
	if !ok {
		return nil, fmt.Errorf("%w: no certificate for requester %v", ErrBadSignature, req.Agent)
	}
	if !verifyWithContext(requester.PublicKey, requestSigningContext,
		requestMessage(req.ID, req.Goal), req.Signature) {
		return nil, fmt.Errorf("%w: requester %v", ErrBadSignature, req.Agent)
	}

	if req.Proof == nil {
		return nil, fmt.Errorf("%w: request has no proof", ErrProofRejected)
	}
	goal, ok := req.Proof.Conclusion.Delta.(logic.Proposition)
	if !ok || goal.P != req.Goal {
		return nil, fmt.Errorf("%w: proof concludes %v, request claims %v",
			ErrProofRejected, req.Proof.Conclusion.Delta, req.Goal)
	}

	var cas []Certificate
	for _, ca := range GatherCAs(req.Proof) {
		cert, ok := chain[ca]
		if !ok {
			return nil, fmt.Errorf("%w: no certificate for authority %v", ErrProofRejected, ca)
		}
		cas = append(cas, cert)
	}
	gamma, err := BuildContext(cas, req.Certs, req.Creds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofRejected, err)
	}
	pf := RebaseProof(&logic.Proof{
		Premises:   req.Proof.Premises,
		Conclusion: logic.Sequent{Gamma: gamma, Delta: req.Proof.Conclusion.Delta},
		Rule:       req.Proof.Rule,
	}, gamma)
	if obs := verifier.Obligations(pf); len(obs) > 0 {
		return nil, fmt.Errorf("%w: %d branches remain open", ErrProofRejected, len(obs))
	}
	return req.Goal, nil
}

// proofNode is the wire form of a proof tree. A node with an empty rule
// name is an open obligation.
type proofNode struct {
	Premises   []proofNode `json:"premises"`
	Conclusion string      `json:"conclusion"`
	Rule       string      `json:"rule,omitempty"`
}

func branchToNode(b logic.Branch) proofNode {
	switch b := b.(type) {
	case *logic.Proof:
		node := proofNode{Conclusion: b.Conclusion.String(), Rule: b.Rule.Name}
		for _, prem := range b.Premises {
			node.Premises = append(node.Premises, branchToNode(prem))
		}
		return node
	default:
		return proofNode{Conclusion: b.Endsequent().String()}
	}
}

func nodeToBranch(n proofNode) (logic.Branch, error) {
	seq, err := logic.ParseSequent(n.Conclusion)
	if err != nil {
		return nil, fmt.Errorf("cred: bad sequent in proof: %w", err)
	}
	if n.Rule == "" {
		return seq, nil
	}
	rule, ok := logic.Calculus[n.Rule]
	if !ok {
		return nil, fmt.Errorf("cred: unknown rule %q in proof", n.Rule)
	}
	prems := make([]logic.Branch, len(n.Premises))
	for i, p := range n.Premises {
		if prems[i], err = nodeToBranch(p); err != nil {
			return nil, err
		}
	}
	return &logic.Proof{Premises: prems, Conclusion: seq, Rule: rule}, nil
}

type accessRequestJSON struct {
	ID        uuid.UUID     `json:"id"`
	Agent     string        `json:"agent"`
	Goal      string        `json:"goal"`
	Proof     proofNode     `json:"proof"`
	Signature string        `json:"signature"`
	Creds     []Credential  `json:"creds"`
	Certs     []Certificate `json:"certs"`
}

// MarshalJSON encodes the request for transport.
func (r *AccessRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(accessRequestJSON{
		ID:        r.ID,
		Agent:     string(r.Agent),
		Goal:      r.Goal.String(),
		Proof:     branchToNode(r.Proof),
		Signature: r.Signature,
		Creds:     r.Creds,
		Certs:     r.Certs,
	})
}

// UnmarshalJSON decodes a request, parsing the goal and proof text.
func (r *AccessRequest) UnmarshalJSON(data []byte) error {
	var raw accessRequestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	goal, err := logic.ParseForm(raw.Goal)
	if err != nil {
		return fmt.Errorf("cred: bad request goal: %w", err)
	}
	b, err := nodeToBranch(raw.Proof)
	if err != nil {
		return err
	}
	pf, ok := b.(*logic.Proof)
	if !ok {
		return fmt.Errorf("cred: request proof has no closed root step")
	}
	r.ID = raw.ID
	r.Agent = logic.Agent(raw.Agent)
	r.Goal = goal
	r.Proof = pf
	r.Signature = raw.Signature
	r.Creds = raw.Creds
	r.Certs = raw.Certs
	return nil
}
