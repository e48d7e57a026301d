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
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/jlmucb/authproof/logic"
)

// Credential is a formula signed by an agent: an authorization statement
// like open(#b, <shared>), a delegation policy, or a key voucher
// iskey(#b, [k]). The signature is the hex ed25519 signature of the
// formula's concrete syntax under the credential signing context.
type Credential struct {
	P         logic.Form
	Signator  logic.Agent
	Signature string
}

// NewCredential signs the formula with the agent's private key.
func NewCredential(p logic.Form, signator logic.Agent, priv ed25519.PrivateKey) Credential {
	return Credential{
		P:         p,
		Signator:  signator,
		Signature: signWithContext(priv, credentialSigningContext, p.String()),
	}
}

// Verify checks the credential's signature against the public key.
func (c Credential) Verify(pub ed25519.PublicKey) bool {
	return verifyWithContext(pub, credentialSigningContext, c.P.String(), c.Signature)
}

// SignFormula is the credential as a logical formula, sign(P, k), for the
// given fingerprint of the signator's key.
func (c Credential) SignFormula(key logic.Key) logic.Sign {
	return logic.Sign{Message: c.P, Key: key}
}

type credentialJSON struct {
	P         string `json:"p"`
	Signator  string `json:"signator"`
	Signature string `json:"signature"`
}

// MarshalJSON encodes the credential with its formula in concrete syntax.
func (c Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(credentialJSON{
		P:         c.P.String(),
		Signator:  string(c.Signator),
		Signature: c.Signature,
	})
}

// UnmarshalJSON decodes a credential, parsing the formula text.
func (c *Credential) UnmarshalJSON(data []byte) error {
	var raw credentialJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p, err := logic.ParseForm(raw.P)
	if err != nil {
		return fmt.Errorf("cred: bad credential formula: %w", err)
	}
	c.P = p
	c.Signator = logic.Agent(raw.Signator)
	c.Signature = raw.Signature
	return nil
}

func (c Credential) String() string {
	return fmt.Sprintf("credential %v signed by %v", c.P, c.Signator)
}

// Certificate binds a public key to the agent holding it, vouched for by a
// credential iskey(Agent, [k]) that is typically signed by a certificate
// authority. A CA's own certificate is self-signed.
type Certificate struct {
	PublicKey ed25519.PublicKey
	Agent     logic.Agent
	Cred      Credential
}

// NewCertificate issues a certificate for the public key, with the voucher
// signed by the signator's private key.
func NewCertificate(pub ed25519.PublicKey, agent, signator logic.Agent, signerPriv ed25519.PrivateKey) Certificate {
	voucher := logic.IsKey{Agent: agent, Key: Fingerprint(pub)}
	return Certificate{
		PublicKey: pub,
		Agent:     agent,
		Cred:      NewCredential(voucher, signator, signerPriv),
	}
}

// Fingerprint is the logical key naming the certified public key.
func (c Certificate) Fingerprint() logic.Key {
	return Fingerprint(c.PublicKey)
}

type certificateJSON struct {
	PublicKey string     `json:"public_key"`
	Agent     string     `json:"agent"`
	Cred      Credential `json:"cred"`
}

// MarshalJSON encodes the certificate with the raw public key in hex.
func (c Certificate) MarshalJSON() ([]byte, error) {
	return json.Marshal(certificateJSON{
		PublicKey: hex.EncodeToString(c.PublicKey),
		Agent:     string(c.Agent),
		Cred:      c.Cred,
	})
}

// UnmarshalJSON decodes a certificate.
func (c *Certificate) UnmarshalJSON(data []byte) error {
	var raw certificateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	key, err := hex.DecodeString(raw.PublicKey)
	if err != nil {
		return fmt.Errorf("cred: bad certificate public key: %w", err)
	}
	if len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("cred: certificate public key is %d bytes, want %d",
			len(key), ed25519.PublicKeySize)
	}
	c.PublicKey = ed25519.PublicKey(key)
	c.Agent = logic.Agent(raw.Agent)
	c.Cred = raw.Cred
	return nil
}

func (c Certificate) String() string {
	return fmt.Sprintf("certificate for %v with key %v, issued by %v",
		c.Agent, c.Fingerprint(), c.Cred.Signator)
}

// VerifyCertificate checks the certificate's voucher signature and follows
// the issuer chain up to a self-signed certificate. When roots is non-empty,
// the chain must terminate at one of the listed agents.
func VerifyCertificate(cert Certificate, chain map[logic.Agent]Certificate, roots []logic.Agent) bool {
	voucher, ok := cert.Cred.P.(logic.IsKey)
	if !ok {
		return false
	}
	if voucher.Agent != logic.Term(cert.Agent) || voucher.Key != logic.Term(cert.Fingerprint()) {
		return false
	}
	issuer, ok := chain[cert.Cred.Signator]
	if !ok {
		return false
	}
	if !cert.Cred.Verify(issuer.PublicKey) {
		return false
	}
	if cert.Agent == cert.Cred.Signator {
		if len(roots) == 0 {
			return true
		}
		for _, r := range roots {
			if r == cert.Agent {
				return true
			}
		}
		return false
	}
	return VerifyCertificate(issuer, chain, roots)
}
