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

// Package cred implements the credential layer of the authorization system:
// ed25519 key pairs, signed credentials and public-key certificates, the
// translation of both into sequent assumptions, and signed access requests
// carrying a proof together with the credentials it cites.
package cred

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"github.com/jlmucb/authproof/logic"
)

// Signing contexts keep signatures from one statement class from being
// replayed as another.
const (
	credentialSigningContext = "authproof credential signature"
	requestSigningContext    = "authproof access request signature"
)

// KeyPair is an agent's ed25519 key pair.
type KeyPair struct {
	Agent   logic.Agent
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeyPair creates a fresh key pair for the agent.
func GenerateKeyPair(agent logic.Agent) (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cred: generating key for %v: %w", agent, err)
	}
	return &KeyPair{Agent: agent, Public: pub, Private: priv}, nil
}

// Fingerprint returns the logical key naming a public key: the bracketed
// lowercase hex of its SHA-256 digest.
func Fingerprint(pub ed25519.PublicKey) logic.Key {
	digest := sha256.Sum256(pub)
	return logic.Key("[" + hex.EncodeToString(digest[:]) + "]")
}

func signWithContext(priv ed25519.PrivateKey, context, msg string) string {
	payload := append([]byte(context), 0)
	payload = append(payload, []byte(msg)...)
	return hex.EncodeToString(ed25519.Sign(priv, payload))
}

func verifyWithContext(pub ed25519.PublicKey, context, msg, sigHex string) bool {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	payload := append([]byte(context), 0)
	payload = append(payload, []byte(msg)...)
	return ed25519.Verify(pub, payload, sig)
}

// MarshalPrivateKey encodes a private key as a PKCS8 PEM block.
func MarshalPrivateKey(priv ed25519.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("cred: marshaling private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ParsePrivateKey decodes a PKCS8 PEM private key.
func ParsePrivateKey(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("cred: no PEM block in private key data")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cred: parsing private key: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("cred: private key is %T, want ed25519", key)
	}
	return priv, nil
}

// MarshalPublicKey encodes a public key as a PKIX PEM block.
func MarshalPublicKey(pub ed25519.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("cred: marshaling public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// ParsePublicKey decodes a PKIX PEM public key.
func ParsePublicKey(data []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("cred: no PEM block in public key data")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cred: parsing public key: %w", err)
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("cred: public key is %T, want ed25519", key)
	}
	return pub, nil
}
