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
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlmucb/authproof/logic"
)

func TestFingerprint(t *testing.T) {
	kp, err := GenerateKeyPair(logic.Agent("#a"))
	require.NoError(t, err)
	fp := string(Fingerprint(kp.Public))
	assert.Len(t, fp, 66)
	assert.True(t, strings.HasPrefix(fp, "["))
	assert.True(t, strings.HasSuffix(fp, "]"))
	assert.Equal(t, strings.ToLower(fp), fp)
	// Stable for the same key.
	assert.Equal(t, Fingerprint(kp.Public), Fingerprint(kp.Public))
}

func TestSigningContextsAreDisjoint(t *testing.T) {
	kp, err := GenerateKeyPair(logic.Agent("#a"))
	require.NoError(t, err)
	msg := "open(#b, <f>)"
	sig := signWithContext(kp.Private, credentialSigningContext, msg)
	assert.True(t, verifyWithContext(kp.Public, credentialSigningContext, msg, sig))
	// A credential signature must not verify as a request signature.
	assert.False(t, verifyWithContext(kp.Public, requestSigningContext, msg, sig))
	assert.False(t, verifyWithContext(kp.Public, credentialSigningContext, msg+"x", sig))
	assert.False(t, verifyWithContext(kp.Public, credentialSigningContext, msg, "not hex"))
}

func TestKeyPEMRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair(logic.Agent("#a"))
	require.NoError(t, err)

	privPEM, err := MarshalPrivateKey(kp.Private)
	require.NoError(t, err)
	priv, err := ParsePrivateKey(privPEM)
	require.NoError(t, err)
	assert.Equal(t, kp.Private, priv)

	pubPEM, err := MarshalPublicKey(kp.Public)
	require.NoError(t, err)
	pub, err := ParsePublicKey(pubPEM)
	require.NoError(t, err)
	assert.Equal(t, kp.Public, pub)

	_, err = ParsePrivateKey([]byte("not pem"))
	assert.Error(t, err)
	_, err = ParsePublicKey(privPEM)
	assert.Error(t, err)
}

func TestCredentialVerify(t *testing.T) {
	kp, err := GenerateKeyPair(logic.Agent("#root"))
	require.NoError(t, err)
	c := NewCredential(logic.MustParseForm("open(#a, <f>)"), kp.Agent, kp.Private)
	assert.True(t, c.Verify(kp.Public))

	tampered := c
	tampered.P = logic.MustParseForm("open(#b, <f>)")
	assert.False(t, tampered.Verify(kp.Public))

	other, err := GenerateKeyPair(logic.Agent("#other"))
	require.NoError(t, err)
	assert.False(t, c.Verify(other.Public))
}

func TestCredentialJSONRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair(logic.Agent("#root"))
	require.NoError(t, err)
	c := NewCredential(logic.MustParseForm("@x . (#mf says open(x, <s>)) -> open(x, <s>)"),
		kp.Agent, kp.Private)

	data, err := json.Marshal(c)
	require.NoError(t, err)
	var got Credential
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, c, got)
	assert.True(t, got.Verify(kp.Public))

	var bad Credential
	assert.Error(t, json.Unmarshal([]byte(`{"p":"open(#a","signator":"#root"}`), &bad))
}

func TestCertificateJSONRoundTrip(t *testing.T) {
	ca, err := GenerateKeyPair(logic.Agent("#ca"))
	require.NoError(t, err)
	kp, err := GenerateKeyPair(logic.Agent("#a"))
	require.NoError(t, err)
	cert := NewCertificate(kp.Public, kp.Agent, ca.Agent, ca.Private)

	data, err := json.Marshal(cert)
	require.NoError(t, err)
	var got Certificate
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, cert, got)

	var bad Certificate
	assert.Error(t, json.Unmarshal([]byte(`{"public_key":"abcd","agent":"#a"}`), &bad))
}

func TestVerifyCertificate(t *testing.T) {
	ca, err := GenerateKeyPair(logic.Agent("#ca"))
	require.NoError(t, err)
	kp, err := GenerateKeyPair(logic.Agent("#a"))
	require.NoError(t, err)

	caCert := NewCertificate(ca.Public, ca.Agent, ca.Agent, ca.Private)
	cert := NewCertificate(kp.Public, kp.Agent, ca.Agent, ca.Private)
	chain := map[logic.Agent]Certificate{ca.Agent: caCert, kp.Agent: cert}

	assert.True(t, VerifyCertificate(cert, chain, nil))
	assert.True(t, VerifyCertificate(cert, chain, []logic.Agent{"#ca"}))
	assert.True(t, VerifyCertificate(caCert, chain, []logic.Agent{"#ca"}))

	// The chain must end at a listed root.
	assert.False(t, VerifyCertificate(cert, chain, []logic.Agent{"#other"}))

	// A voucher naming a different agent does not certify this one.
	forged := cert
	forged.Agent = logic.Agent("#b")
	assert.False(t, VerifyCertificate(forged, chain, nil))

	// Without the issuer's certificate the chain cannot be followed.
	assert.False(t, VerifyCertificate(cert, map[logic.Agent]Certificate{kp.Agent: cert}, nil))

	// A voucher signed by the wrong key fails.
	imposter, err := GenerateKeyPair(logic.Agent("#ca"))
	require.NoError(t, err)
	badChain := map[logic.Agent]Certificate{
		ca.Agent: NewCertificate(imposter.Public, ca.Agent, ca.Agent, imposter.Private),
		kp.Agent: cert,
	}
	assert.False(t, VerifyCertificate(cert, badChain, nil))
}

func TestBuildContext(t *testing.T) {
	ca, err := GenerateKeyPair(logic.Agent("#ca"))
	require.NoError(t, err)
	root, err := GenerateKeyPair(logic.Agent("#root"))
	require.NoError(t, err)

	caCert := NewCertificate(ca.Public, ca.Agent, ca.Agent, ca.Private)
	rootCert := NewCertificate(root.Public, root.Agent, ca.Agent, ca.Private)
	grant := NewCredential(logic.MustParseForm("open(#a, <f>)"), root.Agent, root.Private)

	gamma, err := BuildContext([]Certificate{caCert}, []Certificate{rootCert}, []Credential{grant})
	require.NoError(t, err)
	require.Len(t, gamma, 4)

	// Anchors first, then vouchers, then credentials.
	assert.Equal(t, logic.Proposition{P: logic.IsCA{Agent: ca.Agent}}, gamma[0])
	assert.Equal(t, logic.Proposition{P: logic.IsKey{Agent: ca.Agent, Key: caCert.Fingerprint()}}, gamma[1])
	assert.Equal(t, logic.Proposition{P: rootCert.Cred.SignFormula(caCert.Fingerprint())}, gamma[2])
	assert.Equal(t, logic.Proposition{P: grant.SignFormula(rootCert.Fingerprint())}, gamma[3])

	// Unknown signators are rejected.
	stray := NewCredential(logic.MustParseForm("open(#a, <f>)"), logic.Agent("#nobody"), root.Private)
	_, err = BuildContext([]Certificate{caCert}, []Certificate{rootCert}, []Credential{stray})
	assert.Error(t, err)
}

func TestGatherCredentials(t *testing.T) {
	// Only sign formulas proved as goals count; assumptions are ignored.
	unused := logic.MustParseSequent(
		"sign(open(#a, <f>), [kr]) true, sign(open(#b, <f>), [ku]) true |- sign(open(#a, <f>), [kr]) true")
	pf := &logic.Proof{Conclusion: unused, Rule: logic.Identity}
	signs := GatherCredentials(pf)
	require.Len(t, signs, 1)
	assert.Equal(t, logic.MustParseForm("sign(open(#a, <f>), [kr])"), logic.Form(signs[0]))
}

func TestGatherCAs(t *testing.T) {
	seq := logic.MustParseSequent(
		"ca(#ca) true, iskey(#ca, [kca]) true, ca(#ca2) true |- p true")
	cas := GatherCAs(&logic.Proof{Conclusion: seq, Rule: logic.Identity})
	assert.Equal(t, []logic.Agent{"#ca", "#ca2"}, cas)
}

func TestRebaseProof(t *testing.T) {
	keep := logic.Proposition{P: logic.MustParseForm("sign(open(#a, <f>), [kr])")}
	drop := logic.Proposition{P: logic.MustParseForm("sign(open(#b, <f>), [ku])")}
	plain := logic.Proposition{P: logic.Var("p")}
	pf := &logic.Proof{
		Conclusion: logic.Sequent{
			Gamma: []logic.Judgement{keep, drop, plain},
			Delta: plain,
		},
		Rule: logic.Identity,
	}
	out := RebaseProof(pf, []logic.Judgement{keep})
	require.NotNil(t, out)
	got := out.Conclusion.Gamma
	assert.Contains(t, got, keep)
	assert.Contains(t, got, plain)
	assert.NotContains(t, got, drop)

	// An empty gamma strips every credential assumption.
	stripped := RebaseProof(pf, nil)
	assert.Equal(t, []logic.Judgement{plain}, stripped.Conclusion.Gamma)
}
