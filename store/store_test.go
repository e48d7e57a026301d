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

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlmucb/authproof/cred"
	"github.com/jlmucb/authproof/logic"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCredentialRoundTrip(t *testing.T) {
	s := openStore(t)
	kp, err := cred.GenerateKeyPair(logic.Agent("#root"))
	require.NoError(t, err)

	a := cred.NewCredential(logic.MustParseForm("open(#a, <f>)"), kp.Agent, kp.Private)
	b := cred.NewCredential(logic.MustParseForm("open(#b, <f>)"), kp.Agent, kp.Private)
	require.NoError(t, s.PutCredential(a))
	require.NoError(t, s.PutCredential(b))

	got, err := s.Credentials()
	require.NoError(t, err)
	assert.ElementsMatch(t, []cred.Credential{a, b}, got)

	// Re-signing the same formula overwrites, not duplicates.
	require.NoError(t, s.PutCredential(a))
	got, err = s.Credentials()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCertificateRoundTrip(t *testing.T) {
	s := openStore(t)
	ca, err := cred.GenerateKeyPair(logic.Agent("#ca"))
	require.NoError(t, err)
	kp, err := cred.GenerateKeyPair(logic.Agent("#a"))
	require.NoError(t, err)

	cert := cred.NewCertificate(kp.Public, kp.Agent, ca.Agent, ca.Private)
	require.NoError(t, s.PutCertificate(cert))

	got, ok, err := s.Certificate(kp.Agent)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cert, got)

	_, ok, err = s.Certificate(logic.Agent("#missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := s.Certificates()
	require.NoError(t, err)
	assert.Equal(t, []cred.Certificate{cert}, all)
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	s := openStore(t)
	kp, err := cred.GenerateKeyPair(logic.Agent("#a"))
	require.NoError(t, err)

	require.NoError(t, s.PutPrivateKey(kp.Agent, kp.Private))
	priv, ok, err := s.PrivateKey(kp.Agent)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, kp.Private, priv)

	_, ok, err = s.PrivateKey(logic.Agent("#missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrefixesDoNotCollide(t *testing.T) {
	s := openStore(t)
	kp, err := cred.GenerateKeyPair(logic.Agent("#a"))
	require.NoError(t, err)

	require.NoError(t, s.PutPrivateKey(kp.Agent, kp.Private))
	require.NoError(t, s.PutCertificate(cred.NewCertificate(kp.Public, kp.Agent, kp.Agent, kp.Private)))

	creds, err := s.Credentials()
	require.NoError(t, err)
	assert.Empty(t, creds)
	certs, err := s.Certificates()
	require.NoError(t, err)
	assert.Len(t, certs, 1)
}
