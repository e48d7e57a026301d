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

// Package store persists credentials, certificates, and private keys in a
// LevelDB database. Values are the JSON forms from the cred package;
// private keys are stored as PEM blocks.
package store

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/jlmucb/authproof/cred"
	"github.com/jlmucb/authproof/logic"
)

// Key prefixes partition the database by object kind.
const (
	credPrefix = "cred/"
	certPrefix = "cert/"
	keyPrefix  = "key/"
)

// Store is a handle to an open credential database.
type Store struct {
	db *leveldb.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutCredential saves a credential, keyed by the text of its formula and
// signator so that re-issued credentials overwrite their predecessors.
func (s *Store) PutCredential(c cred.Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("store: encoding credential: %w", err)
	}
	key := credPrefix + string(c.Signator) + "/" + c.P.String()
	return s.db.Put([]byte(key), data, nil)
}

// Credentials returns every stored credential, in key order.
func (s *Store) Credentials() ([]cred.Credential, error) {
	var out []cred.Credential
	iter := s.db.NewIterator(util.BytesPrefix([]byte(credPrefix)), nil)
	defer iter.Release()
	for iter.Next() {
		var c cred.Credential
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			return nil, fmt.Errorf("store: decoding credential %s: %w", iter.Key(), err)
		}
		out = append(out, c)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("store: iterating credentials: %w", err)
	}
	return out, nil
}

// PutCertificate saves a certificate, keyed by its agent.
func (s *Store) PutCertificate(c cred.Certificate) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("store: encoding certificate: %w", err)
	}
	return s.db.Put([]byte(certPrefix+string(c.Agent)), data, nil)
}

// Certificate loads the certificate for an agent. The boolean is false when
// no certificate is stored.
func (s *Store) Certificate(agent logic.Agent) (cred.Certificate, bool, error) {
	data, err := s.db.Get([]byte(certPrefix+string(agent)), nil)
	if err == leveldb.ErrNotFound {
		return cred.Certificate{}, false, nil
	}
	if err != nil {
		return cred.Certificate{}, false, fmt.Errorf("store: loading certificate for %v: %w", agent, err)
	}
	var c cred.Certificate
	if err := json.Unmarshal(data, &c); err != nil {
		return cred.Certificate{}, false, fmt.Errorf("store: decoding certificate for %v: %w", agent, err)
	}
	return c, true, nil
}

// Certificates returns every stored certificate, in key order.
func (s *Store) Certificates() ([]cred.Certificate, error) {
	var out []cred.Certificate
	iter := s.db.NewIterator(util.BytesPrefix([]byte(certPrefix)), nil)
	defer iter.Release()
	for iter.Next() {
		var c cred.Certificate
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			return nil, fmt.Errorf("store: decoding certificate %s: %w", iter.Key(), err)
		}
		out = append(out, c)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("store: iterating certificates: %w", err)
	}
	return out, nil
}

// PutPrivateKey saves an agent's private key.
func (s *Store) PutPrivateKey(agent logic.Agent, priv ed25519.PrivateKey) error {
	pemBytes, err := cred.MarshalPrivateKey(priv)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(keyPrefix+string(agent)), pemBytes, nil)
}

// PrivateKey loads an agent's private key. The boolean is false when no key
// is stored.
func (s *Store) PrivateKey(agent logic.Agent) (ed25519.PrivateKey, bool, error) {
	data, err := s.db.Get([]byte(keyPrefix+string(agent)), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: loading key for %v: %w", agent, err)
	}
	priv, err := cred.ParsePrivateKey(data)
	if err != nil {
		return nil, false, err
	}
	return priv, true, nil
}
