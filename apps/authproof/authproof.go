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

// authproof constructs a signed access request with an authorization proof.
// Credentials, certificates, and private keys are read from a LevelDB
// database; the resulting request is emitted as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/jlmucb/authproof/cred"
	"github.com/jlmucb/authproof/logic"
	"github.com/jlmucb/authproof/prover"
	"github.com/jlmucb/authproof/store"
)

var (
	configPath = pflag.String("config", "", "path to YAML configuration")
	dbPath     = pflag.String("db", "authproof.db", "path to the credential database")
	agentName  = pflag.String("agent", "", "agent making the request, e.g. bob")
	resource   = pflag.String("resource", "", "resource under request, e.g. shared.txt")
	outPath    = pflag.String("out", "", "write the request to this file instead of stdout")
	selfVerify = pflag.Bool("verify", true, "verify the request before emitting it")
)

type config struct {
	DB         string   `yaml:"db"`
	Root       string   `yaml:"root"`
	CA         string   `yaml:"ca"`
	TrustRoots []string `yaml:"trust_roots"`
}

func loadConfig() (config, error) {
	cfg := config{DB: *dbPath, Root: "#root", CA: "#ca"}
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", *configPath, err)
		}
	}
	if len(cfg.TrustRoots) == 0 {
		cfg.TrustRoots = []string{cfg.CA}
	}
	return cfg, nil
}

func main() {
	pflag.Parse()
	defer glog.Flush()

	if *agentName == "" || *resource == "" {
		glog.Exit("both --agent and --resource are required")
	}
	cfg, err := loadConfig()
	if err != nil {
		glog.Exitf("loading configuration: %v", err)
	}
	agent := logic.Agent("#" + *agentName)
	res := logic.Resource("<" + *resource + ">")
	root := logic.Agent(cfg.Root)
	ca := logic.Agent(cfg.CA)

	st, err := store.Open(cfg.DB)
	if err != nil {
		glog.Exit(err)
	}
	defer st.Close()

	req, err := buildRequest(st, agent, res, root, ca)
	if err != nil {
		glog.Exit(err)
	}

	if *selfVerify {
		roots := make([]logic.Agent, len(cfg.TrustRoots))
		for i, r := range cfg.TrustRoots {
			roots[i] = logic.Agent(r)
		}
		if _, err := cred.VerifyRequest(req, roots); err != nil {
			glog.Exitf("generated request failed verification: %v", err)
		}
		glog.V(1).Info("request verified")
	}

	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		glog.Exit(err)
	}
	data = append(data, '\n')
	if *outPath != "" {
		if err := os.WriteFile(*outPath, data, 0644); err != nil {
			glog.Exit(err)
		}
	} else {
		os.Stdout.Write(data)
	}
}

func buildRequest(st *store.Store, agent logic.Agent, res logic.Resource, root, ca logic.Agent) (*cred.AccessRequest, error) {
	creds, err := st.Credentials()
	if err != nil {
		return nil, err
	}
	certs, err := st.Certificates()
	if err != nil {
		return nil, err
	}
	caCert, ok, err := st.Certificate(ca)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no certificate stored for authority %v", ca)
	}
	var userCerts []cred.Certificate
	for _, c := range certs {
		if c.Agent != ca {
			userCerts = append(userCerts, c)
		}
	}

	gamma, err := cred.BuildContext([]cred.Certificate{caCert}, userCerts, creds)
	if err != nil {
		return nil, err
	}
	goal := logic.Says{Speaker: root, Message: logic.Open{Agent: agent, Resource: res}}
	seq := logic.Sequent{Gamma: gamma, Delta: logic.Proposition{P: goal}}

	glog.V(1).Infof("proving %v from %d assumptions", goal, len(gamma))
	pf := prover.Prove(seq)
	if pf == nil {
		return nil, fmt.Errorf("could not find authorization proof of %v", goal)
	}

	citedCreds, citedCerts, err := citedObjects(pf, creds, certs, agent, caCert)
	if err != nil {
		return nil, err
	}
	priv, ok, err := st.PrivateKey(agent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no private key stored for %v", agent)
	}
	return cred.NewAccessRequest(pf, agent, priv, citedCreds, citedCerts)
}

// citedObjects selects the credentials the proof cites and the certificates
// needed to verify them: those of the cited signators, the requester, and
// every authority the proof relies on.
func citedObjects(pf *logic.Proof, creds []cred.Credential, certs []cred.Certificate,
	agent logic.Agent, caCert cred.Certificate) ([]cred.Credential, []cred.Certificate, error) {

	byAgent := make(map[logic.Agent]cred.Certificate, len(certs)+1)
	for _, c := range certs {
		byAgent[c.Agent] = c
	}
	byAgent[caCert.Agent] = caCert

	// Index stored credentials by their logical sign formula.
	byFormula := make(map[logic.Sign]cred.Credential, len(creds))
	for _, c := range creds {
		signer, ok := byAgent[c.Signator]
		if !ok {
			return nil, nil, fmt.Errorf("no certificate for signator %v", c.Signator)
		}
		byFormula[c.SignFormula(signer.Fingerprint())] = c
	}

	needCert := map[logic.Agent]bool{agent: true}
	for _, a := range cred.GatherCAs(pf) {
		needCert[a] = true
	}
	var citedCreds []cred.Credential
	for _, sg := range cred.GatherCredentials(pf) {
		if vouched, ok := sg.Message.(logic.IsKey); ok {
			// Certificate vouchers travel as certificates, not credentials.
			if a, ok := vouched.Agent.(logic.Agent); ok {
				needCert[a] = true
			}
			continue
		}
		c, ok := byFormula[sg]
		if !ok {
			return nil, nil, fmt.Errorf("proof cites unknown credential %v", sg)
		}
		citedCreds = append(citedCreds, c)
		needCert[c.Signator] = true
	}

	var citedCerts []cred.Certificate
	for _, c := range append(certs, caCert) {
		if needCert[c.Agent] {
			citedCerts = append(citedCerts, c)
			delete(needCert, c.Agent)
		}
	}
	for a := range needCert {
		return nil, nil, fmt.Errorf("no certificate available for %v", a)
	}
	return citedCreds, citedCerts, nil
}
