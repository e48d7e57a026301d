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

// This file assembles tactic pipelines for authorization goals of the form
// "A says open(B, R)". The context is first analyzed into a delegation
// graph: who granted access to whom, directly or through delegation
// policies. A breadth-first search then finds the shortest grant chain, and
// the pipeline is built from that chain so the resulting proof cites only
// the credentials it needs.

import (
	"github.com/golang/glog"

	"github.com/jlmucb/authproof/graph"
	"github.com/jlmucb/authproof/logic"
)

// Delegation policy shapes recognized in credentials.
var (
	// singleHopTpl delegates authority over a resource to one agent: any
	// access that agent grants, the policy issuer grants.
	singleHopTpl = logic.MustParseForm("@x . (D says open(x, r)) -> open(x, r)")

	// transitiveTpl extends access transitively: anyone with access may
	// grant it onward.
	transitiveTpl = logic.MustParseForm("@x . @y . open(x, r) -> ((x says open(y, r)) -> open(y, r))")
)

type edgeKind int

const (
	edgeGrant edgeKind = iota // signed credential sign(open(to, r), k_from)
	edgeSays                  // bare assumption "from says open(to, r)"
)

// delegation is one grant edge of the trust graph.
type delegation struct {
	kind edgeKind
	from logic.Agent
	to   logic.Agent
	cred logic.Sign // set for edgeGrant
}

// policy is a delegation policy credential signed by its issuer.
type policy struct {
	issuer   logic.Agent
	delegate logic.Agent // set for single-hop policies
	cred     logic.Sign
}

// certInfo pairs a certificate tactic with the agent whose key it
// establishes.
type certInfo struct {
	tactic CertTactic
	agent  logic.Agent
}

// analysis is everything Prove extracts from a sequent context before
// choosing a pipeline.
type analysis struct {
	certs       []certInfo
	edges       []delegation
	singleHops  []policy
	transitives []policy
}

// certsFor returns the certificate tactics that establish keys for the
// given agents. Pipelines unwrap only the certificates their chain needs,
// keeping the credentials the proof cites minimal.
func (an analysis) certsFor(agents ...logic.Agent) []Tactic {
	want := make(map[logic.Agent]bool, len(agents))
	for _, a := range agents {
		want[a] = true
	}
	var ts []Tactic
	for _, c := range an.certs {
		if want[c.agent] {
			ts = append(ts, c.tactic)
		}
	}
	return ts
}

func analyze(seq logic.Sequent, resource logic.Resource) analysis {
	owners := KeyOwners(seq)
	var an analysis
	for _, j := range seq.Gamma {
		prop, ok := j.(logic.Proposition)
		if !ok {
			continue
		}
		switch f := prop.P.(type) {
		case logic.Says:
			speaker, ok := f.Speaker.(logic.Agent)
			if !ok {
				continue
			}
			if open, ok := f.Message.(logic.Open); ok {
				to, okA := open.Agent.(logic.Agent)
				if okA && open.Resource == logic.Term(resource) {
					an.edges = append(an.edges, delegation{kind: edgeSays, from: speaker, to: to})
				}
			}
		case logic.Sign:
			key, ok := f.Key.(logic.Key)
			if !ok {
				continue
			}
			if vouched, isBinding := f.Message.(logic.IsKey); isBinding {
				holder, okHolder := vouched.Agent.(logic.Agent)
				if ca, isCert := CAForKey(key, seq); isCert && okHolder {
					an.certs = append(an.certs, certInfo{
						tactic: CertTactic{Cert: f, CA: ca},
						agent:  holder,
					})
				}
				continue
			}
			signer, ok := owners[key]
			if !ok {
				continue
			}
			switch msg := f.Message.(type) {
			case logic.Open:
				to, okA := msg.Agent.(logic.Agent)
				if okA && msg.Resource == logic.Term(resource) {
					an.edges = append(an.edges, delegation{kind: edgeGrant, from: signer, to: to, cred: f})
				}
			case logic.Forall:
				if rho := logic.MatchForm(singleHopTpl, msg, nil); rho != nil {
					d, okD := rho[logic.Var("D")].(logic.Agent)
					if okD && rho[logic.Var("r")] == logic.Element(resource) {
						an.singleHops = append(an.singleHops, policy{issuer: signer, delegate: d, cred: f})
					}
					continue
				}
				if rho := logic.MatchForm(transitiveTpl, msg, nil); rho != nil {
					if rho[logic.Var("r")] == logic.Element(resource) {
						an.transitives = append(an.transitives, policy{issuer: signer, cred: f})
					}
				}
			}
		}
	}
	return an
}

// trustGraph builds the delegation graph; edge payloads index an.edges.
func (an analysis) trustGraph() *graph.Graph {
	g := graph.New()
	for i, e := range an.edges {
		g.AddEdge(string(e.from), string(e.to), i)
	}
	return g
}

// directEdge returns a grant or says edge between the two agents, if any.
func (an analysis) directEdge(from, to logic.Agent) (delegation, bool) {
	for _, e := range an.edges {
		if e.from == from && e.to == to {
			return e, true
		}
	}
	return delegation{}, false
}

// Prove searches for a closed proof of the sequent. For authorization goals
// "A says open(B, R)" it tries, in order: the goal already assumed, a direct
// grant, a single-hop delegation policy, and a transitive delegation chain.
// Other goals fall back to a basic propositional tactic. A nil result means
// no proof was found, which is the expected outcome for requests the policy
// does not allow.
func Prove(seq logic.Sequent) *logic.Proof {
	goal, ok := seq.Delta.(logic.Proposition)
	if !ok {
		return nil
	}
	says, ok := goal.P.(logic.Says)
	if !ok {
		return GetOneProof(seq, basicTactic())
	}
	root, okRoot := says.Speaker.(logic.Agent)
	open, okOpen := says.Message.(logic.Open)
	if !okRoot || !okOpen {
		return GetOneProof(seq, basicTactic())
	}
	target, okTarget := open.Agent.(logic.Agent)
	resource, okRes := open.Resource.(logic.Resource)
	if !okTarget || !okRes {
		return GetOneProof(seq, basicTactic())
	}

	if seq.Assumes(goal) {
		return GetOneProof(seq, NewRuleTactic(logic.Identity))
	}

	an := analyze(seq, resource)
	if pf := an.proveDirect(seq, root, target); pf != nil {
		glog.V(1).Infof("proved %v with a direct grant", goal)
		return pf
	}
	if pf := an.proveSingleHop(seq, root, target, resource); pf != nil {
		glog.V(1).Infof("proved %v with a single-hop delegation", goal)
		return pf
	}
	if pf := an.proveTransitive(seq, root, target, resource); pf != nil {
		glog.V(1).Infof("proved %v with a transitive delegation chain", goal)
		return pf
	}
	glog.V(1).Infof("no proof found for %v", goal)
	return nil
}

func basicTactic() Tactic {
	return Then(
		NewRuleTactic(logic.ImpLeft),
		NewRuleTactic(logic.Identity),
	)
}

func (an analysis) proveDirect(seq logic.Sequent, root, target logic.Agent) *logic.Proof {
	for _, e := range an.edges {
		if e.kind != edgeGrant || e.from != root || e.to != target {
			continue
		}
		ts := an.certsFor(root)
		ts = append(ts,
			SignTactic{Cred: e.cred, Signer: root},
			NewRuleTactic(logic.Identity),
		)
		if pf := GetOneProof(seq, ThenTactic{Ts: ts, PassOn: true}); pf != nil {
			return pf
		}
	}
	return nil
}

func (an analysis) proveSingleHop(seq logic.Sequent, root, target logic.Agent, resource logic.Resource) *logic.Proof {
	for _, pol := range an.singleHops {
		if pol.issuer != root {
			continue
		}
		edge, ok := an.directEdge(pol.delegate, target)
		if !ok {
			continue
		}
		ts := an.certsFor(root, pol.delegate)
		ts = append(ts, SignTactic{Cred: pol.cred, Signer: root})
		if edge.kind == edgeGrant {
			ts = append(ts, SignTactic{Cred: edge.cred, Signer: edge.from})
		}
		ts = append(ts,
			NewRuleTactic(logic.SaysRight),
			NewRuleTactic(logic.SaysLeft),
			InstantiateForallTactic{Grounds: []logic.Element{target}},
			NewRuleTactic(logic.ImpLeftAff),
			NewRuleTactic(logic.Identity),
			NewRuleTactic(logic.Aff),
			NewRuleTactic(logic.Identity),
		)
		if pf := GetOneProof(seq, ThenTactic{Ts: ts, PassOn: true}); pf != nil {
			return pf
		}
	}
	return nil
}

// proveTransitive walks the shortest grant chain from the issuer to the
// target and unrolls the transitive policy once per hop. The policy
// assumption is instantiated with Keep set, since each hop needs its own
// pair of instances.
func (an analysis) proveTransitive(seq logic.Sequent, root, target logic.Agent, resource logic.Resource) *logic.Proof {
	for _, pol := range an.transitives {
		if pol.issuer != root {
			continue
		}
		path := an.trustGraph().ShortestPath(string(root), string(target))
		if len(path) < 2 {
			continue
		}
		hops := make([]delegation, len(path))
		signers := []logic.Agent{root}
		for i, e := range path {
			hops[i] = an.edges[e.Payload]
			if hops[i].kind == edgeGrant {
				signers = append(signers, hops[i].from)
			}
		}
		ts := an.certsFor(signers...)
		ts = append(ts, SignTactic{Cred: pol.cred, Signer: root})
		for _, hop := range hops {
			if hop.kind == edgeGrant {
				ts = append(ts, SignTactic{Cred: hop.cred, Signer: hop.from})
			}
		}
		ts = append(ts,
			NewRuleTactic(logic.SaysRight),
			// Two says assumptions by the issuer need moving: the policy
			// and the first-hop grant.
			NewRuleTactic(logic.SaysLeft),
			NewRuleTactic(logic.SaysLeft),
		)
		for i := 1; i < len(path); i++ {
			holder := hops[i].from
			grantee := hops[i].to
			ts = append(ts,
				InstantiateForallTactic{Grounds: []logic.Element{holder}, Keep: true},
				InstantiateForallTactic{Grounds: []logic.Element{grantee}, Keep: true},
				NewRuleTactic(logic.ImpLeftAff),
				NewRuleTactic(logic.Identity),
				NewRuleTactic(logic.ImpLeftAff),
				NewRuleTactic(logic.Identity),
			)
		}
		ts = append(ts,
			NewRuleTactic(logic.Aff),
			NewRuleTactic(logic.Identity),
		)
		if pf := GetOneProof(seq, ThenTactic{Ts: ts, PassOn: true}); pf != nil {
			return pf
		}
	}
	return nil
}
