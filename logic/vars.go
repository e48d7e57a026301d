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

package logic

// This file implements traversals that collect the variables, keys, agents,
// and resources appearing anywhere in an element, and freshness generation
// on top of them.

import "fmt"

// Vars returns the set of free variables appearing in an element. Variables
// bound by a quantifier are excluded within its body.
func Vars(e Element) map[Var]bool {
	out := map[Var]bool{}
	collectVars(e, out)
	return out
}

func collectVars(e Element, out map[Var]bool) {
	switch e := e.(type) {
	case Var:
		out[e] = true
	case Implies:
		collectVars(e.Antecedent, out)
		collectVars(e.Consequent, out)
	case Says:
		collectVars(e.Speaker, out)
		collectVars(e.Message, out)
	case IsKey:
		collectVars(e.Agent, out)
		collectVars(e.Key, out)
	case Sign:
		collectVars(e.Message, out)
		collectVars(e.Key, out)
	case IsCA:
		collectVars(e.Agent, out)
	case Open:
		collectVars(e.Agent, out)
		collectVars(e.Resource, out)
	case Forall:
		inner := map[Var]bool{}
		collectVars(e.Body, inner)
		delete(inner, e.Var)
		for v := range inner {
			out[v] = true
		}
	case Apply:
		out[e.Fn] = true
		out[e.Arg] = true
	case Proposition:
		collectVars(e.P, out)
	case Affirmation:
		collectVars(e.A, out)
		collectVars(e.P, out)
	case Sequent:
		for _, j := range e.Gamma {
			collectVars(j, out)
		}
		collectVars(e.Delta, out)
	case *Proof:
		collectVars(e.Conclusion, out)
		for _, prem := range e.Premises {
			collectVars(prem.(Element), out)
		}
	}
}

// Keys returns the set of key terms appearing in an element. The set may
// contain variables when they occupy a key position of a sign or iskey
// formula.
func Keys(e Element) map[Term]bool {
	out := map[Term]bool{}
	collectKeys(e, out)
	return out
}

func collectKeys(e Element, out map[Term]bool) {
	switch e := e.(type) {
	case Key:
		out[e] = true
	case Implies:
		collectKeys(e.Antecedent, out)
		collectKeys(e.Consequent, out)
	case Says:
		collectKeys(e.Message, out)
	case IsKey:
		out[e.Key] = true
	case Sign:
		out[e.Key] = true
		collectKeys(e.Message, out)
	case Forall:
		collectKeys(e.Body, out)
	case Proposition:
		collectKeys(e.P, out)
	case Affirmation:
		collectKeys(e.P, out)
	case Sequent:
		for _, j := range e.Gamma {
			collectKeys(j, out)
		}
		collectKeys(e.Delta, out)
	case *Proof:
		collectKeys(e.Conclusion, out)
		for _, prem := range e.Premises {
			collectKeys(prem.(Element), out)
		}
	}
}

// Agents returns the set of agent terms appearing in an element. The set
// may contain variables when they occupy an agent position.
func Agents(e Element) map[Term]bool {
	out := map[Term]bool{}
	collectAgents(e, out)
	return out
}

func collectAgents(e Element, out map[Term]bool) {
	switch e := e.(type) {
	case Agent:
		out[e] = true
	case Implies:
		collectAgents(e.Antecedent, out)
		collectAgents(e.Consequent, out)
	case Says:
		out[e.Speaker] = true
		collectAgents(e.Message, out)
	case IsKey:
		out[e.Agent] = true
	case Sign:
		collectAgents(e.Message, out)
	case IsCA:
		out[e.Agent] = true
	case Open:
		out[e.Agent] = true
	case Forall:
		collectAgents(e.Body, out)
	case Proposition:
		collectAgents(e.P, out)
	case Affirmation:
		out[e.A] = true
		collectAgents(e.P, out)
	case Sequent:
		for _, j := range e.Gamma {
			collectAgents(j, out)
		}
		collectAgents(e.Delta, out)
	case *Proof:
		collectAgents(e.Conclusion, out)
		for _, prem := range e.Premises {
			collectAgents(prem.(Element), out)
		}
	}
}

// Resources returns the set of resource terms appearing in an element. The
// set may contain variables when they occupy a resource position.
func Resources(e Element) map[Term]bool {
	out := map[Term]bool{}
	collectResources(e, out)
	return out
}

func collectResources(e Element, out map[Term]bool) {
	switch e := e.(type) {
	case Resource:
		out[e] = true
	case Implies:
		collectResources(e.Antecedent, out)
		collectResources(e.Consequent, out)
	case Says:
		collectResources(e.Message, out)
	case Sign:
		collectResources(e.Message, out)
	case Open:
		out[e.Resource] = true
	case Forall:
		collectResources(e.Body, out)
	case Proposition:
		collectResources(e.P, out)
	case Affirmation:
		collectResources(e.P, out)
	case Sequent:
		for _, j := range e.Gamma {
			collectResources(j, out)
		}
		collectResources(e.Delta, out)
	case *Proof:
		collectResources(e.Conclusion, out)
		for _, prem := range e.Premises {
			collectResources(prem.(Element), out)
		}
	}
}

// FreshVar returns a variable with the given prefix that does not occur
// anywhere in the element. Failure to find one is a bug in the caller, not
// a recoverable condition, and panics.
func FreshVar(e Element, prefix string) Var {
	vs := Vars(e)
	for i := 0; i <= len(vs); i++ {
		v := Var(fmt.Sprintf("%s%d", prefix, i))
		if !vs[v] {
			return v
		}
	}
	panic("logic: no fresh variable available")
}
