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

// This file implements a recursive-descent parser for the concrete syntax.
//
// Precedence, loosest first: forall, says, implies (left-associative), then
// the atoms (predicates, constants, variables, template applications, and
// parenthesized formulas).

import "fmt"

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return token{tokEOF, ""}
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, fmt.Errorf("logic: expected %s, got %v", what, t)
	}
	return t, nil
}

// ParseForm parses a formula.
func ParseForm(s string) (Form, error) {
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	f, err := p.formula()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("logic: trailing input at %v", t)
	}
	return f, nil
}

// ParseJudgement parses a judgement: "A aff F" or "F true" (the "true"
// marker is optional).
func ParseJudgement(s string) (Judgement, error) {
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	j, err := p.judgement()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("logic: trailing input at %v", t)
	}
	return j, nil
}

// ParseSequent parses a sequent "J, ..., J |- J". The context may be empty;
// an absent goal is read as "false true".
func ParseSequent(s string) (Sequent, error) {
	toks, err := lex(s)
	if err != nil {
		return Sequent{}, err
	}
	p := &parser{toks: toks}
	seq, err := p.sequent()
	if err != nil {
		return Sequent{}, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return Sequent{}, fmt.Errorf("logic: trailing input at %v", t)
	}
	return seq, nil
}

// MustParseForm is ParseForm for known-good input; it panics on error.
func MustParseForm(s string) Form {
	f, err := ParseForm(s)
	if err != nil {
		panic(err)
	}
	return f
}

// MustParseSequent is ParseSequent for known-good input; it panics on
// error.
func MustParseSequent(s string) Sequent {
	seq, err := ParseSequent(s)
	if err != nil {
		panic(err)
	}
	return seq
}

func (p *parser) sequent() (Sequent, error) {
	if p.peek().kind == tokTurnstile {
		p.next()
		delta, err := p.judgement()
		if err != nil {
			return Sequent{}, err
		}
		return Sequent{Delta: delta}, nil
	}
	var gamma []Judgement
	for {
		j, err := p.judgement()
		if err != nil {
			return Sequent{}, err
		}
		gamma = append(gamma, j)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if _, err := p.expect(tokTurnstile, `"|-"`); err != nil {
		return Sequent{}, err
	}
	if p.peek().kind == tokEOF {
		return Sequent{Gamma: gamma, Delta: Proposition{Const(false)}}, nil
	}
	delta, err := p.judgement()
	if err != nil {
		return Sequent{}, err
	}
	return Sequent{Gamma: gamma, Delta: delta}, nil
}

func (p *parser) judgement() (Judgement, error) {
	if t := p.peek(); (t.kind == tokAgent || t.kind == tokIdent) && p.peekAt(1).kind == tokAff {
		var a Term
		if t.kind == tokAgent {
			a = Agent(t.text)
		} else {
			a = Var(t.text)
		}
		p.next()
		p.next()
		f, err := p.formula()
		if err != nil {
			return nil, err
		}
		return Affirmation{A: a, P: f}, nil
	}
	f, err := p.formula()
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokTrue {
		p.next()
	}
	return Proposition{P: f}, nil
}

func (p *parser) formula() (Form, error) {
	if p.peek().kind == tokAt {
		p.next()
		x, err := p.expect(tokIdent, "quantified variable")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokDot, `"."`); err != nil {
			return nil, err
		}
		body, err := p.formula()
		if err != nil {
			return nil, err
		}
		return Forall{Var: Var(x.text), Body: body}, nil
	}
	return p.saysLevel()
}

func (p *parser) saysLevel() (Form, error) {
	if t := p.peek(); (t.kind == tokAgent || t.kind == tokIdent) && p.peekAt(1).kind == tokSays {
		var speaker Term
		if t.kind == tokAgent {
			speaker = Agent(t.text)
		} else {
			speaker = Var(t.text)
		}
		p.next()
		p.next()
		msg, err := p.impliesLevel()
		if err != nil {
			return nil, err
		}
		return Says{Speaker: speaker, Message: msg}, nil
	}
	return p.impliesLevel()
}

func (p *parser) impliesLevel() (Form, error) {
	f, err := p.atom()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokImplies {
		p.next()
		g, err := p.atom()
		if err != nil {
			return nil, err
		}
		f = Implies{Antecedent: f, Consequent: g}
	}
	return f, nil
}

func (p *parser) atom() (Form, error) {
	t := p.next()
	switch t.kind {
	case tokTrue:
		return Const(true), nil
	case tokFalse:
		return Const(false), nil
	case tokLParen:
		f, err := p.formula()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return f, nil
	case tokCA:
		if _, err := p.expect(tokLParen, `"("`); err != nil {
			return nil, err
		}
		a, err := p.agentOrVar()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return IsCA{Agent: a}, nil
	case tokIsKey:
		a, k, err := p.pairArgs(p.agentOrVar, p.keyOrVar)
		if err != nil {
			return nil, err
		}
		return IsKey{Agent: a, Key: k}, nil
	case tokOpen:
		a, r, err := p.pairArgs(p.agentOrVar, p.resourceOrVar)
		if err != nil {
			return nil, err
		}
		return Open{Agent: a, Resource: r}, nil
	case tokSign:
		if _, err := p.expect(tokLParen, `"("`); err != nil {
			return nil, err
		}
		f, err := p.formula()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokComma, `","`); err != nil {
			return nil, err
		}
		k, err := p.keyOrVar()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return Sign{Message: f, Key: k}, nil
	case tokIdent:
		// Either a bare formula variable or a template application P(x).
		if p.peek().kind == tokLParen {
			p.next()
			arg, err := p.expect(tokIdent, "template argument variable")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen, `")"`); err != nil {
				return nil, err
			}
			return Apply{Fn: Var(t.text), Arg: Var(arg.text)}, nil
		}
		return Var(t.text), nil
	default:
		return nil, fmt.Errorf("logic: unexpected %v in formula", t)
	}
}

func (p *parser) pairArgs(first, second func() (Term, error)) (Term, Term, error) {
	if _, err := p.expect(tokLParen, `"("`); err != nil {
		return nil, nil, err
	}
	a, err := first()
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(tokComma, `","`); err != nil {
		return nil, nil, err
	}
	b, err := second()
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(tokRParen, `")"`); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (p *parser) agentOrVar() (Term, error) {
	t := p.next()
	switch t.kind {
	case tokAgent:
		return Agent(t.text), nil
	case tokIdent:
		return Var(t.text), nil
	}
	return nil, fmt.Errorf("logic: expected agent or variable, got %v", t)
}

func (p *parser) keyOrVar() (Term, error) {
	t := p.next()
	switch t.kind {
	case tokKey:
		return Key(t.text), nil
	case tokIdent:
		return Var(t.text), nil
	}
	return nil, fmt.Errorf("logic: expected key or variable, got %v", t)
}

func (p *parser) resourceOrVar() (Term, error) {
	t := p.next()
	switch t.kind {
	case tokResource:
		return Resource(t.text), nil
	case tokIdent:
		return Var(t.text), nil
	}
	return nil, fmt.Errorf("logic: expected resource or variable, got %v", t)
}
