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

// This file implements the lexer for the concrete syntax.

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

// Token kinds of the concrete syntax. Agents lex as "#name", keys as
// "[fingerprint]", and resources as "<name>"; the remaining kinds are the
// keywords and punctuation of the grammar.
const (
	tokEOF tokenKind = iota
	tokIdent
	tokAgent
	tokKey
	tokResource
	tokTrue
	tokFalse
	tokSays
	tokAff
	tokSign
	tokIsKey
	tokOpen
	tokCA
	tokImplies
	tokAt
	tokDot
	tokComma
	tokLParen
	tokRParen
	tokTurnstile
)

type token struct {
	kind tokenKind
	text string
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

var keywords = map[string]tokenKind{
	"true":  tokTrue,
	"false": tokFalse,
	"says":  tokSays,
	"aff":   tokAff,
	"sign":  tokSign,
	"iskey": tokIsKey,
	"open":  tokOpen,
	"ca":    tokCA,
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

func isKeyRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == ':' || r == '_'
}

// lex splits the input into tokens, ending with tokEOF. A malformed input
// yields a syntax error naming the offending character.
func lex(s string) ([]token, error) {
	var toks []token
	rs := []rune(s)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case r == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case r == '@':
			toks = append(toks, token{tokAt, "@"})
			i++
		case r == '-' && i+1 < len(rs) && rs[i+1] == '>':
			toks = append(toks, token{tokImplies, "->"})
			i += 2
		case r == '|' && i+1 < len(rs) && rs[i+1] == '-':
			toks = append(toks, token{tokTurnstile, "|-"})
			i += 2
		case r == '#':
			j := i + 1
			for j < len(rs) && isIdentRune(rs[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("logic: empty agent name at %q", string(rs[i:]))
			}
			toks = append(toks, token{tokAgent, string(rs[i:j])})
			i = j
		case r == '[':
			j := i + 1
			for j < len(rs) && isKeyRune(rs[j]) {
				j++
			}
			if j >= len(rs) || rs[j] != ']' {
				return nil, fmt.Errorf("logic: unterminated key at %q", string(rs[i:]))
			}
			toks = append(toks, token{tokKey, string(rs[i : j+1])})
			i = j + 1
		case r == '<':
			j := i + 1
			for j < len(rs) && isIdentRune(rs[j]) {
				j++
			}
			if j >= len(rs) || rs[j] != '>' {
				return nil, fmt.Errorf("logic: unterminated resource at %q", string(rs[i:]))
			}
			toks = append(toks, token{tokResource, string(rs[i : j+1])})
			i = j + 1
		case r == '.':
			toks = append(toks, token{tokDot, "."})
			i++
		case isIdentStart(r):
			j := i
			for j < len(rs) && isIdentRune(rs[j]) {
				j++
			}
			// A trailing dot after an identifier is a quantifier separator,
			// not part of the name.
			text := strings.TrimRight(string(rs[i:j]), ".")
			i += len([]rune(text))
			if kind, ok := keywords[text]; ok {
				toks = append(toks, token{kind, text})
			} else {
				toks = append(toks, token{tokIdent, text})
			}
		default:
			return nil, fmt.Errorf("logic: unexpected character %q", string(r))
		}
	}
	return append(toks, token{tokEOF, ""}), nil
}
