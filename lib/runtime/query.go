package runtime

import (
	"fmt"
	"regexp"
)

// --------------------------------------------------------------------------
// Query Path Lexer
// --------------------------------------------------------------------------

// The query façade addresses blocks with a small XPath-like path language:
//
//	..        parent step
//	.         self step
//	//        descendants step
//	/         child step
//	@name     attribute selection
//	name      tag (block type) selection
//
// Only the lexer is part of the core contract; query evaluation is layered
// on top by hosts that need it.

// TokenKind classifies one lexed path token.
type TokenKind int

const (
	TokenParent TokenKind = iota
	TokenSelf
	TokenDescendants
	TokenChild
	TokenAttribute
	TokenTag
)

func (k TokenKind) String() string {
	switch k {
	case TokenParent:
		return "parent"
	case TokenSelf:
		return "self"
	case TokenDescendants:
		return "descendants"
	case TokenChild:
		return "child"
	case TokenAttribute:
		return "attribute"
	case TokenTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Token is one lexed step of a query path.
type Token struct {
	Kind TokenKind
	// Value carries the name for attribute and tag tokens.
	Value string
}

// Ordering matters: longer operators must be tried before their prefixes
// (".." before ".", "//" before "/").
var tokenPattern = regexp.MustCompile(`^(\.\.|//|\.|/|@\w+|\w+)`)

// LexQueryPath splits a query path into tokens, failing with ErrBadPath on
// the first unrecognizable input.
func LexQueryPath(path string) ([]Token, error) {
	var out []Token
	rest := path
	for rest != "" {
		m := tokenPattern.FindString(rest)
		if m == "" {
			return nil, fmt.Errorf("%w: unexpected input %q in %q", ErrBadPath, rest, path)
		}
		rest = rest[len(m):]

		var tok Token
		switch {
		case m == "..":
			tok = Token{Kind: TokenParent}
		case m == ".":
			tok = Token{Kind: TokenSelf}
		case m == "//":
			tok = Token{Kind: TokenDescendants}
		case m == "/":
			tok = Token{Kind: TokenChild}
		case m[0] == '@':
			tok = Token{Kind: TokenAttribute, Value: m[1:]}
		default:
			tok = Token{Kind: TokenTag, Value: m}
		}
		out = append(out, tok)
	}
	return out, nil
}
