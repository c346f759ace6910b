// Package token implements the character-driven scanner shared by the
// PostgreSQL and MySQL dump parsers. It is modeled on the teacher's
// parser/token.go buffered Tokenizer, but emits a flat Token stream instead
// of yacc token codes: there is no grammar step downstream, only a
// recursive-descent statement classifier that walks this stream directly.
package token

import (
	"fmt"
	"strings"
)

// Mode selects the dialect-specific scanning rules (identifier quoting,
// dollar-quoting, escape conventions).
type Mode int

const (
	ModePostgres Mode = iota
	ModeMySQL
)

// Kind classifies a single token.
type Kind int

const (
	EOF Kind = iota
	Whitespace
	LineComment
	BlockComment
	Number
	StringSingle
	StringDouble
	Identifier
	Keyword
	Binary
	Punct
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Whitespace:
		return "Whitespace"
	case LineComment:
		return "LineComment"
	case BlockComment:
		return "BlockComment"
	case Number:
		return "Number"
	case StringSingle:
		return "StringSingle"
	case StringDouble:
		return "StringDouble"
	case Identifier:
		return "Identifier"
	case Keyword:
		return "Keyword"
	case Binary:
		return "Binary"
	case Punct:
		return "Punct"
	default:
		return "Unknown"
	}
}

// Token is one lexical unit. Text is the literal source text (including
// quote characters, for quoted forms) so statements can be rebuilt
// byte-for-byte from unmodified tokens. Pos is the byte offset the token
// started at, used for error reporting.
type Token struct {
	Kind    Kind
	Text    string
	Pos     int
	Negated bool // Number: a leading '-' was consumed into this token
}

// keywords is the fixed table of case-insensitively matched keywords the
// statement classifiers dispatch on. It intentionally only carries the
// keywords spec.md §4.1 names; anything else lexes as a plain Identifier.
var keywords = map[string]struct{}{
	"insert": {}, "into": {}, "values": {}, "copy": {}, "create": {},
	"table": {}, "alter": {}, "constraint": {}, "foreign": {}, "key": {},
	"references": {}, "primary": {}, "not": {}, "null": {}, "true": {},
	"false": {}, "from": {}, "with": {}, "set": {}, "stdin": {}, "index": {},
	"schema": {}, "add": {}, "default": {}, "unique": {}, "check": {},
	"only": {},
}

// IsKeyword reports whether text (compared case-insensitively) is a
// recognized keyword.
func IsKeyword(text string) bool {
	_, ok := keywords[strings.ToLower(text)]
	return ok
}

// Error reports an unterminated literal or unexpected byte, carrying the
// byte offset the caller should surface (spec.md §4.1,
// "TokenizerError{Tokenize|Generic}").
type Error struct {
	Reason string
	Pos    int
	Kind   ErrorKind
}

type ErrorKind int

const (
	ErrorTokenize ErrorKind = iota
	ErrorGeneric
)

func (e *Error) Error() string {
	return fmt.Sprintf("tokenizer error at offset %d: %s", e.Pos, e.Reason)
}
