package token

import (
	"strings"
)

const eofChar = 0x100

// Scanner walks a byte buffer emitting Tokens. Unlike the teacher's
// io.Reader-backed Tokenizer it always scans from an in-memory buffer: dump
// statements are bounded (a COPY block is read row-by-row by the caller,
// not through the Scanner) so buffering per-statement text is cheap and
// keeps offset bookkeeping simple.
type Scanner struct {
	buf     []byte
	bufPos  int
	bufSize int
	mode    Mode

	lastChar uint16
}

// NewScanner creates a Scanner over sql for the given dialect Mode.
func NewScanner(sql string, mode Mode) *Scanner {
	s := &Scanner{
		buf:     []byte(sql),
		bufSize: len(sql),
		mode:    mode,
	}
	s.next()
	return s
}

// Pos returns the current byte offset, used by callers that need to report
// an error location relative to the original dump stream.
func (s *Scanner) Pos() int { return s.bufPos - 1 }

func (s *Scanner) next() {
	if s.bufPos >= s.bufSize {
		s.lastChar = eofChar
		return
	}
	s.lastChar = uint16(s.buf[s.bufPos])
	s.bufPos++
}

func (s *Scanner) peek() uint16 {
	if s.bufPos >= s.bufSize {
		return eofChar
	}
	return uint16(s.buf[s.bufPos])
}

// Next scans and returns the next Token, or a Kind EOF token when the
// buffer is exhausted.
func (s *Scanner) Next() (Token, error) {
	startPos := s.bufPos - 1
	switch {
	case s.lastChar == eofChar:
		return Token{Kind: EOF, Pos: startPos}, nil
	case isSpace(s.lastChar):
		return s.scanWhitespace(startPos), nil
	case s.lastChar == '-' && s.peek() == '-':
		return s.scanLineComment(startPos), nil
	case s.lastChar == '/' && s.peek() == '*':
		return s.scanBlockComment(startPos)
	case s.lastChar == '\'':
		return s.scanQuoted(startPos, '\'', StringSingle)
	case s.lastChar == '"':
		return s.scanQuoted(startPos, '"', StringDouble)
	case s.mode == ModeMySQL && s.lastChar == '`':
		return s.scanBacktick(startPos)
	case s.mode == ModePostgres && s.lastChar == '$' && isDollarQuoteStart(s.peek()):
		if tok, ok, err := s.tryDollarQuote(startPos); ok || err != nil {
			return tok, err
		}
		return s.scanPunct(startPos), nil
	case isDigit(s.lastChar) || (s.lastChar == '-' && isDigit(s.peek())):
		return s.scanNumber(startPos), nil
	case isIdentStart(s.lastChar):
		return s.scanIdentOrKeyword(startPos), nil
	default:
		return s.scanPunct(startPos), nil
	}
}

func (s *Scanner) scanWhitespace(start int) Token {
	var sb strings.Builder
	for isSpace(s.lastChar) {
		sb.WriteByte(byte(s.lastChar))
		s.next()
	}
	return Token{Kind: Whitespace, Text: sb.String(), Pos: start}
}

func (s *Scanner) scanLineComment(start int) Token {
	var sb strings.Builder
	for s.lastChar != eofChar && s.lastChar != '\n' {
		sb.WriteByte(byte(s.lastChar))
		s.next()
	}
	return Token{Kind: LineComment, Text: sb.String(), Pos: start}
}

func (s *Scanner) scanBlockComment(start int) (Token, error) {
	var sb strings.Builder
	sb.WriteByte('/')
	sb.WriteByte('*')
	s.next()
	s.next()
	for {
		if s.lastChar == eofChar {
			return Token{}, &Error{Reason: "unterminated block comment", Pos: start, Kind: ErrorTokenize}
		}
		if s.lastChar == '*' && s.peek() == '/' {
			sb.WriteByte('*')
			sb.WriteByte('/')
			s.next()
			s.next()
			break
		}
		sb.WriteByte(byte(s.lastChar))
		s.next()
	}
	return Token{Kind: BlockComment, Text: sb.String(), Pos: start}, nil
}

// scanQuoted scans a single- or double-quoted string where the quote
// character escapes itself by doubling (the teacher's tokenizer handles
// MySQL/Postgres escaping the same way: '' inside a '...' literal is a
// literal quote).
func (s *Scanner) scanQuoted(start int, quote byte, kind Kind) (Token, error) {
	var sb strings.Builder
	sb.WriteByte(quote)
	s.next()
	for {
		if s.lastChar == eofChar {
			return Token{}, &Error{Reason: "unterminated string literal", Pos: start, Kind: ErrorTokenize}
		}
		if byte(s.lastChar) == quote {
			if s.peek() == uint16(quote) {
				sb.WriteByte(quote)
				sb.WriteByte(quote)
				s.next()
				s.next()
				continue
			}
			sb.WriteByte(quote)
			s.next()
			break
		}
		if quote == '\'' && s.lastChar == '\\' && s.mode == ModeMySQL {
			// MySQL backslash-escapes inside single-quoted strings.
			sb.WriteByte(byte(s.lastChar))
			s.next()
			if s.lastChar != eofChar {
				sb.WriteByte(byte(s.lastChar))
				s.next()
			}
			continue
		}
		sb.WriteByte(byte(s.lastChar))
		s.next()
	}
	return Token{Kind: kind, Text: sb.String(), Pos: start}, nil
}

func (s *Scanner) scanBacktick(start int) (Token, error) {
	var sb strings.Builder
	sb.WriteByte('`')
	s.next()
	for {
		if s.lastChar == eofChar {
			return Token{}, &Error{Reason: "unterminated backtick identifier", Pos: start, Kind: ErrorTokenize}
		}
		if s.lastChar == '`' {
			if s.peek() == '`' {
				sb.WriteByte('`')
				sb.WriteByte('`')
				s.next()
				s.next()
				continue
			}
			sb.WriteByte('`')
			s.next()
			break
		}
		sb.WriteByte(byte(s.lastChar))
		s.next()
	}
	return Token{Kind: Identifier, Text: sb.String(), Pos: start}, nil
}

// tryDollarQuote attempts to scan a PostgreSQL dollar-quoted string
// ($tag$ ... $tag$). It returns ok=false without consuming input when the
// lookahead does not actually form a dollar-quote (so the caller falls
// back to treating '$' as punctuation/part of an identifier).
func (s *Scanner) tryDollarQuote(start int) (Token, bool, error) {
	save := s.bufPos
	saveChar := s.lastChar

	var tag strings.Builder
	tag.WriteByte('$')
	s.next()
	for isIdentPart(s.lastChar) {
		tag.WriteByte(byte(s.lastChar))
		s.next()
	}
	if s.lastChar != '$' {
		s.bufPos = save
		s.lastChar = saveChar
		return Token{}, false, nil
	}
	tag.WriteByte('$')
	s.next()

	opening := tag.String()
	var sb strings.Builder
	sb.WriteString(opening)
	for {
		if s.lastChar == eofChar {
			return Token{}, true, &Error{Reason: "unterminated dollar-quoted string", Pos: start, Kind: ErrorTokenize}
		}
		if s.lastChar == '$' && s.bufRemainingHasPrefix(opening) {
			sb.WriteString(opening)
			for range []byte(opening) {
				s.next()
			}
			break
		}
		sb.WriteByte(byte(s.lastChar))
		s.next()
	}
	return Token{Kind: StringSingle, Text: sb.String(), Pos: start}, true, nil
}

func (s *Scanner) bufRemainingHasPrefix(prefix string) bool {
	// s.lastChar is buf[bufPos-1]; the remaining unread bytes start at bufPos.
	start := s.bufPos - 1
	end := start + len(prefix)
	if end > s.bufSize {
		return false
	}
	return string(s.buf[start:end]) == prefix
}

func (s *Scanner) scanNumber(start int) Token {
	var sb strings.Builder
	negated := false
	if s.lastChar == '-' {
		negated = true
		sb.WriteByte('-')
		s.next()
	}
	for isDigit(s.lastChar) {
		sb.WriteByte(byte(s.lastChar))
		s.next()
	}
	if s.lastChar == '.' && isDigit(s.peek()) {
		sb.WriteByte('.')
		s.next()
		for isDigit(s.lastChar) {
			sb.WriteByte(byte(s.lastChar))
			s.next()
		}
	}
	if s.lastChar == 'e' || s.lastChar == 'E' {
		sb.WriteByte(byte(s.lastChar))
		s.next()
		if s.lastChar == '+' || s.lastChar == '-' {
			sb.WriteByte(byte(s.lastChar))
			s.next()
		}
		for isDigit(s.lastChar) {
			sb.WriteByte(byte(s.lastChar))
			s.next()
		}
	}
	return Token{Kind: Number, Text: sb.String(), Pos: start, Negated: negated}
}

func (s *Scanner) scanIdentOrKeyword(start int) Token {
	var sb strings.Builder
	for isIdentPart(s.lastChar) {
		sb.WriteByte(byte(s.lastChar))
		s.next()
	}
	text := sb.String()
	kind := Identifier
	lower := strings.ToLower(text)
	if _, ok := keywords[lower]; ok {
		kind = Keyword
	} else if lower == "null" || lower == "true" || lower == "false" {
		kind = Keyword
	}
	return Token{Kind: kind, Text: text, Pos: start}
}

func (s *Scanner) scanPunct(start int) Token {
	c := byte(s.lastChar)
	s.next()
	return Token{Kind: Punct, Text: string(c), Pos: start}
}

func isSpace(c uint16) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isDigit(c uint16) bool { return c >= '0' && c <= '9' }
func isIdentStart(c uint16) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentPart(c uint16) bool { return isIdentStart(c) || isDigit(c) }
func isDollarQuoteStart(c uint16) bool {
	return c == '$' || isIdentStart(c)
}

// Tokens scans the entire sql string and returns every token including
// whitespace and comments, needed by the serializer to rebuild statements
// byte-for-byte around a replaced value token.
func Tokens(sql string, mode Mode) ([]Token, error) {
	sc := NewScanner(sql, mode)
	var out []Token
	for {
		tok, err := sc.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == EOF {
			break
		}
	}
	return out, nil
}
