// Package lexer converts script source into a stream of tokens.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/deepnoodle-ai/scriptc/internal/token"
)

// Lexer holds our object-state.
type Lexer struct {
	// The source being lexed
	input []rune

	// Current position in input (points to current char)
	position int

	// Current reading position in input (after current char)
	readPosition int

	// Current char under examination
	ch rune

	// The current line number
	line int

	// Position of the first character on the current line
	lineStart int

	// The file name of the input
	file string

	// Whether a line terminator was skipped since the last token
	sawNewline bool
}

// LexerState captures the lexer position so it can be restored later.
type LexerState struct {
	position     int
	readPosition int
	ch           rune
	line         int
	lineStart    int
	sawNewline   bool
}

// Option is a configuration function for a Lexer.
type Option func(*Lexer)

// WithFile sets the file name associated with token positions.
func WithFile(file string) Option {
	return func(l *Lexer) {
		l.file = file
	}
}

// New returns a Lexer for the given input.
func New(input string, options ...Option) *Lexer {
	l := &Lexer{input: []rune(input)}
	for _, opt := range options {
		opt(l)
	}
	l.readChar()
	return l
}

// SetFilename sets the file name used in token positions.
func (l *Lexer) SetFilename(file string) {
	l.file = file
}

// Filename returns the file name used in token positions.
func (l *Lexer) Filename() string {
	return l.file
}

// SaveState returns a snapshot that can be passed to RestoreState.
func (l *Lexer) SaveState() LexerState {
	return LexerState{
		position:     l.position,
		readPosition: l.readPosition,
		ch:           l.ch,
		line:         l.line,
		lineStart:    l.lineStart,
		sawNewline:   l.sawNewline,
	}
}

// RestoreState rewinds the lexer to a previously saved state.
func (l *Lexer) RestoreState(state LexerState) {
	l.position = state.position
	l.readPosition = state.readPosition
	l.ch = state.ch
	l.line = state.line
	l.lineStart = state.lineStart
	l.sawNewline = state.sawNewline
}

// Next returns the next token from the input. Once the end of the input is
// reached, every further call returns an EOF token.
func (l *Lexer) Next() (token.Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return l.illegal(err)
	}
	newline := l.sawNewline
	l.sawNewline = false
	tok, err := l.next()
	tok.NewlineBefore = newline
	return tok, err
}

func (l *Lexer) next() (token.Token, error) {
	switch l.ch {
	case 0:
		if l.position >= len(l.input) {
			pos := l.currentPosition()
			return token.Token{Type: token.EOF, StartPosition: pos, EndPosition: pos}, nil
		}
		return l.illegal(fmt.Errorf("unexpected character: %q", l.ch))
	case '=':
		return l.operator(token.ASSIGN, map[string]token.Type{
			"==":  token.EQ,
			"===": token.STRICT_EQ,
		})
	case '!':
		return l.operator(token.BANG, map[string]token.Type{
			"!=":  token.NOT_EQ,
			"!==": token.STRICT_NOT_EQ,
		})
	case '+':
		return l.operator(token.PLUS, map[string]token.Type{
			"++": token.PLUS_PLUS,
			"+=": token.PLUS_EQUALS,
		})
	case '-':
		return l.operator(token.MINUS, map[string]token.Type{
			"--": token.MINUS_MINUS,
			"-=": token.MINUS_EQUALS,
		})
	case '*':
		return l.operator(token.ASTERISK, map[string]token.Type{
			"**": token.POW,
			"*=": token.ASTERISK_EQUALS,
		})
	case '/':
		return l.operator(token.SLASH, map[string]token.Type{
			"/=": token.SLASH_EQUALS,
		})
	case '%':
		return l.operator(token.MOD, map[string]token.Type{
			"%=": token.MOD_EQUALS,
		})
	case '<':
		return l.operator(token.LT, map[string]token.Type{
			"<=": token.LT_EQUALS,
			"<<": token.LT_LT,
		})
	case '>':
		return l.operator(token.GT, map[string]token.Type{
			">=":  token.GT_EQUALS,
			">>":  token.GT_GT,
			">>>": token.GT_GT_GT,
		})
	case '&':
		return l.operator(token.BITAND, map[string]token.Type{
			"&&": token.AND,
		})
	case '|':
		return l.operator(token.BITOR, map[string]token.Type{
			"||": token.OR,
		})
	case '?':
		return l.operator(token.QUESTION, map[string]token.Type{
			"??": token.NULLISH,
		})
	case '^':
		return l.single(token.CARET)
	case '~':
		return l.single(token.TILDE)
	case ':':
		return l.single(token.COLON)
	case ';':
		return l.single(token.SEMICOLON)
	case ',':
		return l.single(token.COMMA)
	case '(':
		return l.single(token.LPAREN)
	case ')':
		return l.single(token.RPAREN)
	case '{':
		return l.single(token.LBRACE)
	case '}':
		return l.single(token.RBRACE)
	case '[':
		return l.single(token.LBRACKET)
	case ']':
		return l.single(token.RBRACKET)
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber()
		}
		return l.single(token.PERIOD)
	case '"', '\'':
		return l.readString(l.ch)
	}
	if isDigit(l.ch) {
		return l.readNumber()
	}
	if isIdentifierStart(l.ch) {
		return l.readIdentifier()
	}
	return l.illegal(fmt.Errorf("unexpected character: %q", l.ch))
}

// GetLineText returns the full text of the line containing the given token.
func (l *Lexer) GetLineText(tok token.Token) string {
	start := tok.StartPosition.LineStart
	if start < 0 || start > len(l.input) {
		return ""
	}
	end := start
	for end < len(l.input) && l.input[end] != '\n' && l.input[end] != '\r' {
		end++
	}
	return string(l.input[start:end])
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) peekCharAt(offset int) rune {
	idx := l.position + offset
	if idx >= len(l.input) {
		return 0
	}
	return l.input[idx]
}

func (l *Lexer) currentPosition() token.Position {
	return token.Position{
		Char:      l.position,
		LineStart: l.lineStart,
		Line:      l.line,
		Column:    l.position - l.lineStart,
		File:      l.file,
	}
}

// Position of the most recently consumed character.
func (l *Lexer) lastPosition() token.Position {
	pos := l.currentPosition()
	if pos.Char > 0 && pos.Column > 0 {
		pos.Char--
		pos.Column--
	}
	return pos
}

func (l *Lexer) newline() {
	l.line++
	l.lineStart = l.position + 1
	l.sawNewline = true
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		switch {
		case l.ch == '\n':
			l.newline()
			l.readChar()
		case l.ch == '\r':
			if l.peekChar() == '\n' {
				l.readChar()
			}
			l.newline()
			l.readChar()
		case l.ch == '\u2028' || l.ch == '\u2029':
			l.newline()
			l.readChar()
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\v' || l.ch == '\f' || l.ch == '\ufeff' || l.ch == '\u00a0':
			l.readChar()
		case l.ch == '#' && l.position == 0 && l.peekChar() == '!':
			// Hashbang line
			for l.ch != '\n' && l.ch != '\r' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != '\r' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			if err := l.skipMultiLineComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (l *Lexer) skipMultiLineComment() error {
	l.readChar() // '/'
	l.readChar() // '*'
	for {
		switch l.ch {
		case 0:
			if l.position >= len(l.input) {
				return fmt.Errorf("unterminated comment")
			}
		case '*':
			if l.peekChar() == '/' {
				l.readChar()
				l.readChar()
				return nil
			}
		case '\n':
			l.newline()
		case '\r':
			if l.peekChar() == '\n' {
				l.readChar()
			}
			l.newline()
		}
		l.readChar()
	}
}

func (l *Lexer) single(typ token.Type) (token.Token, error) {
	start := l.currentPosition()
	tok := token.Token{
		Type:          typ,
		Literal:       string(l.ch),
		StartPosition: start,
		EndPosition:   start,
	}
	l.readChar()
	return tok, nil
}

// operator lexes the longest operator starting at the current character.
func (l *Lexer) operator(base token.Type, longer map[string]token.Type) (token.Token, error) {
	start := l.currentPosition()
	best := string(l.ch)
	typ := base
	for n := 3; n >= 2; n-- {
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteRune(l.peekCharAt(i))
		}
		if t, ok := longer[sb.String()]; ok {
			best = sb.String()
			typ = t
			break
		}
	}
	for range best {
		l.readChar()
	}
	return token.Token{
		Type:          typ,
		Literal:       best,
		StartPosition: start,
		EndPosition:   l.lastPosition(),
	}, nil
}

// illegal consumes the offending character so lexing can make progress.
func (l *Lexer) illegal(err error) (token.Token, error) {
	pos := l.currentPosition()
	lit := ""
	if l.position < len(l.input) {
		lit = string(l.ch)
		l.readChar()
	}
	return token.Token{
		Type:          token.ILLEGAL,
		Literal:       lit,
		StartPosition: pos,
		EndPosition:   pos,
	}, err
}

func (l *Lexer) readIdentifier() (token.Token, error) {
	start := l.currentPosition()
	begin := l.position
	for isIdentifierPart(l.ch) {
		l.readChar()
	}
	literal := string(l.input[begin:l.position])
	return token.Token{
		Type:          token.LookupIdentifier(literal),
		Literal:       literal,
		StartPosition: start,
		EndPosition:   l.lastPosition(),
	}, nil
}

func (l *Lexer) readNumber() (token.Token, error) {
	start := l.currentPosition()
	begin := l.position
	invalid := func() (token.Token, error) {
		end := l.position + 1
		if end > len(l.input) {
			end = len(l.input)
		}
		return token.Token{Type: token.ILLEGAL, StartPosition: start, EndPosition: start},
			fmt.Errorf("invalid numeric literal: %s", string(l.input[begin:end]))
	}

	if l.ch == '0' && isRadixPrefix(l.peekChar()) {
		l.readChar()
		radix := unicode.ToLower(l.ch)
		l.readChar()
		digits := 0
		for isRadixDigit(radix, l.ch) {
			l.readChar()
			digits++
		}
		if digits == 0 || isIdentifierPart(l.ch) || l.ch == '.' {
			return invalid()
		}
	} else {
		for isDigit(l.ch) {
			l.readChar()
		}
		if l.ch == '.' {
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
		if l.ch == 'e' || l.ch == 'E' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			if !isDigit(l.ch) {
				return invalid()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
		if isIdentifierStart(l.ch) {
			return invalid()
		}
	}
	return token.Token{
		Type:          token.NUMBER,
		Literal:       string(l.input[begin:l.position]),
		StartPosition: start,
		EndPosition:   l.lastPosition(),
	}, nil
}

// readString lexes a quoted string, returning its decoded value as the literal.
func (l *Lexer) readString(quote rune) (token.Token, error) {
	start := l.currentPosition()
	var sb strings.Builder
	l.readChar()
	for {
		switch l.ch {
		case quote:
			end := l.currentPosition()
			l.readChar()
			return token.Token{
				Type:          token.STRING,
				Literal:       sb.String(),
				StartPosition: start,
				EndPosition:   end,
			}, nil
		case '\n', '\r':
			return token.Token{Type: token.ILLEGAL, StartPosition: start, EndPosition: start},
				fmt.Errorf("unterminated string literal")
		case 0:
			if l.position >= len(l.input) {
				return token.Token{Type: token.ILLEGAL, StartPosition: start, EndPosition: start},
					fmt.Errorf("unterminated string literal")
			}
			sb.WriteRune(l.ch)
		case '\\':
			l.readChar()
			if err := l.readEscape(&sb); err != nil {
				return token.Token{Type: token.ILLEGAL, StartPosition: start, EndPosition: start}, err
			}
			continue
		default:
			sb.WriteRune(l.ch)
		}
		l.readChar()
	}
}

// readEscape decodes one escape sequence. The current character is the one
// following the backslash; on return the lexer is positioned after the
// sequence.
func (l *Lexer) readEscape(sb *strings.Builder) error {
	switch l.ch {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		if isDigit(l.peekChar()) {
			return fmt.Errorf("octal escape sequences are not allowed")
		}
		sb.WriteByte(0)
	case '\\', '\'', '"':
		sb.WriteRune(l.ch)
	case '\r':
		// Line continuation
		if l.peekChar() == '\n' {
			l.readChar()
		}
		l.newline()
		l.sawNewline = false
	case '\n':
		l.newline()
		l.sawNewline = false
	case 'x':
		r, err := l.readHex(2)
		if err != nil {
			return err
		}
		sb.WriteRune(r)
		return nil
	case 'u':
		if l.peekChar() == '{' {
			l.readChar()
			l.readChar()
			begin := l.position
			for l.ch != '}' {
				if !isHexDigit(l.ch) {
					return fmt.Errorf("invalid unicode escape sequence")
				}
				l.readChar()
			}
			v, err := strconv.ParseUint(string(l.input[begin:l.position]), 16, 32)
			if err != nil || v > unicode.MaxRune {
				return fmt.Errorf("invalid unicode escape sequence")
			}
			sb.WriteRune(rune(v))
			l.readChar()
			return nil
		}
		r, err := l.readHex(4)
		if err != nil {
			return err
		}
		sb.WriteRune(r)
		return nil
	case 0:
		if l.position >= len(l.input) {
			return fmt.Errorf("unterminated string literal")
		}
		sb.WriteRune(l.ch)
	default:
		// Unknown escapes denote the character itself.
		sb.WriteRune(l.ch)
	}
	l.readChar()
	return nil
}

func (l *Lexer) readHex(n int) (rune, error) {
	l.readChar()
	begin := l.position
	for i := 0; i < n; i++ {
		if !isHexDigit(l.ch) {
			return 0, fmt.Errorf("invalid escape sequence")
		}
		l.readChar()
	}
	v, err := strconv.ParseUint(string(l.input[begin:l.position]), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid escape sequence")
	}
	return rune(v), nil
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isRadixPrefix(ch rune) bool {
	switch ch {
	case 'x', 'X', 'o', 'O', 'b', 'B':
		return true
	}
	return false
}

func isRadixDigit(radix, ch rune) bool {
	switch radix {
	case 'x':
		return isHexDigit(ch)
	case 'o':
		return '0' <= ch && ch <= '7'
	case 'b':
		return ch == '0' || ch == '1'
	}
	return false
}

func isIdentifierStart(ch rune) bool {
	return ch == '_' || ch == '$' || unicode.IsLetter(ch)
}

func isIdentifierPart(ch rune) bool {
	return isIdentifierStart(ch) || unicode.IsDigit(ch)
}
