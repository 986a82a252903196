// sexpr.go
//
// Front-end for the m2v scripting language: parenthesised prefix forms with
// let/def/fn/if/do, integer literals in hex/binary/octal/decimal with
// overflow check, float and string literals, and the binary operator token
// set. The grammar produces a small form tree; compile.go lowers it to an
// ExecutionModule.
package m2v

import (
	"fmt"
	"math"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var sexprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "comment", Pattern: `;[^\n]*`},
	{Name: "whitespace", Pattern: `\s+`},
	{Name: "Ellipsis", Pattern: `\.\.\.`},
	{Name: "Float", Pattern: `-?(\d+\.\d*|\.\d+)([eE][+-]?\d+)?|-?\d+[eE][+-]?\d+`},
	{Name: "Int", Pattern: `-?(0[xX][0-9a-fA-F]+|0[bB][01]+|\d+)`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Ident", Pattern: `[a-zA-Z_+\-*/%<>=!&|^~?][a-zA-Z0-9_+\-*/%<>=!&|^~?]*`},
})

type sourceFile struct {
	Forms []*form `@@*`
}

type form struct {
	Pos lexer.Position

	Float *float64 `  @Float`
	Int   *string  `| @Int`
	Str   *string  `| @String`
	Rest  *string  `| Ellipsis @Ident`
	Sym   *string  `| @Ident`
	List  *list    `| @@`
}

type list struct {
	Items []*form `"(" @@* ")"`
}

var sexprParser = participle.MustBuild[sourceFile](
	participle.Lexer(sexprLexer),
	participle.Elide("comment", "whitespace"),
	participle.Unquote("String"),
)

// ParseError is a front-end failure with a 1-based source position.
type ParseError struct {
	Name string
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("parse error in %s at %d:%d: %s", e.Name, e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

func parseSource(name, src string) (*sourceFile, error) {
	file, err := sexprParser.ParseString(name, src)
	if err != nil {
		if perr, ok := err.(participle.Error); ok {
			pos := perr.Position()
			return nil, &ParseError{Name: name, Line: pos.Line, Col: pos.Column, Msg: perr.Message()}
		}
		return nil, err
	}
	return file, nil
}

// parseIntegerLiteral decodes a decimal, 0x hex, 0b binary or leading-0
// octal literal, rejecting values that do not fit in an int64.
func parseIntegerLiteral(s string) (int64, error) {
	raw := s
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	base := uint64(10)
	digits := s
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		base, digits = 16, s[2:]
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		base, digits = 2, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, digits = 8, s[1:]
	}
	if digits == "" {
		return 0, fmt.Errorf("bad integer literal %q", raw)
	}
	var value uint64
	for i := 0; i < len(digits); i++ {
		d, ok := digitValue(digits[i])
		if !ok || d >= base {
			return 0, fmt.Errorf("bad digit %q in integer literal %q", digits[i], raw)
		}
		if value > (math.MaxUint64-d)/base {
			return 0, fmt.Errorf("integer literal overflow: %q", raw)
		}
		value = value*base + d
	}
	if value > 1<<63 || (!neg && value == 1<<63) {
		return 0, fmt.Errorf("integer literal overflow: %q", raw)
	}
	if neg {
		return -int64(value), nil
	}
	return int64(value), nil
}

func digitValue(c byte) (uint64, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint64(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return uint64(c-'A') + 10, true
	}
	return 0, false
}
