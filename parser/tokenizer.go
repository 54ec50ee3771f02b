package parser

import (
	"bytes"
	"io"
)

// ContentToken is one token of a page content stream: either an operand
// object or an operator keyword.
type ContentToken struct {
	Operand  Object
	Operator string
}

// IsOperator reports whether the token is an operator keyword.
func (t ContentToken) IsOperator() bool { return t.Operator != "" }

// ContentTokenizer splits decoded content stream bytes into operands and
// operators. Inline images (BI ... ID ... EI) are skipped as a unit.
type ContentTokenizer struct {
	lx lexer
}

func NewContentTokenizer(data []byte) *ContentTokenizer {
	return &ContentTokenizer{lx: lexer{data: data}}
}

// Next returns the next token, or io.EOF at end of stream. Malformed
// operands are skipped; extraction is best-effort by design.
func (t *ContentTokenizer) Next() (ContentToken, error) {
	for {
		t.lx.skipSpace()
		c, ok := t.lx.peek()
		if !ok {
			return ContentToken{}, io.EOF
		}
		switch {
		case c == '/' || c == '(' || c == '<' || c == '[' ||
			c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
			obj, err := t.lx.object()
			if err != nil {
				// Resynchronize after a malformed operand.
				t.lx.pos++
				continue
			}
			return ContentToken{Operand: obj}, nil
		default:
			kw := t.lx.keyword()
			if kw == "" {
				t.lx.pos++
				continue
			}
			if kw == "BI" {
				t.skipInlineImage()
				continue
			}
			switch kw {
			case "true":
				return ContentToken{Operand: Boolean(true)}, nil
			case "false":
				return ContentToken{Operand: Boolean(false)}, nil
			case "null":
				return ContentToken{Operand: Null{}}, nil
			}
			return ContentToken{Operator: kw}, nil
		}
	}
}

func (t *ContentTokenizer) skipInlineImage() {
	rest := t.lx.data[t.lx.pos:]
	idx := bytes.Index(rest, []byte("EI"))
	if idx < 0 {
		t.lx.pos = len(t.lx.data)
		return
	}
	t.lx.pos += idx + 2
}
