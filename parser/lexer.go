package parser

import (
	"errors"
	"fmt"
	"strconv"
)

// lexer walks raw PDF bytes and produces objects. It is shared by the file
// body parser and the trailer parser; content streams use the tokenizer in
// package contentstream instead.
type lexer struct {
	data []byte
	pos  int

	// streamStart is set to the first payload byte whenever a dictionary
	// followed by the stream keyword is parsed.
	streamStart int
}

var errEOF = errors.New("unexpected end of input")

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if isWhitespace(c) {
			lx.pos++
			continue
		}
		if c == '%' {
			for lx.pos < len(lx.data) && lx.data[lx.pos] != '\n' && lx.data[lx.pos] != '\r' {
				lx.pos++
			}
			continue
		}
		break
	}
}

func (lx *lexer) peek() (byte, bool) {
	if lx.pos >= len(lx.data) {
		return 0, false
	}
	return lx.data[lx.pos], true
}

// keyword reads a bare keyword token (obj, endobj, stream, true, null, ...).
func (lx *lexer) keyword() string {
	start := lx.pos
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		lx.pos++
	}
	return string(lx.data[start:lx.pos])
}

// object parses the next object at the current position. Indirect references
// are recognized by lookahead over "N G R".
func (lx *lexer) object() (Object, error) {
	lx.skipSpace()
	c, ok := lx.peek()
	if !ok {
		return nil, errEOF
	}
	switch {
	case c == '/':
		return lx.name()
	case c == '(':
		return lx.literalString()
	case c == '<':
		if lx.pos+1 < len(lx.data) && lx.data[lx.pos+1] == '<' {
			return lx.dict()
		}
		return lx.hexString()
	case c == '[':
		return lx.array()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return lx.numberOrRef()
	default:
		switch kw := lx.keyword(); kw {
		case "true":
			return Boolean(true), nil
		case "false":
			return Boolean(false), nil
		case "null":
			return Null{}, nil
		case "":
			return nil, fmt.Errorf("unexpected byte %q", c)
		default:
			return nil, fmt.Errorf("unexpected keyword %q", kw)
		}
	}
}

func (lx *lexer) name() (Name, error) {
	lx.pos++ // '/'
	start := lx.pos
	var out []byte
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		if c == '#' && lx.pos+2 < len(lx.data) {
			hi := fromHex(lx.data[lx.pos+1])
			lo := fromHex(lx.data[lx.pos+2])
			if hi >= 0 && lo >= 0 {
				if out == nil {
					out = append(out, lx.data[start:lx.pos]...)
				}
				out = append(out, byte(hi<<4|lo))
				lx.pos += 3
				continue
			}
		}
		if out != nil {
			out = append(out, c)
		}
		lx.pos++
	}
	if out != nil {
		return Name(out), nil
	}
	return Name(lx.data[start:lx.pos]), nil
}

func (lx *lexer) literalString() (String, error) {
	lx.pos++ // '('
	var out []byte
	depth := 1
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		lx.pos++
		switch c {
		case '\\':
			if lx.pos >= len(lx.data) {
				return nil, errEOF
			}
			e := lx.data[lx.pos]
			lx.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\n':
				// line continuation
			case '\r':
				if lx.pos < len(lx.data) && lx.data[lx.pos] == '\n' {
					lx.pos++
				}
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && lx.pos < len(lx.data); i++ {
						d := lx.data[lx.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						lx.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return String(out), nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return nil, errEOF
}

func (lx *lexer) hexString() (String, error) {
	lx.pos++ // '<'
	var out []byte
	hi := -1
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		lx.pos++
		if c == '>' {
			if hi >= 0 {
				out = append(out, byte(hi<<4))
			}
			return String(out), nil
		}
		v := fromHex(c)
		if v < 0 {
			continue
		}
		if hi < 0 {
			hi = v
		} else {
			out = append(out, byte(hi<<4|v))
			hi = -1
		}
	}
	return nil, errEOF
}

func (lx *lexer) array() (Array, error) {
	lx.pos++ // '['
	var out Array
	for {
		lx.skipSpace()
		c, ok := lx.peek()
		if !ok {
			return nil, errEOF
		}
		if c == ']' {
			lx.pos++
			return out, nil
		}
		obj, err := lx.object()
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
}

func (lx *lexer) dict() (Object, error) {
	lx.pos += 2 // '<<'
	d := Dict{}
	for {
		lx.skipSpace()
		c, ok := lx.peek()
		if !ok {
			return nil, errEOF
		}
		if c == '>' {
			if lx.pos+1 < len(lx.data) && lx.data[lx.pos+1] == '>' {
				lx.pos += 2
				break
			}
			return nil, fmt.Errorf("lone '>' in dictionary at %d", lx.pos)
		}
		if c != '/' {
			return nil, fmt.Errorf("dictionary key must be a name at %d", lx.pos)
		}
		key, err := lx.name()
		if err != nil {
			return nil, err
		}
		val, err := lx.object()
		if err != nil {
			return nil, err
		}
		d[key] = val
	}
	// A dictionary followed by the stream keyword introduces stream data.
	save := lx.pos
	lx.skipSpace()
	if lx.pos < len(lx.data) && lx.keywordAt("stream") {
		lx.pos += len("stream")
		if lx.pos < len(lx.data) && lx.data[lx.pos] == '\r' {
			lx.pos++
		}
		if lx.pos < len(lx.data) && lx.data[lx.pos] == '\n' {
			lx.pos++
		}
		lx.streamStart = lx.pos
		return &Stream{Dict: d, Raw: nil}, nil // payload sliced by caller via Length
	}
	lx.pos = save
	return d, nil
}

func (lx *lexer) keywordAt(kw string) bool {
	if lx.pos+len(kw) > len(lx.data) {
		return false
	}
	if string(lx.data[lx.pos:lx.pos+len(kw)]) != kw {
		return false
	}
	end := lx.pos + len(kw)
	if end < len(lx.data) {
		c := lx.data[end]
		if !isWhitespace(c) && !isDelimiter(c) {
			return false
		}
	}
	return true
}

func (lx *lexer) numberOrRef() (Object, error) {
	save := lx.pos
	tok := lx.numberToken()
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		// Lookahead for "G R".
		after := lx.pos
		lx.skipSpace()
		genTok := lx.numberToken()
		if gen, err := strconv.Atoi(genTok); err == nil && gen >= 0 && genTok != "" {
			lx.skipSpace()
			if lx.pos < len(lx.data) && lx.keywordAt("R") {
				lx.pos++
				return Ref{Num: int(i), Gen: gen}, nil
			}
		}
		lx.pos = after
		return Integer(i), nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return Real(f), nil
	}
	lx.pos = save
	return nil, fmt.Errorf("malformed number %q at %d", tok, save)
}

func (lx *lexer) numberToken() string {
	start := lx.pos
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' {
			lx.pos++
			continue
		}
		break
	}
	return string(lx.data[start:lx.pos])
}

func fromHex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
