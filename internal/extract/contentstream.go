package extract

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// Content stream interpretation is limited to text showing and positioning.
// Vertical moves larger than paragraphGap line steps become a blank line so
// downstream paragraph splitting sees the layout.
const (
	paragraphGap    = 1.5
	defaultLineStep = 12.0
	// TJ adjustments below this (thousandths of text space) read as a space.
	wordGapAdjust = -200.0
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokName
	tokOperator
	tokArrayStart
	tokArrayEnd
	tokDict
)

type token struct {
	kind tokenKind
	num  float64
	str  []byte
	op   string
}

type operand struct {
	kind tokenKind
	num  float64
	str  []byte
	arr  []operand
}

type lexer struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isPDFDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) next() (token, bool) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isPDFSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			return token{kind: tokString, str: l.literal()}, true
		case c == '<':
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
				l.pos += 2
				return token{kind: tokDict}, true
			}
			return token{kind: tokString, str: l.hex()}, true
		case c == '>':
			l.pos++
			if l.pos < len(l.data) && l.data[l.pos] == '>' {
				l.pos++
			}
			return token{kind: tokDict}, true
		case c == '[':
			l.pos++
			return token{kind: tokArrayStart}, true
		case c == ']':
			l.pos++
			return token{kind: tokArrayEnd}, true
		case c == '{' || c == '}' || c == ')':
			l.pos++
		case c == '/':
			l.pos++
			return token{kind: tokName, str: l.regular()}, true
		default:
			word := l.regular()
			if len(word) == 0 {
				l.pos++
				continue
			}
			if f, err := strconv.ParseFloat(string(word), 64); err == nil {
				return token{kind: tokNumber, num: f}, true
			}
			return token{kind: tokOperator, op: string(word)}, true
		}
	}
	return token{}, false
}

func (l *lexer) regular() []byte {
	start := l.pos
	for l.pos < len(l.data) && !isPDFSpace(l.data[l.pos]) && !isPDFDelim(l.data[l.pos]) {
		l.pos++
	}
	return l.data[start:l.pos]
}

// literal reads a parenthesised string, honouring nesting and escapes.
func (l *lexer) literal() []byte {
	l.pos++ // (
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			l.pos++
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
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data); i++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						val = val*8 + int(d-'0')
						l.pos++
					}
					out = append(out, byte(val))
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
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

func (l *lexer) hex() []byte {
	l.pos++ // <
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; !isPDFSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++ // >
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return out
}

// skipInlineImage advances past binary inline image data up to EI.
func (l *lexer) skipInlineImage() {
	for l.pos < len(l.data) {
		i := bytes.Index(l.data[l.pos:], []byte("EI"))
		if i < 0 {
			l.pos = len(l.data)
			return
		}
		at := l.pos + i
		end := at + 2
		before := at == 0 || isPDFSpace(l.data[at-1])
		after := end >= len(l.data) || isPDFSpace(l.data[end]) || isPDFDelim(l.data[end])
		l.pos = end
		if before && after {
			return
		}
	}
}

type textState struct {
	out      strings.Builder
	leading  float64
	fontSize float64

	y            float64
	lastY        float64
	shown        bool
	pendingSpace bool
}

func (s *textState) lineStep() float64 {
	switch {
	case s.leading > 0:
		return s.leading
	case s.fontSize > 0:
		return s.fontSize
	default:
		return defaultLineStep
	}
}

func (s *textState) nextLine() {
	s.y -= s.lineStep()
}

func (s *textState) moveBy(tx, ty float64) {
	s.y += ty
	if ty == 0 && tx != 0 {
		s.pendingSpace = true
	}
}

func (s *textState) show(text string) {
	if text == "" {
		return
	}
	if s.shown {
		step := s.lineStep()
		dy := math.Abs(s.lastY - s.y)
		switch {
		case dy > paragraphGap*step:
			s.out.WriteString("\n\n")
		case dy >= step/2:
			s.out.WriteByte('\n')
		case s.pendingSpace && !endsWithSpace(s.out.String()):
			s.out.WriteByte(' ')
		}
	}
	s.out.WriteString(text)
	s.lastY = s.y
	s.shown = true
	s.pendingSpace = false
}

func (s *textState) showArray(items []operand) {
	var sb strings.Builder
	for _, it := range items {
		switch it.kind {
		case tokString:
			sb.WriteString(decodeTextBytes(it.str))
		case tokNumber:
			if it.num < wordGapAdjust && sb.Len() > 0 && !endsWithSpace(sb.String()) {
				sb.WriteByte(' ')
			}
		}
	}
	s.show(sb.String())
}

func (s *textState) apply(op string, args []operand) {
	num := func(i int) float64 {
		if i < len(args) && args[i].kind == tokNumber {
			return args[i].num
		}
		return 0
	}
	lastString := func() []byte {
		for i := len(args) - 1; i >= 0; i-- {
			if args[i].kind == tokString {
				return args[i].str
			}
		}
		return nil
	}

	switch op {
	case "BT":
		s.y = 0
	case "Tf":
		if len(args) >= 2 {
			s.fontSize = math.Abs(num(len(args) - 1))
		}
	case "TL":
		s.leading = num(0)
	case "Td":
		s.moveBy(num(0), num(1))
	case "TD":
		s.leading = -num(1)
		s.moveBy(num(0), num(1))
	case "Tm":
		if len(args) >= 6 {
			y := num(5)
			if y == s.y {
				s.pendingSpace = true
			}
			s.y = y
		}
	case "T*":
		s.nextLine()
	case "Tj":
		s.show(decodeTextBytes(lastString()))
	case "'", "\"":
		s.nextLine()
		s.show(decodeTextBytes(lastString()))
	case "TJ":
		for i := len(args) - 1; i >= 0; i-- {
			if args[i].arr != nil {
				s.showArray(args[i].arr)
				break
			}
		}
	}
}

// textFromContentStream returns the readable text of a page content stream.
func textFromContentStream(data []byte) string {
	lx := &lexer{data: data}
	st := &textState{}

	var (
		stack  []operand
		arrays [][]operand
	)
	push := func(o operand) {
		if n := len(arrays); n > 0 {
			arrays[n-1] = append(arrays[n-1], o)
			return
		}
		stack = append(stack, o)
	}

	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokArrayStart:
			arrays = append(arrays, []operand{})
		case tokArrayEnd:
			if n := len(arrays); n > 0 {
				arr := arrays[n-1]
				arrays = arrays[:n-1]
				push(operand{kind: tokArrayStart, arr: arr})
			}
		case tokNumber, tokString, tokName:
			push(operand{kind: tok.kind, num: tok.num, str: tok.str})
		case tokOperator:
			if tok.op == "BI" || tok.op == "ID" {
				lx.skipInlineImage()
			} else {
				st.apply(tok.op, stack)
			}
			stack = stack[:0]
			arrays = arrays[:0]
		}
	}

	return strings.TrimSpace(st.out.String())
}

// decodeTextBytes maps string operand bytes to text: UTF-16BE with a BOM,
// UTF-8 when valid, and Latin-1 otherwise. Control characters become spaces.
func decodeTextBytes(b []byte) string {
	var text string
	switch {
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		units := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		}
		text = string(utf16.Decode(units))
	case utf8.Valid(b):
		text = string(b)
	default:
		runes := make([]rune, len(b))
		for i, c := range b {
			runes[i] = rune(c)
		}
		text = string(runes)
	}

	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, text)
}

func endsWithSpace(s string) bool {
	return s == "" || strings.HasSuffix(s, " ")
}
