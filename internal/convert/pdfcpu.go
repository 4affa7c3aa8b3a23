// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPUExtractor parses the PDF with pdfcpu and decodes the text-showing
// operators of every page's content stream. It needs no external binary.
type PDFCPUExtractor struct{}

// Extract returns the text of every page. Pages without text operators
// yield empty strings.
func (PDFCPUExtractor) Extract(ctx context.Context, pdf []byte) (pages []string, err error) {
	// pdfcpu panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdfcpu: %v", r)
		}
	}()

	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	pages = make([]string, 0, pdfCtx.PageCount)
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
		if err != nil {
			return nil, fmt.Errorf("page %d content: %w", pageNr, err)
		}
		if r == nil {
			pages = append(pages, "")
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("page %d content: %w", pageNr, err)
		}
		fonts, err := pageFonts(pdfCtx, pageNr)
		if err != nil {
			return nil, fmt.Errorf("page %d fonts: %w", pageNr, err)
		}
		pages = append(pages, streamText(data, fonts))
	}
	return pages, nil
}

// operand is one value on the content-stream operand stack.
type operand struct {
	raw    []byte
	isStr  bool
	num    float64
	isNum  bool
	name   string
	isName bool
	arr    []operand
}

// tjSpaceThreshold is the TJ displacement (thousandths of text space) past
// which a gap is rendered as a space.
const tjSpaceThreshold = -250

// streamText decodes the text drawn by a content stream. Strings shown by
// Tj, TJ, ' and " are emitted; T*, Td, TD, Tm and ET start new lines.
// Strings are decoded with the decoder of the font selected by Tf; fonts
// missing from fonts are read as Latin-1.
func streamText(data []byte, fonts map[string]*toUnicode) string {
	var (
		out       strings.Builder
		stack     []operand
		arrStack  [][]operand
		font      *toUnicode
		fontStack []*toUnicode
	)
	text := func(raw []byte) string {
		if font == nil {
			return decodeBytes(raw)
		}
		return font.decode(raw)
	}
	push := func(op operand) {
		if n := len(arrStack); n > 0 {
			arrStack[n-1] = append(arrStack[n-1], op)
			return
		}
		stack = append(stack, op)
	}
	newline := func() {
		s := out.String()
		if len(s) > 0 && !strings.HasSuffix(s, "\n") {
			out.WriteByte('\n')
		}
	}
	lastStr := func() string {
		if n := len(stack); n > 0 && stack[n-1].isStr {
			return text(stack[n-1].raw)
		}
		return ""
	}

	i := 0
	for i < len(data) {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			raw, next := readLiteral(data, i)
			push(operand{raw: raw, isStr: true})
			i = next
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i += 2
		case c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			raw, next := readHex(data, i)
			push(operand{raw: raw, isStr: true})
			i = next
		case c == '[':
			arrStack = append(arrStack, nil)
			i++
		case c == ']':
			if n := len(arrStack); n > 0 {
				arr := arrStack[n-1]
				arrStack = arrStack[:n-1]
				push(operand{arr: arr})
			}
			i++
		case c == '/':
			i++
			start := i
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelim(data[i]) {
				i++
			}
			push(operand{name: string(data[start:i]), isName: true})
		case c == '{' || c == '}' || c == ')' || c == '>':
			i++
		default:
			start := i
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelim(data[i]) {
				i++
			}
			word := string(data[start:i])
			if f, err := strconv.ParseFloat(word, 64); err == nil {
				push(operand{num: f, isNum: true})
				continue
			}
			switch word {
			case "Tj":
				out.WriteString(lastStr())
			case "'", `"`:
				newline()
				out.WriteString(lastStr())
			case "TJ":
				if n := len(stack); n > 0 {
					for _, el := range stack[n-1].arr {
						switch {
						case el.isStr:
							out.WriteString(text(el.raw))
						case el.isNum && el.num <= tjSpaceThreshold:
							out.WriteByte(' ')
						}
					}
				}
			case "T*", "Tm", "ET":
				newline()
			case "Td", "TD":
				if n := len(stack); n >= 2 && stack[n-1].isNum && stack[n-1].num != 0 {
					newline()
				} else if s := out.String(); len(s) > 0 && !strings.HasSuffix(s, "\n") && !strings.HasSuffix(s, " ") {
					out.WriteByte(' ')
				}
			case "Tf":
				if n := len(stack); n >= 2 && stack[n-2].isName {
					font = fonts[stack[n-2].name]
				}
			case "q":
				fontStack = append(fontStack, font)
			case "Q":
				if n := len(fontStack); n > 0 {
					font = fontStack[n-1]
					fontStack = fontStack[:n-1]
				}
			case "ID":
				i = skipInlineImage(data, i)
			}
			stack = stack[:0]
			arrStack = arrStack[:0]
		}
	}
	return tidyLines(out.String())
}

// readLiteral unescapes the literal string starting at data[start] == '('.
// It returns the string's bytes and the index just past the closing ')'.
func readLiteral(data []byte, start int) ([]byte, int) {
	var raw []byte
	depth := 1
	i := start + 1
	for i < len(data) && depth > 0 {
		c := data[i]
		switch c {
		case '\\':
			i++
			if i >= len(data) {
				break
			}
			e := data[i]
			switch e {
			case 'n':
				raw = append(raw, '\n')
			case 'r':
				raw = append(raw, '\r')
			case 't':
				raw = append(raw, '\t')
			case 'b':
				raw = append(raw, '\b')
			case 'f':
				raw = append(raw, '\f')
			case '\r':
				if i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; k++ {
						i++
						val = val*8 + int(data[i]-'0')
					}
					raw = append(raw, byte(val))
				} else {
					raw = append(raw, e)
				}
			}
		case '(':
			depth++
			raw = append(raw, c)
		case ')':
			depth--
			if depth > 0 {
				raw = append(raw, c)
			}
		default:
			raw = append(raw, c)
		}
		i++
	}
	return raw, i
}

// readHex decodes the hex string starting at data[start] == '<'.
func readHex(data []byte, start int) ([]byte, int) {
	var digits []byte
	i := start + 1
	for i < len(data) && data[i] != '>' {
		if isHexDigit(data[i]) {
			digits = append(digits, data[i])
		}
		i++
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	raw := make([]byte, 0, len(digits)/2)
	for k := 0; k < len(digits); k += 2 {
		v, _ := strconv.ParseUint(string(digits[k:k+2]), 16, 8)
		raw = append(raw, byte(v))
	}
	return raw, i + 1
}

// skipInlineImage moves past inline image data following an ID operator
// to just after the matching EI.
func skipInlineImage(data []byte, i int) int {
	for j := i; j+2 < len(data); j++ {
		if isPDFSpace(data[j]) && data[j+1] == 'E' && data[j+2] == 'I' &&
			(j+3 == len(data) || isPDFSpace(data[j+3])) {
			return j + 3
		}
	}
	return len(data)
}

// decodeBytes maps single-byte string content to runes (Latin-1) and drops
// control characters other than newline and tab.
func decodeBytes(raw []byte) string {
	var b strings.Builder
	for _, c := range raw {
		r := rune(c)
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// tidyLines trims trailing blanks from each line and collapses runs of
// blank lines.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimRightFunc(l, unicode.IsSpace)
		if l == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isPDFDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
