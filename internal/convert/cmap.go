// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxRangeCodes bounds how many codes one bfrange entry may expand to.
const maxRangeCodes = 1 << 16

// codespace is one codespacerange entry. lo and hi have equal length.
type codespace struct {
	lo, hi []byte
}

// toUnicode maps the character codes of one font to text, as described by
// the font's ToUnicode CMap.
type toUnicode struct {
	spaces []codespace
	width  int // code length when no codespace matches
	codes  map[string]string
}

// decode converts the bytes of a shown string to text. Codes without a
// mapping are dropped, except single-byte codes which fall back to Latin-1.
func (t *toUnicode) decode(raw []byte) string {
	var b strings.Builder
	for i := 0; i < len(raw); {
		n := t.codeLen(raw[i:])
		code := string(raw[i : i+n])
		i += n
		if s, ok := t.codes[code]; ok {
			for _, r := range s {
				if r == '\n' || r == '\t' || unicode.IsPrint(r) {
					b.WriteRune(r)
				}
			}
			continue
		}
		if n == 1 {
			b.WriteString(decodeBytes([]byte(code)))
		}
	}
	return b.String()
}

func (t *toUnicode) codeLen(raw []byte) int {
	for _, cs := range t.spaces {
		if len(cs.lo) > len(raw) {
			continue
		}
		match := true
		for k := range cs.lo {
			if raw[k] < cs.lo[k] || raw[k] > cs.hi[k] {
				match = false
				break
			}
		}
		if match {
			return len(cs.lo)
		}
	}
	return min(max(t.width, 1), len(raw))
}

// cmapToken is a lexical element of a CMap program.
type cmapToken struct {
	hex   []byte
	isHex bool
	word  string
}

// parseToUnicode reads the codespacerange, bfchar and bfrange sections of
// a ToUnicode CMap. Everything else in the program is ignored.
func parseToUnicode(data []byte) *toUnicode {
	t := &toUnicode{codes: map[string]string{}}
	toks := cmapTokens(data)
	for i := 0; i < len(toks); i++ {
		switch toks[i].word {
		case "begincodespacerange":
			for i++; i+1 < len(toks) && toks[i].isHex && toks[i+1].isHex; i += 2 {
				lo, hi := toks[i].hex, toks[i+1].hex
				if len(lo) == len(hi) && len(lo) > 0 {
					t.spaces = append(t.spaces, codespace{lo: lo, hi: hi})
				}
			}
		case "beginbfchar":
			for i++; i+1 < len(toks) && toks[i].isHex && toks[i+1].isHex; i += 2 {
				t.codes[string(toks[i].hex)] = utf16Text(toks[i+1].hex)
			}
		case "beginbfrange":
			for i++; i+2 < len(toks) && toks[i].isHex && toks[i+1].isHex; {
				lo, hi := toks[i].hex, toks[i+1].hex
				i += 2
				if toks[i].isHex {
					base := toks[i].hex
					t.addRange(lo, hi, func(k int) []byte { return offsetCode(base, k) })
					i++
					continue
				}
				if toks[i].word != "[" {
					break
				}
				var dsts [][]byte
				for i++; i < len(toks) && toks[i].isHex; i++ {
					dsts = append(dsts, toks[i].hex)
				}
				if i < len(toks) && toks[i].word == "]" {
					i++
				}
				t.addRange(lo, hi, func(k int) []byte {
					if k < len(dsts) {
						return dsts[k]
					}
					return nil
				})
			}
		}
	}
	t.width = 1
	if len(t.spaces) > 0 {
		t.width = len(t.spaces[0].lo)
	} else {
		for code := range t.codes {
			t.width = len(code)
			break
		}
	}
	return t
}

// addRange maps each code from lo through hi to the text of dst(k), where
// k is the code's offset from lo.
func (t *toUnicode) addRange(lo, hi []byte, dst func(k int) []byte) {
	if len(lo) != len(hi) || len(lo) == 0 || len(lo) > 4 {
		return
	}
	first, last := codeValue(lo), codeValue(hi)
	if last < first || last-first >= maxRangeCodes {
		return
	}
	for k := 0; k <= int(last-first); k++ {
		d := dst(k)
		if d == nil {
			continue
		}
		t.codes[string(codeBytes(first+uint32(k), len(lo)))] = utf16Text(d)
	}
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func codeBytes(v uint32, n int) []byte {
	b := make([]byte, n)
	for k := n - 1; k >= 0; k-- {
		b[k] = byte(v)
		v >>= 8
	}
	return b
}

// offsetCode adds k to the last UTF-16 unit of dst.
func offsetCode(dst []byte, k int) []byte {
	out := append([]byte(nil), dst...)
	switch n := len(out); {
	case n >= 2:
		v := uint16(out[n-2])<<8 | uint16(out[n-1])
		v += uint16(k)
		out[n-2], out[n-1] = byte(v>>8), byte(v)
	case n == 1:
		out[0] += byte(k)
	}
	return out
}

// utf16Text decodes big-endian UTF-16 destination bytes.
func utf16Text(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	units := make([]uint16, 0, len(b)/2)
	for k := 0; k+1 < len(b); k += 2 {
		units = append(units, uint16(b[k])<<8|uint16(b[k+1]))
	}
	return string(utf16.Decode(units))
}

func cmapTokens(data []byte) []cmapToken {
	var toks []cmapToken
	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			_, i = readLiteral(data, i)
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			toks = append(toks, cmapToken{word: "<<"})
			i += 2
		case c == '>' && i+1 < len(data) && data[i+1] == '>':
			toks = append(toks, cmapToken{word: ">>"})
			i += 2
		case c == '<':
			var raw []byte
			raw, i = readHex(data, i)
			toks = append(toks, cmapToken{hex: raw, isHex: true})
		case c == '[' || c == ']' || c == '{' || c == '}':
			toks = append(toks, cmapToken{word: string(c)})
			i++
		default:
			start := i
			i++
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelim(data[i]) {
				i++
			}
			toks = append(toks, cmapToken{word: string(data[start:i])})
		}
	}
	return toks
}

// pageFonts returns the text decoders of the fonts in a page's resources,
// keyed by resource name. Fonts with neither a ToUnicode map nor a
// single-byte encoding are given a decoder that yields nothing.
func pageFonts(ctx *model.Context, pageNr int) (map[string]*toUnicode, error) {
	_, _, inh, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, err
	}
	if inh == nil || inh.Resources == nil {
		return nil, nil
	}
	fontDict, err := ctx.DereferenceDict(inh.Resources["Font"])
	if err != nil || fontDict == nil {
		return nil, err
	}
	fonts := make(map[string]*toUnicode, len(fontDict))
	for name, o := range fontDict {
		fd, err := ctx.DereferenceDict(o)
		if err != nil || fd == nil {
			continue
		}
		if tu := fontToUnicode(ctx, fd); tu != nil {
			fonts[name] = tu
		}
	}
	return fonts, nil
}

func fontToUnicode(ctx *model.Context, fd types.Dict) *toUnicode {
	if o, found := fd.Find("ToUnicode"); found {
		sd, _, err := ctx.DereferenceStreamDict(o)
		if err == nil && sd != nil && sd.Decode() == nil {
			return parseToUnicode(sd.Content)
		}
	}
	if st := fd.NameEntry("Subtype"); st != nil && *st == "Type0" {
		return &toUnicode{width: 2}
	}
	return nil
}
