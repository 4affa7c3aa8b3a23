// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package converttest builds small, well-formed PDF documents for tests.
package converttest

import (
	"bytes"
	"fmt"
	"strings"
)

// MinimalPDF returns a PDF with one page per entry in pages. Each page draws
// its lines of text (split on "\n") in Helvetica with Tj and T* operators.
func MinimalPDF(pages ...string) []byte {
	// Object layout: 1 catalog, 2 pages, 3 font, then a (page, content)
	// pair per page.
	var objects []string
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>",
			strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, text := range pages {
		contentNr := 5 + 2*i
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentNr),
			contentStream(text),
		)
	}

	return assemble(objects)
}

// Type0PDF returns a one-page PDF whose text is drawn with a Type0 font in
// Identity-H encoding. Strings in the content stream are two-byte glyph ids
// (character code minus 29, the usual TrueType ordering); only the font's
// ToUnicode map says which characters they are. Characters outside
// printable ASCII are omitted.
func Type0PDF(text string) []byte {
	var hex strings.Builder
	for _, r := range text {
		if r < 0x20 || r > 0x7e {
			continue
		}
		fmt.Fprintf(&hex, "%04X", r-29)
	}
	body := fmt.Sprintf("BT\n/F1 12 Tf\n72 720 Td\n<%s> Tj\nET", hex.String())
	cmap := "/CIDInit /ProcSet findresource begin\n" +
		"12 dict begin\nbegincmap\n" +
		"/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def\n" +
		"/CMapName /Adobe-Identity-UCS def\n/CMapType 2 def\n" +
		"1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n" +
		"1 beginbfrange\n<0003> <0061> <0020>\nendbfrange\n" +
		"endcmap\nCMapName currentdict /CMap defineresource pop\nend\nend"

	return assemble([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>",
		"<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		stream(body),
		"<< /Type /Font /Subtype /Type0 /BaseFont /TestSans /Encoding /Identity-H /DescendantFonts [6 0 R] /ToUnicode 8 0 R >>",
		"<< /Type /Font /Subtype /CIDFontType2 /BaseFont /TestSans " +
			"/CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> " +
			"/FontDescriptor 7 0 R /CIDToGIDMap /Identity >>",
		"<< /Type /FontDescriptor /FontName /TestSans /Flags 32 /FontBBox [0 -200 1000 900] " +
			"/ItalicAngle 0 /Ascent 900 /Descent -200 /CapHeight 700 /StemV 80 >>",
		stream(cmap),
	})
}

// assemble numbers objects from 1 and writes them with a cross-reference
// table and trailer. Object 1 must be the catalog.
func assemble(objects []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func contentStream(text string) string {
	var s strings.Builder
	s.WriteString("BT\n/F1 12 Tf\n14 TL\n72 720 Td\n")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			s.WriteString("T*\n")
		}
		fmt.Fprintf(&s, "(%s) Tj\n", escape(line))
	}
	s.WriteString("ET")
	return stream(s.String())
}

func stream(body string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(body), body)
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}
