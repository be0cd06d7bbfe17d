package scip

import "strings"

// splitLines splits text on \n, keeping a trailing \r on each line.
func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

// byteOffset converts a SCIP column on line into a byte offset within line.
// Columns past the end clamp to len(line).
func byteOffset(line string, col int, enc PositionEncoding) int {
	if enc == EncodingUTF8 {
		if col > len(line) {
			return len(line)
		}
		return col
	}
	units := 0
	for i, r := range line {
		if units >= col {
			return i
		}
		units += unitLen(r, enc)
	}
	return len(line)
}

// unitColumn converts a byte offset within line into a SCIP column.
func unitColumn(line string, byteCol int, enc PositionEncoding) int {
	if enc == EncodingUTF8 {
		return byteCol
	}
	if byteCol > len(line) {
		byteCol = len(line)
	}
	units := 0
	for _, r := range line[:byteCol] {
		units += unitLen(r, enc)
	}
	return units
}

// unitLen is the width of r in enc. Unspecified encodings are treated as UTF-16.
func unitLen(r rune, enc PositionEncoding) int {
	if enc != EncodingUTF32 && r > 0xFFFF {
		return 2
	}
	return 1
}

// textAt returns the text an occurrence spans when it is on a single line.
func textAt(lines []string, s span, enc PositionEncoding) (string, bool) {
	if s.startLine != s.endLine || s.startLine >= len(lines) {
		return "", false
	}
	line := strings.TrimSuffix(lines[s.startLine], "\r")
	a := byteOffset(line, s.startCol, enc)
	b := byteOffset(line, s.endCol, enc)
	if a > b {
		return "", false
	}
	return line[a:b], true
}
