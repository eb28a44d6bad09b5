// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

const (
	// CR and LF are control characters, respectively coded 0x0D (13 decimal) and 0x0A (10 decimal).
	// Windows uses CR + LF, Unix/Mac uses LF, Classic Mac uses CR.
	// The lexer folds CR + LF into a single LF. A stray CR keeps its own catcode,
	// which is end-of-line by default.

	// CR is 0x0D or '\r'
	CR rune = rune(13)

	// LF is 0x0A or '\n'
	LF rune = rune(10)

	// EOF is a sentinel for end of input
	EOF rune = rune(-1)
)

func isdigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

// ishexdigit accepts the digits TeX accepts after a double quote.
// Lower case letters are not hex digits in TeX.
func ishexdigit(ch rune) bool {
	return isdigit(ch) || ('A' <= ch && ch <= 'F')
}

// isTeXHexPair reports whether ch is valid in ^^xx notation.
func isTeXHexPair(ch rune) bool {
	return isdigit(ch) || ('a' <= ch && ch <= 'f')
}

func hexval(ch rune) int {
	switch {
	case isdigit(ch):
		return int(ch - '0')
	case 'a' <= ch && ch <= 'f':
		return int(ch-'a') + 10
	case 'A' <= ch && ch <= 'F':
		return int(ch-'A') + 10
	}
	return -1
}
