package document

import (
	"strings"
	"unicode"
)

// naturalLess compares filenames in human order, so "page2.pdf" sorts
// before "page10.pdf". Comparison is case-insensitive.
func naturalLess(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	for len(a) > 0 && len(b) > 0 {
		aRun, aNum, aRest := nextRun(a)
		bRun, bNum, bRest := nextRun(b)

		if aNum && bNum {
			ai, bi := trimLeadingZeros(aRun), trimLeadingZeros(bRun)
			if len(ai) != len(bi) {
				return len(ai) < len(bi)
			}
			if ai != bi {
				return ai < bi
			}
		} else if aRun != bRun {
			return aRun < bRun
		}

		a, b = aRest, bRest
	}
	return len(a) < len(b)
}

// nextRun splits off the leading run of digits or non-digits.
func nextRun(s string) (run string, numeric bool, rest string) {
	numeric = unicode.IsDigit(rune(s[0]))
	for i, r := range s {
		if unicode.IsDigit(r) != numeric {
			return s[:i], numeric, s[i:]
		}
	}
	return s, numeric, ""
}

func trimLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
