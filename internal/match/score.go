// Package match filters and orders entries against a typed query.
package match

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	scoreMatch       = 16
	bonusBoundary    = 24
	bonusCamel       = 16
	bonusConsecutive = 12
	penaltyGap       = 3
	maxLeading       = 10
)

// stripMarks removes combining marks so "é" matches "e".
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// text is a scoring target: original runes for case transitions and folded
// runes for comparison. Both have the same length.
type text struct {
	orig   []rune
	folded []rune
}

func prepare(s string) text {
	stripped := stripMarks(s)
	orig := []rune(stripped)
	folded := []rune(cases.Fold().String(stripped))
	if len(folded) != len(orig) {
		// Folding changed the rune count (e.g. ß → ss); case transitions
		// are then judged on the folded form.
		orig = folded
	}
	return text{orig: orig, folded: folded}
}

func foldQuery(q string) []rune {
	return []rune(cases.Fold().String(stripMarks(q)))
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', '-', '_', '.', '/', '(':
		return true
	}
	return unicode.IsSpace(r)
}

func boundaryBonus(t text, i int) int {
	if i == 0 || isSeparator(t.orig[i-1]) {
		return bonusBoundary
	}
	if unicode.IsLower(t.orig[i-1]) && unicode.IsUpper(t.orig[i]) {
		return bonusCamel
	}
	return 0
}

// Score rates how well query matches name. Zero means the query is not a
// subsequence of name; any match scores at least 1. An empty query scores 1.
func Score(name, query string) int {
	q := foldQuery(query)
	if len(q) == 0 {
		return 1
	}
	return score(prepare(name), q)
}

func score(t text, q []rune) int {
	if len(q) == 0 {
		return 1
	}
	if len(q) > len(t.folded) {
		return 0
	}
	best := 0
	for start := 0; start <= len(t.folded)-len(q); start++ {
		if t.folded[start] != q[0] {
			continue
		}
		if s := align(t, q, start); s > best {
			best = s
		}
	}
	return best
}

// align greedily matches q against t starting with q[0] at start.
func align(t text, q []rune, start int) int {
	total := 0
	first, last := start, -1
	qi := 0
	for i := start; i < len(t.folded) && qi < len(q); i++ {
		if t.folded[i] != q[qi] {
			continue
		}
		s := scoreMatch + boundaryBonus(t, i)
		if last >= 0 && i == last+1 {
			s += bonusConsecutive
		}
		total += s
		last = i
		qi++
	}
	if qi < len(q) {
		return 0
	}

	gaps := (last - first + 1) - len(q)
	total -= gaps * penaltyGap
	total -= min(first, maxLeading)
	total -= len(t.folded) / 4
	if total < 1 {
		total = 1
	}
	return total
}
