// Package scoring compares a fingerspelled transcript with the text the
// signer meant to spell.
package scoring

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
)

// Result holds character and word level error rates.
type Result struct {
	Expected       string  `json:"expected"`
	Transcript     string  `json:"transcript"`
	EditDistance   int     `json:"edit_distance"`
	CER            float64 `json:"cer"`
	WER            float64 `json:"wer"`
	ReferenceWords int     `json:"reference_words"`
	Exact          bool    `json:"exact"`
}

// Normalize upper-cases s and collapses runs of whitespace to one space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// Transcript joins per-frame labels into text. A word break is inserted
// before every frame index listed in breaks. With collapseRepeats,
// consecutive identical labels within a word count once, which suits
// streams where one sign spans several frames.
func Transcript(labels []string, breaks []int, collapseRepeats bool) string {
	breakAt := make(map[int]bool, len(breaks))
	for _, b := range breaks {
		if b > 0 && b < len(labels) {
			breakAt[b] = true
		}
	}

	var sb strings.Builder
	prev := ""
	for i, label := range labels {
		if breakAt[i] {
			sb.WriteByte(' ')
			prev = ""
		}
		if collapseRepeats && label == prev {
			continue
		}
		sb.WriteString(label)
		prev = label
	}
	return Normalize(sb.String())
}

// ParseBreaks reads a comma separated list of frame indexes, ignoring
// anything that is not a non-negative integer. The result is sorted.
func ParseBreaks(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Score compares transcript against expected. CER is the Levenshtein
// distance between the texts with spaces removed, divided by the length of
// the expected text. WER is computed over whitespace separated words.
func Score(expected, transcript string) Result {
	exp := Normalize(expected)
	got := Normalize(transcript)

	expChars := strings.ReplaceAll(exp, " ", "")
	gotChars := strings.ReplaceAll(got, " ", "")

	res := Result{
		Expected:     exp,
		Transcript:   got,
		EditDistance: levenshtein.Distance(expChars, gotChars),
		Exact:        exp == got,
	}

	refLen := utf8.RuneCountInString(expChars)
	switch {
	case refLen > 0:
		res.CER = float64(res.EditDistance) / float64(refLen)
	case gotChars != "":
		res.CER = 1
	}

	refWords := strings.Fields(exp)
	res.ReferenceWords = len(refWords)
	switch {
	case len(refWords) > 0:
		res.WER, _ = wer.WER(refWords, strings.Fields(got))
	case got != "":
		res.WER = 1
	}
	return res
}
