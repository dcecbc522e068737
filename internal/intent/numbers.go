package intent

import "strconv"

// cardinalWords maps spoken cardinals to values.
var cardinalWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
	"thirty": 30, "forty": 40, "fifty": 50,
}

// ordinalWords maps spoken ordinals to values. Follow-ups like "the
// third one" carry an ordinal, not a cardinal.
var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	"1st": 1, "2nd": 2, "3rd": 3, "4th": 4, "5th": 5,
	"6th": 6, "7th": 7, "8th": 8, "9th": 9, "10th": 10,
}

// parseNumberToken returns the non-negative integer a token denotes,
// whether as digits, a cardinal word, or an ordinal word.
func parseNumberToken(tok string) (int, bool) {
	if n, err := strconv.Atoi(tok); err == nil && n >= 0 {
		return n, true
	}
	if n, ok := cardinalWords[tok]; ok {
		return n, true
	}
	if n, ok := ordinalWords[tok]; ok {
		return n, true
	}
	return 0, false
}
