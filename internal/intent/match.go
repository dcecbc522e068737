package intent

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Element is one candidate page element as reported by the front-end
// (text content plus enough metadata for the executor to address it).
type Element struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Kind     string `json:"kind,omitempty"`
	Selector string `json:"selector,omitempty"`
}

// matchFloor is the minimum similarity BestMatch accepts.
const matchFloor = 0.5

// BestMatch finds the element whose text best matches what the user
// said, trying strategies in order of strength: exact substring
// containment, word overlap, then normalized edit-distance similarity.
// Returns (-1, 0) when nothing clears the acceptance floor.
func BestMatch(spoken string, elements []Element) (int, float64) {
	spoken = Normalize(spoken)
	if spoken == "" || len(elements) == 0 {
		return -1, 0
	}

	bestIdx := -1
	bestScore := 0.0
	spokenWords := strings.Fields(spoken)

	for i, el := range elements {
		text := Normalize(el.Text)
		if text == "" {
			continue
		}

		// Substring containment either way is a definitive match.
		if strings.Contains(text, spoken) || strings.Contains(spoken, text) {
			return i, 1.0
		}

		if score := wordOverlap(spokenWords, strings.Fields(text)); score > bestScore {
			bestScore, bestIdx = score, i
		}
		if score := editSimilarity(spoken, text); score > bestScore {
			bestScore, bestIdx = score, i
		}
	}

	if bestScore < matchFloor {
		return -1, 0
	}
	return bestIdx, bestScore
}

// wordOverlap scores by the fraction of spoken words present in the
// element text.
func wordOverlap(spoken, text []string) float64 {
	if len(spoken) == 0 {
		return 0
	}
	set := make(map[string]bool, len(text))
	for _, w := range text {
		set[w] = true
	}
	hits := 0
	for _, w := range spoken {
		if set[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(spoken))
}

// editSimilarity is 1 - dist/maxlen, so identical strings score 1 and
// disjoint strings approach 0.
func editSimilarity(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
