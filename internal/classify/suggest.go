package classify

import (
	"regexp"
	"strings"
)

// MaxSuggestionDistance is the largest edit distance for which a field name is suggested.
const MaxSuggestionDistance = 3

var unknownFieldPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:field|dimension|metric)\s+name\s+["']?(\w+)["']?`),
	regexp.MustCompile(`(?i)(?:not found|unknown|unrecognized).*?["'](\w+)["']`),
	regexp.MustCompile(`(?i)field\s+["']?(\w+)["']?\s+is\s+not\s+a\s+valid`),
}

// SuggestField extracts an unknown field name from an API error message and
// returns the closest known dimension or metric name, if one is within
// MaxSuggestionDistance edits.
func SuggestField(message string) (string, bool) {
	var unknown string
	for _, pattern := range unknownFieldPatterns {
		if match := pattern.FindStringSubmatch(message); match != nil {
			unknown = match[1]
			break
		}
	}
	if unknown == "" {
		return "", false
	}
	return closestField(unknown)
}

func closestField(unknown string) (string, bool) {
	unknown = strings.ToLower(unknown)

	best, bestDistance := "", -1
	for _, vocabulary := range [][]string{Dimensions, Metrics} {
		for _, candidate := range vocabulary {
			distance := EditDistance(unknown, strings.ToLower(candidate))
			// Strictly less, so the first of equally close candidates wins
			if bestDistance == -1 || distance < bestDistance {
				best, bestDistance = candidate, distance
			}
		}
	}

	if bestDistance == -1 || bestDistance > MaxSuggestionDistance {
		return "", false
	}
	return best, true
}

// EditDistance is the Levenshtein distance between a and b, counted in runes.
func EditDistance(a, b string) int {
	source, target := []rune(a), []rune(b)

	previous := make([]int, len(target)+1)
	current := make([]int, len(target)+1)
	for j := range previous {
		previous[j] = j
	}

	for i := 1; i <= len(source); i++ {
		current[0] = i
		for j := 1; j <= len(target); j++ {
			if source[i-1] == target[j-1] {
				current[j] = previous[j-1]
			} else {
				current[j] = 1 + min(previous[j], current[j-1], previous[j-1])
			}
		}
		previous, current = current, previous
	}

	return previous[len(target)]
}
