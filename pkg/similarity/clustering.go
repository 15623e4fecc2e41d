// Package similarity provides text similarity utilities for spotting duplicate ideas.
package similarity

import (
	"strings"
	"unicode"

	"github.com/hanno79/idea-tracker/pkg/models"
)

// DefaultThreshold is the Jaccard similarity above which two ideas count as duplicates.
const DefaultThreshold = 0.8

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "are": true, "was": true, "from": true, "into": true,
	"about": true, "what": true, "when": true, "where": true, "how": true,
	"der": true, "die": true, "das": true, "und": true, "mit": true,
	"ist": true, "sind": true, "ein": true, "eine": true, "einer": true,
	"den": true, "dem": true, "des": true, "von": true, "zu": true,
	"für": true, "auf": true, "nicht": true, "oder": true, "wie": true,
	"man": true, "zum": true, "zur": true, "aber": true, "auch": true,
}

// ClusterIdeas keeps one representative per group of similar ideas.
// The first idea of each group wins, so callers sort by preference first.
func ClusterIdeas(ideas []*models.Idea, threshold float64) []*models.Idea {
	if len(ideas) <= 1 {
		return ideas
	}

	termSets := make([]map[string]bool, len(ideas))
	for i, idea := range ideas {
		termSets[i] = IdeaTerms(idea)
	}

	clustered := make([]bool, len(ideas))
	result := make([]*models.Idea, 0, len(ideas))

	for i := range ideas {
		if clustered[i] {
			continue
		}
		result = append(result, ideas[i])
		clustered[i] = true

		for j := i + 1; j < len(ideas); j++ {
			if !clustered[j] && JaccardSimilarity(termSets[i], termSets[j]) >= threshold {
				clustered[j] = true
			}
		}
	}

	return result
}

// IsSimilarToAny reports whether candidate is at least threshold-similar to one of existing.
func IsSimilarToAny(candidate *models.Idea, existing []*models.Idea, threshold float64) bool {
	terms := IdeaTerms(candidate)
	if len(terms) == 0 {
		return false
	}

	for _, idea := range existing {
		if JaccardSimilarity(terms, IdeaTerms(idea)) >= threshold {
			return true
		}
	}
	return false
}

// IdeaTerms extracts the comparable terms of an idea from its title and problem.
func IdeaTerms(idea *models.Idea) map[string]bool {
	terms := make(map[string]bool)
	addTerms(terms, idea.Title)
	addTerms(terms, idea.Problem)
	return terms
}

// addTerms tokenizes text on anything that is not a letter or digit and drops short and stop words.
func addTerms(terms map[string]bool, text string) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, word := range words {
		if len([]rune(word)) >= 3 && !stopWords[word] {
			terms[word] = true
		}
	}
}

// JaccardSimilarity calculates the Jaccard similarity between two term sets.
// Returns a value between 0 (no overlap) and 1 (identical).
func JaccardSimilarity(set1, set2 map[string]bool) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	intersection := 0
	for term := range set1 {
		if set2[term] {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}
