package usecase

import (
	"sort"
	"strings"

	"github.com/adargal/pelles/internal/domain"
)

// Scoring weights for the lexical match heuristic
const (
	tokenCoverageWeight = 0.7 // Fraction of query tokens found in the product name
	substringBonus      = 0.3 // Query is a substring of the product name
	positionBonus       = 0.1 // First tokens of query and product name agree
)

// Near-tie ratios for confidence and warning decisions
const (
	nearTieRatio        = 0.95 // Runner-up this close to the best demotes HIGH to MEDIUM
	similarProductRatio = 0.9  // Runner-up this close triggers the ambiguity warning
)

const maxAlternatives = 4

// sizeMarkerWords flag extreme size variants in a product's size descriptor
var sizeMarkerWords = []string{"גדול", "קטן", "מיני", "xl", "xxl"}

// MatcherConfig holds configuration for the matcher service
type MatcherConfig struct {
	HighThreshold   float64
	MediumThreshold float64
}

// MatcherService picks the best product candidate for a free-text query
// using a cheap, explainable lexical heuristic. It has no side effects and
// is safe for concurrent use.
type MatcherService struct {
	highThreshold   float64
	mediumThreshold float64
}

// MatchResult is the outcome of matching one query against one store's
// candidate list.
type MatchResult struct {
	Product      domain.Candidate
	Score        float64
	Confidence   domain.ConfidenceLevel
	Warning      string
	Alternatives []domain.Candidate // ranked runner-ups, score-descending, at most 4
}

// NewMatcherService creates a matcher with the given thresholds, falling
// back to the documented defaults when unset.
func NewMatcherService(config MatcherConfig) *MatcherService {
	high := config.HighThreshold
	if high <= 0 {
		high = 0.85
	}
	medium := config.MediumThreshold
	if medium <= 0 {
		medium = 0.60
	}
	return &MatcherService{
		highThreshold:   high,
		mediumThreshold: medium,
	}
}

// MatchScore calculates how well a product name matches the query.
// Returns a score between 0 and 1.
func (s *MatcherService) MatchScore(query, productName string) float64 {
	queryNorm := NormalizeHebrew(query)
	productNorm := NormalizeHebrew(productName)

	if queryNorm == "" || productNorm == "" {
		return 0.0
	}

	if queryNorm == productNorm {
		return 1.0
	}

	bonus := 0.0
	if strings.Contains(productNorm, queryNorm) {
		bonus = substringBonus
	}

	queryTokens := Tokenize(query)
	productTokens := Tokenize(productName)

	if len(queryTokens) == 0 {
		return bonus
	}

	// Count query tokens that appear in the product name. Each query token
	// counts at most once: the first satisfying product token wins.
	matched := 0
	for _, qt := range queryTokens {
		for _, pt := range productTokens {
			if qt == pt || strings.Contains(pt, qt) || strings.Contains(qt, pt) {
				matched++
				break
			}
		}
	}
	coverage := float64(matched) / float64(len(queryTokens))

	score := coverage*tokenCoverageWeight + bonus
	if len(productTokens) > 0 {
		first := queryTokens[0]
		if strings.Contains(productTokens[0], first) || strings.Contains(first, productTokens[0]) {
			score += positionBonus
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// scoredCandidate pairs a candidate with its score for ranking
type scoredCandidate struct {
	product domain.Candidate
	score   float64
}

// FindBestMatch picks the best matching candidate for a query.
// Returns nil when there are no candidates.
func (s *MatcherService) FindBestMatch(query string, candidates []domain.Candidate) *MatchResult {
	if len(candidates) == 0 {
		return nil
	}

	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = scoredCandidate{product: c, score: s.MatchScore(query, c.Name)}
	}

	// Stable so ties keep the store's original result order
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	best := scored[0]
	runnersUp := make([]scoredCandidate, 0, maxAlternatives)
	for _, sc := range scored[1:] {
		if sc.product.ID == best.product.ID {
			continue
		}
		runnersUp = append(runnersUp, sc)
		if len(runnersUp) == maxAlternatives {
			break
		}
	}

	confidence := s.classify(best.score, runnersUp)
	warning := s.generateWarning(query, best.product, best.score, confidence, runnersUp)

	alternatives := make([]domain.Candidate, len(runnersUp))
	for i, sc := range runnersUp {
		alternatives[i] = sc.product
	}

	return &MatchResult{
		Product:      best.product,
		Score:        best.score,
		Confidence:   confidence,
		Warning:      warning,
		Alternatives: alternatives,
	}
}

// classify maps the best score and its runner-up scores to a confidence
// level. A near-tie runner-up demotes an otherwise HIGH match to MEDIUM.
func (s *MatcherService) classify(score float64, runnersUp []scoredCandidate) domain.ConfidenceLevel {
	if score >= s.highThreshold {
		if len(runnersUp) > 0 && runnersUp[0].score > score*nearTieRatio {
			return domain.ConfidenceMedium
		}
		return domain.ConfidenceHigh
	}
	if score >= s.mediumThreshold {
		return domain.ConfidenceMedium
	}
	return domain.ConfidenceLow
}

// generateWarning derives human-readable caveats for a chosen match.
// Returns the triggered messages joined with "; ", or "" when none apply.
func (s *MatcherService) generateWarning(
	query string,
	product domain.Candidate,
	score float64,
	confidence domain.ConfidenceLevel,
	runnersUp []scoredCandidate,
) string {
	var warnings []string

	if confidence == domain.ConfidenceLow {
		warnings = append(warnings, "Low confidence match")
	}

	if confidence == domain.ConfidenceMedium {
		if len(runnersUp) > 0 && runnersUp[0].score > score*similarProductRatio {
			warnings = append(warnings, "Multiple similar products found")
		}
	}

	// Percentage in the product but not the query usually means a fat
	// content variant the user did not ask for
	if strings.Contains(product.Name, "%") && !strings.Contains(query, "%") {
		warnings = append(warnings, "Fat percentage specified in product")
	}

	if product.SizeDescriptor != "" {
		sizeLower := strings.ToLower(product.SizeDescriptor)
		for _, word := range sizeMarkerWords {
			if strings.Contains(sizeLower, word) {
				warnings = append(warnings, "Note: "+product.SizeDescriptor)
				break
			}
		}
	}

	return strings.Join(warnings, "; ")
}
