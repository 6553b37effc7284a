package classify

import (
	"regexp"
	"strings"

	"github.com/replygate/replygate/internal/models"
)

// Word-count bounds for the complexity classes.
const (
	complexWordThreshold = 50
	mediumWordThreshold  = 20
)

var (
	technicalPattern = regexp.MustCompile(`(?i)spec|technical|detail|configuration|setup|install`)
	comparePattern   = regexp.MustCompile(`(?i)compare|versus|\bvs\b|difference between`)

	rentalPattern        = regexp.MustCompile(`(?i)rent|hire|book|borrow|rate|price|cost|deposit|available`)
	collaborationPattern = regexp.MustCompile(`(?i)collab|partner|sponsor|shoot together|project|work with`)
	equipmentPattern     = regexp.MustCompile(`(?i)camera|lens|gimbal|tripod|light|drone|mic|recorder|monitor|rig`)
)

// Complexity buckets a message so the orchestrator can prefer a cheap local
// model for simple traffic. Long messages, multi-part questions and
// comparison requests are complex; moderately long or technical ones are
// medium; everything else is simple.
func Complexity(message string) models.Complexity {
	words := len(strings.Fields(message))
	questions := strings.Count(message, "?")

	if words > complexWordThreshold || questions > 1 || comparePattern.MatchString(message) {
		return models.ComplexityComplex
	}
	if words > mediumWordThreshold || technicalPattern.MatchString(message) {
		return models.ComplexityMedium
	}
	return models.ComplexitySimple
}

// DetectBusinessContext maps a message onto the business situation the reply
// should be framed for. The default is a general inquiry.
func DetectBusinessContext(message string) models.BusinessContext {
	switch {
	case rentalPattern.MatchString(message):
		return models.BusinessContext{
			Type:        "rental_inquiry",
			Description: "a customer asking about renting equipment",
			Approach:    "be helpful with availability and rates, invite them to confirm dates",
		}
	case collaborationPattern.MatchString(message):
		return models.BusinessContext{
			Type:        "collaboration",
			Description: "a creator proposing a collaboration or partnership",
			Approach:    "be warm and open, ask for specifics about the project",
		}
	case equipmentPattern.MatchString(message):
		return models.BusinessContext{
			Type:        "equipment_query",
			Description: "a question about specific gear",
			Approach:    "answer concretely about the equipment, mention alternatives if relevant",
		}
	default:
		return models.BusinessContext{
			Type:        "general",
			Description: "a general message",
			Approach:    "respond naturally and helpfully",
		}
	}
}
