package moderation

import (
	"context"
	"fmt"
	"sort"

	"voicefirst-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Classifier is the external safety classifier as seen by the service.
type Classifier interface {
	Configured() bool
	Analyze(ctx context.Context, payload string) (map[string]int, error)
}

// Service orchestrates the external classifier with the local fallback
// policy. Every Moderate call terminates with a concrete result: classifier
// transport failures and missing configuration fall through to the fallback
// rather than failing the caller.
type Service struct {
	classifier Classifier
	fallback   *Fallback
}

// NewService creates a moderation service. classifier may be an
// unconfigured client; the service then runs fallback-only.
func NewService(classifier Classifier, fallback *Fallback) *Service {
	return &Service{
		classifier: classifier,
		fallback:   fallback,
	}
}

// Moderate classifies a payload and returns a uniform result regardless of
// which path produced it.
func (s *Service) Moderate(ctx context.Context, kind ContentKind, payload string) models.ModerationResult {
	if s.classifier == nil || !s.classifier.Configured() {
		return s.moderateLocally(kind, payload)
	}

	scores, err := s.classifier.Analyze(ctx, payload)
	if err != nil {
		log.Warn().
			Err(err).
			Str("kind", string(kind)).
			Msg("Classifier unavailable, using fallback policy")
		return s.moderateLocally(kind, payload)
	}

	return resultFromScores(scores)
}

func (s *Service) moderateLocally(kind ContentKind, payload string) models.ModerationResult {
	if kind == KindImage {
		return s.fallback.ModerateImage(payload)
	}
	return s.fallback.ModerateText(payload)
}

// resultFromScores maps per-category severities onto the uniform result.
// Confidence is the fraction of requested categories the classifier actually
// evaluated; when none were present it defaults to 0.9, a deliberately
// conservative constant rather than a claim of certainty.
func resultFromScores(scores map[string]int) models.ModerationResult {
	maxSeverity := 0
	var flags []string

	categories := make([]string, 0, len(scores))
	for category := range scores {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		severity := scores[category]
		if severity > maxSeverity {
			maxSeverity = severity
		}
		switch {
		case severity >= severityHigh:
			flags = append(flags, fmt.Sprintf("high_%s", category))
		case severity >= severityMedium:
			flags = append(flags, fmt.Sprintf("medium_%s", category))
		}
	}

	confidence := 0.9
	if len(scores) > 0 {
		confidence = float64(len(scores)) / float64(len(expectedCategories))
	}

	switch {
	case maxSeverity >= severityHigh:
		return models.ModerationResult{
			Status:     models.ModerationRejected,
			Confidence: confidence,
			Flags:      flags,
			Reason:     "content failed safety screening",
		}
	case maxSeverity >= severityMedium || len(flags) > 0:
		return models.ModerationResult{
			Status:     models.ModerationManualReview,
			Confidence: confidence,
			Flags:      flags,
		}
	default:
		return models.ModerationResult{
			Status:     models.ModerationApproved,
			Confidence: confidence,
			Flags:      []string{},
		}
	}
}
