package moderation

import (
	"path"
	"strings"

	"voicefirst-backend/internal/models"
)

// allowedImageExtensions is the fallback allow-list applied when the
// external classifier cannot be consulted.
var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// defaultBannedTerms is the heuristic banned-term list for text payloads.
// Matches route content to manual review, they never auto-reject.
var defaultBannedTerms = []string{
	"cashapp",
	"venmo",
	"onlyfans",
	"bitcoin",
	"wire transfer",
	"sugar daddy",
	"escort",
	"send money",
}

// Fallback is the local, dependency-free moderation policy used when the
// classifier is unreachable or unconfigured. Its verdicts deliberately carry
// a weaker confidence than classifier approvals.
type Fallback struct {
	bannedTerms []string
}

// NewFallback creates the fallback policy. A nil term list uses the
// built-in defaults.
func NewFallback(bannedTerms []string) *Fallback {
	if bannedTerms == nil {
		bannedTerms = defaultBannedTerms
	}
	return &Fallback{bannedTerms: bannedTerms}
}

// ModerateImage validates the payload's file extension against the
// allow-list. The payload is a URL or filename; query strings are ignored.
func (f *Fallback) ModerateImage(payload string) models.ModerationResult {
	name := payload
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	ext := strings.ToLower(path.Ext(name))

	if !allowedImageExtensions[ext] {
		return models.ModerationResult{
			Status:     models.ModerationRejected,
			Confidence: 1.0,
			Flags:      []string{"invalid_format"},
			Reason:     "unsupported image format",
		}
	}

	return models.ModerationResult{
		Status:     models.ModerationApproved,
		Confidence: 0.5,
		Flags:      []string{},
	}
}

// ModerateText matches the payload against the banned-term list.
func (f *Fallback) ModerateText(payload string) models.ModerationResult {
	lowered := strings.ToLower(payload)

	var matched []string
	for _, term := range f.bannedTerms {
		if strings.Contains(lowered, term) {
			matched = append(matched, term)
		}
	}

	if len(matched) > 0 {
		return models.ModerationResult{
			Status:     models.ModerationManualReview,
			Confidence: 0.7,
			Flags:      matched,
			Reason:     "matched banned terms",
		}
	}

	return models.ModerationResult{
		Status:     models.ModerationApproved,
		Confidence: 0.5,
		Flags:      []string{},
	}
}
