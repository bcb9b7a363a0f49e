package moderation

import (
	"testing"

	"voicefirst-backend/internal/models"
)

func TestFallbackImageAllowedExtensions(t *testing.T) {
	fb := NewFallback(nil)

	for _, name := range []string{"x.jpg", "x.jpeg", "x.png", "x.webp", "photo.JPG", "https://cdn.example.com/u/1/a.png?sig=abc"} {
		result := fb.ModerateImage(name)
		if result.Status != models.ModerationApproved {
			t.Fatalf("%s: expected approved, got %s", name, result.Status)
		}
		if result.Confidence != 0.5 {
			t.Fatalf("%s: expected confidence 0.5, got %v", name, result.Confidence)
		}
		if len(result.Flags) != 0 {
			t.Fatalf("%s: expected no flags, got %v", name, result.Flags)
		}
	}
}

func TestFallbackImageRejectsUnknownFormat(t *testing.T) {
	fb := NewFallback(nil)

	for _, name := range []string{"x.gif", "x.bmp", "x", "archive.zip"} {
		result := fb.ModerateImage(name)
		if result.Status != models.ModerationRejected {
			t.Fatalf("%s: expected rejected, got %s", name, result.Status)
		}
		if result.Confidence != 1.0 {
			t.Fatalf("%s: expected confidence 1.0, got %v", name, result.Confidence)
		}
		if len(result.Flags) != 1 || result.Flags[0] != "invalid_format" {
			t.Fatalf("%s: expected invalid_format flag, got %v", name, result.Flags)
		}
	}
}

func TestFallbackImageDeterministic(t *testing.T) {
	fb := NewFallback(nil)

	first := fb.ModerateImage("x.gif")
	second := fb.ModerateImage("x.gif")
	if first.Status != second.Status || first.Confidence != second.Confidence {
		t.Fatalf("fallback verdict not deterministic: %+v vs %+v", first, second)
	}
}

func TestFallbackTextBannedTerms(t *testing.T) {
	fb := NewFallback([]string{"venmo", "escort"})

	result := fb.ModerateText("Hey! Send it to my VENMO please")
	if result.Status != models.ModerationManualReview {
		t.Fatalf("expected manual_review, got %s", result.Status)
	}
	if result.Confidence != 0.7 {
		t.Fatalf("expected confidence 0.7, got %v", result.Confidence)
	}
	if len(result.Flags) != 1 || result.Flags[0] != "venmo" {
		t.Fatalf("expected matched term flag, got %v", result.Flags)
	}
}

func TestFallbackTextClean(t *testing.T) {
	fb := NewFallback(nil)

	result := fb.ModerateText("I like hiking and coffee")
	if result.Status != models.ModerationApproved {
		t.Fatalf("expected approved, got %s", result.Status)
	}
	if result.Confidence != 0.5 {
		t.Fatalf("expected confidence 0.5, got %v", result.Confidence)
	}
}
