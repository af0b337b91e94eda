package similarity

import "testing"

func TestPartialRatioExactAndContained(t *testing.T) {
	if got := PartialRatio("The Matrix", "The Matrix"); got != 100 {
		t.Fatalf("identical titles scored %d, want 100", got)
	}
	if got := PartialRatio("The Matrix", "The.Matrix.1999.1080p.BluRay.x264-GROUP"); got != 100 {
		t.Fatalf("contained title scored %d, want 100", got)
	}
}

func TestPartialRatioSeparatorNoise(t *testing.T) {
	got := PartialRatio("Blade Runner 2049", "blade_runner-2049[2160p][REMUX]")
	if got < 90 {
		t.Fatalf("separator noise dropped score to %d", got)
	}
}

func TestPartialRatioUnrelatedTitle(t *testing.T) {
	got := PartialRatio("The Matrix", "Despicable Me 4 2024 720p WEBRip")
	if got >= 70 {
		t.Fatalf("unrelated title scored %d, want < 70", got)
	}
}

func TestPartialRatioAmpersandEquivalence(t *testing.T) {
	if got := PartialRatio("Me & You", "Me and You 2012 1080p"); got != 100 {
		t.Fatalf("ampersand fold scored %d, want 100", got)
	}
}

func TestPartialRatioAccentedInput(t *testing.T) {
	if got := PartialRatio("Amélie", "Amelie 2001 1080p BluRay"); got != 100 {
		t.Fatalf("accented title scored %d, want 100", got)
	}
}

func TestPartialRatioEmptyInput(t *testing.T) {
	if got := PartialRatio("", "anything"); got != 0 {
		t.Fatalf("empty needle scored %d, want 0", got)
	}
	if got := PartialRatio("anything", ""); got != 0 {
		t.Fatalf("empty haystack scored %d, want 0", got)
	}
}
