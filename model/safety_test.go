package model

import "testing"

func TestPermissiveSafety(t *testing.T) {
	want := map[string]bool{
		HarmCategoryHarassment:       true,
		HarmCategoryHateSpeech:       true,
		HarmCategorySexuallyExplicit: true,
		HarmCategoryDangerousContent: true,
	}

	settings := PermissiveSafety()
	if len(settings) != len(want) {
		t.Fatalf("expected %d settings, got %d", len(want), len(settings))
	}
	for _, s := range settings {
		if !want[s.Category] {
			t.Errorf("unexpected category %q", s.Category)
		}
		if s.Category == "HARM_CATEGORY_DANGEROUS" {
			t.Errorf("legacy category %q is rejected by the Gemini API", s.Category)
		}
		if s.Threshold != BlockNone {
			t.Errorf("%s: expected threshold %s, got %s", s.Category, BlockNone, s.Threshold)
		}
		delete(want, s.Category)
	}
	if len(want) != 0 {
		t.Errorf("missing categories: %v", want)
	}
}
