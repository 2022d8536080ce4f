package model

// Harm categories understood by the Gemini API.
const (
	HarmCategoryHarassment       = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

// BlockNone disables blocking for a harm category.
const BlockNone = "BLOCK_NONE"

// SafetySetting is a per-category content filter threshold. Providers
// without content filters ignore it.
type SafetySetting struct {
	Category  string `json:"category" yaml:"category"`
	Threshold string `json:"threshold" yaml:"threshold"`
}

// PermissiveSafety returns BLOCK_NONE for every harm category. Threat
// reports describe malware and intrusions in detail, which the default
// thresholds reject.
func PermissiveSafety() []SafetySetting {
	// The legacy PaLM category HARM_CATEGORY_DANGEROUS is left out: the
	// Gemini generateContent API rejects it with INVALID_ARGUMENT, and
	// HARM_CATEGORY_DANGEROUS_CONTENT covers the same content.
	cats := []string{
		HarmCategoryHarassment,
		HarmCategoryHateSpeech,
		HarmCategorySexuallyExplicit,
		HarmCategoryDangerousContent,
	}
	out := make([]SafetySetting, len(cats))
	for i, c := range cats {
		out[i] = SafetySetting{Category: c, Threshold: BlockNone}
	}
	return out
}
