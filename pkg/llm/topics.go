package llm

import "strings"

// topicSynonyms collapses model-emitted tags onto a controlled vocabulary so
// cross-meeting topic aggregation and search behave consistently.
var topicSynonyms = map[string]string{
	"affordable housing":   "housing",
	"homelessness":         "housing",
	"zoning":               "housing",
	"land use":             "housing",
	"development":          "housing",
	"transportation":       "transit",
	"traffic":              "transit",
	"roads":                "transit",
	"parking":              "transit",
	"bike lanes":           "transit",
	"police":               "public safety",
	"fire":                 "public safety",
	"crime":                "public safety",
	"emergency services":   "public safety",
	"budget":               "budget",
	"finance":              "budget",
	"taxes":                "budget",
	"fees":                 "budget",
	"appropriations":       "budget",
	"parks":                "parks",
	"recreation":           "parks",
	"environment":          "environment",
	"climate":              "environment",
	"sustainability":       "environment",
	"water":                "utilities",
	"sewer":                "utilities",
	"stormwater":           "utilities",
	"utilities":            "utilities",
	"infrastructure":       "infrastructure",
	"capital improvements": "infrastructure",
	"construction":         "infrastructure",
	"contracts":            "contracts",
	"procurement":          "contracts",
	"elections":            "governance",
	"ethics":               "governance",
	"appointments":         "governance",
	"education":            "education",
	"schools":              "education",
	"libraries":            "education",
	"health":               "health",
	"public health":        "health",
	"business":             "economy",
	"economic development": "economy",
	"permits":              "economy",
	"licensing":            "economy",
}

// NormalizeTopics lowercases, collapses synonyms onto the controlled
// vocabulary, and deduplicates while preserving first-occurrence order.
func NormalizeTopics(topics []string) []string {
	if len(topics) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if canonical, ok := topicSynonyms[t]; ok {
			t = canonical
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
