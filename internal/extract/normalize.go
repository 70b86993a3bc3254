package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
)

type rawExtraction struct {
	VisaSponsor *bool    `json:"visa_sponsor"`
	Experience  *float64 `json:"experience"`
	Swedish     any      `json:"swedish"`
	Skills      []string `json:"skills"`
	Education   *string  `json:"education"`
}

// ParseExtraction decodes a model answer and normalizes its fields.
func ParseExtraction(text string) (crawler.Extraction, error) {
	var raw rawExtraction
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return crawler.Extraction{}, fmt.Errorf("decode model response: %w", err)
	}
	out := crawler.Extraction{
		VisaSponsor: raw.VisaSponsor,
		Experience:  normalizeExperience(raw.Experience),
		Swedish:     normalizeSwedish(raw.Swedish),
		Skills:      normalizeSkills(raw.Skills),
	}
	if raw.Education != nil {
		if edu := strings.TrimSpace(*raw.Education); edu != "" && edu != "null" {
			out.Education = &edu
		}
	}
	return out, nil
}

// normalizeSwedish only recognizes the literal strings; JSON booleans are unknown.
func normalizeSwedish(v any) crawler.Swedish {
	if s, ok := v.(string); ok {
		return crawler.ParseSwedish(s)
	}
	return crawler.SwedishUnknown
}

func normalizeExperience(v *float64) *int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return nil
	}
	years := int(math.Round(*v))
	return &years
}

func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, skill := range skills {
		if skill = strings.TrimSpace(skill); skill != "" {
			out = append(out, skill)
		}
	}
	return out
}
