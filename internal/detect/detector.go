// Package detect classifies free-text activity descriptions for signs of
// competitor activity.
package detect

import (
	"fmt"
	"math"
	"strings"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

// UnknownCompetitor names the competitor when only keywords or patterns
// matched.
const UnknownCompetitor = "unknown competitor"

// Confidence levels.
const (
	NamedConfidence   = 0.9
	KeywordBase       = 0.3
	KeywordStep       = 0.2
	KeywordCap        = 0.8
	PatternConfidence = 0.7
	PatternBoost      = 0.1
	BoostCap          = 0.95
	MinConfidence     = 0.5
)

// Detection is a candidate competitor signal.
type Detection struct {
	Competitor  string                   `json:"competitor"`
	Type        crm.CompetitorSignalType `json:"type"`
	Description string                   `json:"description"`
	Confidence  float64                  `json:"confidence"`
	Matched     []string                 `json:"matched"`
}

// Detector is a deterministic competitor-mention classifier.
type Detector struct {
	competitors []string
}

// New creates a Detector for the given known competitor names. Blank names
// are ignored.
func New(competitors []string) *Detector {
	d := &Detector{}
	for _, c := range competitors {
		if c = strings.TrimSpace(c); c != "" {
			d.competitors = append(d.competitors, c)
		}
	}
	return d
}

// Detect returns a detection for text, or nil when nothing matched or the
// final confidence is below MinConfidence.
func (d *Detector) Detect(text string) *Detection {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var det *Detection
	for _, name := range d.competitors {
		if strings.Contains(lower, strings.ToLower(name)) {
			det = &Detection{
				Competitor:  name,
				Type:        crm.CompetitorMentioned,
				Description: fmt.Sprintf("Competitor %s mentioned", name),
				Confidence:  NamedConfidence,
				Matched:     []string{name},
			}
			break
		}
	}

	if det == nil {
		var hits []string
		for _, kw := range Keywords {
			if strings.Contains(lower, kw) {
				hits = append(hits, kw)
			}
		}
		if len(hits) > 0 {
			det = &Detection{
				Competitor:  UnknownCompetitor,
				Type:        crm.KeywordDetected,
				Description: "Competitor keywords: " + strings.Join(hits, ", "),
				Confidence:  math.Min(KeywordBase+KeywordStep*float64(len(hits)), KeywordCap),
				Matched:     hits,
			}
		}
	}

	det = applyPatterns(det, text, BehavioralPatterns, "Customer may be using or comparing another product")
	det = applyPatterns(det, text, InquiryPatterns, "Customer asked about pricing or samples")

	if det == nil {
		return nil
	}
	det.Confidence = math.Round(det.Confidence*100) / 100
	if det.Confidence < MinConfidence {
		return nil
	}
	return det
}

// applyPatterns seeds a detection from the first matching pattern, or
// boosts an existing one once per pattern set.
func applyPatterns(det *Detection, text string, patterns []Pattern, description string) *Detection {
	for _, p := range patterns {
		if !p.Regex.MatchString(text) {
			continue
		}
		if det == nil {
			return &Detection{
				Competitor:  UnknownCompetitor,
				Type:        p.Type,
				Description: description,
				Confidence:  PatternConfidence,
				Matched:     []string{p.Name},
			}
		}
		det.Confidence = math.Min(det.Confidence+PatternBoost, BoostCap)
		det.Matched = append(det.Matched, p.Name)
		return det
	}
	return det
}
