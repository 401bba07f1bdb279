package scope

import (
	"regexp"
	"sort"
)

// ManipulationType represents a family of attempts to steer the tutor off its instructions
type ManipulationType string

const (
	ManipulationSystemPromptLeak    ManipulationType = "system_prompt_leak"
	ManipulationRoleOverride        ManipulationType = "role_override"
	ManipulationInstructionOverride ManipulationType = "instruction_override"
	ManipulationJailbreak           ManipulationType = "jailbreak"
	ManipulationDelimiterAttack     ManipulationType = "delimiter_attack"
)

// blockingConfidence is the threshold at which a detection refuses the query
const blockingConfidence = 0.8

// Detection represents a matched manipulation pattern
type Detection struct {
	Type       ManipulationType
	Pattern    string
	Confidence float64
	StartPos   int
	EndPos     int
}

type patternFamily struct {
	kind       ManipulationType
	confidence float64
	patterns   []*regexp.Regexp
}

var manipulationFamilies = []patternFamily{
	{
		kind:       ManipulationSystemPromptLeak,
		confidence: 0.9,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)show\s+(me\s+)?(your|the)\s+(system|original|initial|hidden)\s+(prompt|instructions?)`),
			regexp.MustCompile(`(?i)what\s+(is|are|was|were)\s+(your|the)\s+(system|original|initial)\s+(prompt|instructions?)`),
			regexp.MustCompile(`(?i)(reveal|print|repeat)\s+(your|the)\s+(system|hidden|secret|original)\s+(prompt|instructions?)`),
		},
	},
	{
		kind:       ManipulationRoleOverride,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(you|your)\s+(are|role|identity)\s+(now|is\s+now|changed)`),
			regexp.MustCompile(`(?i)assume\s+(the\s+)?(role|identity)\s+of`),
			regexp.MustCompile(`(?i)pretend\s+(to\s+)?be\s+(a|an)\b`),
			regexp.MustCompile(`(?i)from\s+now\s+on[,]?\s+(you|your)\s+(are|will)`),
		},
	},
	{
		kind:       ManipulationInstructionOverride,
		confidence: 0.9,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|all|above|prior|your)\s+(instructions?|prompts?|rules)`),
			regexp.MustCompile(`(?i)disregard\s+(all|previous|above|any|your)\s+(instructions?|rules|commands?)`),
			regexp.MustCompile(`(?i)override\s+(all|previous|system|your)\s+(instructions?|rules|settings?)`),
			regexp.MustCompile(`(?i)forget\s+(everything|all\s+previous|your\s+instructions)`),
		},
	},
	{
		kind:       ManipulationJailbreak,
		confidence: 0.95,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bDAN\s+mode\b`),
			regexp.MustCompile(`(?i)developer\s+mode`),
			regexp.MustCompile(`(?i)jailbreak`),
			regexp.MustCompile(`(?i)without\s+(any|ethical|moral)\s+(restrictions?|limitations?|guidelines?)`),
		},
	},
	{
		kind:       ManipulationDelimiterAttack,
		confidence: 0.8,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(\[SYSTEM\]|\[/SYSTEM\]|\[ASSISTANT\]|\[/ASSISTANT\])`),
			regexp.MustCompile(`(<\|system\|>|<\|assistant\|>|<\|end\|>)`),
			regexp.MustCompile(`(###\s*(SYSTEM|ASSISTANT|INSTRUCTION))`),
		},
	},
}

// DetectManipulation finds every manipulation pattern in the query, ordered by position
func DetectManipulation(query string) []Detection {
	var detections []Detection
	for _, fam := range manipulationFamilies {
		for _, p := range fam.patterns {
			for _, m := range p.FindAllStringIndex(query, -1) {
				detections = append(detections, Detection{
					Type:       fam.kind,
					Pattern:    p.String(),
					Confidence: fam.confidence,
					StartPos:   m[0],
					EndPos:     m[1],
				})
			}
		}
	}
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].StartPos < detections[j].StartPos
	})
	return detections
}

// blockingDetection returns the first detection at or above the blocking threshold
func blockingDetection(query string) (Detection, bool) {
	for _, d := range DetectManipulation(query) {
		if d.Confidence >= blockingConfidence {
			return d, true
		}
	}
	return Detection{}, false
}
