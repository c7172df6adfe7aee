// Package framework picks a marketing framework and funnel awareness level for a topic.
package framework

import (
	"fmt"
	"strings"
)

// Framework is a closed set of marketing copy structures.
type Framework string

const (
	AIDA   Framework = "aida"
	PAS    Framework = "pas"
	BAB    Framework = "bab"
	FAB    Framework = "fab"
	FourPs Framework = "4ps"
)

var frameworks = []Framework{AIDA, PAS, BAB, FAB, FourPs}

// Valid reports whether f is one of the known frameworks.
func (f Framework) Valid() bool {
	for _, k := range frameworks {
		if f == k {
			return true
		}
	}
	return false
}

func (f Framework) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("framework: unknown framework %q", string(f))
	}
	return []byte(f), nil
}

func (f *Framework) UnmarshalText(b []byte) error {
	v := Framework(strings.ToLower(strings.TrimSpace(string(b))))
	if !v.Valid() {
		return fmt.Errorf("framework: unknown framework %q", string(b))
	}
	*f = v
	return nil
}

// Label is the human readable name with its section flow.
func (f Framework) Label() string {
	switch f {
	case AIDA:
		return "AIDA (Attention → Interest → Desire → Action)"
	case PAS:
		return "PAS (Problem → Agitate → Solution)"
	case BAB:
		return "BAB (Before → After → Bridge)"
	case FAB:
		return "FAB (Features → Advantages → Benefits)"
	case FourPs:
		return "4Ps (Promise → Picture → Proof → Push)"
	default:
		return string(f)
	}
}

// AwarenessLevel is an ordered funnel stage.
type AwarenessLevel int

const (
	Unaware AwarenessLevel = iota
	ProblemAware
	SolutionAware
	ProductAware
	MostAware
)

var awarenessNames = [...]string{"unaware", "problem-aware", "solution-aware", "product-aware", "most-aware"}

func (a AwarenessLevel) String() string {
	if a < Unaware || a > MostAware {
		return fmt.Sprintf("AwarenessLevel(%d)", int(a))
	}
	return awarenessNames[a]
}

func (a AwarenessLevel) MarshalText() ([]byte, error) {
	if a < Unaware || a > MostAware {
		return nil, fmt.Errorf("framework: unknown awareness level %d", int(a))
	}
	return []byte(a.String()), nil
}

func (a *AwarenessLevel) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, name := range awarenessNames {
		if name == s {
			*a = AwarenessLevel(i)
			return nil
		}
	}
	return fmt.Errorf("framework: unknown awareness level %q", string(b))
}

// Urgency is a coarse time pressure signal.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ParseUrgency maps user input to an Urgency. Unknown text yields "" so the
// classifier falls back to keyword detection.
func ParseUrgency(s string) Urgency {
	switch u := Urgency(strings.ToLower(strings.TrimSpace(s))); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return u
	default:
		return ""
	}
}

// Campaign goals understood by the classifier.
const (
	GoalAwareness     = "awareness"
	GoalConsideration = "consideration"
	GoalConversion    = "conversion"
	GoalRetention     = "retention"
)

// Input is what the classifier looks at.
type Input struct {
	Topic        string
	Industry     string
	ContentType  string
	CampaignGoal string
	// Urgency overrides keyword detection when set.
	Urgency Urgency
}

// Recommendation is the classifier output.
type Recommendation struct {
	Framework      Framework      `json:"framework"`
	AwarenessLevel AwarenessLevel `json:"awareness_level"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `json:"reasoning"`
	MoodOverride   string         `json:"mood_override,omitempty"`
	Rule           string         `json:"rule"`
	Defaulted      bool           `json:"defaulted"`
}

// Structure is the section layout of a framework for copy generation.
type Structure struct {
	Sections []string `json:"sections"`
	Prompts  []string `json:"prompts"`
}

// Structure returns the section layout of f tailored to industry.
func (f Framework) Structure(industry string) Structure {
	ind := strings.TrimSpace(industry)
	if ind == "" {
		ind = "local business"
	}
	switch f {
	case PAS:
		return Structure{
			Sections: []string{"Problem", "Agitate", "Solution"},
			Prompts: []string{
				fmt.Sprintf("Identify the specific pain point %s customers face right now", ind),
				"Make the problem vivid and urgent: what happens if they do nothing?",
				"Present the solution with clear benefits and an immediate next step",
			},
		}
	case BAB:
		return Structure{
			Sections: []string{"Before", "After", "Bridge"},
			Prompts: []string{
				fmt.Sprintf("Describe the frustrating before state %s customers experience", ind),
				"Paint a vivid picture of the transformed after state",
				fmt.Sprintf("Explain how this %s service bridges the gap", ind),
			},
		}
	case FAB:
		return Structure{
			Sections: []string{"Features", "Advantages", "Benefits"},
			Prompts: []string{
				fmt.Sprintf("State the key feature or capability of this %s offering", ind),
				"Explain why this is better than alternatives",
				"Show how it concretely improves the customer's life",
			},
		}
	case FourPs:
		return Structure{
			Sections: []string{"Promise", "Picture", "Proof", "Push"},
			Prompts: []string{
				"Make a bold, specific promise about results",
				"Help the reader visualize the outcome in detail",
				"Provide proof: reviews, guarantees, credentials, or numbers",
				"Create urgency and push for immediate action",
			},
		}
	default:
		return Structure{
			Sections: []string{"Attention", "Interest", "Desire", "Action"},
			Prompts: []string{
				fmt.Sprintf("Write an attention-grabbing hook for %s that stops the scroll", ind),
				"Build curiosity with a surprising benefit or little-known fact",
				"Create desire by painting a vivid picture of the outcome",
				"End with a clear, compelling call-to-action",
			},
		}
	}
}

// PromptBlock renders the recommendation as instructions for a copy model.
func (r Recommendation) PromptBlock(industry string) string {
	s := r.Framework.Structure(industry)
	var b strings.Builder
	fmt.Fprintf(&b, "MARKETING FRAMEWORK: Use the %s framework to structure this content.\n", r.Framework.Label())
	for i, section := range s.Sections {
		fmt.Fprintf(&b, "- %s: %s\n", section, s.Prompts[i])
	}
	b.WriteString("Follow this framework structure naturally; don't label the sections explicitly unless the format calls for headers.")
	return b.String()
}
