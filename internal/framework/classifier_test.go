package framework

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySpringGardenTips(t *testing.T) {
	in := Input{Topic: "Spring Garden Preparation Tips", Industry: "Landscaping", ContentType: "gmb-post"}

	first := Classify(in)
	assert.Equal(t, BAB, first.Framework)
	assert.Equal(t, SolutionAware, first.AwarenessLevel)
	assert.Equal(t, 0.78, first.Confidence)
	assert.Equal(t, "solution-aware", first.Rule)
	assert.False(t, first.Defaulted)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(Classify(in))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestClassifyRules(t *testing.T) {
	cases := []struct {
		name       string
		in         Input
		framework  Framework
		level      AwarenessLevel
		confidence float64
	}{
		{"industry emergency", Input{Topic: "Burst pipe in the basement?", Industry: "Plumbing"}, PAS, MostAware, 0.92},
		{"industry first token", Input{Topic: "AC broke during the heatwave", Industry: "HVAC / Heating & Cooling"}, PAS, MostAware, 0.92},
		{"urgency", Input{Topic: "Tune-up special ends Friday", Industry: "Auto"}, FourPs, MostAware, 0.90},
		{"trust", Input{Topic: "Licensed and insured electricians", Industry: "Electrical"}, FourPs, ProductAware, 0.88},
		{"product", Input{Topic: "Spring bundle pricing", Industry: "Salon"}, FAB, ProductAware, 0.82},
		{"transformation", Input{Topic: "Upgrade your kitchen: before and after", Industry: "Remodeling"}, BAB, SolutionAware, 0.85},
		{"solution urgent", Input{Topic: "Emergency repair for broken windows", Industry: "Glass"}, PAS, SolutionAware, 0.80},
		{"problem", Input{Topic: "Struggling with a noisy furnace", Industry: "Contractor"}, PAS, ProblemAware, 0.85},
		{"goal awareness", Input{Topic: "Meet our team", CampaignGoal: "awareness"}, AIDA, Unaware, 0.78},
		{"goal consideration", Input{Topic: "Meet our team", CampaignGoal: "consideration"}, BAB, Unaware, 0.72},
		{"goal conversion", Input{Topic: "Meet our team", CampaignGoal: "conversion"}, FourPs, Unaware, 0.75},
		{"goal conversion urgent", Input{Topic: "Meet our team", CampaignGoal: "conversion", Urgency: UrgencyHigh}, PAS, Unaware, 0.80},
		{"goal retention", Input{Topic: "Meet our team", CampaignGoal: "retention"}, BAB, Unaware, 0.70},
		{"content social", Input{Topic: "Meet our team", ContentType: "social-post"}, AIDA, Unaware, 0.65},
		{"content gmb", Input{Topic: "Meet our team", ContentType: "gmb-post"}, PAS, Unaware, 0.70},
		{"content email", Input{Topic: "Meet our team", ContentType: "email"}, AIDA, Unaware, 0.65},
		{"content blog unknown goal", Input{Topic: "Meet our team", ContentType: "blog-post", CampaignGoal: "brand-love"}, AIDA, Unaware, 0.62},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.in)
			assert.Equal(t, tc.framework, got.Framework)
			assert.Equal(t, tc.level, got.AwarenessLevel)
			assert.Equal(t, tc.confidence, got.Confidence)
			assert.NotEmpty(t, got.Reasoning)
			assert.False(t, got.Defaulted)
		})
	}
}

func TestClassifyDefault(t *testing.T) {
	got := Classify(Input{Topic: "Meet our team", ContentType: "flyer"})
	assert.Equal(t, AIDA, got.Framework)
	assert.Equal(t, Unaware, got.AwarenessLevel)
	assert.Equal(t, 0.5, got.Confidence)
	assert.True(t, got.Defaulted)
	assert.NotEmpty(t, got.Reasoning)
	assert.Empty(t, got.MoodOverride)
}

func TestMoodOverrideForUrgency(t *testing.T) {
	got := Classify(Input{Topic: "Last chance: deadline tonight", Industry: "Retail"})
	assert.Equal(t, "urgent, decisive, high-energy", got.MoodOverride)
}

func TestDefaultRulesOrdered(t *testing.T) {
	seen := map[string]bool{}
	for i, r := range DefaultRules {
		assert.False(t, seen[r.Name], "duplicate rule %s", r.Name)
		seen[r.Name] = true
		assert.True(t, r.Framework.Valid(), r.Name)
		assert.Greater(t, r.Confidence, 0.5, r.Name)
		assert.LessOrEqual(t, r.Confidence, 1.0, r.Name)
		if i > 0 {
			assert.Less(t, DefaultRules[i-1].Priority, r.Priority)
		}
	}
}

func TestClassifyWithCustomRules(t *testing.T) {
	rules := []Rule{{
		Name: "always", Priority: 1, Match: func(Signals) bool { return true },
		Framework: FAB, Confidence: 0.6, Reasoning: "always",
	}}
	got := ClassifyWith(rules, Input{Topic: "anything"})
	assert.Equal(t, FAB, got.Framework)
	assert.Equal(t, "always", got.Rule)
}

func TestEnumTextRoundTrip(t *testing.T) {
	var f Framework
	require.NoError(t, f.UnmarshalText([]byte("4PS")))
	assert.Equal(t, FourPs, f)
	assert.Error(t, f.UnmarshalText([]byte("storybrand")))

	var a AwarenessLevel
	require.NoError(t, a.UnmarshalText([]byte("product-aware")))
	assert.Equal(t, ProductAware, a)
	assert.Error(t, a.UnmarshalText([]byte("very-aware")))
	assert.True(t, Unaware < MostAware)

	_, err := AwarenessLevel(9).MarshalText()
	assert.Error(t, err)
}

func TestPromptBlock(t *testing.T) {
	rec := Recommendation{Framework: PAS}
	block := rec.PromptBlock("plumbing")
	assert.Contains(t, block, "PAS (Problem → Agitate → Solution)")
	assert.Contains(t, block, "- Problem: Identify the specific pain point plumbing customers face right now")
	assert.Len(t, FourPs.Structure("").Sections, 4)
}
