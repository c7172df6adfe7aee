package framework

import "sort"

// Rule maps a signal predicate to a fixed recommendation.
type Rule struct {
	Name       string
	Priority   int
	Match      func(Signals) bool
	Framework  Framework
	Confidence float64
	Reasoning  string
}

const (
	defaultConfidence = 0.5
	defaultReasoning  = "No specific marketing signals detected; AIDA provides a reliable attention-to-action structure"
)

func level(l AwarenessLevel) func(Signals) bool {
	return func(s Signals) bool { return s.Awareness == l }
}

func unawareGoal(goal string) func(Signals) bool {
	return func(s Signals) bool { return s.Awareness == Unaware && s.Goal == goal }
}

func unawareContent(types ...string) func(Signals) bool {
	return func(s Signals) bool {
		if s.Awareness != Unaware || knownGoal(s.Goal) {
			return false
		}
		for _, t := range types {
			if s.ContentType == t {
				return true
			}
		}
		return false
	}
}

func knownGoal(goal string) bool {
	switch goal {
	case GoalAwareness, GoalConsideration, GoalConversion, GoalRetention:
		return true
	}
	return false
}

// DefaultRules is the rule table in evaluation order.
var DefaultRules = sortedRules([]Rule{
	{
		Name: "most-aware-emergency", Priority: 10,
		Match:     func(s Signals) bool { return s.Awareness == MostAware && (s.Emergency || s.IndustryEmergency) },
		Framework: PAS, Confidence: 0.92,
		Reasoning: "Emergency language detected; PAS agitates the pain and drives immediate action",
	},
	{
		Name: "most-aware", Priority: 11, Match: level(MostAware),
		Framework: FourPs, Confidence: 0.90,
		Reasoning: "Audience is ready to buy; 4Ps provides proof and urgency for final conversion",
	},
	{
		Name: "product-aware-trust", Priority: 20,
		Match:     func(s Signals) bool { return s.Awareness == ProductAware && s.TrustProof },
		Framework: FourPs, Confidence: 0.88,
		Reasoning: "Trust and proof language detected; 4Ps leverages social proof and guarantees",
	},
	{
		Name: "product-aware", Priority: 21, Match: level(ProductAware),
		Framework: FAB, Confidence: 0.82,
		Reasoning: "Product-aware audience comparing options; FAB highlights features, advantages and benefits",
	},
	{
		Name: "solution-aware-transformation", Priority: 30,
		Match:     func(s Signals) bool { return s.Awareness == SolutionAware && s.Transformation },
		Framework: BAB, Confidence: 0.85,
		Reasoning: "Transformation language detected; BAB paints the before and after story",
	},
	{
		Name: "solution-aware-urgent", Priority: 31,
		Match:     func(s Signals) bool { return s.Awareness == SolutionAware && s.Urgency == UrgencyHigh },
		Framework: PAS, Confidence: 0.80,
		Reasoning: "Solution-aware audience with urgency; PAS agitates to drive faster action",
	},
	{
		Name: "solution-aware", Priority: 32, Match: level(SolutionAware),
		Framework: BAB, Confidence: 0.78,
		Reasoning: "Solution-aware audience responds to transformation stories; BAB shows the journey",
	},
	{
		Name: "problem-aware", Priority: 40, Match: level(ProblemAware),
		Framework: PAS, Confidence: 0.85,
		Reasoning: "Problem-aware audience; PAS validates their pain and presents the solution",
	},
	{
		Name: "goal-awareness", Priority: 50, Match: unawareGoal(GoalAwareness),
		Framework: AIDA, Confidence: 0.78,
		Reasoning: "Awareness goal; AIDA grabs attention and builds interest for cold audiences",
	},
	{
		Name: "goal-consideration", Priority: 51, Match: unawareGoal(GoalConsideration),
		Framework: BAB, Confidence: 0.72,
		Reasoning: "Consideration goal; BAB shows the transformation to move prospects forward",
	},
	{
		Name: "goal-conversion-urgent", Priority: 52,
		Match:     func(s Signals) bool { return unawareGoal(GoalConversion)(s) && s.Urgency == UrgencyHigh },
		Framework: PAS, Confidence: 0.80,
		Reasoning: "Conversion goal with urgency; PAS drives immediate action",
	},
	{
		Name: "goal-conversion", Priority: 53, Match: unawareGoal(GoalConversion),
		Framework: FourPs, Confidence: 0.75,
		Reasoning: "Conversion goal; 4Ps provides proof and pushes for the close",
	},
	{
		Name: "goal-retention", Priority: 54, Match: unawareGoal(GoalRetention),
		Framework: BAB, Confidence: 0.70,
		Reasoning: "Retention goal; BAB reinforces value by showing ongoing transformation",
	},
	{
		Name: "content-social", Priority: 60, Match: unawareContent("social-post", "social-pack"),
		Framework: AIDA, Confidence: 0.65,
		Reasoning: "Social media default; AIDA hooks attention quickly in the feed",
	},
	{
		Name: "content-gmb", Priority: 61, Match: unawareContent("gmb-post"),
		Framework: PAS, Confidence: 0.70,
		Reasoning: "Google Business posts reach high-intent searchers; PAS addresses their active need",
	},
	{
		Name: "content-email", Priority: 62, Match: unawareContent("email"),
		Framework: AIDA, Confidence: 0.65,
		Reasoning: "Email default; AIDA structures the subject line through CTA flow",
	},
	{
		Name: "content-blog", Priority: 63, Match: unawareContent("blog-post"),
		Framework: AIDA, Confidence: 0.62,
		Reasoning: "Blog default; AIDA educates and guides readers to action",
	},
})

func sortedRules(rules []Rule) []Rule {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })
	return rules
}

var frameworkMoods = map[Framework]string{
	AIDA:   "inviting, curious, attention-grabbing",
	PAS:    "tense, relieving, problem-solving",
	BAB:    "hopeful, transformative, optimistic",
	FAB:    "clear, informative, confident",
	FourPs: "confident, decisive, proof-driven",
}

// Classify runs DefaultRules over in.
func Classify(in Input) Recommendation {
	return ClassifyWith(DefaultRules, in)
}

// ClassifyWith evaluates rules in order in a single pass; the first match wins.
// Without a match the result is AIDA/unaware with confidence 0.5 and Defaulted set.
func ClassifyWith(rules []Rule, in Input) Recommendation {
	s := Extract(in)
	for _, r := range rules {
		if !r.Match(s) {
			continue
		}
		return Recommendation{
			Framework:      r.Framework,
			AwarenessLevel: s.Awareness,
			Confidence:     r.Confidence,
			Reasoning:      r.Reasoning,
			MoodOverride:   moodFor(r.Framework, s.Urgency),
			Rule:           r.Name,
		}
	}
	return Recommendation{
		Framework:      AIDA,
		AwarenessLevel: Unaware,
		Confidence:     defaultConfidence,
		Reasoning:      defaultReasoning,
		Rule:           "default",
		Defaulted:      true,
	}
}

func moodFor(f Framework, u Urgency) string {
	if u == UrgencyHigh {
		return "urgent, decisive, high-energy"
	}
	return frameworkMoods[f]
}
