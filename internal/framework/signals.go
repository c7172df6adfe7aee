package framework

import (
	"regexp"
	"strings"
)

var (
	emergencyRe      = regexp.MustCompile(`(?i)\b(emergency|urgent|broken|leak|flood|fire|no heat|no ac|no hot water|burst|clogged|stuck|won't start|not working|help)\b`)
	problemRe        = regexp.MustCompile(`(?i)\b(problem|issue|trouble|struggling|frustrated|annoyed|worried|concern|complaint|pain|headache|nightmare)\b`)
	solutionRe       = regexp.MustCompile(`(?i)\b(how to|solution|fix|repair|service|maintain|prevent|upgrade|improve|install|replace|tips|guide|advice)\b`)
	productRe        = regexp.MustCompile(`(?i)\b(discount|sale|offer|deal|special|promo|coupon|package|bundle|pricing|compare|vs|versus|review)\b`)
	urgencyRe        = regexp.MustCompile(`(?i)\b(limited time|today only|last chance|ends? (soon|today|friday|sunday)|hurry|while supplies|act now|don't miss|final|closing|deadline|expires?)\b`)
	launchRe         = regexp.MustCompile(`(?i)\b(new|launch|introducing|announcing|grand opening|just opened|now available|coming soon|reveal|debut)\b`)
	trustRe          = regexp.MustCompile(`(?i)\b(guarantee|warranty|certified|licensed|insured|proven|rated|award|years of experience|\d+ reviews?|testimonial|case study)\b`)
	transformationRe = regexp.MustCompile(`(?i)\b(before and after|transform|imagine|picture this|what if|tired of|dream|vision|upgrade your|refresh)\b`)
)

var (
	hvacEmergencyRe     = regexp.MustCompile(`(?i)\b(ac (broke|down|out)|no (heat|cooling|ac)|furnace (broke|out|not)|frozen pipe|thermostat)\b`)
	plumbingEmergencyRe = regexp.MustCompile(`(?i)\b(burst pipe|overflow|sewage|backed up|water damage|no hot water|toilet (broke|clog|overflow))\b`)
	electricEmergencyRe = regexp.MustCompile(`(?i)\b(power out|sparking|electrical fire|tripped breaker|no power|shock|outage)\b`)
	roofingEmergencyRe  = regexp.MustCompile(`(?i)\b(roof leak|storm damage|missing shingles|water coming in|emergency roof)\b`)
	autoEmergencyRe     = regexp.MustCompile(`(?i)\b(won't start|broke down|flat tire|overheating|check engine|tow)\b`)
)

var industryEmergency = map[string]*regexp.Regexp{
	"hvac":        hvacEmergencyRe,
	"plumber":     plumbingEmergencyRe,
	"plumbing":    plumbingEmergencyRe,
	"electrician": electricEmergencyRe,
	"electrical":  electricEmergencyRe,
	"roofing":     roofingEmergencyRe,
	"auto":        autoEmergencyRe,
	"auto repair": autoEmergencyRe,
}

// Signals are the keyword facts extracted once per input.
type Signals struct {
	Awareness         AwarenessLevel
	Urgency           Urgency
	Emergency         bool
	IndustryEmergency bool
	TrustProof        bool
	Transformation    bool
	Goal              string
	ContentType       string
}

func industryPattern(industry string) *regexp.Regexp {
	key := strings.ToLower(strings.TrimSpace(industry))
	if re, ok := industryEmergency[key]; ok {
		return re
	}
	first := strings.FieldsFunc(key, func(r rune) bool { return r == ' ' || r == '/' })
	if len(first) > 0 {
		return industryEmergency[first[0]]
	}
	return nil
}

type awarenessRule struct {
	match func(topic string, industry *regexp.Regexp) bool
	level AwarenessLevel
}

func keyword(re *regexp.Regexp) func(string, *regexp.Regexp) bool {
	return func(topic string, _ *regexp.Regexp) bool { return re.MatchString(topic) }
}

// Ordered; the first matching rule sets the awareness level.
var awarenessRules = []awarenessRule{
	{match: func(topic string, ind *regexp.Regexp) bool { return ind != nil && ind.MatchString(topic) }, level: MostAware},
	{match: keyword(urgencyRe), level: MostAware},
	{match: keyword(trustRe), level: ProductAware},
	{match: keyword(productRe), level: ProductAware},
	{match: keyword(solutionRe), level: SolutionAware},
	{match: keyword(emergencyRe), level: ProblemAware},
	{match: keyword(problemRe), level: ProblemAware},
	{match: keyword(launchRe), level: Unaware},
	{match: keyword(transformationRe), level: SolutionAware},
}

// DetectAwareness returns the funnel stage implied by topic and industry.
func DetectAwareness(topic, industry string) AwarenessLevel {
	ind := industryPattern(industry)
	for _, r := range awarenessRules {
		if r.match(topic, ind) {
			return r.level
		}
	}
	return Unaware
}

// DetectUrgency grades time pressure from topic keywords.
func DetectUrgency(topic string) Urgency {
	switch {
	case emergencyRe.MatchString(topic) || urgencyRe.MatchString(topic):
		return UrgencyHigh
	case productRe.MatchString(topic) || problemRe.MatchString(topic):
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// Extract computes the classifier signals for in.
func Extract(in Input) Signals {
	ind := industryPattern(in.Industry)
	urgency := in.Urgency
	if urgency == "" {
		urgency = DetectUrgency(in.Topic)
	}
	return Signals{
		Awareness:         DetectAwareness(in.Topic, in.Industry),
		Urgency:           urgency,
		Emergency:         emergencyRe.MatchString(in.Topic),
		IndustryEmergency: ind != nil && ind.MatchString(in.Topic),
		TrustProof:        trustRe.MatchString(in.Topic),
		Transformation:    transformationRe.MatchString(in.Topic),
		Goal:              strings.ToLower(strings.TrimSpace(in.CampaignGoal)),
		ContentType:       strings.ToLower(strings.TrimSpace(in.ContentType)),
	}
}
