package branding

import "strings"

// Personality is the brand archetype derived from the primary colour.
type Personality string

const (
	Energetic    Personality = "energetic"
	Professional Personality = "professional"
	Friendly     Personality = "friendly"
	Luxury       Personality = "luxury"
)

// Profile describes how a brand should feel in generated imagery.
type Profile struct {
	Personality      Personality `json:"personality"`
	Mood             string      `json:"mood"`
	ColorDescription string      `json:"color_description"`
	LightingStyle    string      `json:"lighting_style"`
	PromptModifiers  string      `json:"prompt_modifiers"`
	PrimaryHSL       HSL         `json:"primary_hsl"`
	AccentName       string      `json:"accent_name,omitempty"`
}

var profiles = map[Personality]Profile{
	Energetic: {
		Personality:      Energetic,
		Mood:             "vibrant, dynamic, bold",
		ColorDescription: "warm saturated tones with high energy",
		LightingStyle:    "bright warm lighting with strong highlights",
		PromptModifiers:  "energetic vibrant atmosphere, bold confident feel",
	},
	Professional: {
		Personality:      Professional,
		Mood:             "calm, trustworthy, clean",
		ColorDescription: "cool muted blues and neutral greys",
		LightingStyle:    "clean diffused light with even illumination",
		PromptModifiers:  "professional calm setting, trustworthy clean aesthetic",
	},
	Friendly: {
		Personality:      Friendly,
		Mood:             "welcoming, approachable, optimistic",
		ColorDescription: "soft light tones and fresh warm hues",
		LightingStyle:    "soft golden hour glow with warm natural light",
		PromptModifiers:  "welcoming friendly atmosphere, approachable cheerful mood",
	},
	Luxury: {
		Personality:      Luxury,
		Mood:             "sophisticated, premium, exclusive",
		ColorDescription: "deep rich colours with dramatic intensity",
		LightingStyle:    "dramatic moody lighting with deep shadows and selective highlights",
		PromptModifiers:  "elegant premium aesthetic, refined sophisticated atmosphere",
	},
}

// Analyze classifies the primary colour into a brand personality. The
// secondary colour is optional and only contributes an accent name.
func Analyze(primary, secondary string) (Profile, error) {
	hsl, err := HexToHSL(primary)
	if err != nil {
		return Profile{}, err
	}
	p := profiles[Classify(hsl)]
	p.PrimaryHSL = hsl
	if strings.TrimSpace(secondary) != "" {
		if _, err := ParseHex(secondary); err == nil {
			p.AccentName = ColorName(secondary)
		}
	}
	return p, nil
}

// Classify applies the personality bands in order; the first match wins.
func Classify(c HSL) Personality {
	switch {
	case c.S >= 70 && c.L >= 35 && c.L <= 65:
		return Energetic
	case isCoolDesaturated(c):
		return Professional
	case c.L >= 75 || isWarmPastel(c):
		return Friendly
	default:
		return Luxury
	}
}

// Blue/navy hues that are muted or dark, plus neutral greys.
func isCoolDesaturated(c HSL) bool {
	if c.H >= 180 && c.H <= 260 && (c.S <= 40 || c.L <= 35) {
		return true
	}
	return c.S <= 10 && c.L >= 30 && c.L < 75
}

func isWarmPastel(c HSL) bool {
	if (c.H < 70 || c.H >= 330) && c.L >= 55 {
		return true
	}
	return c.H >= 60 && c.H < 150 && c.L >= 40
}
