package image

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"brandstudio/internal/branding"
	"brandstudio/internal/domain"
	"brandstudio/internal/framework"
)

// DefaultNegativePrompt captures artefacts we never want in marketing images.
const DefaultNegativePrompt = "text, watermark, letters, words, logo, signage, low quality, blurry, distorted, collage, split panels"

const (
	noTextBlock      = "The image must contain no text: no words, letters, numbers, signs, labels or logos. All surfaces are blank and unmarked."
	singlePhotoBlock = "A single cohesive scene from one camera angle, not a collage, mood board or split panel."
	qualitySuffix    = "High resolution, detailed textures, cinematic composition, shallow depth of field."
)

// Style is a visual direction preset.
type Style struct {
	Name     string
	Keywords []string
	Prefix   string
}

// Styles are checked in order when the request names no style.
var Styles = []Style{
	{
		Name:     "promotional",
		Keywords: []string{"sale", "discount", "off", "special", "deal", "offer", "limited", "save", "price", "free", "promo", "coupon"},
		Prefix:   "Inviting promotional photograph with cinematic lighting, warm highlights and shallow depth of field. Single clear subject, premium focus on the product or service",
	},
	{
		Name:     "seasonal",
		Keywords: []string{"holiday", "christmas", "summer", "spring", "fall", "winter", "new year", "valentine", "easter", "thanksgiving", "halloween", "season"},
		Prefix:   "Tasteful seasonal photograph with subtle holiday elements and natural accents like plants and greenery. Muted, natural colour palette",
	},
	{
		Name:     "friendly",
		Keywords: []string{"thank", "welcome", "community", "team", "family", "customer", "appreciate", "love", "happy", "together"},
		Prefix:   "Candid lifestyle photograph with golden hour warmth and soft bokeh background. Genuine, approachable feel",
	},
	{
		Name:     "minimalist",
		Keywords: []string{"clean", "modern", "minimal", "sleek", "premium", "sophisticated", "elegant", "simple", "refined", "luxury"},
		Prefix:   "Minimalist high-end photograph with clean lines, generous negative space and soft neutral tones",
	},
	{
		Name:     "wellness",
		Keywords: []string{"wellness", "calm", "relax", "peace", "health", "comfort", "spa", "zen", "mindful", "healing", "yoga"},
		Prefix:   "Spa-like serene photograph with calming natural elements, soft diffused lighting and muted earth tones",
	},
	{
		Name:     "professional",
		Keywords: []string{"tips", "how to", "guide", "advice", "learn", "info", "update", "news", "service", "announcement"},
		Prefix:   "High-end editorial photograph with soft natural window light and clean minimal composition. Documentary-style realism",
	},
}

const defaultStyle = "professional"

// styleKeywordRes holds whole-word matchers for each entry of Styles.
var styleKeywordRes = func() [][]*regexp.Regexp {
	out := make([][]*regexp.Regexp, len(Styles))
	for i, s := range Styles {
		for _, kw := range s.Keywords {
			out[i] = append(out[i], regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
		}
	}
	return out
}()

// StyleFor returns the named style, or the best keyword match for topic.
func StyleFor(name, topic string) Style {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range Styles {
		if s.Name == name {
			return s
		}
	}
	best, bestHits := -1, 0
	for i, res := range styleKeywordRes {
		hits := 0
		for _, re := range res {
			if re.MatchString(topic) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}
	if best >= 0 {
		return Styles[best]
	}
	for _, s := range Styles {
		if s.Name == defaultStyle {
			return s
		}
	}
	return Styles[0]
}

// SizeForContentType maps a content type to its output size.
func SizeForContentType(contentType string) (int, int) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "blog-post", "gmb-post", "email":
		return 1792, 1024
	default:
		return 1024, 1024
	}
}

var (
	percentRe  = regexp.MustCompile(`\d+[.,]?\d*\s*%`)
	currencyRe = regexp.MustCompile(`[$€£¥]\s*\d+[.,]?\d*|\d+[.,]?\d*\s*[$€£¥]`)
	promoRe    = regexp.MustCompile(`(?i)\b(only today|today only|limited time|act now|hurry|don'?t miss|buy one get one|bogo|free shipping|save up to|save|off|discount|special offer|deal of|coupon|promo code|flash sale|clearance|while supplies last|order now|book now|call now|get yours|shop now)\b`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// SanitizeTopic strips prices and promo phrases a model would try to render as text.
func SanitizeTopic(topic string) string {
	cleaned := percentRe.ReplaceAllString(topic, "")
	cleaned = currencyRe.ReplaceAllString(cleaned, "")
	cleaned = promoRe.ReplaceAllString(cleaned, "")
	cleaned = spaceRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.Trim(cleaned, " ,.-!:")
	if len(cleaned) < 3 {
		return "the business and its services"
	}
	return cleaned
}

// BuildPromptSpec turns a generation request into a raw prompt and size.
func BuildPromptSpec(req domain.GenerationRequest) PromptSpec {
	style := StyleFor(req.Style, req.Topic)
	width, height := SizeForContentType(req.ContentType)

	subject := SanitizeTopic(req.Topic)
	var lines []string
	lines = append(lines, style.Prefix+".")
	if industry := strings.TrimSpace(req.Industry); industry != "" {
		lines = append(lines, fmt.Sprintf("Scene for a %s business about: %s.", industry, subject))
	} else {
		lines = append(lines, fmt.Sprintf("Scene about: %s.", subject))
	}
	lines = append(lines, noTextBlock, singlePhotoBlock, qualitySuffix)

	return PromptSpec{
		Prompt:         strings.Join(lines, " "),
		NegativePrompt: DefaultNegativePrompt,
		Width:          width,
		Height:         height,
	}
}

// NewStyleHints combines the brand profile and framework pick into prompt hints.
func NewStyleHints(primary string, profile branding.Profile, rec framework.Recommendation) StyleHints {
	return StyleHints{
		PrimaryColor:    strings.TrimSpace(primary),
		ColorName:       branding.ColorName(primary),
		AccentName:      profile.AccentName,
		Mood:            profile.Mood,
		LightingStyle:   profile.LightingStyle,
		PromptModifiers: profile.PromptModifiers,
		MoodOverride:    rec.MoodOverride,
	}
}

// Enrich appends brand colour, mood and framework guidance to the raw prompt.
func Enrich(spec PromptSpec, hints StyleHints) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(spec.Prompt))
	if hints.PrimaryColor != "" {
		name := hints.ColorName
		if name == "" {
			name = branding.ColorName(hints.PrimaryColor)
		}
		fmt.Fprintf(&b, " Color palette influenced by %s (%s).", name, hints.PrimaryColor)
	}
	if hints.AccentName != "" {
		fmt.Fprintf(&b, " Subtle %s accents.", hints.AccentName)
	}
	if hints.Mood != "" {
		fmt.Fprintf(&b, " Mood: %s.", hints.Mood)
	}
	if hints.MoodOverride != "" && hints.MoodOverride != hints.Mood {
		fmt.Fprintf(&b, " Emotional tone: %s.", hints.MoodOverride)
	}
	if hints.LightingStyle != "" {
		fmt.Fprintf(&b, " Lighting: %s.", hints.LightingStyle)
	}
	if hints.PromptModifiers != "" {
		fmt.Fprintf(&b, " Atmosphere: %s.", hints.PromptModifiers)
	}
	return b.String()
}

// ContentHash keys an enriched prompt and size for external artifact caches.
func ContentHash(enrichedPrompt string, width, height int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%dx%d", enrichedPrompt, width, height)))
	return hex.EncodeToString(sum[:])
}
