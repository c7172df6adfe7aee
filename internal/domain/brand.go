package domain

// BrandProfile is the read-only brand identity of a business.
type BrandProfile struct {
	BusinessID     string
	BusinessName   string
	Tagline        string
	PrimaryColor   string
	SecondaryColor string
	AccentColor    string
}

// GenerationRequest describes the marketing image a caller wants.
type GenerationRequest struct {
	Topic        string
	Industry     string
	ContentType  string
	CampaignGoal string
	Style        string
	// Urgency is optional: low, medium or high.
	Urgency string
}
