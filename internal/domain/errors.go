package domain

import "errors"

// Pipeline error taxonomy. Only ErrModelUnavailable and ErrGenerationFailed
// abort a generation; the rest are reported as warnings.
var (
	ErrClassificationDefaulted = errors.New("classification defaulted")
	ErrModelUnavailable        = errors.New("no generation backend configured")
	ErrGenerationFailed        = errors.New("image generation failed")
	ErrBackgroundRemovalFailed = errors.New("background removal failed")
	ErrCompositionFailed       = errors.New("composition failed")
	ErrOverlayFailed           = errors.New("text overlay failed")
	ErrRatingUnavailable       = errors.New("rating unavailable")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorCode maps err to a stable machine readable code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrClassificationDefaulted):
		return "classification_defaulted"
	case errors.Is(err, ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, ErrGenerationFailed):
		return "generation_failed"
	case errors.Is(err, ErrBackgroundRemovalFailed):
		return "background_removal_failed"
	case errors.Is(err, ErrCompositionFailed):
		return "composition_failed"
	case errors.Is(err, ErrOverlayFailed):
		return "overlay_failed"
	case errors.Is(err, ErrRatingUnavailable):
		return "rating_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal_error"
	}
}

// PublicMessage returns a user safe message for err. Provider text is never included.
func PublicMessage(err error) string {
	switch ErrorCode(err) {
	case "classification_defaulted":
		return "no specific marketing signals detected; using a general framework"
	case "model_unavailable":
		return "image generation is not configured"
	case "generation_failed":
		return "image generation failed, please try again"
	case "background_removal_failed":
		return "product background could not be removed"
	case "composition_failed":
		return "product could not be composited cleanly"
	case "overlay_failed":
		return "text overlay could not be rendered"
	case "rating_unavailable":
		return "quality rating is unavailable"
	case "not_found":
		return "resource not found"
	case "invalid_input":
		return "invalid request"
	default:
		return "internal error"
	}
}
