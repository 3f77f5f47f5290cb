package models

// ImageOutcome is the result class of one main image lookup
type ImageOutcome string

const (
	ImageOutcomeUnset        ImageOutcome = ""                    // Zero value = unset/unknown
	ImageOutcomeFound        ImageOutcome = "found"               // One payload produced
	ImageOutcomePageNotFound ImageOutcome = "page_not_found"      // Article does not exist
	ImageOutcomeNoCandidates ImageOutcome = "no_candidates"       // Markup holds no usable img tag
	ImageOutcomeNoQualifying ImageOutcome = "no_qualifying_image" // All candidates rejected
	ImageOutcomeNetworkError ImageOutcome = "network_error"       // Transport failure aborted the search
	ImageOutcomeDecodeError  ImageOutcome = "decode_error"        // Selected image could not be decoded or re-encoded
)

// String implements fmt.Stringer for logging
func (o ImageOutcome) String() string {
	if o == "" {
		return "unset"
	}
	return string(o)
}

// IsValid returns true if the outcome is a known value
func (o ImageOutcome) IsValid() bool {
	switch o {
	case ImageOutcomeFound, ImageOutcomePageNotFound, ImageOutcomeNoCandidates,
		ImageOutcomeNoQualifying, ImageOutcomeNetworkError, ImageOutcomeDecodeError:
		return true
	}
	return false
}

// AnswerVerdict classifies a quiz answer
type AnswerVerdict string

const (
	VerdictCorrect AnswerVerdict = "correct"
	VerdictWrong   AnswerVerdict = "wrong"
)

// String implements fmt.Stringer for logging
func (v AnswerVerdict) String() string {
	if v == "" {
		return "unset"
	}
	return string(v)
}
