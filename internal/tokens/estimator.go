package tokens

import "unicode"

// Default budget constants used when the config leaves them unset. The
// padding accounts for the JSON framing each message adds to the request.
const (
	DefaultCharsPerToken  = 3.5
	DefaultJSONPadding    = 8
	DefaultMaxTokens      = 16385
	DefaultResponseTokens = 1000
)

// Estimator approximates the token cost of a text string from its
// character count. It is deterministic and never fails.
type Estimator struct {
	CharsPerToken float64
	JSONPadding   int
}

// NewEstimator builds an estimator, substituting defaults for zero values.
func NewEstimator(charsPerToken float64, jsonPadding int) Estimator {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	if jsonPadding <= 0 {
		jsonPadding = DefaultJSONPadding
	}
	return Estimator{CharsPerToken: charsPerToken, JSONPadding: jsonPadding}
}

// Estimate returns the approximate token cost of text: the count of
// non-whitespace characters divided by the chars-per-token ratio, truncated,
// plus the fixed padding. The empty string costs exactly the padding.
func (e Estimator) Estimate(text string) int {
	chars := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			chars++
		}
	}
	return int(float64(chars)/e.CharsPerToken) + e.JSONPadding
}
