// Package usage provides deterministic token estimation.
//
// The estimator is a character-count heuristic, not a tokenizer: it
// exists so countTokens responses and synthesized usage metadata are
// stable, cheap, and monotonic in input size. Callers that need exact
// counts must rely on the usage the backend itself reports.
package usage

// charsPerToken is the approximation ratio for prose and JSON alike.
const charsPerToken = 4

// binaryTokenCost is the flat charge for one inline binary part.
const binaryTokenCost = 258

// perTurnOverhead accounts for the framing each conversation turn adds.
const perTurnOverhead = 3

// Estimator computes approximate token counts. The zero value is ready
// to use.
type Estimator struct{}

// Text estimates tokens for a string: ceil(len/4), never zero for
// non-empty input.
func (Estimator) Text(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + charsPerToken - 1) / charsPerToken
}

// Chars estimates tokens for an accumulated character count, used by
// the streaming path which tracks length instead of content.
func (Estimator) Chars(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// Binary estimates tokens for an inline binary part.
func (Estimator) Binary() int {
	return binaryTokenCost
}

// TurnOverhead is the per-turn framing estimate.
func (Estimator) TurnOverhead() int {
	return perTurnOverhead
}
