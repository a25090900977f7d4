package scheduler

import "github.com/solstream/swapd/internal/core/ports"

// Verdict is the retry classification of a failed job delivery.
type Verdict int

const (
	// VerdictTransient means the job must be redelivered with backoff.
	VerdictTransient Verdict = iota
	// VerdictFatal means the job must be discarded, the order already
	// reached its terminal failure.
	VerdictFatal
	// VerdictExhausted means the transient failure survived all retries and
	// the order must be finalized as failed.
	VerdictExhausted
)

func (v Verdict) String() string {
	switch v {
	case VerdictTransient:
		return "transient"
	case VerdictFatal:
		return "fatal"
	default:
		return "exhausted"
	}
}

// Classifier decides, given a handler result and the attempts made so far,
// whether a failure is retried or terminal.
type Classifier struct {
	maxAttempts int
}

func NewClassifier(maxAttempts int) Classifier {
	return Classifier{maxAttempts: maxAttempts}
}

// Classify returns the verdict for a failed delivery. A fatal result is
// never retried, regardless of the attempts remaining.
func (c Classifier) Classify(res ports.HandleResult, attempts int) Verdict {
	if res == ports.HandleFatal {
		return VerdictFatal
	}
	if attempts >= c.maxAttempts {
		return VerdictExhausted
	}
	return VerdictTransient
}

// MaxAttempts returns the configured attempt budget.
func (c Classifier) MaxAttempts() int {
	return c.maxAttempts
}
