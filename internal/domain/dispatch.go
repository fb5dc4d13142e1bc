package domain

// Outcome classifies the result of one platform dispatch.
type Outcome string

const (
	// OutcomeSuccess means the platform accepted the post (or reported
	// it as already posted, which counts the same).
	OutcomeSuccess Outcome = "success"
	// OutcomeFailed means every attempt was exhausted without success.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means the platform was not attempted (disabled,
	// unvalidated, or missing required configuration).
	OutcomeSkipped Outcome = "skipped"
)

// DispatchResult is the per-platform result of dispatching one item.
// Transient; persisted only through the log store.
type DispatchResult struct {
	PlatformID string  `json:"platform_id"`
	Outcome    Outcome `json:"outcome"`
	PostID     string  `json:"post_id,omitempty"`
	PostURL    string  `json:"post_url,omitempty"`
	Err        string  `json:"error,omitempty"`
	Attempts   int     `json:"attempts"`
}

// AnySuccess reports whether at least one result succeeded.
func AnySuccess(results []DispatchResult) bool {
	for i := range results {
		if results[i].Outcome == OutcomeSuccess {
			return true
		}
	}
	return false
}

// SucceededPlatforms returns the platform ids of all successful results.
func SucceededPlatforms(results []DispatchResult) []string {
	ids := make([]string, 0, len(results))
	for i := range results {
		if results[i].Outcome == OutcomeSuccess {
			ids = append(ids, results[i].PlatformID)
		}
	}
	return ids
}
