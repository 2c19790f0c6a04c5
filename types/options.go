package types

import "time"

// QueryOptions configures a single query. Only Model, Temperature and
// SystemPrompt (together with the prompt text) participate in the cache
// fingerprint; the remaining fields affect execution but not cache identity.
type QueryOptions struct {
	Model        string        `json:"model,omitempty"`
	Temperature  float64       `json:"temperature,omitempty"`
	MaxTokens    int           `json:"max_tokens,omitempty"`
	SystemPrompt string        `json:"system_prompt,omitempty"`
	Cache        bool          `json:"cache,omitempty"`
	RetryCount   int           `json:"retry_count,omitempty"`
	RetryDelay   time.Duration `json:"retry_delay,omitempty"`
	NoRetry      bool          `json:"no_retry,omitempty"`
	Timeout      time.Duration `json:"timeout,omitempty"`

	// SessionID tags logs for correlation. Excluded from the fingerprint.
	SessionID string `json:"session_id,omitempty"`
	// Verbose enables debug logging for this query. Excluded from the
	// fingerprint.
	Verbose bool `json:"verbose,omitempty"`
}

// DefaultQueryOptions returns options with caching enabled and the default
// retry budget.
func DefaultQueryOptions() *QueryOptions {
	return &QueryOptions{
		Cache:      true,
		RetryCount: 3,
		RetryDelay: time.Second,
		Timeout:    2 * time.Minute,
	}
}

// InstallResult is the structured outcome of a remediation/installer hook.
type InstallResult struct {
	Installed bool   `json:"installed"`
	Message   string `json:"message"`
}
