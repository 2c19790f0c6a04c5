package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/BaSui01/queryflow/types"
)

// fingerprintFields is the canonical serialization of the cache-relevant
// request subset. Field order is fixed by the struct definition and
// encoding/json emits no insignificant whitespace, so equal inputs always
// produce byte-identical serializations.
type fingerprintFields struct {
	Model        string  `json:"model"`
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float64 `json:"temperature"`
}

// Fingerprint derives the cache key for a request: the SHA-256 hex digest
// of {model, prompt, system_prompt, temperature}. All other options affect
// execution but not cache identity. Pure, no errors.
func Fingerprint(prompt string, opts *types.QueryOptions) string {
	f := fingerprintFields{Prompt: prompt}
	if opts != nil {
		f.Model = opts.Model
		f.SystemPrompt = opts.SystemPrompt
		f.Temperature = opts.Temperature
	}

	// Marshal cannot fail for a struct of strings and floats.
	data, _ := json.Marshal(f)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
