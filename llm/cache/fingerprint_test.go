package cache

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/BaSui01/queryflow/types"
)

func TestFingerprintDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prompt := rapid.String().Draw(t, "prompt")
		opts := &types.QueryOptions{
			Model:        rapid.StringMatching(`[a-z0-9.-]{0,20}`).Draw(t, "model"),
			Temperature:  rapid.Float64Range(0, 2).Draw(t, "temperature"),
			SystemPrompt: rapid.String().Draw(t, "system"),
		}

		a := Fingerprint(prompt, opts)
		b := Fingerprint(prompt, opts)
		if a != b {
			t.Fatalf("fingerprint not deterministic: %s != %s", a, b)
		}
		if len(a) != 64 {
			t.Fatalf("fingerprint length = %d, want 64 hex chars", len(a))
		}
	})
}

func TestFingerprintSensitiveFields(t *testing.T) {
	base := &types.QueryOptions{Model: "m1", Temperature: 0, SystemPrompt: "be brief"}
	ref := Fingerprint("2+2?", base)

	changed := []*types.QueryOptions{
		{Model: "m2", Temperature: 0, SystemPrompt: "be brief"},
		{Model: "m1", Temperature: 0.7, SystemPrompt: "be brief"},
		{Model: "m1", Temperature: 0, SystemPrompt: "be verbose"},
	}
	for i, opts := range changed {
		if Fingerprint("2+2?", opts) == ref {
			t.Errorf("variant %d should change the fingerprint", i)
		}
	}

	if Fingerprint("2+3?", base) == ref {
		t.Error("changing the prompt should change the fingerprint")
	}
}

func TestFingerprintIgnoresExecutionFields(t *testing.T) {
	a := &types.QueryOptions{Model: "m1", Cache: true, SessionID: "sess-1", RetryCount: 3, Verbose: true}
	b := &types.QueryOptions{Model: "m1", Cache: false, SessionID: "sess-2", RetryCount: 9, NoRetry: true}

	if Fingerprint("p", a) != Fingerprint("p", b) {
		t.Error("execution-only fields must not affect the fingerprint")
	}
}

func TestFingerprintNilOptions(t *testing.T) {
	if Fingerprint("p", nil) != Fingerprint("p", &types.QueryOptions{}) {
		t.Error("nil options should fingerprint like zero options")
	}
}
