package retry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"

	"github.com/BaSui01/queryflow/types"
)

func TestClassifyKinds(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
	}{
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout, true},
		{"timeout substring", errors.New("request Timeout after 30s"), KindTimeout, true},
		{"quota lowercase", errors.New("your quota has been exceeded"), KindQuota, true},
		{"rate limit", errors.New("Rate Limit reached for requests"), KindQuota, true},
		{"status 429", errors.New("unexpected status 429"), KindQuota, true},
		{"resource exhausted", errors.New("RESOURCE EXHAUSTED"), KindQuota, true},
		{"exec not found", fmt.Errorf("spawn provider: %w", exec.ErrNotFound), KindMissingExecutable, false},
		{"permission denied sentinel", fmt.Errorf("start: %w", os.ErrPermission), KindMissingExecutable, false},
		{"command not found text", errors.New("sh: claude: command not found"), KindMissingExecutable, false},
		{"no such file text", errors.New("fork/exec /usr/bin/claude: no such file or directory"), KindMissingExecutable, false},
		{"generic", errors.New("connection reset by peer"), KindGeneric, true},
		{"exit status", errors.New("exit status 1"), KindGeneric, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cls := Classify(tc.err)
			if cls.Kind != tc.kind {
				t.Errorf("kind = %q, want %q", cls.Kind, tc.kind)
			}
			if cls.Retryable != tc.retryable {
				t.Errorf("retryable = %v, want %v", cls.Retryable, tc.retryable)
			}
		})
	}
}

func TestClassificationCode(t *testing.T) {
	cases := []struct {
		kind Kind
		code types.ErrorCode
	}{
		{KindTimeout, types.ErrTimeout},
		{KindQuota, types.ErrQuotaExceeded},
		{KindMissingExecutable, types.ErrInstallationFailed},
		{KindGeneric, types.ErrProviderFailure},
	}
	for _, tc := range cases {
		if got := (Classification{Kind: tc.kind}).Code(); got != tc.code {
			t.Errorf("Code(%q) = %q, want %q", tc.kind, got, tc.code)
		}
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	for _, msg := range []string{"QUOTA exceeded", "Quota Exceeded", "TOKEN QUOTA for billing period"} {
		if cls := Classify(errors.New(msg)); cls.Kind != KindQuota {
			t.Errorf("Classify(%q).Kind = %q, want quota", msg, cls.Kind)
		}
	}
}
