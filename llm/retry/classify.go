package retry

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"strings"

	"github.com/BaSui01/queryflow/types"
)

// Kind is the failure classification applied to a raw provider error to
// decide retry eligibility and the surfaced error code.
type Kind string

const (
	// KindTimeout covers deadline expiry and anything describing itself
	// as a timeout. Retryable.
	KindTimeout Kind = "timeout"
	// KindQuota covers upstream quota and rate-limit failures. Retryable,
	// but surfaced distinctly so callers can apply a longer cooldown.
	KindQuota Kind = "quota"
	// KindMissingExecutable means the external tool/binary is absent or
	// not runnable. Never retried through the backoff loop; handled by a
	// one-time remediation hook instead.
	KindMissingExecutable Kind = "missing_executable"
	// KindGeneric is everything else. Retryable by default.
	KindGeneric Kind = "generic"
)

// quotaIndicators and timeout/missing substrings are matched
// case-insensitively against the raw error text.
var (
	quotaIndicators = []string{"quota", "rate limit", "429", "exhausted"}

	missingIndicators = []string{
		"not found",
		"no such file or directory",
		"command not found",
		"permission denied",
	}
)

// Classification is the outcome of classifying one raw error.
type Classification struct {
	Kind      Kind
	Retryable bool
}

// Code maps the classification to the error code surfaced once the retry
// budget is spent.
func (c Classification) Code() types.ErrorCode {
	switch c.Kind {
	case KindTimeout:
		return types.ErrTimeout
	case KindQuota:
		return types.ErrQuotaExceeded
	case KindMissingExecutable:
		return types.ErrInstallationFailed
	default:
		return types.ErrProviderFailure
	}
}

// Classify maps a raw error from the provider call to a failure kind.
// Typed sentinels are checked first, then case-insensitive substrings.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Kind: KindGeneric, Retryable: false}
	}

	if errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) {
		return Classification{Kind: KindMissingExecutable, Retryable: false}
	}

	if errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err) {
		return Classification{Kind: KindTimeout, Retryable: true}
	}

	text := strings.ToLower(err.Error())

	if strings.Contains(text, "timeout") {
		return Classification{Kind: KindTimeout, Retryable: true}
	}
	for _, ind := range quotaIndicators {
		if strings.Contains(text, ind) {
			return Classification{Kind: KindQuota, Retryable: true}
		}
	}
	for _, ind := range missingIndicators {
		if strings.Contains(text, ind) {
			return Classification{Kind: KindMissingExecutable, Retryable: false}
		}
	}

	return Classification{Kind: KindGeneric, Retryable: true}
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
