// Package subprocess implements the llm.Provider boundary over an external
// CLI binary that emits one JSON message per stdout line.
package subprocess

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/llm"
	"github.com/BaSui01/queryflow/types"
)

// Config describes how to spawn the external binary.
type Config struct {
	// Command is the binary name or path.
	Command string
	// Args are fixed arguments placed before the option-derived flags.
	Args []string
	// Dir is the working directory; empty means inherit.
	Dir string
	// Timeout bounds one invocation when QueryOptions.Timeout is unset.
	Timeout time.Duration
}

// Provider spawns one subprocess per Stream call. The prompt is written to
// stdin; each stdout line is decoded as a types.Message. Spawn failures
// surface the raw exec error so the pipeline can classify a missing binary.
type Provider struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a subprocess-backed provider.
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "subprocess_provider"), zap.String("command", cfg.Command)),
	}
}

// Compile-time interface check.
var _ llm.Provider = (*Provider)(nil)

// Name implements llm.Provider.
func (p *Provider) Name() string { return "subprocess" }

func (p *Provider) buildArgs(opts *types.QueryOptions) []string {
	args := append([]string(nil), p.cfg.Args...)
	if opts == nil {
		return args
	}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.SystemPrompt != "" {
		args = append(args, "--system-prompt", opts.SystemPrompt)
	}
	if opts.Temperature != 0 {
		args = append(args, "--temperature", strconv.FormatFloat(opts.Temperature, 'f', -1, 64))
	}
	if opts.MaxTokens > 0 {
		args = append(args, "--max-tokens", strconv.Itoa(opts.MaxTokens))
	}
	return args
}

// Stream implements llm.Provider.
func (p *Provider) Stream(ctx context.Context, prompt string, opts *types.QueryOptions) (<-chan llm.StreamChunk, error) {
	timeout := p.cfg.Timeout
	if opts != nil && opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	cmd := exec.CommandContext(ctx, p.cfg.Command, p.buildArgs(opts)...)
	cmd.Dir = p.cfg.Dir
	cmd.Stdin = strings.NewReader(prompt)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		// Keep the raw exec error in the chain: the pipeline classifies
		// a missing or non-executable binary from it.
		return nil, fmt.Errorf("start %s: %w", p.cfg.Command, err)
	}

	p.logger.Debug("subprocess started", zap.Int("pid", cmd.Process.Pid))

	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		defer cancel()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var msg types.Message
			if err := json.Unmarshal(line, &msg); err != nil {
				cmd.Wait()
				emit(ctx, ch, llm.StreamChunk{Err: fmt.Errorf("decode output line: %w", err)})
				return
			}
			if !emit(ctx, ch, llm.StreamChunk{Message: msg}) {
				cmd.Wait()
				return
			}
		}
		scanErr := scanner.Err()

		if err := cmd.Wait(); err != nil {
			emit(ctx, ch, llm.StreamChunk{Err: waitError(ctx, err, &stderr)})
			return
		}
		if scanErr != nil {
			emit(ctx, ch, llm.StreamChunk{Err: fmt.Errorf("read output: %w", scanErr)})
		}
	}()
	return ch, nil
}

// waitError shapes a subprocess exit failure. The deadline error is
// preferred so a killed-by-timeout run classifies as a timeout, and any
// stderr tail is included so upstream quota or rate-limit messages stay
// matchable.
func waitError(ctx context.Context, err error, stderr *bytes.Buffer) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("subprocess timed out: %w", context.DeadlineExceeded)
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return fmt.Errorf("%s: %w", tail(msg, 512), err)
	}
	return err
}

// tail returns at most n trailing bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func emit(ctx context.Context, ch chan<- llm.StreamChunk, chunk llm.StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
