// Package generator turns a composed prompt into model output.
package generator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// FallbackMessage is returned to the user whenever the model cannot answer.
const FallbackMessage = "Üzgünüm, şu anda yanıt üretemiyorum. Lütfen daha sonra tekrar deneyin."

// ErrEmptyResponse is returned by a Model that produced no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Model is a generative-language backend.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// FailureReason classifies why a model call did not produce text.
type FailureReason string

const (
	FailureNone     FailureReason = ""
	FailureTimeout  FailureReason = "timeout"
	FailureCanceled FailureReason = "canceled"
	FailureEmpty    FailureReason = "empty"
	FailureUpstream FailureReason = "upstream"
)

// Reply is the outcome of one generation: model text, or a failure with the
// fallback text the user should see.
type Reply struct {
	Text   string
	Reason FailureReason
	Err    error
}

// Generated reports whether Text came from the model.
func (r Reply) Generated() bool {
	return r.Reason == FailureNone
}

// Generator calls a Model and never lets its errors escape as anything but a Reply.
type Generator struct {
	model   Model
	timeout time.Duration
	logger  *zap.Logger
}

// New returns a Generator. A zero timeout leaves the call bounded only by ctx.
func New(model Model, timeout time.Duration, logger *zap.Logger) *Generator {
	return &Generator{
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Generate sends prompt to the model.
func (g *Generator) Generate(ctx context.Context, prompt string) Reply {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.model.Generate(ctx, prompt)
	if err == nil && text == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		reason := classify(err)
		g.logger.Error("Failed to generate response",
			zap.Error(err),
			zap.String("model", g.model.Name()),
			zap.String("reason", string(reason)),
			zap.Duration("elapsed", time.Since(start)))
		return Reply{Text: FallbackMessage, Reason: reason, Err: err}
	}

	g.logger.Debug("Generated response",
		zap.String("model", g.model.Name()),
		zap.Int("length", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return Reply{Text: text}
}

func classify(err error) FailureReason {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	case errors.Is(err, ErrEmptyResponse):
		return FailureEmpty
	default:
		return FailureUpstream
	}
}
