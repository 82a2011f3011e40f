package generator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubModel struct {
	text    string
	err     error
	delay   time.Duration
	prompts []string
}

func (m *stubModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.text, m.err
}

func (m *stubModel) Name() string { return "stub" }

func TestComposePrompt(t *testing.T) {
	instruction := "Sen bir sağlık asistanısın."
	message := "Başım ağrıyor <b>{}</b>"

	got := ComposePrompt(instruction, message)
	assert.Equal(t, "Sen bir sağlık asistanısın.\n\nKullanıcı Sorusu: Başım ağrıyor <b>{}</b>\n\nLütfen bu bağlamda yanıt ver:", got)
	assert.Equal(t, got, ComposePrompt(instruction, message))
}

func TestGenerateSuccess(t *testing.T) {
	model := &stubModel{text: "Bol su için ve doktora başvurun."}
	g := New(model, 0, zap.NewNop())

	reply := g.Generate(context.Background(), "prompt")
	assert.True(t, reply.Generated())
	assert.Equal(t, "Bol su için ve doktora başvurun.", reply.Text)
	assert.NoError(t, reply.Err)
	assert.Equal(t, []string{"prompt"}, model.prompts)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name   string
		model  *stubModel
		reason FailureReason
	}{
		{"upstream error", &stubModel{err: errors.New("quota exceeded")}, FailureUpstream},
		{"empty text", &stubModel{}, FailureEmpty},
		{"wrapped empty", &stubModel{err: fmt.Errorf("decode: %w", ErrEmptyResponse)}, FailureEmpty},
		{"timeout", &stubModel{text: "late", delay: time.Second}, FailureTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.model, 20*time.Millisecond, zap.NewNop())

			reply := g.Generate(context.Background(), "prompt")
			assert.False(t, reply.Generated())
			assert.Equal(t, tt.reason, reply.Reason)
			assert.Equal(t, FallbackMessage, reply.Text)
			assert.Error(t, reply.Err)
		})
	}
}

func TestGenerateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := New(&stubModel{text: "late", delay: time.Second}, 0, zap.NewNop())
	reply := g.Generate(ctx, "prompt")
	assert.Equal(t, FailureCanceled, reply.Reason)
	assert.Equal(t, FallbackMessage, reply.Text)
}

func TestNewModel(t *testing.T) {
	_, err := NewModel(context.Background(), ModelConfig{Provider: "claude"})
	assert.Error(t, err)

	_, err = NewModel(context.Background(), ModelConfig{Provider: ProviderGemini})
	assert.Error(t, err, "gemini requires an API key")

	_, err = NewModel(context.Background(), ModelConfig{Provider: ProviderOpenAI})
	assert.Error(t, err, "openai requires an API key or base URL")

	m, err := NewModel(context.Background(), ModelConfig{Provider: ProviderOpenAI, APIKey: "sk-test", Model: "gpt-3.5-turbo"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIModel{}, m)
	assert.Equal(t, "openai:gpt-3.5-turbo", m.Name())
}
