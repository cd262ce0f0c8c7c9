package checks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vezlo/ai-validator/internal/llm"
	"github.com/vezlo/ai-validator/internal/model"
)

type fakeCompleter struct {
	out     string
	err     error
	prompts []string
	opts    []llm.CallOptions
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, opts llm.CallOptions) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	return f.out, f.err
}

// newPool returns a pool whose clients are all fc, recording requested models.
func newPool(fc *fakeCompleter, models *[]string) *llm.Pool {
	return llm.NewPool(map[llm.Provider]llm.Settings{
		llm.ProviderOpenAI: {APIKey: "sk-test"},
	}, func(p llm.Provider, s llm.Settings) (llm.Completer, error) {
		if models != nil {
			*models = append(*models, s.Model)
		}
		return fc, nil
	})
}

var sources = []model.Source{
	{Title: "Pricing", Content: "The Pro plan costs $20 per month and includes 10 seats."},
	{Content: strings.Repeat("b", 3200)},
}

func TestAccuracyChecker_Check(t *testing.T) {
	fc := &fakeCompleter{out: `Here you go: {"verified": false, "verification_rate": "0.5", "reason": "seat count unsupported"}`}
	var models []string
	a := NewAccuracyChecker(newPool(fc, &models), nil)

	got, err := a.Check(context.Background(), "Pro costs $20 and has 50 seats.", sources, llm.ProviderOpenAI, "gpt-4o")
	require.NoError(t, err)

	assert.Equal(t, model.AccuracyResult{Verified: false, VerificationRate: 0.5, Reason: "seat count unsupported"}, got)
	assert.Equal(t, []string{"gpt-4o"}, models)

	require.Len(t, fc.prompts, 1)
	assert.Equal(t, 0.1, fc.opts[0].Temperature)
	prompt := fc.prompts[0]
	assert.Contains(t, prompt, "[Source 1: Pricing]")
	assert.Contains(t, prompt, "[Source 2: Untitled]")
	assert.Contains(t, prompt, strings.Repeat("b", 3000))
	assert.NotContains(t, prompt, strings.Repeat("b", 3001))
	assert.Contains(t, prompt, "Response to check:\nPro costs $20 and has 50 seats.")
}

func TestAccuracyChecker_NoSources(t *testing.T) {
	fc := &fakeCompleter{}
	a := NewAccuracyChecker(newPool(fc, nil), nil)

	got, err := a.Check(context.Background(), "anything", nil, llm.ProviderOpenAI, "")
	require.NoError(t, err)
	assert.Equal(t, model.AccuracyResult{Verified: false, VerificationRate: 0, Reason: NoSourcesReason}, got)
	assert.Empty(t, fc.prompts)
}

func TestAccuracyChecker_ClampsRate(t *testing.T) {
	fc := &fakeCompleter{out: `{"verified": true, "verification_rate": 1.7}`}
	a := NewAccuracyChecker(newPool(fc, nil), nil)

	got, err := a.Check(context.Background(), "r", sources, llm.ProviderOpenAI, "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.VerificationRate)
	assert.True(t, got.Verified)
}

func TestAccuracyChecker_Errors(t *testing.T) {
	tests := []struct {
		name     string
		fc       *fakeCompleter
		provider llm.Provider
		wantIs   error
	}{
		{"no JSON", &fakeCompleter{out: "I cannot answer that."}, llm.ProviderOpenAI, ErrMalformedVerdict},
		{"invalid JSON", &fakeCompleter{out: `{"verified": tru}`}, llm.ProviderOpenAI, ErrMalformedVerdict},
		{"missing rate", &fakeCompleter{out: `{"verified": true}`}, llm.ProviderOpenAI, ErrMalformedVerdict},
		{"no credentials", &fakeCompleter{}, llm.ProviderClaude, llm.ErrNoCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAccuracyChecker(newPool(tt.fc, nil), nil)
			_, err := a.Check(context.Background(), "r", sources, tt.provider, "")
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}

	providerErr := errors.New("upstream 503")
	a := NewAccuracyChecker(newPool(&fakeCompleter{err: providerErr}, nil), nil)
	_, err := a.Check(context.Background(), "r", sources, llm.ProviderOpenAI, "")
	assert.ErrorIs(t, err, providerErr)
	assert.NotErrorIs(t, err, ErrMalformedVerdict)
}

func TestHallucinationDetector_Detect(t *testing.T) {
	fc := &fakeCompleter{out: "```json\n{\"detected\": true, \"risk\": 0.8, \"hallucinated_parts\": [\"50 seats\", \"\", 3]}\n```"}
	d := NewHallucinationDetector(newPool(fc, nil), nil)

	got, err := d.Detect(context.Background(), "Pro costs $20 and has 50 seats.", sources, llm.ProviderOpenAI, "")
	require.NoError(t, err)

	assert.True(t, got.Detected)
	assert.Equal(t, 0.8, got.Risk)
	assert.Equal(t, []string{"50 seats"}, got.HallucinatedParts)
	assert.Equal(t, 800, fc.opts[0].MaxTokens)
	assert.Contains(t, fc.prompts[0], "[Source 1: Pricing]")
}

func TestHallucinationDetector_NoSources(t *testing.T) {
	fc := &fakeCompleter{}
	d := NewHallucinationDetector(newPool(fc, nil), nil)

	got, err := d.Detect(context.Background(), "anything", nil, llm.ProviderOpenAI, "")
	require.NoError(t, err)
	assert.Equal(t, model.HallucinationResult{Detected: true, Risk: 1.0}, got)
	assert.Empty(t, fc.prompts)
}

func TestHallucinationDetector_MissingRisk(t *testing.T) {
	d := NewHallucinationDetector(newPool(&fakeCompleter{out: `{"detected": false}`}, nil), nil)

	_, err := d.Detect(context.Background(), "r", sources, llm.ProviderOpenAI, "")
	assert.ErrorIs(t, err, ErrMalformedVerdict)
}
