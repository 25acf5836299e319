package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanPortuguese = "A Secretaria Municipal de Educação publicou hoje o relatório anual de atividades. " +
	"O documento apresenta os resultados das escolas da rede pública e descreve as ações realizadas ao longo do ano. " +
	"Entre os principais pontos, destaca-se a ampliação do atendimento na educação infantil, que passou a incluir " +
	"mais de duas mil crianças. A equipe técnica também revisou os contratos de transporte escolar e propôs novas " +
	"regras para a prestação de contas. Segundo a secretária, o objetivo é garantir que todos os recursos sejam " +
	"aplicados com transparência e que a comunidade possa acompanhar cada etapa do processo."

const cleanEnglish = "The city council published its annual report on public schools today. The document describes " +
	"the main results of the year and explains how the budget was spent in each district. Among the most important " +
	"points, the report shows that more children were enrolled in early education programs and that the transport " +
	"contracts were reviewed by an independent team. According to the secretary, the goal is to make sure that all " +
	"resources are used with transparency and that every family can follow each step of the process."

// garbled mimics a PDF whose font glyphs were mis-mapped: three of every ten
// tokens look like words, the rest are symbol pairs.
var garbled = strings.TrimSpace(strings.Repeat("zx #% qw &* @! kj ~^ $+ =? |< ", 10))

func TestValidate_DegenerateInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t  "},
		{"short", "Relatório anual"},
		{"49 chars", strings.Repeat("a", 49)},
		{"49 chars padded", "   " + strings.Repeat("b", 49) + "\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.text, Options{})
			assert.False(t, got.IsValid)
			assert.Equal(t, 0.0, got.Confidence)
			assert.Equal(t, TryOCR, got.Recommendation)
			assert.Equal(t, []string{"text too short or empty"}, got.Issues)
		})
	}
}

func TestValidate_CleanPortuguese(t *testing.T) {
	got := Validate(cleanPortuguese, Options{})

	assert.True(t, got.IsValid)
	assert.Equal(t, 1.0, got.Confidence)
	assert.Equal(t, UseText, got.Recommendation)
	assert.Empty(t, got.Issues)

	assert.Greater(t, got.Metrics.ValidWordRatio, 0.8)
	assert.Greater(t, got.Metrics.CommonWordHits, 20)
	assert.Greater(t, got.Metrics.AlphanumericRatio, 0.95)
	assert.InDelta(t, 4.1, got.Metrics.EntropyScore, 0.3)
	assert.Zero(t, got.Metrics.SuspiciousPatterns)
	assert.NotEmpty(t, got.TextPreview)
}

func TestValidate_CleanEnglish(t *testing.T) {
	got := Validate(cleanEnglish, Options{ExpectedLanguage: LanguageEnglish})

	assert.True(t, got.IsValid)
	assert.Equal(t, UseText, got.Recommendation)
	assert.Empty(t, got.Issues)
}

func TestValidate_Deterministic(t *testing.T) {
	inputs := []string{cleanPortuguese, cleanEnglish, garbled, strings.Repeat("ab ", 30)}
	for _, in := range inputs {
		first := Validate(in, Options{})
		second := Validate(in, Options{})
		assert.Equal(t, first, second)
	}
}

func TestValidate_GarbledText(t *testing.T) {
	got := Validate(garbled, Options{})

	assert.InDelta(t, 0.3, got.Metrics.ValidWordRatio, 1e-9)
	assert.InDelta(t, 0.3, got.Metrics.AlphanumericRatio, 1e-9)
	assert.Equal(t, 2.0, got.Metrics.AvgWordLength)
	assert.Zero(t, got.Metrics.CommonWordHits)

	assert.False(t, got.IsValid)
	assert.Equal(t, 0.25, got.Confidence)
	assert.Equal(t, TryOCR, got.Recommendation)
	require.Len(t, got.Issues, 4)
	assert.Contains(t, got.Issues[0], "recognizable words")
}

func TestValidate_IssueCountGatesValidity(t *testing.T) {
	// Three mild issues: no common words, short words, low entropy.
	text := strings.TrimSpace(strings.Repeat("ab ", 30))

	got := Validate(text, Options{MinConfidence: 0.5})

	assert.Equal(t, 0.55, got.Confidence)
	assert.Len(t, got.Issues, 3)
	assert.Equal(t, AskUser, got.Recommendation)
	assert.False(t, got.IsValid, "more than two issues must fail even above min confidence")
}

func TestValidate_TwoIssuesStillValid(t *testing.T) {
	// No common words and short words, nothing else.
	text := strings.TrimSpace(strings.Repeat("ab cd ef gh ij kl ", 10))
	got := Validate(text, Options{})

	require.Len(t, got.Issues, 2)
	assert.Equal(t, 0.70, got.Confidence)
	assert.True(t, got.IsValid)
	assert.Equal(t, AskUser, got.Recommendation)
}

func TestValidate_MonotonicInSuspiciousPatterns(t *testing.T) {
	prev := Validate(cleanPortuguese, Options{}).Confidence
	text := cleanPortuguese
	for i := 1; i <= 12; i++ {
		text += " \uFFFD "
		got := Validate(text, Options{}).Confidence
		assert.LessOrEqual(t, got, prev, "confidence increased after %d injections", i)
		prev = got
	}
	assert.Less(t, prev, 1.0)
}

func TestCountSuspicious(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"clean", "um texto comum sem nada estranho", 0},
		{"control chars", "abc\x01\x02\x03def", 1},
		{"replacement chars", "abc \uFFFD\uFFFD def", 1},
		{"very long word", "abcdefghijklmnopqrstuvwxyzabc", 1},
		{"non latin run", "texto Превосходительство texto", 1},
		{"punctuation run", "fim !!??##$$%% fim", 1},
		{"digit run", "protocolo 123456789012345678901234", 1},
		{"repeated char", "zzzzzzzzzzzz", 1},
		{"repeated spaces ignored", "a" + strings.Repeat(" ", 20) + "b", 0},
		{"two control runs", "\x01a\x02", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countSuspicious(tt.text))
		})
	}
}

func TestEntropy(t *testing.T) {
	assert.Equal(t, 0.0, entropy(""))
	assert.Equal(t, 0.0, entropy("aaaa"))
	assert.InDelta(t, 1.0, entropy("abab"), 1e-9)
	assert.InDelta(t, 1.0, entropy("AbaB"), 1e-9, "entropy is case-insensitive")

	long := strings.Repeat("ab", entropyWindow/2) + strings.Repeat("c", 5000)
	assert.InDelta(t, 1.0, entropy(long), 1e-9, "only the first window counts")
}

func TestPreview(t *testing.T) {
	text := strings.Repeat("x", 100) + strings.Repeat("y", 300)
	got := preview(text)

	assert.Len(t, []rune(got), previewLength)
	assert.True(t, strings.HasPrefix(got, "yyyy"))
}

func TestPreview_CollapsesWhitespace(t *testing.T) {
	text := strings.Repeat("a\n\n  b ", 40)
	assert.NotContains(t, preview(text), "\n")
}
