// Package quality classifies extracted document text as usable prose or
// garbage produced by broken PDF text layers.
//
// Validate is a pure function: identical input always yields an identical
// Result.
package quality

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	LanguagePortuguese = "pt-BR"
	LanguageEnglish    = "en"

	DefaultMinConfidence = 0.6

	minTextLength  = 50
	entropyWindow  = 10_000
	previewLength  = 200
	repeatRunLimit = 10
)

// Recommendation tells the caller what to do with the extracted text.
type Recommendation string

const (
	UseText Recommendation = "use_text"
	TryOCR  Recommendation = "try_ocr"
	AskUser Recommendation = "ask_user"
)

// Options controls validation. The zero value validates Portuguese text
// with DefaultMinConfidence.
type Options struct {
	ExpectedLanguage string
	MinConfidence    float64
}

// Metrics are the raw measurements the confidence score is derived from.
type Metrics struct {
	ValidWordRatio     float64 `json:"validWordRatio"`
	CommonWordHits     int     `json:"commonWordHits"`
	AlphanumericRatio  float64 `json:"alphanumericRatio"`
	AvgWordLength      float64 `json:"avgWordLength"`
	EntropyScore       float64 `json:"entropyScore"`
	SuspiciousPatterns int     `json:"suspiciousPatterns"`
}

// Result is the verdict for one text.
type Result struct {
	IsValid        bool           `json:"isValid"`
	Confidence     float64        `json:"confidence"`
	Issues         []string       `json:"issues"`
	Recommendation Recommendation `json:"recommendation"`
	Metrics        Metrics        `json:"metrics"`
	TextPreview    string         `json:"textPreview"`
}

// Anti-patterns compiled once at package init. Runs of one repeated character
// are counted separately because RE2 has no backreferences.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]+`),
	regexp.MustCompile(`\x{FFFD}+`),
	regexp.MustCompile(`\p{L}{25,}`),
	regexp.MustCompile(`[^\p{Latin}\p{Common}\p{Inherited}]{8,}`),
	regexp.MustCompile(`[\p{P}\p{S}]{8,}`),
	regexp.MustCompile(`\d{20,}`),
}

var (
	reValidWord  = regexp.MustCompile(`\p{Latin}{2,}`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Penalties in hundredths of a confidence point, so bucket boundaries compare
// exactly.
const (
	penaltyValidWords   = 25
	penaltyCommonWords  = 15
	penaltyAlphanumeric = 20
	penaltyShortWords   = 15
	penaltyLongWords    = 20
	penaltyLowEntropy   = 15
	penaltyHighEntropy  = 25
	penaltySuspicious   = 20
)

// Validate scores text and recommends whether to use it, run OCR, or ask a human.
func Validate(text string, opts Options) Result {
	opts = opts.withDefaults()

	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minTextLength {
		return Result{
			IsValid:        false,
			Confidence:     0,
			Issues:         []string{"text too short or empty"},
			Recommendation: TryOCR,
			TextPreview:    trimmed,
		}
	}

	m, commonRatio := measure(trimmed, opts.ExpectedLanguage)

	score := 100
	issues := []string{}

	if m.ValidWordRatio < 0.55 {
		score -= penaltyValidWords
		issues = append(issues, fmt.Sprintf("few recognizable words (%.0f%% valid)", m.ValidWordRatio*100))
	}
	if commonRatio < 0.05 {
		score -= penaltyCommonWords
		issues = append(issues, fmt.Sprintf("few common %s words (%.1f%% of tokens)", opts.ExpectedLanguage, commonRatio*100))
	}
	if m.AlphanumericRatio < 0.60 {
		score -= penaltyAlphanumeric
		issues = append(issues, fmt.Sprintf("low alphanumeric ratio (%.0f%%)", m.AlphanumericRatio*100))
	}
	switch {
	case m.AvgWordLength < 2.5:
		score -= penaltyShortWords
		issues = append(issues, fmt.Sprintf("words too short on average (%.1f chars)", m.AvgWordLength))
	case m.AvgWordLength > 12:
		score -= penaltyLongWords
		issues = append(issues, fmt.Sprintf("words too long on average (%.1f chars)", m.AvgWordLength))
	}
	switch {
	case m.EntropyScore < 2.5:
		score -= penaltyLowEntropy
		issues = append(issues, fmt.Sprintf("character entropy too low (%.2f)", m.EntropyScore))
	case m.EntropyScore > 6.5:
		score -= penaltyHighEntropy
		issues = append(issues, fmt.Sprintf("character entropy too high (%.2f)", m.EntropyScore))
	}
	if m.SuspiciousPatterns > 3 {
		score -= penaltySuspicious
		issues = append(issues, fmt.Sprintf("suspicious character patterns (%d)", m.SuspiciousPatterns))
	}

	score = max(0, min(100, score))
	confidence := float64(score) / 100

	return Result{
		IsValid:        confidence >= opts.MinConfidence && len(issues) <= 2,
		Confidence:     confidence,
		Issues:         issues,
		Recommendation: recommend(score),
		Metrics:        m,
		TextPreview:    preview(trimmed),
	}
}

func (o Options) withDefaults() Options {
	if o.ExpectedLanguage != LanguageEnglish {
		o.ExpectedLanguage = LanguagePortuguese
	}
	if o.MinConfidence <= 0 {
		o.MinConfidence = DefaultMinConfidence
	}
	return o
}

func recommend(score int) Recommendation {
	switch {
	case score >= 75:
		return UseText
	case score <= 45:
		return TryOCR
	default:
		return AskUser
	}
}

// measure computes every metric over the trimmed text. The common-word ratio
// is returned separately because only the hit count is reported.
func measure(text, language string) (Metrics, float64) {
	var m Metrics

	tokens := strings.Fields(text)
	dict := commonWords[language]

	var validCount, validLen int
	for _, tok := range tokens {
		if reValidWord.MatchString(tok) {
			validCount++
			validLen += utf8.RuneCountInString(trimNonLetters(tok))
		}
		if dict[strings.ToLower(trimNonLetters(tok))] {
			m.CommonWordHits++
		}
	}

	var commonRatio float64
	if len(tokens) > 0 {
		m.ValidWordRatio = float64(validCount) / float64(len(tokens))
		commonRatio = float64(m.CommonWordHits) / float64(len(tokens))
	}
	if validCount > 0 {
		m.AvgWordLength = float64(validLen) / float64(validCount)
	}

	var nonSpace, alnum int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		nonSpace++
		if isLatinAlphanumeric(r) {
			alnum++
		}
	}
	if nonSpace > 0 {
		m.AlphanumericRatio = float64(alnum) / float64(nonSpace)
	}

	m.EntropyScore = entropy(text)
	m.SuspiciousPatterns = countSuspicious(text)

	return m, commonRatio
}

func isLatinAlphanumeric(r rune) bool {
	return ('0' <= r && r <= '9') || unicode.Is(unicode.Latin, r)
}

func trimNonLetters(s string) string {
	return strings.TrimFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
}

// entropy is the Shannon entropy in bits of the lower-cased first
// entropyWindow characters.
func entropy(text string) float64 {
	freq := make(map[rune]int)
	total := 0
	for _, r := range strings.ToLower(text) {
		if total == entropyWindow {
			break
		}
		freq[r]++
		total++
	}
	if total == 0 {
		return 0
	}

	// Sum in rune order so float accumulation is reproducible.
	runes := make([]rune, 0, len(freq))
	for r := range freq {
		runes = append(runes, r)
	}
	slices.Sort(runes)

	var h float64
	for _, r := range runes {
		p := float64(freq[r]) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

func countSuspicious(text string) int {
	n := 0
	for _, re := range suspiciousPatterns {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n + countRepeatedRuns(text, repeatRunLimit)
}

// countRepeatedRuns counts maximal runs of one non-space character that are
// at least limit long.
func countRepeatedRuns(text string, limit int) int {
	var (
		n    int
		prev rune = -1
		run  int
	)
	flush := func() {
		if run >= limit && !unicode.IsSpace(prev) {
			n++
		}
	}
	for _, r := range text {
		if r == prev {
			run++
			continue
		}
		flush()
		prev, run = r, 1
	}
	flush()
	return n
}

// preview samples about previewLength characters starting a quarter of the
// way in, skipping cover-page noise.
func preview(text string) string {
	runes := []rune(text)
	start := len(runes) / 4
	end := min(start+previewLength, len(runes))
	return strings.TrimSpace(reWhitespace.ReplaceAllString(string(runes[start:end]), " "))
}
