// Package chunker splits document text into overlapping, roughly
// token-sized chunks for embedding.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultTargetTokens  = 500
	DefaultOverlapTokens = 50
)

// Chunk is one slice of a document, in order.
type Chunk struct {
	Position   int
	Content    string
	TokenCount int
}

// Chunker packs paragraphs into chunks of about TargetTokens tokens. The
// tail of each chunk, about OverlapTokens long, is repeated at the head of
// the next one.
type Chunker struct {
	TargetTokens  int
	OverlapTokens int
}

func New(targetTokens, overlapTokens int) *Chunker {
	if targetTokens <= 0 {
		targetTokens = DefaultTargetTokens
	}
	if overlapTokens < 0 || overlapTokens >= targetTokens {
		overlapTokens = 0
	}
	return &Chunker{TargetTokens: targetTokens, OverlapTokens: overlapTokens}
}

// ApproxTokens estimates the token count of s as one token per four runes.
func ApproxTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

var (
	reParagraph = regexp.MustCompile(`\n\s*\n`)
	reSentence  = regexp.MustCompile(`[.!?…]["'»”)]*\s+`)
	reSpaces    = regexp.MustCompile(`[ \t\f\v\r]+`)
)

// Split chunks text. Empty or whitespace-only text yields no chunks.
func (c *Chunker) Split(text string) []Chunk {
	var units []string
	for _, p := range reParagraph.Split(text, -1) {
		p = strings.TrimSpace(reSpaces.ReplaceAllString(p, " "))
		if p == "" {
			continue
		}
		units = append(units, c.fit(p)...)
	}

	var chunks []Chunk
	emit := func(parts []string) string {
		content := strings.Join(parts, "\n\n")
		chunks = append(chunks, Chunk{
			Position:   len(chunks),
			Content:    content,
			TokenCount: ApproxTokens(content),
		})
		return content
	}

	var cur []string
	curTokens, fresh := 0, 0
	for _, u := range units {
		t := ApproxTokens(u)
		if fresh > 0 && curTokens+t > c.TargetTokens {
			overlap := c.tail(emit(cur))
			cur, curTokens, fresh = nil, 0, 0
			if ot := ApproxTokens(overlap); overlap != "" && ot+t <= c.TargetTokens {
				cur, curTokens = []string{overlap}, ot
			}
		}
		cur = append(cur, u)
		curTokens += t
		fresh++
	}
	if fresh > 0 {
		emit(cur)
	}
	return chunks
}

// fit breaks a paragraph larger than the target on sentence ends, then on
// whitespace, then on rune boundaries.
func (c *Chunker) fit(p string) []string {
	if ApproxTokens(p) <= c.TargetTokens {
		return []string{p}
	}

	var out []string
	var b strings.Builder
	for _, s := range splitKeep(p, reSentence) {
		if b.Len() > 0 && ApproxTokens(b.String()+s) > c.TargetTokens {
			out = append(out, strings.TrimSpace(b.String()))
			b.Reset()
		}
		if ApproxTokens(s) > c.TargetTokens {
			out = append(out, c.byWords(s)...)
			continue
		}
		b.WriteString(s)
	}
	if strings.TrimSpace(b.String()) != "" {
		out = append(out, strings.TrimSpace(b.String()))
	}
	return out
}

func (c *Chunker) byWords(s string) []string {
	maxRunes := c.TargetTokens * 4
	var out []string
	var b strings.Builder
	for _, w := range strings.Fields(s) {
		for utf8.RuneCountInString(w) > maxRunes {
			r := []rune(w)
			if b.Len() > 0 {
				out = append(out, b.String())
				b.Reset()
			}
			out = append(out, string(r[:maxRunes]))
			w = string(r[maxRunes:])
		}
		if b.Len() > 0 && utf8.RuneCountInString(b.String())+1+utf8.RuneCountInString(w) > maxRunes {
			out = append(out, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

// tail returns roughly the last OverlapTokens of content, starting at a word
// boundary.
func (c *Chunker) tail(content string) string {
	if c.OverlapTokens <= 0 {
		return ""
	}
	r := []rune(content)
	n := c.OverlapTokens * 4
	if n >= len(r) {
		return ""
	}
	t := string(r[len(r)-n:])
	if i := strings.IndexAny(t, " \n"); i >= 0 && i < len(t)-1 {
		t = t[i+1:]
	}
	return strings.TrimSpace(t)
}

func splitKeep(s string, re *regexp.Regexp) []string {
	var out []string
	last := 0
	for _, m := range re.FindAllStringIndex(s, -1) {
		out = append(out, s[last:m[1]])
		last = m[1]
	}
	if last < len(s) {
		out = append(out, s[last:])
	}
	return out
}
