package sentence

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gtonic/resumebot/pkg/segmenter"
)

var _ segmenter.Provider = &Segmenter{}

// Segmenter groups sentences into overlapping chunks. Line breaks count as
// sentence ends because resumes are mostly bullet lists.
type Segmenter struct {
	sentences int
	overlap   int
	size      int

	splitter *regexp.Regexp
}

type Option func(*Segmenter)

func WithSentences(n int) Option {
	return func(s *Segmenter) {
		s.sentences = n
	}
}

func WithOverlap(n int) Option {
	return func(s *Segmenter) {
		s.overlap = n
	}
}

// WithSize caps a chunk at n characters. A single longer sentence is split.
func WithSize(n int) Option {
	return func(s *Segmenter) {
		s.size = n
	}
}

func New(options ...Option) *Segmenter {
	s := &Segmenter{
		sentences: 5,
		overlap:   1,
		size:      1024,

		splitter: regexp.MustCompile(`[^.!?\n]+(?:[.!?]+|\n|$)`),
	}

	for _, option := range options {
		option(s)
	}

	if s.sentences <= 0 {
		s.sentences = 5
	}

	if s.overlap < 0 || s.overlap >= s.sentences {
		s.overlap = 0
	}

	return s
}

func (s *Segmenter) Segment(ctx context.Context, text string) ([]segmenter.Segment, error) {
	var sentences []string

	for _, m := range s.splitter.FindAllString(text, -1) {
		m = strings.Join(strings.Fields(m), " ")

		if m == "" {
			continue
		}

		sentences = append(sentences, s.split(m)...)
	}

	var result []segmenter.Segment

	for i := 0; i < len(sentences); {
		end := i
		length := 0

		for end < len(sentences) && end-i < s.sentences {
			if s.size > 0 && end > i && length+1+len(sentences[end]) > s.size {
				break
			}

			length += len(sentences[end]) + 1
			end++
		}

		result = append(result, segmenter.Segment{
			Index: len(result),
			Text:  strings.Join(sentences[i:end], " "),
		})

		if end == len(sentences) {
			break
		}

		next := end - s.overlap

		if next <= i {
			next = i + 1
		}

		i = next
	}

	return result, nil
}

func (s *Segmenter) split(sentence string) []string {
	if s.size <= 0 || len(sentence) <= s.size {
		return []string{sentence}
	}

	var parts []string

	for len(sentence) > s.size {
		cut := strings.LastIndex(sentence[:s.size], " ")

		if cut <= 0 {
			cut = s.size

			for cut > 0 && !utf8.RuneStart(sentence[cut]) {
				cut--
			}
		}

		parts = append(parts, strings.TrimSpace(sentence[:cut]))
		sentence = strings.TrimSpace(sentence[cut:])
	}

	if sentence != "" {
		parts = append(parts, sentence)
	}

	return parts
}
