// Package graph answers questions over several people. Questions naming one
// person go straight to that person's index; everything else is asked of each
// person in turn and the answers are combined.
package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gtonic/resumebot/pkg/chain"
	"github.com/gtonic/resumebot/pkg/chain/retrieval"
	"github.com/gtonic/resumebot/pkg/index"
	"github.com/gtonic/resumebot/pkg/provider"
)

var _ chain.Provider = &Chain{}

const summarizePrompt = "You combine answers about several people into one answer. " +
	"Keep every fact, name the person each fact belongs to and do not add anything."

type Chain struct {
	completer provider.Completer

	names    []string
	entities map[string]chain.Provider

	concurrency int
	temperature *float32
}

type Option func(*Chain)

func New(options ...Option) (*Chain, error) {
	c := &Chain{
		entities: make(map[string]chain.Provider),

		concurrency: 4,
	}

	for _, option := range options {
		option(c)
	}

	if c.completer == nil {
		return nil, errors.New("missing completer provider")
	}

	if len(c.entities) == 0 {
		return nil, errors.New("no entities to query")
	}

	slices.Sort(c.names)

	return c, nil
}

func WithCompleter(completer provider.Completer) Option {
	return func(c *Chain) {
		c.completer = completer
	}
}

// WithEntity registers the engine answering questions about name.
func WithEntity(name string, p chain.Provider) Option {
	return func(c *Chain) {
		if _, ok := c.entities[name]; !ok {
			c.names = append(c.names, name)
		}

		c.entities[name] = p
	}
}

func WithConcurrency(n int) Option {
	return func(c *Chain) {
		c.concurrency = n
	}
}

func WithTemperature(temperature float32) Option {
	return func(c *Chain) {
		c.temperature = &temperature
	}
}

func (c *Chain) Query(ctx context.Context, question string) (string, error) {
	targets := c.route(question)

	if len(targets) == 1 {
		log.WithField("entity", targets[0]).Debug("routing question to single entity")
		return c.entities[targets[0]].Query(ctx, question)
	}

	if len(targets) == 0 {
		targets = c.names
	}

	answers := make([]string, len(targets))

	g, ctx := errgroup.WithContext(ctx)

	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}

	for i, name := range targets {
		g.Go(func() error {
			answer, err := c.entities[name].Query(ctx, decompose(name, question))

			if err != nil {
				return fmt.Errorf("querying %s: %w", name, err)
			}

			answers[i] = answer
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	if len(targets) == 1 {
		return answers[0], nil
	}

	return c.summarize(ctx, question, targets, answers)
}

func (c *Chain) summarize(ctx context.Context, question string, names, answers []string) (string, error) {
	var prompt strings.Builder

	for i, name := range names {
		fmt.Fprintf(&prompt, "Answer about %s:\n%s\n\n", name, answers[i])
	}

	fmt.Fprintf(&prompt, "Question: %s", question)

	completion, err := c.completer.Complete(ctx, []provider.Message{
		provider.SystemMessage(summarizePrompt),
		provider.UserMessage(prompt.String()),
	}, &provider.CompleteOptions{
		Temperature: c.temperature,
	})

	if err != nil {
		return "", err
	}

	if completion.Message == nil {
		return "", errors.New("empty completion")
	}

	return strings.TrimSpace(completion.Message.Content), nil
}

func decompose(name, question string) string {
	return fmt.Sprintf("Answer only for %s. %s", name, question)
}

// route returns the entities a question names. Full names win over first
// names, and a first name only counts when one entity carries it.
func (c *Chain) route(question string) []string {
	words := tokenize(question)
	text := " " + strings.Join(words, " ") + " "

	var matches []string

	for _, name := range c.names {
		full := strings.Join(tokenize(name), " ")

		if full != "" && strings.Contains(text, " "+full+" ") {
			matches = append(matches, name)
		}
	}

	if len(matches) > 0 {
		return matches
	}

	firsts := make(map[string][]string)

	for _, name := range c.names {
		tokens := tokenize(name)

		if len(tokens) == 0 {
			continue
		}

		firsts[tokens[0]] = append(firsts[tokens[0]], name)
	}

	for _, w := range words {
		owners := firsts[w]

		if len(owners) == 1 && !slices.Contains(matches, owners[0]) {
			matches = append(matches, owners[0])
		}
	}

	return matches
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var _ chain.Builder = &Builder{}

// Builder creates a graph chain with one retrieval chain per entity.
type Builder struct {
	Completer provider.Completer
	Embedder  provider.Embedder

	Messages []provider.Message

	Limit       int
	Concurrency int
	Temperature *float32
}

func (b *Builder) Build(corpus *index.Corpus) (chain.Provider, error) {
	if corpus.Len() == 0 {
		return nil, errors.New("empty corpus")
	}

	options := []Option{
		WithCompleter(b.Completer),
	}

	if b.Concurrency > 0 {
		options = append(options, WithConcurrency(b.Concurrency))
	}

	if b.Temperature != nil {
		options = append(options, WithTemperature(*b.Temperature))
	}

	for _, idx := range corpus.Indexes {
		r, err := index.NewRetriever(idx, b.Embedder)

		if err != nil {
			return nil, err
		}

		entityOptions := []retrieval.Option{
			retrieval.WithCompleter(b.Completer),
			retrieval.WithIndex(r),
			retrieval.WithMessages(slices.Concat(b.Messages, []provider.Message{provider.SystemMessage(idx.Summary)})...),
		}

		if b.Limit > 0 {
			entityOptions = append(entityOptions, retrieval.WithLimit(b.Limit))
		}

		if b.Temperature != nil {
			entityOptions = append(entityOptions, retrieval.WithTemperature(*b.Temperature))
		}

		entity, err := retrieval.New(entityOptions...)

		if err != nil {
			return nil, err
		}

		options = append(options, WithEntity(idx.Entity, entity))
	}

	return New(options...)
}
