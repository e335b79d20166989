// Package search answers questions with extractive answers from a Discovery
// Engine data store.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	discoveryengine "google.golang.org/api/discoveryengine/v1"
	"google.golang.org/api/option"

	"github.com/gtonic/resumebot/pkg/chain"
)

var _ chain.Provider = &Chain{}

// NoResults is returned as the answer when the data store has nothing.
const NoResults = "No results found."

type Chain struct {
	project   string
	location  string
	dataStore string
	config    string

	service *discoveryengine.Service
}

type Option func(*Chain)

func WithLocation(location string) Option {
	return func(c *Chain) {
		c.location = location
	}
}

func WithServingConfig(config string) Option {
	return func(c *Chain) {
		c.config = config
	}
}

func New(ctx context.Context, project, dataStore string, clientOptions []option.ClientOption, options ...Option) (*Chain, error) {
	c := &Chain{
		project:   project,
		dataStore: dataStore,

		location: "global",
		config:   "default_config",
	}

	for _, option := range options {
		option(c)
	}

	if c.project == "" {
		return nil, errors.New("missing project")
	}

	if c.dataStore == "" {
		return nil, errors.New("missing data store")
	}

	service, err := discoveryengine.NewService(ctx, clientOptions...)

	if err != nil {
		return nil, err
	}

	c.service = service

	return c, nil
}

func (c *Chain) servingConfig() string {
	return fmt.Sprintf("projects/%s/locations/%s/collections/default_collection/dataStores/%s/servingConfigs/%s", c.project, c.location, c.dataStore, c.config)
}

func (c *Chain) Query(ctx context.Context, question string) (string, error) {
	req := &discoveryengine.GoogleCloudDiscoveryengineV1SearchRequest{
		Query:    question,
		PageSize: 5,

		ContentSearchSpec: &discoveryengine.GoogleCloudDiscoveryengineV1SearchRequestContentSearchSpec{
			ExtractiveContentSpec: &discoveryengine.GoogleCloudDiscoveryengineV1SearchRequestContentSearchSpecExtractiveContentSpec{
				MaxExtractiveAnswerCount: 1,
			},
		},
	}

	resp, err := c.service.Projects.Locations.Collections.DataStores.ServingConfigs.Search(c.servingConfig(), req).Context(ctx).Do()

	if err != nil {
		return "", err
	}

	for _, r := range resp.Results {
		if r.Document == nil || len(r.Document.DerivedStructData) == 0 {
			continue
		}

		answer, err := extractiveAnswer(r.Document.DerivedStructData)

		if err != nil {
			return "", err
		}

		if answer != "" {
			return answer, nil
		}
	}

	return NoResults, nil
}

type derivedData struct {
	ExtractiveAnswers []struct {
		Content string `json:"content"`
	} `json:"extractive_answers"`
}

func extractiveAnswer(data []byte) (string, error) {
	var d derivedData

	if err := json.Unmarshal(data, &d); err != nil {
		return "", fmt.Errorf("decoding search result: %w", err)
	}

	for _, a := range d.ExtractiveAnswers {
		if content := strings.TrimSpace(a.Content); content != "" {
			return content, nil
		}
	}

	return "", nil
}
