// Package bedrock completes chats with models hosted on Amazon Bedrock, such
// as meta.llama3-70b-instruct-v1:0, through the Converse API.
package bedrock

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/gtonic/resumebot/pkg/provider"
)

var _ provider.Completer = &Completer{}

type Completer struct {
	url    string
	region string
	model  string

	credentials aws.CredentialsProvider

	client *bedrockruntime.Client
}

type Option func(*Completer)

func WithURL(url string) Option {
	return func(c *Completer) {
		c.url = url
	}
}

func WithRegion(region string) Option {
	return func(c *Completer) {
		c.region = region
	}
}

// WithCredentials replaces the default AWS credential chain.
func WithCredentials(credentials aws.CredentialsProvider) Option {
	return func(c *Completer) {
		c.credentials = credentials
	}
}

func NewCompleter(model string, options ...Option) (*Completer, error) {
	c := &Completer{
		model: model,
	}

	for _, option := range options {
		option(c)
	}

	if c.model == "" {
		return nil, errors.New("missing model")
	}

	var opts []func(*config.LoadOptions) error

	if c.region != "" {
		opts = append(opts, config.WithRegion(c.region))
	}

	if c.url != "" {
		opts = append(opts, config.WithBaseEndpoint(c.url))
	}

	if c.credentials != nil {
		opts = append(opts, config.WithCredentialsProvider(c.credentials))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), opts...)

	if err != nil {
		return nil, err
	}

	c.client = bedrockruntime.NewFromConfig(cfg)

	return c, nil
}

func (c *Completer) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) (*provider.Completion, error) {
	if options == nil {
		options = new(provider.CompleteOptions)
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.model),
	}

	for _, m := range messages {
		switch m.Role {
		case provider.MessageRoleSystem:
			input.System = append(input.System, &types.SystemContentBlockMemberText{Value: m.Content})

		case provider.MessageRoleAssistant:
			input.Messages = append(input.Messages, types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})

		default:
			input.Messages = append(input.Messages, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		}
	}

	if options.Temperature != nil || options.MaxTokens != nil {
		input.InferenceConfig = &types.InferenceConfiguration{}

		if options.Temperature != nil {
			input.InferenceConfig.Temperature = aws.Float32(*options.Temperature)
		}

		if options.MaxTokens != nil {
			input.InferenceConfig.MaxTokens = aws.Int32(int32(*options.MaxTokens))
		}
	}

	resp, err := c.client.Converse(ctx, input)

	if err != nil {
		return nil, err
	}

	output, ok := resp.Output.(*types.ConverseOutputMemberMessage)

	if !ok {
		return nil, errors.New("unexpected converse output")
	}

	var text strings.Builder

	for _, block := range output.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			text.WriteString(t.Value)
		}
	}

	result := &provider.Completion{
		Model: c.model,

		Message: &provider.Message{
			Role:    provider.MessageRoleAssistant,
			Content: text.String(),
		},
	}

	if resp.Usage != nil {
		result.Usage = &provider.Usage{
			InputTokens:  int(aws.ToInt32(resp.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(resp.Usage.OutputTokens)),
		}
	}

	return result, nil
}
