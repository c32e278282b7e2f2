package detect

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"quakeview/internal/util"
)

// OpenAIClient asks a chat model to map unknown headers to canonical fields.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
}

func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{apiKey: apiKey, baseURL: baseURL, model: model, timeout: timeout}
}

type aiResponse struct {
	Mapping    map[string]string `json:"mapping"`
	Confidence float64           `json:"confidence"`
}

func (c *OpenAIClient) InferMapping(ctx context.Context, header []string, sample [][]string) (Mapping, error) {
	if c == nil || c.apiKey == "" {
		return nil, errors.New("openai disabled")
	}
	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.call(ctx2, buildMappingPrompt(header, sample))
	if err != nil {
		return nil, err
	}
	var out aiResponse
	if err := json.Unmarshal([]byte(resp), &out); err != nil {
		return nil, errors.New("failed to infer header mapping")
	}
	return toMapping(header, out), nil
}

func (c *OpenAIClient) call(ctx context.Context, prompt string) (string, error) {
	cfg := openai.DefaultConfig(c.apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	cli := openai.NewClientWithConfig(cfg)
	resp, err := cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You map CSV headers of earthquake catalogs to canonical field names and return ONLY strict JSON. No prose, no code fences."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:    0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildMappingPrompt(header []string, sample [][]string) string {
	max := 20
	if len(sample) < max {
		max = len(sample)
	}
	var b strings.Builder
	b.WriteString("Map each header to one of: id, time, latitude, longitude, depth, mag, magType, place, net, status, type, updated, gap, dmin, rms, horizontalError, depthError, magError, nst, magNst. ")
	b.WriteString("Omit headers that fit none. Contract: {mapping:{<header>:<field>}, confidence}.\n")
	b.WriteString("Header: ")
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\nRows:\n")
	for i := 0; i < max; i++ {
		b.WriteString(util.RedactPII(strings.Join(sample[i], ",")))
		b.WriteByte('\n')
	}
	return b.String()
}

// toMapping drops entries for headers that do not exist or targets that are
// not canonical field names.
func toMapping(header []string, a aiResponse) Mapping {
	known := map[string]bool{}
	for _, h := range header {
		known[h] = true
	}
	m := Mapping{}
	for h, f := range a.Mapping {
		if known[h] && isCanonical(f) {
			m[h] = f
		}
	}
	return m
}
