package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// ResponseSchema is the strict JSON shape requested from the model.
func ResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"visa_sponsor": {Type: genai.TypeBoolean, Nullable: true},
			"experience":   {Type: genai.TypeNumber, Nullable: true},
			"swedish":      {Type: genai.TypeString, Format: "enum", Enum: []string{"true", "false", "likely", "null"}},
			"education":    {Type: genai.TypeString, Nullable: true},
			"skills":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"visa_sponsor", "experience", "swedish", "skills", "education"},
	}
}

// GeminiGenerator calls one Gemini model with one API key.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiGenerator creates a client for apiKey bound to modelName.
func NewGeminiGenerator(ctx context.Context, apiKey, modelName string) (*GeminiGenerator, error) {
	if modelName == "" {
		modelName = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = ResponseSchema()
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// NewGeminiGenerators builds one generator per token. Blank tokens are skipped.
// The returned close function releases every client.
func NewGeminiGenerators(ctx context.Context, tokens []string, modelName string) ([]Generator, func() error, error) {
	var made []*GeminiGenerator
	closeAll := func() error {
		var firstErr error
		for _, g := range made {
			if err := g.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		g, err := NewGeminiGenerator(ctx, token, modelName)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		made = append(made, g)
	}
	if len(made) == 0 {
		return nil, nil, ErrNoCredentials
	}
	generators := make([]Generator, len(made))
	for i, g := range made {
		generators[i] = g
	}
	return generators, closeAll, nil
}
