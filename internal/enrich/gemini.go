package enrich

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const systemPrompt = `You are a meticulous NLP and Knowledge Graph analyst. Your task is to process a given news article and extract structured information.

You must follow these instructions exactly:
1.  You will be given an input JSON object containing a news article.
2.  You must *only* use the text in the content.article_body field to perform your tasks. Do not use the title or other metadata.
3.  Your output *must* be a single, valid JSON object containing *only* the keys summary, keywords, and entities.
4.  For summary: Generate a 2-3 sentence, high-level summary of the event.
5.  For keywords: Generate an array of 5-7 significant keywords from the text.
6.  For entities: This is the most important task.
    * Identify all named entities in the text.
    * Classify them as PERSON, ORGANIZATION, or LOCATION.
    * For each entity, find its corresponding WikiData ID (e.g., "Islamabad" is "Q1166").
    * If a WikiData ID is ambiguous or cannot be found, use "null".
    * The output must be an array of JSON objects, each with "text", "label", and "wikidata_id".`

const userPromptTemplate = "Here is the article to process:\n\n%s"

// GeminiModel annotates articles with Google's Gemini API in JSON mode.
type GeminiModel struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini builds the model client. modelName defaults to
// gemini-1.5-flash-latest when empty.
func NewGemini(ctx context.Context, apiKey, modelName string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("enrich: api key required")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash-latest"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("enrich: create client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	return &GeminiModel{client: client, model: model}, nil
}

// Annotate sends one article and parses the structured reply.
func (m *GeminiModel) Annotate(ctx context.Context, articleJSON []byte) (Annotation, error) {
	prompt := fmt.Sprintf(userPromptTemplate, articleJSON)

	resp, err := m.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Annotation{}, fmt.Errorf("enrich: generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Annotation{}, fmt.Errorf("enrich: model returned no candidates")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	if text == "" {
		return Annotation{}, fmt.Errorf("enrich: model returned no text")
	}

	var out Annotation
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return Annotation{}, fmt.Errorf("enrich: parse model reply: %w", err)
	}
	return out, nil
}

// Close releases the underlying API client.
func (m *GeminiModel) Close() error {
	return m.client.Close()
}
