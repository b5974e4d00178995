package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"pintarai.app/server/internal/catalog"
)

const (
	defaultAnswerModelName  = "gemini-1.5-flash-latest"
	defaultPromptsModelName = "gemini-1.5-flash-latest"

	// Flat retry budget for the prompt generator. No backoff: these calls gate
	// nothing critical and the static catalog covers the exhausted case.
	promptRetryAttempts = 3

	answerSystemInstruction = "You are an AI assistant that helps Indonesian students answer their homework questions. " +
		"Answer in Bahasa Indonesia unless the subject is a foreign language. " +
		"Explain clearly, step by step, at a depth appropriate for the student's class level. " +
		"If a file is attached, use it as context for the question."

	promptsSystemInstruction = "You are an expert curriculum developer for the Indonesian education system. " +
		"Your task is to generate two highly specific and relevant example questions that a student might ask. " +
		"Respond with JSON of the form {\"prompts\": [{\"icon\": ..., \"title\": ..., \"prompt\": ...}]} and nothing else."

	summarizeSystemInstruction = "Anda adalah seorang ahli dalam merangkum pertanyaan. " +
		"Buatlah ringkasan singkat dalam Bahasa Indonesia yang menangkap inti dari apa yang ditanyakan."
)

// LLMService is the Gemini-backed Generator.
type LLMService struct {
	client *genai.Client
}

func NewLLMService(ctx context.Context, apiKey string) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &LLMService{client: client}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing GenAI client")
		}
	}
}

// AnswerQuestion asks the model for an answer in the student's class-level and
// subject context, with the uploaded file (if any) attached inline.
func (s *LLMService) AnswerQuestion(ctx context.Context, in AnswerInput) (string, error) {
	model := s.client.GenerativeModel(defaultAnswerModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(answerSystemInstruction)},
	}

	prompt := fmt.Sprintf(
		"The student is in %s and is asking a question about %s.\n\nQuestion: %s",
		in.ClassLevel, in.Subject, in.QuestionText)

	parts := []genai.Part{genai.Text(prompt)}
	if in.UploadedFileURI != "" {
		mimeType, data, err := parseDataURI(in.UploadedFileURI)
		if err != nil {
			return "", fmt.Errorf("invalid uploaded file: %w", err)
		}
		parts = append(parts, genai.Blob{MIMEType: mimeType, Data: data})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini answer request failed: %w", err)
	}

	answer := responseText(resp)
	if answer == "" {
		return "", fmt.Errorf("gemini returned an empty answer")
	}
	return answer, nil
}

// GeneratePrompts asks the model for exactly two example questions for the
// given context. The response shape is validated before it is accepted;
// attempts that fail the check burn a retry like transport errors do.
func (s *LLMService) GeneratePrompts(ctx context.Context, classLevel, subject string) ([]catalog.ExamplePrompt, error) {
	model := s.client.GenerativeModel(defaultPromptsModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(promptsSystemInstruction)},
	}
	model.GenerationConfig.ResponseMIMEType = "application/json"

	prompt := fmt.Sprintf(
		"The student is in: %s\nThe subject is: %s\n\n"+
			"Instructions:\n"+
			"1. Generate exactly TWO distinct example questions.\n"+
			"2. The questions must be appropriate for the student's class level and subject based on the current Indonesian curriculum. Avoid generic questions.\n"+
			"3. The question prompt text must be short and to the point (max 10 words).\n"+
			"4. For each question, provide a short, catchy title in Bahasa Indonesia.\n"+
			"5. For each question, select the most appropriate icon from this list: %s.",
		classLevel, subject, strings.Join(catalog.Icons, ", "))

	var lastErr error
	for attempt := 1; attempt <= promptRetryAttempts; attempt++ {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = fmt.Errorf("gemini prompts request failed: %w", err)
			log.Warn().Err(err).Int("attempt", attempt).Msg("Prompt generation attempt failed")
			continue
		}

		prompts, err := decodePrompts(responseText(resp))
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt).Msg("Prompt generation output rejected")
			continue
		}
		return prompts, nil
	}
	return nil, fmt.Errorf("failed to generate prompts after %d attempts: %w", promptRetryAttempts, lastErr)
}

// decodePrompts parses and shape-checks a prompt-generation response: exactly
// two prompts, every field populated, icons from the known set.
func decodePrompts(raw string) ([]catalog.ExamplePrompt, error) {
	var out struct {
		Prompts []catalog.ExamplePrompt `json:"prompts"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("prompts response is not valid JSON: %w", err)
	}
	if len(out.Prompts) != 2 {
		return nil, fmt.Errorf("expected exactly 2 prompts, got %d", len(out.Prompts))
	}
	for _, p := range out.Prompts {
		if p.Title == "" || p.Prompt == "" {
			return nil, fmt.Errorf("prompt with empty title or text")
		}
		if !catalog.ValidIcon(p.Icon) {
			return nil, fmt.Errorf("unknown icon %q", p.Icon)
		}
	}
	return out.Prompts, nil
}

func (s *LLMService) SummarizeQuestion(ctx context.Context, question string) (string, error) {
	model := s.client.GenerativeModel(defaultAnswerModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(summarizeSystemInstruction)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf("Pertanyaan: %s", question)))
	if err != nil {
		return "", fmt.Errorf("gemini summarize request failed: %w", err)
	}

	summary := responseText(resp)
	if summary == "" {
		return "", fmt.Errorf("gemini returned an empty summary")
	}
	return strings.TrimSpace(summary), nil
}

// responseText flattens the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
