package core

import (
	"context"

	"pintarai.app/server/internal/catalog"
)

// AnswerInput is the structured input for one answer request. UploadedFileURI,
// when set, is an inline data URI ("data:<mimetype>;base64,<data>").
type AnswerInput struct {
	ClassLevel      string
	Subject         string
	QuestionText    string
	UploadedFileURI string
}

// Generator is the answer-generator client. The production implementation is
// LLMService; tests substitute a fake.
type Generator interface {
	AnswerQuestion(ctx context.Context, in AnswerInput) (string, error)
	GeneratePrompts(ctx context.Context, classLevel, subject string) ([]catalog.ExamplePrompt, error)
	SummarizeQuestion(ctx context.Context, question string) (string, error)
}
