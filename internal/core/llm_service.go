package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	defaultChatModelName      = "gemini-1.5-flash-latest"
	defaultEmbeddingModelName = "text-embedding-004"

	chatSystemInstruction = "You are an assistant answering questions about a discussion transcript. " +
		"Answer strictly from the transcript excerpts provided in the user's message. " +
		"If the answer is not present in the excerpts, reply that it is unknown from the transcript. " +
		"Do not make up information. Keep answers concise and in the language of the question."

	// FallbackAnswer is returned when the completion provider yields no
	// usable content for an otherwise successful call.
	FallbackAnswer = "I'm sorry, I couldn't generate a response at this time. Please try again."
)

// LLMService wraps the Gemini client behind the Embedder and Completer
// interfaces so handlers and tests never touch the provider directly.
type LLMService struct {
	client *genai.Client
	logger *zap.Logger
}

func NewLLMService(ctx context.Context, apiKey string, logger *zap.Logger) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &LLMService{client: client, logger: logger}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.Warn("error closing GenAI client", zap.Error(err))
		}
	}
}

// Embed returns the embedding vector for text.
func (s *LLMService) Embed(ctx context.Context, text string) ([]float32, error) {
	em := s.client.EmbeddingModel(defaultEmbeddingModelName)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

// Complete sends the ordered turns to the chat model and returns its text.
// The system instruction constraining answers to the supplied excerpts is
// applied here; turns carry only the conversation itself.
func (s *LLMService) Complete(ctx context.Context, turns []ChatTurn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("prompt is empty for chat completion")
	}
	last := turns[len(turns)-1]
	if last.Role != RoleUser {
		return "", fmt.Errorf("last turn is not from the user, cannot proceed with chat completion")
	}

	model := s.client.GenerativeModel(defaultChatModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(chatSystemInstruction)},
	}

	chatSession := model.StartChat()
	for _, turn := range turns[:len(turns)-1] {
		chatSession.History = append(chatSession.History, &genai.Content{
			Role:  geminiRole(turn.Role),
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}

	resp, err := chatSession.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		s.logger.Warn("gemini response was empty or had no valid candidates")
		return FallbackAnswer, nil
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			s.logger.Warn("gemini response part was not text", zap.String("type", fmt.Sprintf("%T", part)))
		}
	}
	if responseText.Len() == 0 {
		return FallbackAnswer, nil
	}
	return responseText.String(), nil
}

// geminiRole maps our message roles onto the Gemini API's, which calls the
// assistant side "model".
func geminiRole(role string) string {
	if role == RoleAssistant {
		return "model"
	}
	return "user"
}
