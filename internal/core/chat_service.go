package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/torijune/Survey-AI-sub001/internal/store"
)

const (
	// topKChunks is the number of excerpts retrieved per question.
	topKChunks = 5

	// contextDelimiter separates retrieved excerpts inside the prompt.
	contextDelimiter = "\n\n---\n\n"
)

// AskRequest is one question against an ingested transcript. ChatHistory
// and ChatGroupID are optional; omitting the group id starts a new
// conversation thread.
type AskRequest struct {
	UserID      string
	FileID      string
	Question    string
	ChatHistory []ChatTurn
	ChatGroupID string
}

// AskResult carries the generated answer, the raw retrieved excerpts for
// UI citation, and the conversation thread id (minted here when the
// request omitted one).
type AskResult struct {
	Answer      string
	TopChunks   []string
	ChatGroupID string
}

// ChatService answers questions from retrieved transcript excerpts and
// manages conversation history and favorites.
type ChatService struct {
	store     ChatStore
	embedder  Embedder
	completer Completer
	logger    *zap.Logger
}

func NewChatService(st ChatStore, embedder Embedder, completer Completer, logger *zap.Logger) *ChatService {
	return &ChatService{
		store:     st,
		embedder:  embedder,
		completer: completer,
		logger:    logger,
	}
}

// Ask embeds the question, retrieves the most similar chunks of the user's
// document, asks the completion model for an answer grounded in them, and
// appends the question/answer pair to the conversation thread.
//
// Retrieval is scoped strictly to (user_id, file_id); chunks of other users
// or other documents never enter the candidate set. A persistence failure
// after a successful answer is logged, not surfaced: history writes are
// best-effort and the caller still gets the answer.
func (s *ChatService) Ask(ctx context.Context, req AskRequest) (AskResult, error) {
	if req.UserID == "" || req.FileID == "" || strings.TrimSpace(req.Question) == "" {
		return AskResult{}, validationErrorf("user_id, file_id and question are required")
	}

	chatGroupID := req.ChatGroupID
	if chatGroupID == "" {
		chatGroupID = uuid.NewString()
	}

	questionEmbedding, err := s.embedder.Embed(ctx, req.Question)
	if err != nil {
		return AskResult{}, upstreamError("embedding", err)
	}

	scored, err := s.store.QueryTopChunks(ctx, questionEmbedding, req.UserID, req.FileID, topKChunks)
	if err != nil {
		return AskResult{}, upstreamError("vector store", err)
	}

	topChunks := make([]string, 0, len(scored))
	for _, sc := range scored {
		topChunks = append(topChunks, sc.Chunk.Content)
	}

	turns := make([]ChatTurn, 0, len(req.ChatHistory)+1)
	turns = append(turns, req.ChatHistory...)
	turns = append(turns, ChatTurn{Role: RoleUser, Content: buildQuestionTurn(topChunks, req.Question)})

	answer, err := s.completer.Complete(ctx, turns)
	if err != nil {
		return AskResult{}, upstreamError("completion", err)
	}
	if strings.TrimSpace(answer) == "" {
		answer = FallbackAnswer
	}

	userMsg := store.ChatMessage{
		UserID:      req.UserID,
		FileID:      req.FileID,
		ChatGroupID: chatGroupID,
		Content:     req.Question,
	}
	assistantMsg := store.ChatMessage{
		UserID:      req.UserID,
		FileID:      req.FileID,
		ChatGroupID: chatGroupID,
		Content:     answer,
	}
	if err := s.store.CreateMessagePair(ctx, &userMsg, &assistantMsg); err != nil {
		s.logger.Warn("failed to persist chat message pair",
			zap.String("chat_group_id", chatGroupID), zap.Error(err))
	}

	return AskResult{
		Answer:      answer,
		TopChunks:   topChunks,
		ChatGroupID: chatGroupID,
	}, nil
}

// buildQuestionTurn assembles the final user turn: the retrieved excerpts
// joined by a distinct delimiter, then the question itself.
func buildQuestionTurn(topChunks []string, question string) string {
	if len(topChunks) == 0 {
		return fmt.Sprintf("No transcript excerpts matched this question.\n\nQuestion: %s", question)
	}
	return fmt.Sprintf("Transcript excerpts:\n\n%s\n\nQuestion: %s",
		strings.Join(topChunks, contextDelimiter), question)
}

// History returns the user's chat messages ascending by creation time,
// optionally filtered by document and/or conversation thread.
func (s *ChatService) History(ctx context.Context, userID, fileID, chatGroupID string) ([]store.ChatMessage, error) {
	if userID == "" {
		return nil, validationErrorf("user_id is required")
	}
	messages, err := s.store.GetMessages(ctx, userID, fileID, chatGroupID)
	if err != nil {
		return nil, upstreamError("history lookup", err)
	}
	return messages, nil
}

// SaveFavorite stores a standalone question/answer pair. No retrieval or
// generation happens on this path.
func (s *ChatService) SaveFavorite(ctx context.Context, fav *store.Favorite) error {
	if fav.UserID == "" || strings.TrimSpace(fav.Question) == "" || strings.TrimSpace(fav.Answer) == "" {
		return validationErrorf("user_id, question and answer are required")
	}
	if err := s.store.SaveFavorite(ctx, fav); err != nil {
		return upstreamError("favorite persistence", err)
	}
	return nil
}

// Favorites returns the user's saved pairs, most recent first.
func (s *ChatService) Favorites(ctx context.Context, userID string) ([]store.Favorite, error) {
	if userID == "" {
		return nil, validationErrorf("user_id is required")
	}
	favorites, err := s.store.GetFavorites(ctx, userID)
	if err != nil {
		return nil, upstreamError("favorites lookup", err)
	}
	return favorites, nil
}
