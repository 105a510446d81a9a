package core

import (
	"context"

	"github.com/torijune/Survey-AI-sub001/internal/store"
)

// Message roles, shared with the store.
const (
	RoleUser      = store.RoleUser
	RoleAssistant = store.RoleAssistant
)

// ChatTurn is one turn of a conversation as handed to the completion model.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer generates an answer from an ordered list of turns. The final
// turn must be the user's. Implementations return a fixed fallback string,
// not an error, when the provider yields no content.
type Completer interface {
	Complete(ctx context.Context, turns []ChatTurn) (string, error)
}

// ChunkStore is the persistence surface the ingestion pipeline writes to.
type ChunkStore interface {
	ChunkExistsByFileName(ctx context.Context, userID, fileName string) (fileID string, ok bool, err error)
	InsertChunk(ctx context.Context, chunk *store.Chunk) error
}

// ChatStore is the persistence surface behind retrieval, history and
// favorites.
type ChatStore interface {
	QueryTopChunks(ctx context.Context, embedding []float32, userID, fileID string, k int) ([]store.ScoredChunk, error)
	CreateMessagePair(ctx context.Context, userMsg, assistantMsg *store.ChatMessage) error
	GetMessages(ctx context.Context, userID, fileID, chatGroupID string) ([]store.ChatMessage, error)
	SaveFavorite(ctx context.Context, fav *store.Favorite) error
	GetFavorites(ctx context.Context, userID string) ([]store.Favorite, error)
}
