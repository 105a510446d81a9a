package store

import "time"

// Chunk is one bounded segment of an ingested transcript together with its
// embedding vector. Chunks are written once during ingestion and never
// mutated; ChunkIndex is a contiguous 0-based sequence within a document.
type Chunk struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	FileID     string    `json:"file_id"`
	FileName   string    `json:"file_name"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"` // stored as JSON string in the DB
	CreatedAt  time.Time `json:"created_at"`
}

// ScoredChunk is a retrieval candidate with its cosine similarity to the
// query embedding.
type ScoredChunk struct {
	Chunk      Chunk
	Similarity float32
}

// Message roles. Exactly one user/assistant pair is written per question.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn of a conversation thread. ChatGroupID is the
// grouping key that threads turns into one conversation; it is not a stored
// entity of its own.
type ChatMessage struct {
	ID          string    `json:"id"` // UUID
	UserID      string    `json:"user_id"`
	FileID      string    `json:"file_id"`
	ChatGroupID string    `json:"chat_group_id"`
	Role        string    `json:"role"` // "user" or "assistant"
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// Favorite is a saved question/answer pair, independent of chunks and chat
// history. Created only by an explicit save action.
type Favorite struct {
	ID        string    `json:"id"` // UUID
	UserID    string    `json:"user_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
