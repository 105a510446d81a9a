package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore is the record index behind ingestion, retrieval and chat
// history. Chunk embeddings are kept as JSON-encoded float32 arrays and
// similarity ranking happens in-process, which is plenty for bounded
// transcript sizes.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	// The UNIQUE constraint on (user_id, file_name, chunk_index) closes the
	// race where two concurrent uploads of the same file both pass the
	// name-based dedup check: the second writer fails instead of doubling
	// the chunk set.
	schema := `
    CREATE TABLE IF NOT EXISTS chunks (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id TEXT NOT NULL,
        file_id TEXT NOT NULL,
        file_name TEXT NOT NULL,
        chunk_index INTEGER NOT NULL,
        content TEXT NOT NULL,
        embedding_json TEXT NOT NULL, -- JSON string of []float32
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (user_id, file_name, chunk_index)
    );
    CREATE INDEX IF NOT EXISTS idx_chunks_scope ON chunks (user_id, file_id);

    CREATE TABLE IF NOT EXISTS chat_messages (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        file_id TEXT NOT NULL,
        chat_group_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_messages_group ON chat_messages (user_id, chat_group_id);

    CREATE TABLE IF NOT EXISTS favorites (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        question TEXT NOT NULL,
        answer TEXT NOT NULL,
        metadata TEXT,
        created_at DATETIME NOT NULL
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Chunk methods

// InsertChunk persists one embedded chunk. Fails if a chunk with the same
// (user_id, file_name, chunk_index) already exists.
func (s *SQLiteStore) InsertChunk(ctx context.Context, chunk *Chunk) error {
	embeddingBytes, err := json.Marshal(chunk.Embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO chunks (user_id, file_id, file_name, chunk_index, content, embedding_json) VALUES (?, ?, ?, ?, ?, ?)",
		chunk.UserID, chunk.FileID, chunk.FileName, chunk.ChunkIndex, chunk.Content, string(embeddingBytes))
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	chunk.ID, _ = res.LastInsertId()
	return nil
}

// ChunkExistsByFileName reports whether any chunk already belongs to
// (userID, fileName) and returns the file_id it was ingested under. This is
// the whole-document dedup guard: name-scoped, not content-hash-scoped.
func (s *SQLiteStore) ChunkExistsByFileName(ctx context.Context, userID, fileName string) (string, bool, error) {
	var fileID string
	err := s.db.QueryRowContext(ctx,
		"SELECT file_id FROM chunks WHERE user_id = ? AND file_name = ? LIMIT 1",
		userID, fileName).Scan(&fileID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query chunk by file name: %w", err)
	}
	return fileID, true, nil
}

// CountChunks returns the number of chunks stored for (userID, fileID).
func (s *SQLiteStore) CountChunks(ctx context.Context, userID, fileID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE user_id = ? AND file_id = ?",
		userID, fileID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// QueryTopChunks returns the k chunks of (userID, fileID) most similar to
// embedding, ranked by cosine similarity descending. The scope filter is
// applied in SQL, so chunks of other users or other documents can never
// enter the candidate set.
func (s *SQLiteStore) QueryTopChunks(ctx context.Context, embedding []float32, userID, fileID string, k int) ([]ScoredChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, file_id, file_name, chunk_index, content, embedding_json, created_at FROM chunks WHERE user_id = ? AND file_id = ?",
		userID, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var scored []ScoredChunk
	for rows.Next() {
		var chunk Chunk
		var embeddingJSON string
		if err := rows.Scan(&chunk.ID, &chunk.UserID, &chunk.FileID, &chunk.FileName,
			&chunk.ChunkIndex, &chunk.Content, &embeddingJSON, &chunk.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		if err := json.Unmarshal([]byte(embeddingJSON), &chunk.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding for chunk %d: %w", chunk.ID, err)
		}
		similarity, err := cosineSimilarity(embedding, chunk.Embedding)
		if err != nil {
			// Dimension mismatch means the chunk was embedded with a
			// different model; skip it rather than failing the query.
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: chunk, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunk rows: %w", err)
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Message methods

// CreateMessagePair stores a question/answer turn in a single transaction
// so history never holds an assistant reply without its question.
func (s *SQLiteStore) CreateMessagePair(ctx context.Context, userMsg, assistantMsg *ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	userMsg.ID = uuid.NewString()
	userMsg.Role = RoleUser
	userMsg.CreatedAt = now
	assistantMsg.ID = uuid.NewString()
	assistantMsg.Role = RoleAssistant
	assistantMsg.CreatedAt = now

	const insert = "INSERT INTO chat_messages (id, user_id, file_id, chat_group_id, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	for _, msg := range []*ChatMessage{userMsg, assistantMsg} {
		if _, err := tx.ExecContext(ctx, insert,
			msg.ID, msg.UserID, msg.FileID, msg.ChatGroupID, msg.Role, msg.Content, msg.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert %s message: %w", msg.Role, err)
		}
	}
	return tx.Commit()
}

// GetMessages returns the chat history of userID ascending by created_at,
// optionally narrowed to a document and/or a conversation thread.
func (s *SQLiteStore) GetMessages(ctx context.Context, userID, fileID, chatGroupID string) ([]ChatMessage, error) {
	query := "SELECT id, user_id, file_id, chat_group_id, role, content, created_at FROM chat_messages WHERE user_id = ?"
	args := []any{userID}
	if fileID != "" {
		query += " AND file_id = ?"
		args = append(args, fileID)
	}
	if chatGroupID != "" {
		query += " AND chat_group_id = ?"
		args = append(args, chatGroupID)
	}
	// rowid breaks ties between messages written in the same transaction,
	// keeping the user turn ahead of its assistant reply.
	query += " ORDER BY created_at ASC, rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.FileID, &msg.ChatGroupID,
			&msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Favorite methods

// SaveFavorite persists a question/answer pair and fills in the generated
// id and timestamp.
func (s *SQLiteStore) SaveFavorite(ctx context.Context, fav *Favorite) error {
	fav.ID = uuid.NewString()
	fav.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO favorites (id, user_id, question, answer, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		fav.ID, fav.UserID, fav.Question, fav.Answer, fav.Metadata, fav.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert favorite: %w", err)
	}
	return nil
}

// GetFavorites returns the favorites of userID, most recent first.
// rowid breaks ties between favorites saved within the same timestamp tick.
func (s *SQLiteStore) GetFavorites(ctx context.Context, userID string) ([]Favorite, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, question, answer, metadata, created_at FROM favorites WHERE user_id = ? ORDER BY created_at DESC, rowid DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var favorites []Favorite
	for rows.Next() {
		var fav Favorite
		var metadata sql.NullString
		if err := rows.Scan(&fav.ID, &fav.UserID, &fav.Question, &fav.Answer, &metadata, &fav.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favorite row: %w", err)
		}
		fav.Metadata = metadata.String
		favorites = append(favorites, fav)
	}
	return favorites, rows.Err()
}
