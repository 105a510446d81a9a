package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertChunk(t *testing.T, s *SQLiteStore, userID, fileID, fileName string, idx int, content string, embedding []float32) {
	t.Helper()
	require.NoError(t, s.InsertChunk(context.Background(), &Chunk{
		UserID:     userID,
		FileID:     fileID,
		FileName:   fileName,
		ChunkIndex: idx,
		Content:    content,
		Embedding:  embedding,
	}))
}

func TestInsertChunkAndExistsByFileName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.ChunkExistsByFileName(ctx, "user-a", "meeting.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	insertChunk(t, s, "user-a", "file-1", "meeting.txt", 0, "chunk zero", []float32{1, 0})

	fileID, ok, err := s.ChunkExistsByFileName(ctx, "user-a", "meeting.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "file-1", fileID)

	// Same file name under a different user is a different document.
	_, ok, err = s.ChunkExistsByFileName(ctx, "user-b", "meeting.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsertChunkUniqueConstraint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertChunk(t, s, "user-a", "file-1", "meeting.txt", 0, "first", []float32{1, 0})

	err := s.InsertChunk(ctx, &Chunk{
		UserID: "user-a", FileID: "file-1", FileName: "meeting.txt",
		ChunkIndex: 0, Content: "duplicate", Embedding: []float32{0, 1},
	})
	assert.Error(t, err, "duplicate (user_id, file_name, chunk_index) must be rejected")

	n, err := s.CountChunks(ctx, "user-a", "file-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestQueryTopChunksRankingAndScoping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertChunk(t, s, "user-a", "file-1", "meeting.txt", 0, "about sales targets", []float32{1, 0, 0})
	insertChunk(t, s, "user-a", "file-1", "meeting.txt", 1, "about hiring", []float32{0, 1, 0})
	insertChunk(t, s, "user-a", "file-1", "meeting.txt", 2, "mixed topics", []float32{1, 1, 0})
	// Perfect matches outside the scope must never leak in.
	insertChunk(t, s, "user-b", "file-1", "meeting.txt", 0, "other user", []float32{1, 0, 0})
	insertChunk(t, s, "user-a", "file-2", "other.txt", 0, "other document", []float32{1, 0, 0})

	results, err := s.QueryTopChunks(ctx, []float32{1, 0, 0}, "user-a", "file-1", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "about sales targets", results[0].Chunk.Content)
	assert.Equal(t, "mixed topics", results[1].Chunk.Content)
	for _, r := range results {
		assert.Equal(t, "user-a", r.Chunk.UserID)
		assert.Equal(t, "file-1", r.Chunk.FileID)
	}
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestQueryTopChunksSkipsMismatchedDimensions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertChunk(t, s, "user-a", "file-1", "meeting.txt", 0, "good", []float32{1, 0})
	insertChunk(t, s, "user-a", "file-1", "meeting.txt", 1, "stale model", []float32{1, 0, 0, 0})

	results, err := s.QueryTopChunks(ctx, []float32{1, 0}, "user-a", "file-1", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "good", results[0].Chunk.Content)
}

func TestCreateMessagePairAndGetMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	userMsg := ChatMessage{UserID: "user-a", FileID: "file-1", ChatGroupID: "group-1", Content: "질문입니다"}
	assistantMsg := ChatMessage{UserID: "user-a", FileID: "file-1", ChatGroupID: "group-1", Content: "답변입니다"}
	require.NoError(t, s.CreateMessagePair(ctx, &userMsg, &assistantMsg))

	assert.NotEmpty(t, userMsg.ID)
	assert.Equal(t, RoleUser, userMsg.Role)
	assert.Equal(t, RoleAssistant, assistantMsg.Role)

	messages, err := s.GetMessages(ctx, "user-a", "", "")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, "질문입니다", messages[0].Content)
	assert.Equal(t, RoleAssistant, messages[1].Role)
	assert.Equal(t, "답변입니다", messages[1].Content)
}

func TestGetMessagesFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pairs := []struct{ fileID, groupID string }{
		{"file-1", "group-1"},
		{"file-1", "group-2"},
		{"file-2", "group-3"},
	}
	for _, p := range pairs {
		u := ChatMessage{UserID: "user-a", FileID: p.fileID, ChatGroupID: p.groupID, Content: "q"}
		a := ChatMessage{UserID: "user-a", FileID: p.fileID, ChatGroupID: p.groupID, Content: "a"}
		require.NoError(t, s.CreateMessagePair(ctx, &u, &a))
	}

	all, err := s.GetMessages(ctx, "user-a", "", "")
	require.NoError(t, err)
	assert.Len(t, all, 6)

	byFile, err := s.GetMessages(ctx, "user-a", "file-1", "")
	require.NoError(t, err)
	assert.Len(t, byFile, 4)

	byGroup, err := s.GetMessages(ctx, "user-a", "", "group-2")
	require.NoError(t, err)
	assert.Len(t, byGroup, 2)

	byBoth, err := s.GetMessages(ctx, "user-a", "file-2", "group-3")
	require.NoError(t, err)
	assert.Len(t, byBoth, 2)

	otherUser, err := s.GetMessages(ctx, "user-b", "", "")
	require.NoError(t, err)
	assert.Empty(t, otherUser)
}

func TestFavoritesOrderedNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := Favorite{UserID: "user-a", Question: "첫 질문", Answer: "첫 답변"}
	require.NoError(t, s.SaveFavorite(ctx, &first))
	second := Favorite{UserID: "user-a", Question: "둘째 질문", Answer: "둘째 답변", Metadata: `{"file_id":"file-1"}`}
	require.NoError(t, s.SaveFavorite(ctx, &second))

	favorites, err := s.GetFavorites(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, favorites, 2)
	assert.Equal(t, "둘째 질문", favorites[0].Question)
	assert.Equal(t, "첫 질문", favorites[1].Question)
	assert.Equal(t, `{"file_id":"file-1"}`, favorites[0].Metadata)

	other, err := s.GetFavorites(ctx, "user-b")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestFavoritesInsertionOrderOnEqualTimestamps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Back-to-back saves can land on the same created_at tick; the rowid
	// tiebreaker keeps the listing in strict reverse insertion order anyway.
	for i := 0; i < 10; i++ {
		fav := Favorite{UserID: "user-a", Question: fmt.Sprintf("질문-%d", i), Answer: fmt.Sprintf("답변-%d", i)}
		require.NoError(t, s.SaveFavorite(ctx, &fav))
	}

	favorites, err := s.GetFavorites(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, favorites, 10)
	for i, fav := range favorites {
		assert.Equal(t, fmt.Sprintf("질문-%d", 9-i), fav.Question)
	}
}

func TestCosineSimilarity(t *testing.T) {
	sim, err := cosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-6)

	sim, err = cosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-6)

	sim, err = cosineSimilarity([]float32{1, 0}, []float32{0, 0})
	require.NoError(t, err)
	assert.Zero(t, sim)

	_, err = cosineSimilarity([]float32{1}, []float32{1, 0})
	assert.Error(t, err)

	_, err = cosineSimilarity(nil, []float32{1})
	assert.Error(t, err)
}
