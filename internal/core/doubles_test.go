package core

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/torijune/Survey-AI-sub001/internal/store"
)

const fakeEmbeddingDim = 32

// fakeEmbedder is a deterministic Embedder double. The default behavior
// hashes words into a fixed-size bag-of-words vector, so texts sharing
// vocabulary score high cosine similarity — enough to exercise retrieval
// ranking without a model.
type fakeEmbedder struct {
	embedFunc func(ctx context.Context, text string) ([]float32, error)
	calls     int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.embedFunc != nil {
		return f.embedFunc(ctx, text)
	}
	return bagOfWordsVector(text), nil
}

func bagOfWordsVector(text string) []float32 {
	vec := make([]float32, fakeEmbeddingDim)
	for _, word := range strings.Fields(text) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%fakeEmbeddingDim]++
	}
	return vec
}

// fakeCompleter is a Completer double returning a canned answer and
// recording the turns it received.
type fakeCompleter struct {
	answer        string
	err           error
	receivedTurns []ChatTurn
}

func (f *fakeCompleter) Complete(ctx context.Context, turns []ChatTurn) (string, error) {
	f.receivedTurns = append([]ChatTurn(nil), turns...)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

// failingPairStore delegates to a real store but fails message-pair writes,
// for exercising the best-effort history path.
type failingPairStore struct {
	*store.SQLiteStore
}

func (f *failingPairStore) CreateMessagePair(ctx context.Context, userMsg, assistantMsg *store.ChatMessage) error {
	return fmt.Errorf("disk full")
}
