package core

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/torijune/Survey-AI-sub001/internal/chunker"
	"github.com/torijune/Survey-AI-sub001/internal/extract"
	"github.com/torijune/Survey-AI-sub001/internal/store"
)

// minExtractedTextLen guards against empty or garbage extraction results.
const minExtractedTextLen = 10

// IngestRequest identifies a transcript upload. Payload is the raw file
// content; FileName's extension selects the extraction format.
type IngestRequest struct {
	UserID   string
	FileID   string
	FileName string
	Payload  []byte
}

// IngestResult reports the outcome of an ingestion. When AlreadyExists is
// set, FileID is the id the document was originally ingested under and
// nothing was written.
type IngestResult struct {
	AlreadyExists bool
	FileID        string
	NumChunks     int
}

// IngestService runs the ingestion pipeline: dedup check, text extraction,
// chunking, then one embedding call and one chunk insert per segment.
type IngestService struct {
	chunks    ChunkStore
	embedder  Embedder
	extractor *extract.Extractor
	logger    *zap.Logger

	maxLen  int
	overlap int
}

func NewIngestService(chunks ChunkStore, embedder Embedder, extractor *extract.Extractor, logger *zap.Logger, maxLen, overlap int) *IngestService {
	if maxLen <= 0 {
		maxLen = chunker.DefaultMaxLen
	}
	if overlap < 0 || overlap >= maxLen {
		overlap = chunker.DefaultOverlap
	}
	return &IngestService{
		chunks:    chunks,
		embedder:  embedder,
		extractor: extractor,
		logger:    logger,
		maxLen:    maxLen,
		overlap:   overlap,
	}
}

// Ingest runs the pipeline for one upload. Re-uploading a file name the
// user already ingested is a no-op. Embedding and persistence run strictly
// sequentially: external rate limits bound the embedding call rate, and a
// single failure aborts the whole run. Chunks persisted before the failure
// stay in the store; re-running after a partial failure dedups only at the
// whole-document level.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if req.UserID == "" || req.FileID == "" || req.FileName == "" {
		return IngestResult{}, validationErrorf("user_id, file_id and file_name are required")
	}

	existingID, exists, err := s.chunks.ChunkExistsByFileName(ctx, req.UserID, req.FileName)
	if err != nil {
		return IngestResult{}, upstreamError("dedup lookup", err)
	}
	if exists {
		s.logger.Info("transcript already ingested, skipping",
			zap.String("user_id", req.UserID), zap.String("file_name", req.FileName))
		return IngestResult{AlreadyExists: true, FileID: existingID}, nil
	}

	text, err := s.extractor.Extract(req.Payload, req.FileName)
	if err != nil {
		if err == extract.ErrUnsupportedType {
			return IngestResult{}, validationErrorf("unsupported document type: %s", req.FileName)
		}
		return IngestResult{}, validationErrorf("failed to extract text from %s: %v", req.FileName, err)
	}
	if len(strings.TrimSpace(text)) < minExtractedTextLen {
		return IngestResult{}, validationErrorf("extracted text is too short to ingest (min %d characters)", minExtractedTextLen)
	}

	segments := chunker.Chunk(text, s.maxLen, s.overlap)
	s.logger.Info("chunked transcript",
		zap.String("file_id", req.FileID), zap.Int("chunks", len(segments)))

	for i, segment := range segments {
		// A caller abort stops the loop between chunks; the step already
		// dispatched still completes.
		if err := ctx.Err(); err != nil {
			return IngestResult{}, upstreamError("ingestion canceled", err)
		}

		embedding, err := s.embedder.Embed(ctx, segment)
		if err != nil {
			return IngestResult{}, upstreamError("embedding", err)
		}
		chunk := store.Chunk{
			UserID:     req.UserID,
			FileID:     req.FileID,
			FileName:   req.FileName,
			ChunkIndex: i,
			Content:    segment,
			Embedding:  embedding,
		}
		if err := s.chunks.InsertChunk(ctx, &chunk); err != nil {
			return IngestResult{}, upstreamError("chunk persistence", err)
		}
	}

	s.logger.Info("transcript ingested",
		zap.String("user_id", req.UserID), zap.String("file_id", req.FileID),
		zap.Int("chunks", len(segments)))
	return IngestResult{FileID: req.FileID, NumChunks: len(segments)}, nil
}
