package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/torijune/Survey-AI-sub001/internal/core"
	"github.com/torijune/Survey-AI-sub001/internal/store"
)

// maxUploadBytes bounds transcript uploads; meeting transcripts are text
// and should never come close.
const maxUploadBytes = 16 << 20

type APIHandler struct {
	ingestService *core.IngestService
	chatService   *core.ChatService
	logger        *zap.Logger
}

func NewAPIHandler(ingest *core.IngestService, chat *core.ChatService, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		ingestService: ingest,
		chatService:   chat,
		logger:        logger,
	}
}

func (h *APIHandler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *APIHandler) respondError(w http.ResponseWriter, err error) {
	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": validationErr.Message})
		return
	}
	var upstreamErr *core.UpstreamError
	if errors.As(err, &upstreamErr) {
		h.logger.Error("upstream call failed", zap.String("op", upstreamErr.Op), zap.Error(upstreamErr.Err))
		h.respondJSON(w, http.StatusBadGateway, map[string]string{"error": upstreamErr.Error()})
		return
	}
	h.logger.Error("request failed", zap.Error(err))
	h.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

type ingestJSONRequest struct {
	UserID   string `json:"user_id"`
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Payload  string `json:"payload"`
}

// IngestHandler accepts a transcript upload either as multipart/form-data
// (fields user_id, file_id and a file part) or as JSON with an inline text
// payload.
func (h *APIHandler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseIngestRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	result, err := h.ingestService.Ingest(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if result.AlreadyExists {
		h.respondJSON(w, http.StatusOK, map[string]any{
			"already_exists": true,
			"file_id":        result.FileID,
		})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"chunks": result.NumChunks,
	})
}

func (h *APIHandler) parseIngestRequest(r *http.Request) (core.IngestRequest, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return core.IngestRequest{}, &core.ValidationError{Message: "invalid multipart form: " + err.Error()}
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return core.IngestRequest{}, &core.ValidationError{Message: "file part is required"}
		}
		defer file.Close()
		payload, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return core.IngestRequest{}, &core.ValidationError{Message: "failed to read uploaded file"}
		}
		return core.IngestRequest{
			UserID:   r.FormValue("user_id"),
			FileID:   r.FormValue("file_id"),
			FileName: header.Filename,
			Payload:  payload,
		}, nil
	}

	var req ingestJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return core.IngestRequest{}, &core.ValidationError{Message: "invalid request body: " + err.Error()}
	}
	return core.IngestRequest{
		UserID:   req.UserID,
		FileID:   req.FileID,
		FileName: req.FileName,
		Payload:  []byte(req.Payload),
	}, nil
}

type askRequest struct {
	UserID      string          `json:"user_id"`
	FileID      string          `json:"file_id"`
	Question    string          `json:"question"`
	ChatHistory []core.ChatTurn `json:"chat_history,omitempty"`
	ChatGroupID string          `json:"chat_group_id,omitempty"`
}

type askResponse struct {
	Answer      string   `json:"answer"`
	TopChunks   []string `json:"top_chunks"`
	ChatGroupID string   `json:"chat_group_id"`
}

func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, &core.ValidationError{Message: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.chatService.Ask(r.Context(), core.AskRequest{
		UserID:      req.UserID,
		FileID:      req.FileID,
		Question:    req.Question,
		ChatHistory: req.ChatHistory,
		ChatGroupID: req.ChatGroupID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, askResponse{
		Answer:      result.Answer,
		TopChunks:   result.TopChunks,
		ChatGroupID: result.ChatGroupID,
	})
}

// HistoryHandler returns chat history ascending by creation time, or the
// user's favorites (descending) when the favorites flag is set.
func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")

	if favorites := q.Get("favorites"); favorites == "true" || favorites == "1" {
		favs, err := h.chatService.Favorites(r.Context(), userID)
		if err != nil {
			h.respondError(w, err)
			return
		}
		if favs == nil {
			favs = []store.Favorite{}
		}
		h.respondJSON(w, http.StatusOK, map[string]any{"favorites": favs})
		return
	}

	messages, err := h.chatService.History(r.Context(), userID, q.Get("file_id"), q.Get("chat_group_id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if messages == nil {
		messages = []store.ChatMessage{}
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"chat": messages})
}

type saveFavoriteRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Metadata string `json:"metadata,omitempty"`
}

func (h *APIHandler) SaveFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	var req saveFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, &core.ValidationError{Message: "invalid request body: " + err.Error()})
		return
	}

	fav := store.Favorite{
		UserID:   req.UserID,
		Question: req.Question,
		Answer:   req.Answer,
		Metadata: req.Metadata,
	}
	if err := h.chatService.SaveFavorite(r.Context(), &fav); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, fav)
}
