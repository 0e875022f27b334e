package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/soapbox/internal/middleware"
	"github.com/hitoshi/soapbox/internal/model"
	"github.com/hitoshi/soapbox/internal/opinion"
)

// OpinionServiceInterface は意見ハンドラーが必要とするサービスインターフェース。
type OpinionServiceInterface interface {
	List(ctx context.Context, page, pageSize int) (*opinion.ListResult, error)
	Create(ctx context.Context, userID, title, content string) (*model.Opinion, error)
	Update(ctx context.Context, callerID, opinionID, title, content string) (*model.Opinion, error)
	Delete(ctx context.Context, callerID, opinionID string) error
}

// OpinionHandler は意見管理のHTTPハンドラー。
type OpinionHandler struct {
	service OpinionServiceInterface
}

// NewOpinionHandler はOpinionHandlerを生成する。
func NewOpinionHandler(service OpinionServiceInterface) *OpinionHandler {
	return &OpinionHandler{service: service}
}

// opinionRequest は意見の投稿・更新リクエストのボディ。
type opinionRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// opinionResponse は意見のAPIレスポンス。
type opinionResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	AuthorUsername string    `json:"author_username,omitempty"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// listResponse は意見一覧のページング付きAPIレスポンス。
type listResponse struct {
	Opinions   []opinionResponse `json:"opinions"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int               `json:"total_count"`
	TotalPages int               `json:"total_pages"`
}

// List は意見の一覧を新しい順に返す。認証不要。
// GET /api/opinions?page=1&page_size=10
func (h *OpinionHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	result, err := h.service.List(r.Context(), page, pageSize)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := listResponse{
		Opinions:   make([]opinionResponse, 0, len(result.Opinions)),
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
		TotalPages: result.TotalPages,
	}
	for _, op := range result.Opinions {
		resp.Opinions = append(resp.Opinions, opinionResponse{
			ID:             op.ID,
			UserID:         op.UserID,
			AuthorUsername: op.AuthorUsername,
			Title:          op.Title,
			Content:        op.Content,
			CreatedAt:      op.CreatedAt,
			UpdatedAt:      op.UpdatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Create は意見の投稿を処理する。認証必須。
// POST /api/opinions
func (h *OpinionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req opinionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	op, err := h.service.Create(r.Context(), userID, req.Title, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toOpinionResponse(op))
}

// Update は自分の意見の更新を処理する。認証必須。
// PUT /api/opinions/{id}
func (h *OpinionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	opinionID := chi.URLParam(r, "id")

	var req opinionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	op, err := h.service.Update(r.Context(), userID, opinionID, req.Title, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toOpinionResponse(op))
}

// Delete は自分の意見の削除を処理する。認証必須。
// DELETE /api/opinions/{id}
func (h *OpinionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	opinionID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, opinionID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toOpinionResponse はドメインモデルをAPIレスポンスに変換する。
func toOpinionResponse(op *model.Opinion) opinionResponse {
	return opinionResponse{
		ID:        op.ID,
		UserID:    op.UserID,
		Title:     op.Title,
		Content:   op.Content,
		CreatedAt: op.CreatedAt,
		UpdatedAt: op.UpdatedAt,
	}
}
