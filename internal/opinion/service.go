// Package opinion は意見の投稿・閲覧・編集・削除のビジネスロジックを提供する。
package opinion

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/soapbox/internal/auth"
	"github.com/hitoshi/soapbox/internal/model"
	"github.com/hitoshi/soapbox/internal/repository"
	"github.com/hitoshi/soapbox/internal/security"
)

const (
	// defaultPageSize はページサイズ未指定時の1ページあたりの件数。
	defaultPageSize = 10
	// maxPageSize は1ページあたりの最大件数。超過分はこの値に丸める。
	maxPageSize = 50

	// maxTitleLength はサニタイズ後のタイトルの最大文字数。
	maxTitleLength = 200
	// maxContentLength はサニタイズ後の本文の最大文字数。
	maxContentLength = 10000
)

// ListResult は意見一覧のページング付きの結果を表す。
type ListResult struct {
	Opinions   []repository.OpinionWithAuthor `json:"opinions"`
	Page       int                            `json:"page"`
	PageSize   int                            `json:"page_size"`
	TotalCount int                            `json:"total_count"`
	TotalPages int                            `json:"total_pages"`
}

// Service は意見のビジネスロジックを提供する。
// 変更系の操作は所有者チェックを行い、他人の意見の編集・削除を拒否する。
type Service struct {
	opinions  repository.OpinionRepository
	sanitizer security.OpinionSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(opinions repository.OpinionRepository, sanitizer security.OpinionSanitizer) *Service {
	return &Service{
		opinions:  opinions,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// List は意見の一覧を新しい順にページングして返す。認証不要の公開操作。
// pageは1始まり。不正な値はデフォルトに丸めるため、この操作は失敗しない
// （ストレージ障害を除く）。
func (s *Service) List(ctx context.Context, page, pageSize int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	offset := (page - 1) * pageSize
	opinions, total, err := s.opinions.List(ctx, offset, pageSize)
	if err != nil {
		return nil, err
	}
	if opinions == nil {
		opinions = []repository.OpinionWithAuthor{}
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	return &ListResult{
		Opinions:   opinions,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

// Create は新しい意見を投稿する。タイトルと本文はサニタイズしてから保存する。
// サニタイズ後に空になった場合はバリデーションエラーを返す。
func (s *Service) Create(ctx context.Context, userID, title, content string) (*model.Opinion, error) {
	title = s.sanitizer.SanitizeTitle(title)
	content = s.sanitizer.SanitizeContent(content)

	if err := validateOpinion(title, content); err != nil {
		return nil, err
	}

	now := s.now()
	op := &model.Opinion{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.opinions.Create(ctx, op); err != nil {
		return nil, err
	}

	slog.Info("意見を投稿しました", "opinion_id", op.ID, "user_id", userID)
	return op, nil
}

// Update は自分の意見のタイトルと本文を更新する。
// 意見が存在しない場合はNotFound、所有者でない場合はForbiddenを返す。
// 存在チェックを所有者チェックより先に行うため、他人の意見のIDを知っていても
// 404と403の使い分けから存在有無以上の情報は漏れない。
func (s *Service) Update(ctx context.Context, callerID, opinionID, title, content string) (*model.Opinion, error) {
	op, err := s.opinions.FindByID(ctx, opinionID)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, model.NewOpinionNotFoundError(opinionID)
	}
	if !auth.CanModify(callerID, op.UserID) {
		return nil, model.NewForbiddenError()
	}

	title = s.sanitizer.SanitizeTitle(title)
	content = s.sanitizer.SanitizeContent(content)
	if err := validateOpinion(title, content); err != nil {
		return nil, err
	}

	op.Title = title
	op.Content = content
	op.UpdatedAt = s.now()

	if err := s.opinions.Update(ctx, op); err != nil {
		return nil, err
	}

	slog.Info("意見を更新しました", "opinion_id", op.ID, "user_id", callerID)
	return op, nil
}

// Delete は自分の意見を削除する。
// 意見が存在しない場合はNotFound、所有者でない場合はForbiddenを返す。
func (s *Service) Delete(ctx context.Context, callerID, opinionID string) error {
	op, err := s.opinions.FindByID(ctx, opinionID)
	if err != nil {
		return err
	}
	if op == nil {
		return model.NewOpinionNotFoundError(opinionID)
	}
	if !auth.CanModify(callerID, op.UserID) {
		return model.NewForbiddenError()
	}

	if err := s.opinions.Delete(ctx, opinionID); err != nil {
		return err
	}

	slog.Info("意見を削除しました", "opinion_id", opinionID, "user_id", callerID)
	return nil
}

// validateOpinion はサニタイズ後のタイトルと本文を検証する。
func validateOpinion(title, content string) error {
	if title == "" {
		return model.NewValidationError("タイトルを入力してください")
	}
	if len([]rune(title)) > maxTitleLength {
		return model.NewValidationError("タイトルが長すぎます")
	}
	if content == "" {
		return model.NewValidationError("本文を入力してください")
	}
	if len([]rune(content)) > maxContentLength {
		return model.NewValidationError("本文が長すぎます")
	}
	return nil
}
