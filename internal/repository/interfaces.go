// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/soapbox/internal/model"
)

// ErrDuplicateEmail / ErrDuplicateUsername はDBの一意制約違反を表す。
// 登録の重複チェックは事前のSELECTではなく、INSERT時の制約違反で検出する。
// 同時リクエストでも高々1件しか成功しないことをDBが保証する。
var (
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
)

// UserRepository はアカウントデータの永続化インターフェース。
type UserRepository interface {
	// Create はアカウントを作成する。
	// メールアドレスまたはユーザー名が既存の場合はErrDuplicateEmail /
	// ErrDuplicateUsernameを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのアカウントを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// ConsumeVerificationToken は確認トークンを1回限りで消費し、
	// email_verifiedをtrueにしてトークンをクリアする。
	// 消費と検証は単一のUPDATEで行い、再送された消費済みトークンには一致しない。
	// 一致するアカウントがない場合は空文字列を返す。
	ConsumeVerificationToken(ctx context.Context, token string) (userID string, err error)

	// SetResetToken はリセットトークンと有効期限をペアで設定する。
	// 既存の保留中リセットは上書きされる。
	SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error

	// ResetPasswordByToken は有効期限内のリセットトークンを1回限りで消費し、
	// パスワードハッシュを差し替えてトークンと有効期限を同時にクリアする。
	// 期限判定はnowとの比較を同一UPDATE内で行い、並行する期限切れと競合しない。
	// 一致するアカウントがない場合は空文字列を返す。
	ResetPasswordByToken(ctx context.Context, token, passwordHash string, now time.Time) (userID string, err error)
}

// OpinionWithAuthor は意見と投稿者のユーザー名を結合した構造体。
// 公開一覧のレスポンス生成に使用する。
type OpinionWithAuthor struct {
	model.Opinion
	AuthorUsername string
}

// OpinionRepository は意見データの永続化インターフェース。
type OpinionRepository interface {
	// Create は意見を作成する。
	Create(ctx context.Context, opinion *model.Opinion) error

	// FindByID は指定IDの意見を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Opinion, error)

	// Update は意見のタイトル・本文・updated_atを更新する。
	// user_idは更新対象に含めない。
	Update(ctx context.Context, opinion *model.Opinion) error

	// Delete は指定IDの意見を削除する。
	Delete(ctx context.Context, id string) error

	// List は公開意見の一覧を新着順で返す。
	// offset/limitによるページングを行い、総件数も同時に返す。
	List(ctx context.Context, offset, limit int) ([]OpinionWithAuthor, int, error)
}
