// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, opinion, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateEmail        = "DUPLICATE_EMAIL"
	ErrCodeDuplicateUsername     = "DUPLICATE_USERNAME"
	ErrCodeInvalidToken          = "INVALID_TOKEN"
	ErrCodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeEmailNotVerified      = "EMAIL_NOT_VERIFIED"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeOpinionNotFound       = "OPINION_NOT_FOUND"
	ErrCodeValidation            = "VALIDATION"
)

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  "このユーザー名は既に使用されています。",
		Category: "auth",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewInvalidTokenError はメール確認トークンが無効な場合のエラーを生成する。
// 未発行のトークンと消費済みのトークンは区別しない。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "確認トークンが無効です。",
		Category: "auth",
		Action:   "確認メールに記載されたリンクを開き直すか、再度登録してください。",
	}
}

// NewInvalidOrExpiredTokenError はリセットトークンが無効または期限切れの場合のエラーを生成する。
func NewInvalidOrExpiredTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidOrExpiredToken,
		Message:  "リセットトークンが無効か、有効期限が切れています。",
		Category: "auth",
		Action:   "パスワードリセットを再度申請してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// アカウントの不存在とパスワード不一致を意図的に区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailNotVerifiedError はメール未確認エラーを生成する。
func NewEmailNotVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotVerified,
		Message:  "メールアドレスの確認が完了していません。",
		Category: "auth",
		Action:   "確認メールに記載されたリンクを開いてから、再度ログインしてください。",
	}
}

// NewUnauthorizedError は認証情報が欠落または無効な場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインして再度お試しください。",
	}
}

// NewForbiddenError は認証済みだが権限がない場合のエラーを生成する。
// リソースの不存在（OPINION_NOT_FOUND）とは区別される。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "自分が投稿した意見のみ編集・削除できます。",
	}
}

// NewOpinionNotFoundError は意見が見つからない場合のエラーを生成する。
func NewOpinionNotFoundError(opinionID string) *APIError {
	return &APIError{
		Code:     ErrCodeOpinionNotFound,
		Message:  fmt.Sprintf("指定された意見が見つかりません: %s", opinionID),
		Category: "opinion",
		Action:   "意見IDを確認してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}
