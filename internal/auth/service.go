// Package auth はアカウントのライフサイクル管理とセッション資格情報の
// 発行・検証を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/soapbox/internal/model"
	"github.com/hitoshi/soapbox/internal/repository"
)

// リセットトークンの有効期間。発行時ではなく消費時に判定される。
const resetTokenTTL = 30 * time.Minute

// dummyPasswordHash はアカウント不存在時にも検証処理を実行し、
// 存在有無による応答時間差を作らないためのダミーハッシュ。
// いかなる入力とも一致しない。
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Notifier はメール通知のインターフェース。
// 送信はfire-and-forgetであり、配送の成否は呼び出し元の結果に影響しない。
type Notifier interface {
	// SendVerificationMail はメール確認リンクを送信する。
	SendVerificationMail(email, token string)
	// SendPasswordResetMail はパスワードリセットリンクを送信する。
	SendPasswordResetMail(email, token string)
}

// SessionSigner はセッション資格情報の発行インターフェース。
// JWTSignerの部分集合として定義する。
type SessionSigner interface {
	Issue(userID, email string) (string, error)
}

// Service はアカウントのライフサイクルに関するビジネスロジックを提供する。
// 登録 → メール確認 → ログイン → パスワード忘れ/リセットの各遷移を
// Credential Store・ハッシュ化・トークン発行・署名を組み合わせて実行する。
type Service struct {
	users    repository.UserRepository
	hasher   PasswordHasher
	signer   SessionSigner
	notifier Notifier

	// now はテストで時刻を固定するために差し替える
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	hasher PasswordHasher,
	signer SessionSigner,
	notifier Notifier,
) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		signer:   signer,
		notifier: notifier,
		now:      time.Now,
	}
}

// Register は新規アカウントを未確認状態で作成し、確認トークン付きの
// メールを送信する。メール配送の成否に関わらず成功を返す。
// メールアドレスまたはユーザー名が既存の場合はそれぞれの重複エラーを返す。
// 一意性の判定はINSERT時のDB制約で行うため、同時の重複登録は高々1件しか成功しない。
func (s *Service) Register(ctx context.Context, email, username, password string) error {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	token, err := NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:                     uuid.New().String(),
		Email:                  email,
		Username:               username,
		PasswordHash:           passwordHash,
		EmailVerified:          false,
		EmailVerificationToken: &token,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		switch err {
		case repository.ErrDuplicateEmail:
			return model.NewDuplicateEmailError()
		case repository.ErrDuplicateUsername:
			return model.NewDuplicateUsernameError()
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	// fire-and-forget: 配送失敗は登録の成否に影響しない
	s.notifier.SendVerificationMail(email, token)

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)

	return nil
}

// VerifyEmail は確認トークンを消費してメールアドレスを確認済みにする。
// トークンは1回限り有効で、消費済みトークンの再送はInvalidTokenになる。
// email_verifiedはfalse→trueに高々1回だけ遷移し、以降戻らない。
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return model.NewInvalidTokenError()
	}

	userID, err := s.users.ConsumeVerificationToken(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to consume verification token: %w", err)
	}
	if userID == "" {
		return model.NewInvalidTokenError()
	}

	slog.Info("email verified", slog.String("user_id", userID))
	return nil
}

// Login はメールアドレスとパスワードを検証し、セッション資格情報を発行する。
// アカウント不存在とパスワード不一致は同一のInvalidCredentialsを返し、
// どちらが原因かを明かさない。メール未確認の場合はEmailNotVerifiedを返す。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// アカウント不存在でもハッシュ検証を実行し、応答時間差を作らない
		s.hasher.Verify(password, dummyPasswordHash)
		return "", model.NewInvalidCredentialsError()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", model.NewInvalidCredentialsError()
	}

	if !user.EmailVerified {
		return "", model.NewEmailNotVerifiedError()
	}

	credential, err := s.signer.Issue(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("failed to issue session credential: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return credential, nil
}

// ForgotPassword はパスワードリセットを開始する。
// アカウントの存在有無に関わらず同一の結果を返し、列挙攻撃を防ぐ。
// アカウントが存在する場合は新しいリセットトークンと30分の有効期限を設定し、
// リセットリンク付きのメールを送信する。
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// 存在しないアカウントでも成功として扱う
		return nil
	}

	token, err := NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiry := s.now().Add(resetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	// fire-and-forget: 配送失敗は結果に影響しない
	s.notifier.SendPasswordResetMail(user.Email, token)

	slog.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword は有効期限内のリセットトークンを消費してパスワードを差し替える。
// トークン不一致と期限切れはどちらもInvalidOrExpiredTokenになる。
// 成功時はリセットトークンと有効期限が同時にクリアされる。
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return model.NewInvalidOrExpiredTokenError()
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.users.ResetPasswordByToken(ctx, token, passwordHash, s.now())
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	if userID == "" {
		return model.NewInvalidOrExpiredTokenError()
	}

	slog.Info("password reset completed", slog.String("user_id", userID))
	return nil
}
