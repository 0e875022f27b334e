// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用アカウントを表す。
// PasswordHashにはbcryptハッシュのみを格納し、平文パスワードは一切保持しない。
type User struct {
	ID            string
	Email         string
	Username      string
	PasswordHash  string
	EmailVerified bool

	// EmailVerificationToken はメール確認が未完了の間のみ非nil。
	// 確認成功時にクリアされ、以降同じトークンは無効になる。
	EmailVerificationToken *string

	// ResetToken / ResetTokenExpiry はパスワードリセットが保留中の間のみ
	// ペアで非nil。リセット成功時に両方同時にクリアされる。
	ResetToken       *string
	ResetTokenExpiry *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
