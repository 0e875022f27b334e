package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/soapbox/internal/model"
)

// PostgreSQLの一意制約違反コード
const pgUniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// Create はアカウントを作成する。
// 一意制約違反は違反した制約名からErrDuplicateEmail / ErrDuplicateUsernameに変換する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, email_verified,
		                    email_verification_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.Username, user.PasswordHash, user.EmailVerified,
		user.EmailVerificationToken, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			switch pqErr.Constraint {
			case "users_email_key":
				return ErrDuplicateEmail
			case "users_username_key":
				return ErrDuplicateUsername
			}
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findBy(ctx, `WHERE id = $1`, id)
}

// FindByEmail は指定メールアドレスのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findBy(ctx, `WHERE email = $1`, email)
}

func (r *PostgresUserRepo) findBy(ctx context.Context, where string, arg any) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, email_verified,
		        email_verification_token, reset_token, reset_token_expiry,
		        created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.EmailVerified,
		&user.EmailVerificationToken, &user.ResetToken, &user.ResetTokenExpiry,
		&user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// ConsumeVerificationToken は確認トークンを1回限りで消費する。
// 検証・確認済みフラグ設定・トークンのクリアを単一のUPDATEで行うため、
// 同一トークンの並行消費は高々1件しか成功しない。
func (r *PostgresUserRepo) ConsumeVerificationToken(ctx context.Context, token string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET email_verified = TRUE,
		     email_verification_token = NULL,
		     updated_at = now()
		 WHERE email_verification_token = $1
		 RETURNING id`,
		token,
	).Scan(&userID)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume verification token: %w", err)
	}

	return userID, nil
}

// SetResetToken はリセットトークンと有効期限をペアで設定する。
func (r *PostgresUserRepo) SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET reset_token = $2,
		     reset_token_expiry = $3,
		     updated_at = now()
		 WHERE id = $1`,
		userID, token, expiry,
	)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// ResetPasswordByToken は有効期限内のリセットトークンを1回限りで消費する。
// 期限チェック・ハッシュ差し替え・トークンのクリアを単一のUPDATEで行う。
func (r *PostgresUserRepo) ResetPasswordByToken(ctx context.Context, token, passwordHash string, now time.Time) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET password_hash = $2,
		     reset_token = NULL,
		     reset_token_expiry = NULL,
		     updated_at = now()
		 WHERE reset_token = $1
		   AND reset_token_expiry > $3
		 RETURNING id`,
		token, passwordHash, now,
	).Scan(&userID)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to reset password: %w", err)
	}

	return userID, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
