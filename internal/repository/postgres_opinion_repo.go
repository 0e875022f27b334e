package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/soapbox/internal/model"
)

// PostgresOpinionRepo はPostgreSQLを使用した意見リポジトリ。
type PostgresOpinionRepo struct {
	db *sql.DB
}

// NewPostgresOpinionRepo はPostgresOpinionRepoを生成する。
func NewPostgresOpinionRepo(db *sql.DB) *PostgresOpinionRepo {
	return &PostgresOpinionRepo{db: db}
}

// Create は意見を作成する。
func (r *PostgresOpinionRepo) Create(ctx context.Context, opinion *model.Opinion) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO opinions (id, user_id, title, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		opinion.ID, opinion.UserID, opinion.Title, opinion.Content,
		opinion.CreatedAt, opinion.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert opinion: %w", err)
	}
	return nil
}

// FindByID は指定IDの意見を取得する。見つからない場合はnilを返す。
func (r *PostgresOpinionRepo) FindByID(ctx context.Context, id string) (*model.Opinion, error) {
	opinion := &model.Opinion{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, content, created_at, updated_at
		 FROM opinions WHERE id = $1`,
		id,
	).Scan(
		&opinion.ID, &opinion.UserID, &opinion.Title, &opinion.Content,
		&opinion.CreatedAt, &opinion.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find opinion: %w", err)
	}

	return opinion, nil
}

// Update は意見のタイトル・本文・updated_atを更新する。user_idは変更しない。
func (r *PostgresOpinionRepo) Update(ctx context.Context, opinion *model.Opinion) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE opinions
		 SET title = $2, content = $3, updated_at = $4
		 WHERE id = $1`,
		opinion.ID, opinion.Title, opinion.Content, opinion.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update opinion: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("opinion not found: %s", opinion.ID)
	}
	return nil
}

// Delete は指定IDの意見を削除する。
func (r *PostgresOpinionRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM opinions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete opinion: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("opinion not found: %s", id)
	}
	return nil
}

// List は公開意見の一覧を新着順で返す。投稿者のユーザー名を結合し、総件数も同時に返す。
func (r *PostgresOpinionRepo) List(ctx context.Context, offset, limit int) ([]OpinionWithAuthor, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM opinions`,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count opinions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT o.id, o.user_id, o.title, o.content, o.created_at, o.updated_at,
		        u.username
		 FROM opinions o
		 JOIN users u ON u.id = o.user_id
		 ORDER BY o.created_at DESC
		 OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list opinions: %w", err)
	}
	defer rows.Close()

	var opinions []OpinionWithAuthor
	for rows.Next() {
		var o OpinionWithAuthor
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Title, &o.Content, &o.CreatedAt, &o.UpdatedAt,
			&o.AuthorUsername,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan opinion: %w", err)
		}
		opinions = append(opinions, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate opinions: %w", err)
	}

	return opinions, total, nil
}

// compile-time interface check
var _ OpinionRepository = (*PostgresOpinionRepo)(nil)
