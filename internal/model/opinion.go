package model

import "time"

// Opinion はユーザーが投稿した意見を表す。
// UserIDは作成時に確定し、以降変更されない。
type Opinion struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
