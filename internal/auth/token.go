package auth

import (
	"crypto/rand"
	"encoding/hex"
)

// NewOpaqueToken は暗号論的に安全な乱数から256ビットの不透明トークンを生成する。
// メール確認トークンとリセットトークンの両方で使用するが、
// 格納先カラムが異なるため相互に流用することはできない。
// トークンはアカウントIDやメールアドレスから導出されない。
func NewOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
