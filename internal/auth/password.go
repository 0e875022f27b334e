package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher はパスワードの一方向ハッシュ化と検証のインターフェース。
type PasswordHasher interface {
	// Hash は平文パスワードをソルト付きでハッシュ化する。
	// ソルトは呼び出しごとにランダムに生成されるため、同一入力でも出力は毎回異なる。
	Hash(plaintext string) (string, error)

	// Verify は平文パスワードとハッシュの一致を検証する。
	// ストレージ破損等で不正なハッシュが渡された場合もpanicせずfalseを返す。
	Verify(plaintext, hash string) bool
}

// BcryptHasher はbcryptによるPasswordHasherの実装。
// コストはハッシュ文字列自体に埋め込まれるため、後からコストを変更しても
// 既存ハッシュの検証は壊れない。
type BcryptHasher struct {
	// Cost はbcryptのワークファクタ。0の場合はbcrypt.DefaultCostを使用する。
	Cost int
}

// Hash は平文パスワードをbcryptでハッシュ化する。
func (h BcryptHasher) Hash(plaintext string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify は平文パスワードとbcryptハッシュの一致を検証する。
// 不正なハッシュ形式の場合はエラーを握りつぶしてfalseを返す。
func (h BcryptHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// compile-time interface check
var _ PasswordHasher = BcryptHasher{}
