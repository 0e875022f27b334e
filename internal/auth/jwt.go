package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// セッション資格情報の検証エラー。
// 期限切れとその他の無効（署名不正・発行者不一致・形式不正）を区別する。
var (
	ErrSessionExpired = errors.New("session credential expired")
	ErrInvalidSession = errors.New("invalid session credential")
)

// Identity はセッション資格情報が主張するアカウントの同一性を表す。
type Identity struct {
	UserID string
	Email  string
}

// SignerConfig はJWTSignerの設定。署名鍵は設定から供給され、
// ユーザー入力から導出されることはない。
type SignerConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	ExpiresIn time.Duration
}

// JWTSigner はHMAC署名付きのステートレスなセッション資格情報を発行・検証する。
// サーバー側のセッションテーブルは持たず、検証は純粋に暗号論的に行う。
// このため自然失効前の取り消しはサポートしない。
type JWTSigner struct {
	secret    []byte
	issuer    string
	audience  string
	expiresIn time.Duration

	// now はテストで時刻を固定するために差し替える
	now func() time.Time
}

// sessionClaims はJWTに埋め込むクレーム。
type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// NewJWTSigner はJWTSignerを生成する。
func NewJWTSigner(config SignerConfig) *JWTSigner {
	return &JWTSigner{
		secret:    []byte(config.Secret),
		issuer:    config.Issuer,
		audience:  config.Audience,
		expiresIn: config.ExpiresIn,
		now:       time.Now,
	}
}

// Issue は指定アカウントのセッション資格情報を発行する。
// 発行者・対象者・有効期限が署名の対象に含まれる。
func (s *JWTSigner) Issue(userID, email string) (string, error) {
	now := s.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session credential: %w", err)
	}

	return signed, nil
}

// Verify はセッション資格情報を検証し、主張されたアカウントの同一性を返す。
// 形式不正・署名不正・発行者/対象者の不一致はErrInvalidSession、
// 期限切れはErrSessionExpiredを返す。ストレージへの問い合わせは行わない。
func (s *JWTSigner) Verify(credential string) (*Identity, error) {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(credential, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidSession
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidSession
	}

	return &Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
	}, nil
}
