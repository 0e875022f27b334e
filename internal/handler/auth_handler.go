// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/soapbox/internal/metrics"
	"github.com/hitoshi/soapbox/internal/model"
)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 8

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, email, username, password string) error
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。collectorはnil可。
func NewAuthHandler(service AuthServiceInterface, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: collector,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// forgotPasswordRequest はパスワードリセット申請リクエストのボディ。
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// resetPasswordRequest はパスワードリセット実行リクエストのボディ。
type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// messageResponse は本文が短い成功レスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// Register はユーザー登録を処理する。登録直後のアカウントは未確認状態で、
// 確認メールのリンクを開くまでログインできない。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := validateRegisterRequest(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, err)
		return
	}

	if err := h.service.Register(r.Context(), req.Email, req.Username, req.Password); err != nil {
		handleServiceError(w, err)
		return
	}

	h.recordRegistration()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(messageResponse{
		Message: "登録を受け付けました。確認メールをご確認ください。",
	})
}

// VerifyEmail はメールアドレス確認を処理する。
// GET /auth/verify-email?token=xxx
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	if err := h.service.VerifyEmail(r.Context(), token); err != nil {
		handleServiceError(w, err)
		return
	}

	h.recordEmailVerification()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messageResponse{
		Message: "メールアドレスの確認が完了しました。",
	})
}

// Login はログインを処理し、成功時に署名付きセッション資格情報を返す。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.recordLoginFailure()
		handleServiceError(w, err)
		return
	}

	h.recordLoginSuccess()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"token": token,
	})
}

// ForgotPassword はパスワードリセット申請を処理する。
// アカウントの存在有無に関わらず常に同じ成功レスポンスを返す。
// POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messageResponse{
		Message: "登録されているメールアドレスの場合、リセット手順を送信しました。",
	})
}

// ResetPassword はパスワードリセット実行を処理する。
// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if len(req.NewPassword) < minPasswordLength {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("パスワードは8文字以上で入力してください"))
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}

	h.recordPasswordReset()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messageResponse{
		Message: "パスワードを変更しました。新しいパスワードでログインしてください。",
	})
}

// validateRegisterRequest は登録リクエストの入力を検証する。
func validateRegisterRequest(req *registerRequest) *model.APIError {
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if strings.TrimSpace(req.Username) == "" {
		return model.NewValidationError("ユーザー名を入力してください")
	}
	if len(req.Password) < minPasswordLength {
		return model.NewValidationError("パスワードは8文字以上で入力してください")
	}
	return nil
}

func (h *AuthHandler) recordRegistration() {
	if h.metrics != nil {
		h.metrics.RecordRegistration()
	}
}

func (h *AuthHandler) recordEmailVerification() {
	if h.metrics != nil {
		h.metrics.RecordEmailVerification()
	}
}

func (h *AuthHandler) recordLoginSuccess() {
	if h.metrics != nil {
		h.metrics.RecordLoginSuccess()
	}
}

func (h *AuthHandler) recordLoginFailure() {
	if h.metrics != nil {
		h.metrics.RecordLoginFailure()
	}
}

func (h *AuthHandler) recordPasswordReset() {
	if h.metrics != nil {
		h.metrics.RecordPasswordReset()
	}
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeInvalidRequestBody はJSONボディ解析失敗時の400レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeDuplicateEmail, model.ErrCodeDuplicateUsername:
		return http.StatusBadRequest
	case model.ErrCodeInvalidToken, model.ErrCodeInvalidOrExpiredToken:
		return http.StatusBadRequest
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials, model.ErrCodeEmailNotVerified:
		return http.StatusUnauthorized
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeOpinionNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
