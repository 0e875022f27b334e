package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/soapbox/internal/model"
	"github.com/hitoshi/soapbox/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	createFn                   func(ctx context.Context, user *model.User) error
	findByIDFn                 func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn              func(ctx context.Context, email string) (*model.User, error)
	consumeVerificationTokenFn func(ctx context.Context, token string) (string, error)
	setResetTokenFn            func(ctx context.Context, userID, token string, expiry time.Time) error
	resetPasswordByTokenFn     func(ctx context.Context, token, passwordHash string, now time.Time) (string, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) ConsumeVerificationToken(ctx context.Context, token string) (string, error) {
	if m.consumeVerificationTokenFn != nil {
		return m.consumeVerificationTokenFn(ctx, token)
	}
	return "", nil
}

func (m *mockUserRepo) SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error {
	if m.setResetTokenFn != nil {
		return m.setResetTokenFn(ctx, userID, token, expiry)
	}
	return nil
}

func (m *mockUserRepo) ResetPasswordByToken(ctx context.Context, token, passwordHash string, now time.Time) (string, error) {
	if m.resetPasswordByTokenFn != nil {
		return m.resetPasswordByTokenFn(ctx, token, passwordHash, now)
	}
	return "", nil
}

type mockSigner struct {
	issueFn func(userID, email string) (string, error)
}

func (m *mockSigner) Issue(userID, email string) (string, error) {
	if m.issueFn != nil {
		return m.issueFn(userID, email)
	}
	return "signed-credential", nil
}

type mockNotifier struct {
	verificationMails []string // 送信先メールアドレス
	verificationToken string
	resetMails        []string
	resetToken        string
}

func (m *mockNotifier) SendVerificationMail(email, token string) {
	m.verificationMails = append(m.verificationMails, email)
	m.verificationToken = token
}

func (m *mockNotifier) SendPasswordResetMail(email, token string) {
	m.resetMails = append(m.resetMails, email)
	m.resetToken = token
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ SessionSigner = (*mockSigner)(nil)
var _ Notifier = (*mockNotifier)(nil)

func testHasher() BcryptHasher {
	return BcryptHasher{Cost: bcrypt.MinCost}
}

func apiErrorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	return apiErr.Code
}

// --- Register ---

func TestRegister_CreatesUnverifiedUserWithToken(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		createFn: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	notifier := &mockNotifier{}
	svc := NewService(repo, testHasher(), &mockSigner{}, notifier)

	if err := svc.Register(context.Background(), "alice@example.com", "alice", "pw1"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if created == nil {
		t.Fatal("expected user to be created")
	}
	if created.ID == "" {
		t.Error("expected non-empty user ID")
	}
	if created.EmailVerified {
		t.Error("expected EmailVerified = false at registration")
	}
	if created.EmailVerificationToken == nil || *created.EmailVerificationToken == "" {
		t.Fatal("expected verification token to be set")
	}
	if created.ResetToken != nil || created.ResetTokenExpiry != nil {
		t.Error("expected no reset token at registration")
	}

	// 平文パスワードは保存されず、ハッシュのみが保存される
	if created.PasswordHash == "pw1" {
		t.Error("password stored in plaintext")
	}
	if !testHasher().Verify("pw1", created.PasswordHash) {
		t.Error("stored hash does not verify original password")
	}

	// 確認メールが作成されたトークン付きで送信される
	if len(notifier.verificationMails) != 1 || notifier.verificationMails[0] != "alice@example.com" {
		t.Errorf("verification mails = %v, want [alice@example.com]", notifier.verificationMails)
	}
	if notifier.verificationToken != *created.EmailVerificationToken {
		t.Error("mailed token does not match stored token")
	}
}

func TestRegister_DuplicateEmail_ReturnsDuplicateEmailError(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(_ context.Context, _ *model.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	notifier := &mockNotifier{}
	svc := NewService(repo, testHasher(), &mockSigner{}, notifier)

	err := svc.Register(context.Background(), "a@x.com", "bob", "pw2")
	if code := apiErrorCode(t, err); code != model.ErrCodeDuplicateEmail {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeDuplicateEmail)
	}
	if len(notifier.verificationMails) != 0 {
		t.Error("expected no mail on failed registration")
	}
}

func TestRegister_DuplicateUsername_ReturnsDuplicateUsernameError(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(_ context.Context, _ *model.User) error {
			return repository.ErrDuplicateUsername
		},
	}
	svc := NewService(repo, testHasher(), &mockSigner{}, &mockNotifier{})

	err := svc.Register(context.Background(), "b@x.com", "alice", "pw2")
	if code := apiErrorCode(t, err); code != model.ErrCodeDuplicateUsername {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeDuplicateUsername)
	}
}

func TestRegister_StorageFault_PropagatesAsInternalError(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(_ context.Context, _ *model.User) error {
			return errors.New("connection refused")
		},
	}
	svc := NewService(repo, testHasher(), &mockSigner{}, &mockNotifier{})

	err := svc.Register(context.Background(), "a@x.com", "alice", "pw1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("storage fault should not map to APIError, got %v", apiErr)
	}
}

// --- VerifyEmail ---

func TestVerifyEmail_ConsumesToken(t *testing.T) {
	var consumed string
	repo := &mockUserRepo{
		consumeVerificationTokenFn: func(_ context.Context, token string) (string, error) {
			consumed = token
			return "user-1", nil
		},
	}
	svc := NewService(repo, testHasher(), &mockSigner{}, &mockNotifier{})

	if err := svc.VerifyEmail(context.Background(), "token-abc"); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	if consumed != "token-abc" {
		t.Errorf("consumed token = %q, want %q", consumed, "token-abc")
	}
}

func TestVerifyEmail_UnknownToken_ReturnsInvalidToken(t *testing.T) {
	repo := &mockUserRepo{
		consumeVerificationTokenFn: func(_ context.Context, _ string) (string, error) {
			return "", nil
		},
	}
	svc := NewService(repo, testHasher(), &mockSigner{}, &mockNotifier{})

	err := svc.VerifyEmail(context.Background(), "no-such-token")
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidToken {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeInvalidToken)
	}
}

func TestVerifyEmail_ConsumedTokenReuse_ReturnsInvalidToken(t *testing.T) {
	// 1回目は成功し、2回目以降は一致しない（消費済み）
	calls := 0
	repo := &mockUserRepo{
		consumeVerificationTokenFn: func(_ context.Context, _ string) (string, error) {
			calls++
			if calls == 1 {
				return "user-1", nil
			}
			return "", nil
		},
	}
	svc := NewService(repo, testHasher(), &mockSigner{}, &mockNotifier{})

	if err := svc.VerifyEmail(context.Background(), "token-abc"); err != nil {
		t.Fatalf("first VerifyEmail returned error: %v", err)
	}

	err := svc.VerifyEmail(context.Background(), "token-abc")
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidToken {
		t.Errorf("second VerifyEmail error code = %q, want %q", code, model.ErrCodeInvalidToken)
	}
}

func TestVerifyEmail_EmptyToken_ReturnsInvalidToken(t *testing.T) {
	svc := NewService(&mockUserRepo{}, testHasher(), &mockSigner{}, &mockNotifier{})

	err := svc.VerifyEmail(context.Background(), "")
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidToken {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeInvalidToken)
	}
}

// --- Login ---

func verifiedUser(t *testing.T, email, username, password string) *model.User {
	t.Helper()
	hash, err := testHasher().Hash(password)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	return &model.User{
		ID:            "user-1",
		Email:         email,
		Username:      username,
		PasswordHash:  hash,
		EmailVerified: true,
	}
}

func TestLogin_Success_IssuesSessionCredential(t *testing.T) {
	user := verifiedUser(t, "alice@example.com", "alice", "pw1")
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return user, nil
		},
	}
	var issuedUserID, issuedEmail string
	signer := &mockSigner{
		issueFn: func(userID, email string) (string, error) {
			issuedUserID = userID
			issuedEmail = email
			return "credential-xyz", nil
		},
	}
	svc := NewService(repo, testHasher(), signer, &mockNotifier{})

	credential, err := svc.Login(context.Background(), "alice@example.com", "pw1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if credential != "credential-xyz" {
		t.Errorf("credential = %q, want %q", credential, "credential-xyz")
	}
	if issuedUserID != "user-1" || issuedEmail != "alice@example.com" {
		t.Errorf("issued for (%q, %q), want (user-1, alice@example.com)", issuedUserID, issuedEmail)
	}
}

func TestLogin_UnknownEmailAndWrongPassword_ReturnIdenticalError(t *testing.T) {
	user := verifiedUser(t, "alice@example.com", "alice", "pw1")
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			if email == "alice@example.com" {
				return user, nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo, testHasher(), &mockSigner{}, &mockNotifier{})

	_, errUnknown := svc.Login(context.Background(), "nobody@example.com", "pw1")
	_, errWrongPw := svc.Login(context.Background(), "alice@example.com", "wrong")

	if errUnknown == nil || errWrongPw == nil {
		t.Fatal("expected both logins to fail")
	}

	// アカウント不存在とパスワード不一致でエラー内容が完全に一致すること
	if errUnknown.Error() != errWrongPw.Error() {
		t.Errorf("error content differs:\n unknown email: %v\n wrong password: %v", errUnknown, errWrongPw)
	}
	if code := apiErrorCode(t, errUnknown); code != model.ErrCodeInvalidCredentials {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeInvalidCredentials)
	}
}

func TestLogin_UnverifiedEmail_ReturnsEmailNotVerified(t *testing.T) {
	user := verifiedUser(t, "alice@example.com", "alice", "pw1")
	user.EmailVerified = false
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return user, nil
		},
	}
	svc := NewService(repo, testHasher(), &mockSigner{}, &mockNotifier{})

	_, err := svc.Login(context.Background(), "alice@example.com", "pw1")
	if code := apiErrorCode(t, err); code != model.ErrCodeEmailNotVerified {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeEmailNotVerified)
	}
}

func TestLogin_UnverifiedEmailWithWrongPassword_ReturnsInvalidCredentials(t *testing.T) {
	// パスワード検証が先。未確認かどうかはパスワードが正しい場合にのみ明かす
	user := verifiedUser(t, "alice@example.com", "alice", "pw1")
	user.EmailVerified = false
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return user, nil
		},
	}
	svc := NewService(repo, testHasher(), &mockSigner{}, &mockNotifier{})

	_, err := svc.Login(context.Background(), "alice@example.com", "wrong")
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidCredentials {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeInvalidCredentials)
	}
}

// --- ForgotPassword ---

func TestForgotPassword_KnownEmail_SetsTokenWith30MinuteExpiry(t *testing.T) {
	user := verifiedUser(t, "alice@example.com", "alice", "pw1")
	var setUserID, setToken string
	var setExpiry time.Time
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return user, nil
		},
		setResetTokenFn: func(_ context.Context, userID, token string, expiry time.Time) error {
			setUserID = userID
			setToken = token
			setExpiry = expiry
			return nil
		},
	}
	notifier := &mockNotifier{}
	svc := NewService(repo, testHasher(), &mockSigner{}, notifier)

	fixedNow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixedNow }

	if err := svc.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}

	if setUserID != "user-1" {
		t.Errorf("reset token set for %q, want user-1", setUserID)
	}
	if setToken == "" {
		t.Fatal("expected non-empty reset token")
	}
	if want := fixedNow.Add(30 * time.Minute); !setExpiry.Equal(want) {
		t.Errorf("expiry = %v, want %v", setExpiry, want)
	}

	if len(notifier.resetMails) != 1 || notifier.resetMails[0] != "alice@example.com" {
		t.Errorf("reset mails = %v, want [alice@example.com]", notifier.resetMails)
	}
	if notifier.resetToken != setToken {
		t.Error("mailed token does not match stored token")
	}
}

func TestForgotPassword_UnknownEmail_SucceedsWithoutSideEffects(t *testing.T) {
	setCalled := false
	repo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, nil
		},
		setResetTokenFn: func(_ context.Context, _, _ string, _ time.Time) error {
			setCalled = true
			return nil
		},
	}
	notifier := &mockNotifier{}
	svc := NewService(repo, testHasher(), &mockSigner{}, notifier)

	// アカウント列挙を防ぐため、存在しないメールアドレスでも成功を返す
	if err := svc.ForgotPassword(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}
	if setCalled {
		t.Error("expected no reset token to be set")
	}
	if len(notifier.resetMails) != 0 {
		t.Error("expected no mail to be sent")
	}
}

// --- ResetPassword ---

func TestResetPassword_ValidToken_ReplacesPasswordHash(t *testing.T) {
	var consumedToken, newHash string
	repo := &mockUserRepo{
		resetPasswordByTokenFn: func(_ context.Context, token, passwordHash string, _ time.Time) (string, error) {
			consumedToken = token
			newHash = passwordHash
			return "user-1", nil
		},
	}
	svc := NewService(repo, testHasher(), &mockSigner{}, &mockNotifier{})

	if err := svc.ResetPassword(context.Background(), "reset-token", "pw3"); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}

	if consumedToken != "reset-token" {
		t.Errorf("consumed token = %q, want %q", consumedToken, "reset-token")
	}
	if newHash == "pw3" {
		t.Error("new password stored in plaintext")
	}
	if !testHasher().Verify("pw3", newHash) {
		t.Error("stored hash does not verify new password")
	}
}

func TestResetPassword_UnknownOrExpiredToken_ReturnsInvalidOrExpiredToken(t *testing.T) {
	repo := &mockUserRepo{
		resetPasswordByTokenFn: func(_ context.Context, _, _ string, _ time.Time) (string, error) {
			return "", nil
		},
	}
	svc := NewService(repo, testHasher(), &mockSigner{}, &mockNotifier{})

	err := svc.ResetPassword(context.Background(), "expired-token", "pw3")
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidOrExpiredToken {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeInvalidOrExpiredToken)
	}
}

func TestResetPassword_EmptyToken_ReturnsInvalidOrExpiredToken(t *testing.T) {
	svc := NewService(&mockUserRepo{}, testHasher(), &mockSigner{}, &mockNotifier{})

	err := svc.ResetPassword(context.Background(), "", "pw3")
	if code := apiErrorCode(t, err); code != model.ErrCodeInvalidOrExpiredToken {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeInvalidOrExpiredToken)
	}
}

func TestResetPassword_PassesCurrentTimeToStore(t *testing.T) {
	var gotNow time.Time
	repo := &mockUserRepo{
		resetPasswordByTokenFn: func(_ context.Context, _, _ string, now time.Time) (string, error) {
			gotNow = now
			return "user-1", nil
		},
	}
	svc := NewService(repo, testHasher(), &mockSigner{}, &mockNotifier{})

	fixedNow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixedNow }

	if err := svc.ResetPassword(context.Background(), "reset-token", "pw3"); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}
	if !gotNow.Equal(fixedNow) {
		t.Errorf("now = %v, want %v", gotNow, fixedNow)
	}
}
