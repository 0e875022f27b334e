// Package mail はアカウント関連メールのfire-and-forget送信を提供する。
// 配送の成否は呼び出し元の処理結果に影響せず、失敗はログにのみ記録される。
package mail

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Config はSMTPMailerの設定。
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	BaseURL  string
}

// SMTPMailer はSMTP経由でメールを送信するNotifier実装。
type SMTPMailer struct {
	config Config
}

// NewSMTPMailer はSMTPMailerを生成する。
func NewSMTPMailer(config Config) *SMTPMailer {
	return &SMTPMailer{config: config}
}

// SendVerificationMail はメール確認リンクを非同期で送信する。
func (m *SMTPMailer) SendVerificationMail(email, token string) {
	link := fmt.Sprintf("%s/auth/verify-email?token=%s", m.config.BaseURL, token)
	body := "以下のリンクを開いてメールアドレスを確認してください。\r\n\r\n" + link + "\r\n"
	go m.send(email, "メールアドレスの確認", body)
}

// SendPasswordResetMail はパスワードリセットリンクを非同期で送信する。
func (m *SMTPMailer) SendPasswordResetMail(email, token string) {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.config.BaseURL, token)
	body := "以下のリンクからパスワードを再設定してください。\r\nリンクの有効期限は30分です。\r\n\r\n" + link + "\r\n"
	go m.send(email, "パスワードの再設定", body)
}

// send はメールを1通送信する。失敗はログにのみ記録する。
// トークンを含む本文はログに出力しない。
func (m *SMTPMailer) send(to, subject, body string) {
	msg := buildMessage(m.config.From, to, subject, body)

	addr := m.config.Host + ":" + m.config.Port
	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if err := smtp.SendMail(addr, auth, m.config.From, []string{to}, msg); err != nil {
		slog.Error("failed to send mail",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.String("error", err.Error()),
		)
		return
	}

	slog.Info("mail sent",
		slog.String("to", to),
		slog.String("subject", subject),
	)
}

// buildMessage はRFC 5322形式のメールメッセージを構築する。
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// LogMailer は実際の送信を行わず、リンクをログに出力するNotifier実装。
// SMTPが未設定のローカル開発環境で使用する。
type LogMailer struct {
	BaseURL string
}

// SendVerificationMail は確認リンクをログに出力する。
func (m *LogMailer) SendVerificationMail(email, token string) {
	slog.Info("verification mail (log only)",
		slog.String("to", email),
		slog.String("link", fmt.Sprintf("%s/auth/verify-email?token=%s", m.BaseURL, token)),
	)
}

// SendPasswordResetMail はリセットリンクをログに出力する。
func (m *LogMailer) SendPasswordResetMail(email, token string) {
	slog.Info("password reset mail (log only)",
		slog.String("to", email),
		slog.String("link", fmt.Sprintf("%s/reset-password?token=%s", m.BaseURL, token)),
	)
}
