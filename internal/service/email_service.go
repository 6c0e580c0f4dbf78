package service

import (
	"context"

	"GameHub/internal/pkg"
	"GameHub/internal/repository/redis"
)

// Mailer 发送 HTML 邮件，生产环境为 pkg.SMTPMailer
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

type EmailService struct {
	mailer Mailer
	rds    *redis.EmailRepository
}

func NewEmailService(mailer Mailer, rds *redis.EmailRepository) *EmailService {
	return &EmailService{mailer: mailer, rds: rds}
}

// SendResetCode 发送重置密码验证码
func (s *EmailService) SendResetCode(ctx context.Context, email string) error {
	code, err := pkg.RandDigits(6)
	if err != nil {
		return err
	}

	// 先写入pending键
	if err = s.rds.ResetEmailCodePending(ctx, email, code); err != nil {
		return err
	}

	html := pkg.EmailCodeHTML("reset your password", code, s.rds.TTL)
	if err = s.mailer.Send(email, "GameHub password reset code", html); err != nil {
		_ = s.rds.DeleteCodePending(ctx, email)
		return err
	}

	// 邮件发送后再将pending转为confirmed
	if err = s.rds.MarkCodeConfirmed(ctx, email); err != nil {
		_ = s.rds.DeleteCodePending(ctx, email)
		return err
	}
	return nil
}

// VerifyResetCode 校验验证码，成功后一次性删除
func (s *EmailService) VerifyResetCode(ctx context.Context, email, code string) (bool, error) {
	val, err := s.rds.GetResetConfirmed(ctx, email)
	if err != nil {
		return false, err
	}
	if val != code {
		return false, nil
	}
	if err = s.rds.DeleteResetConfirmed(ctx, email); err != nil {
		return false, err
	}
	return true, nil
}
