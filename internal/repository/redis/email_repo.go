package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultEmailCodeTTL = 5 * time.Minute
	EmailCodePrefix     = "email:code:"
	CodeResetPrefix     = EmailCodePrefix + "reset"

	// 两阶段键
	PendingSuffix   = "pending"
	ConfirmedSuffix = "confirmed"
)

var (
	ErrEmailNotFound       = errors.New("email code not found")
	ErrEmailCodeDelFailed  = errors.New("email code delete failed")
	ErrCodePendingFailed   = errors.New("code pending failed")
	ErrCodeConfirmedFailed = errors.New("code confirmed failed")
)

// 取值+写入目标+设置 TTL+删除源，原子执行
var promoteScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if not val then
  return 0
end
redis.call("SET", KEYS[2], val, "PX", ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`)

type EmailRepository struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewEmailRepository(client *redis.Client) *EmailRepository {
	return &EmailRepository{Client: client, TTL: DefaultEmailCodeTTL}
}

func (e *EmailRepository) key(suffix, email string) string {
	return fmt.Sprintf("%s:%s:%s", CodeResetPrefix, suffix, email)
}

// ResetEmailCodePending 写入重置验证码的 pending 键
func (e *EmailRepository) ResetEmailCodePending(ctx context.Context, email, code string) error {
	if err := e.Client.Set(ctx, e.key(PendingSuffix, email), code, e.TTL).Err(); err != nil {
		return ErrCodePendingFailed
	}
	return nil
}

// MarkCodeConfirmed 邮件发出后将 pending 转为 confirmed
func (e *EmailRepository) MarkCodeConfirmed(ctx context.Context, email string) error {
	px := int64(e.TTL / time.Millisecond)
	res, err := promoteScript.Run(ctx, e.Client, []string{e.key(PendingSuffix, email), e.key(ConfirmedSuffix, email)}, px).Int()
	if err != nil || res != 1 {
		return ErrCodeConfirmedFailed
	}
	return nil
}

// DeleteCodePending 删除 pending 键（幂等）
func (e *EmailRepository) DeleteCodePending(ctx context.Context, email string) error {
	if err := e.Client.Del(ctx, e.key(PendingSuffix, email)).Err(); err != nil {
		return ErrEmailCodeDelFailed
	}
	return nil
}

func (e *EmailRepository) GetResetConfirmed(ctx context.Context, email string) (string, error) {
	val, err := e.Client.Get(ctx, e.key(ConfirmedSuffix, email)).Result()
	if err != nil {
		return "", ErrEmailNotFound
	}
	return val, nil
}

func (e *EmailRepository) DeleteResetConfirmed(ctx context.Context, email string) error {
	if err := e.Client.Del(ctx, e.key(ConfirmedSuffix, email)).Err(); err != nil {
		return ErrEmailCodeDelFailed
	}
	return nil
}
