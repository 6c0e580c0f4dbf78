package service

import "errors"

// 面向用户的业务错误，handler 统一映射状态码
var (
	ErrUnauthorized       = errors.New("Please sign in to continue")
	ErrForbidden          = errors.New("You do not have permission to perform this action")
	ErrUserNotFound       = errors.New("User not found")
	ErrGameNotFound       = errors.New("Game not found")
	ErrReviewNotFound     = errors.New("Review not found")
	ErrSessionNotFound    = errors.New("Session not found")
	ErrAlreadyReviewed    = errors.New("You have already reviewed this game")
	ErrAlreadyJoined      = errors.New("You have already joined this session")
	ErrSessionFull        = errors.New("Session is full")
	ErrNotInSession       = errors.New("You are not in this session")
	ErrConcurrentUpdate   = errors.New("Session was modified concurrently, please retry")
	ErrEmailTaken         = errors.New("Email is already registered")
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrWrongPassword      = errors.New("Current password is incorrect")
	ErrInvalidCode        = errors.New("Verification code is invalid or expired")
	ErrInvalidToken       = errors.New("Invalid or expired token")
)

// ValidationError 输入校验失败，Msg 直接返回给用户
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error {
	return &ValidationError{Msg: msg}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
