package service

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"
	"unicode/utf8"

	"GameHub/internal/model"
	"GameHub/internal/pkg"
	"GameHub/internal/repository/db"
	"GameHub/internal/repository/redis"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	repo     *db.UserRepository
	tokens   *redis.TokenRepository
	jwt      *pkg.JWT
	emailSvc *EmailService
}

type ProfilePatch struct {
	DisplayName *string
	PhotoURL    *string
}

func NewUserService(conn *gorm.DB, tokens *redis.TokenRepository, jwt *pkg.JWT, emailSvc *EmailService) *UserService {
	return &UserService{
		repo:     &db.UserRepository{DB: conn},
		tokens:   tokens,
		jwt:      jwt,
		emailSvc: emailSvc,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("Please enter a valid email")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return invalid("Password must be at least 6 characters")
	}
	return nil
}

func validateDisplayName(name string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) < 3 {
		return invalid("Display name must be at least 3 characters")
	}
	return nil
}

// Register 注册成功即登录
func (s *UserService) Register(ctx context.Context, email, password, displayName string) (*model.User, *pkg.Pair, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if err = validatePassword(password); err != nil {
		return nil, nil, err
	}
	if err = validateDisplayName(displayName); err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	user := &model.User{
		Email:       email,
		Password:    string(hash),
		DisplayName: strings.TrimSpace(displayName),
		Role:        model.RoleUser,
	}
	if err = s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}
	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, *pkg.Pair, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}
	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// issue 签发 token 并写入 redis，旧 token 随之失效
func (s *UserService) issue(ctx context.Context, user *model.User) (*pkg.Pair, error) {
	pair, err := s.jwt.GeneratePair(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	if err = s.tokens.AddUserToken(ctx, user.ID, pair.AccessToken); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	return s.tokens.DeleteUserToken(ctx, userID)
}

// Refresh 轮换 token 对，并把新的 access token 写回 redis
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := s.jwt.ParseRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return s.issue(ctx, user)
}

// ChangePassword 登录态修改密码，成功后强制重新登录
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err = s.repo.UpdatePassword(ctx, user, string(hash)); err != nil {
		return err
	}
	return s.Logout(ctx, userID)
}

// SendResetCode 未注册的邮箱静默成功，不暴露账号是否存在
func (s *UserService) SendResetCode(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if _, err = s.repo.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.emailSvc.SendResetCode(ctx, email)
}

func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	ok, err := s.emailSvc.VerifyResetCode(ctx, email, code)
	if err != nil || !ok {
		return ErrInvalidCode
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err = s.repo.UpdatePassword(ctx, user, string(hash)); err != nil {
		return err
	}
	return s.Logout(ctx, user.ID)
}

// ResolveIdentity 读取资料；不存在则按默认角色创建；失败时返回不落库的默认身份
func (s *UserService) ResolveIdentity(ctx context.Context, claims *pkg.Claims) Identity {
	fallback := Identity{
		UserID:      claims.UserID,
		Email:       claims.Email,
		DisplayName: displayNameFromEmail(claims.Email),
		Role:        model.RoleUser,
		Fallback:    true,
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = &model.User{
			ID:          claims.UserID,
			Email:       claims.Email,
			DisplayName: fallback.DisplayName,
			Role:        model.RoleUser,
		}
		err = s.repo.Create(ctx, user)
	}
	if err != nil {
		log.Printf("resolve identity user=%d: %v, using default profile", claims.UserID, err)
		return fallback
	}
	return Identity{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}
}

func displayNameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

func (s *UserService) GetProfile(ctx context.Context, userID uint64) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint64, patch ProfilePatch) (*model.User, error) {
	fields := map[string]any{}
	if patch.DisplayName != nil {
		if err := validateDisplayName(*patch.DisplayName); err != nil {
			return nil, err
		}
		fields["display_name"] = strings.TrimSpace(*patch.DisplayName)
	}
	if patch.PhotoURL != nil {
		if *patch.PhotoURL != "" {
			if err := validateImageURL(*patch.PhotoURL); err != nil {
				return nil, err
			}
		}
		fields["photo_url"] = *patch.PhotoURL
	}
	if err := s.repo.UpdateProfile(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// UpdateRole 仅管理员可调用；角色变化在下一次请求解析身份时生效
func (s *UserService) UpdateRole(ctx context.Context, who Identity, userID uint64, role model.Role) (*model.User, error) {
	if !who.IsAdmin() {
		return nil, ErrForbidden
	}
	if !role.Valid() {
		return nil, invalid("Unknown role: " + string(role))
	}
	// 角色未变化时 mysql 返回 0 行，存在性由 GetProfile 判断
	if _, err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context, who Identity, page, size int) ([]model.User, error) {
	if !who.IsAdmin() {
		return nil, ErrForbidden
	}
	if size <= 0 {
		size = 20
	}
	offset, limit := pageBounds(page, size)
	return s.repo.List(ctx, offset, limit)
}
