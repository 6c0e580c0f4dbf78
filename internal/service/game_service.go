package service

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"GameHub/internal/model"
	"GameHub/internal/repository/db"
	"GameHub/internal/repository/redis"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GameService struct {
	repo  *db.GameRepository
	cache *redis.ReviewCacheRepository
}

type GameInput struct {
	Title       string
	Genre       string
	Description string
	ImageURL    string
	Platforms   []string
	ReleaseYear int
}

// GamePatch nil 字段保持不变
type GamePatch struct {
	Title       *string
	Genre       *string
	Description *string
	ImageURL    *string
	Platforms   []string
	ReleaseYear *int
}

func NewGameService(conn *gorm.DB, cache *redis.ReviewCacheRepository) *GameService {
	return &GameService{
		repo:  &db.GameRepository{DB: conn},
		cache: cache,
	}
}

func validateTitle(title string) error {
	if utf8.RuneCountInString(strings.TrimSpace(title)) < 3 {
		return invalid("Title must be at least 3 characters")
	}
	return nil
}

func validateGenre(genre string) error {
	if !model.IsGenre(genre) {
		return invalid("Please select a valid genre")
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(strings.TrimSpace(desc)) < 20 {
		return invalid("Description must be at least 20 characters")
	}
	return nil
}

func validateImageURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("Please provide a valid image URL")
	}
	return nil
}

func validatePlatforms(platforms []string) error {
	if len(platforms) == 0 {
		return invalid("Select at least one platform")
	}
	for _, p := range platforms {
		if !model.IsPlatform(p) {
			return invalid("Unknown platform: " + p)
		}
	}
	return nil
}

func validateReleaseYear(year int) error {
	if year < model.MinReleaseYear || year > time.Now().Year()+1 {
		return invalid("Please provide a valid release year")
	}
	return nil
}

func (in GameInput) validate() error {
	for _, err := range []error{
		validateTitle(in.Title),
		validateGenre(in.Genre),
		validateDescription(in.Description),
		validateImageURL(in.ImageURL),
		validatePlatforms(in.Platforms),
		validateReleaseYear(in.ReleaseYear),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *GameService) Create(ctx context.Context, who Identity, in GameInput) (*model.Game, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	game := &model.Game{
		Title:       strings.TrimSpace(in.Title),
		Genre:       in.Genre,
		Description: strings.TrimSpace(in.Description),
		ImageURL:    in.ImageURL,
		Platforms:   datatypes.JSONSlice[string](in.Platforms),
		ReleaseYear: in.ReleaseYear,
		AuthorID:    who.UserID,
		AuthorEmail: who.Email,
	}
	if err := s.repo.Create(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

// List size<=0 返回全部
func (s *GameService) List(ctx context.Context, page, size int) ([]model.Game, error) {
	offset, limit := pageBounds(page, size)
	return s.repo.List(ctx, offset, limit)
}

func (s *GameService) Get(ctx context.Context, id uint64) (*model.Game, error) {
	game, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return game, nil
}

func (s *GameService) ListByAuthor(ctx context.Context, authorID uint64) ([]model.Game, error) {
	return s.repo.ListByAuthor(ctx, authorID)
}

// Search 标题或类型的大小写不敏感子串匹配，全量读取后在内存中过滤
func (s *GameService) Search(ctx context.Context, term string) ([]model.Game, error) {
	all, err := s.repo.List(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return all, nil
	}
	out := make([]model.Game, 0, len(all))
	for _, g := range all {
		if strings.Contains(strings.ToLower(g.Title), term) || strings.Contains(strings.ToLower(g.Genre), term) {
			out = append(out, g)
		}
	}
	return out, nil
}

// Update 作者或管理员可编辑
func (s *GameService) Update(ctx context.Context, who Identity, id uint64, patch GamePatch) (*model.Game, error) {
	fields := map[string]any{}
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return nil, err
		}
		fields["title"] = strings.TrimSpace(*patch.Title)
	}
	if patch.Genre != nil {
		if err := validateGenre(*patch.Genre); err != nil {
			return nil, err
		}
		fields["genre"] = *patch.Genre
	}
	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			return nil, err
		}
		fields["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.ImageURL != nil {
		if err := validateImageURL(*patch.ImageURL); err != nil {
			return nil, err
		}
		fields["image_url"] = *patch.ImageURL
	}
	if patch.Platforms != nil {
		if err := validatePlatforms(patch.Platforms); err != nil {
			return nil, err
		}
		fields["platforms"] = datatypes.JSONSlice[string](patch.Platforms)
	}
	if patch.ReleaseYear != nil {
		if err := validateReleaseYear(*patch.ReleaseYear); err != nil {
			return nil, err
		}
		fields["release_year"] = *patch.ReleaseYear
	}

	affected, err := s.repo.UpdateWithPermission(ctx, id, who.UserID, who.IsAdmin(), fields)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, s.missingOrForbidden(ctx, id)
	}
	return s.Get(ctx, id)
}

// Delete 作者、版主或管理员可删除，评论和会话一并删除
func (s *GameService) Delete(ctx context.Context, who Identity, id uint64) error {
	affected, err := s.repo.DeleteWithPermission(ctx, id, who.UserID, who.IsStaff())
	if err != nil {
		return err
	}
	if affected == 0 {
		return s.missingOrForbidden(ctx, id)
	}
	if s.cache != nil {
		if err := s.cache.DropGame(ctx, id); err != nil {
			log.Printf("drop review cache for game %d: %v", id, err)
		}
	}
	return nil
}

func (s *GameService) missingOrForbidden(ctx context.Context, id uint64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrForbidden
}
