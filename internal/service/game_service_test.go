package service

import (
	"context"
	"errors"
	"testing"

	"GameHub/internal/model"
)

func TestGameCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := env.games()
	ctx := context.Background()

	cases := map[string]func(in *GameInput){
		"short title":      func(in *GameInput) { in.Title = "ab" },
		"unknown genre":    func(in *GameInput) { in.Genre = "Cooking" },
		"short desc":       func(in *GameInput) { in.Description = "too short" },
		"bad image url":    func(in *GameInput) { in.ImageURL = "not a url" },
		"no platforms":     func(in *GameInput) { in.Platforms = nil },
		"unknown platform": func(in *GameInput) { in.Platforms = []string{"Dreamcast"} },
		"ancient release":  func(in *GameInput) { in.ReleaseYear = 1960 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validGameInput()
			mutate(&in)
			if _, err := svc.Create(ctx, player(1), in); !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	game, err := svc.Create(ctx, player(1), validGameInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if game.AuthorID != 1 || game.ReviewsCount != 0 || game.AverageRating != 0 {
		t.Fatalf("unexpected game %+v", game)
	}
}

func TestGameSearchAndList(t *testing.T) {
	env := newTestEnv(t)
	svc := env.games()
	ctx := context.Background()

	in := validGameInput()
	if _, err := svc.Create(ctx, player(1), in); err != nil {
		t.Fatalf("create: %v", err)
	}
	in.Title, in.Genre = "Forza Horizon", "Racing"
	if _, err := svc.Create(ctx, player(2), in); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := svc.Search(ctx, "HOLLOW")
	if err != nil || len(found) != 1 || found[0].Title != "Hollow Knight" {
		t.Fatalf("search by title: %v %v", found, err)
	}
	found, _ = svc.Search(ctx, "racing")
	if len(found) != 1 || found[0].Genre != "Racing" {
		t.Fatalf("search by genre: %v", found)
	}
	found, _ = svc.Search(ctx, "  ")
	if len(found) != 2 {
		t.Fatalf("empty search should list all, got %d", len(found))
	}

	page, _ := svc.List(ctx, 1, 1)
	if len(page) != 1 {
		t.Fatalf("expected one game on page 1, got %d", len(page))
	}
	mine, _ := svc.ListByAuthor(ctx, 2)
	if len(mine) != 1 || mine[0].Title != "Forza Horizon" {
		t.Fatalf("list by author: %v", mine)
	}
}

func TestGameUpdatePermissions(t *testing.T) {
	env := newTestEnv(t)
	svc := env.games()
	ctx := context.Background()
	game := env.seedGame(t, player(1))

	title := "Hollow Knight: Voidheart"
	if _, err := svc.Update(ctx, player(2), game.ID, GamePatch{Title: &title}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}
	if _, err := svc.Update(ctx, withRole(3, model.RoleModerator), game.ID, GamePatch{Title: &title}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for moderator, got %v", err)
	}
	updated, err := svc.Update(ctx, player(1), game.ID, GamePatch{Title: &title})
	if err != nil || updated.Title != title {
		t.Fatalf("author update: %+v %v", updated, err)
	}
	if updated.Genre != "Platform" || len(updated.Platforms) != 2 {
		t.Fatalf("untouched fields changed: %+v", updated)
	}

	year := 2018
	updated, err = svc.Update(ctx, withRole(4, model.RoleAdmin), game.ID, GamePatch{ReleaseYear: &year, Platforms: []string{"PC"}})
	if err != nil || updated.ReleaseYear != 2018 || len(updated.Platforms) != 1 {
		t.Fatalf("admin update: %+v %v", updated, err)
	}

	if _, err := svc.Update(ctx, player(1), 999, GamePatch{Title: &title}); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	bad := "x"
	if _, err := svc.Update(ctx, player(1), game.ID, GamePatch{Title: &bad}); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGameDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	game := env.seedGame(t, player(1))
	if _, err := env.reviews().Create(ctx, player(2), game.ID, 4, "Great atmosphere and music."); err != nil {
		t.Fatalf("review: %v", err)
	}
	env.seedSession(t, player(2), game.ID, 4)

	if err := env.games().Delete(ctx, player(2), game.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := env.games().Delete(ctx, withRole(9, model.RoleModerator), game.ID); err != nil {
		t.Fatalf("moderator delete: %v", err)
	}
	if _, err := env.games().Get(ctx, game.ID); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected game gone, got %v", err)
	}
	reviews, _ := env.reviews().ListByGame(ctx, game.ID)
	sessions, _ := env.sessions().ListByGame(ctx, game.ID)
	if len(reviews) != 0 || len(sessions) != 0 {
		t.Fatalf("expected cascade, got %d reviews %d sessions", len(reviews), len(sessions))
	}
	if err := env.games().Delete(ctx, player(1), game.ID); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
