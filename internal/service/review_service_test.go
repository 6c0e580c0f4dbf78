package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"GameHub/internal/model"
)

func TestReviewAverageIsMaintained(t *testing.T) {
	env := newTestEnv(t)
	svc := env.reviews()
	ctx := context.Background()
	game := env.seedGame(t, player(1))

	var toDelete *model.Review
	for i, rating := range []int{4, 5, 3} {
		r, err := svc.Create(ctx, player(uint64(10+i)), game.ID, rating, "Solid game, would play again.")
		if err != nil {
			t.Fatalf("create review %d: %v", rating, err)
		}
		if rating == 5 {
			toDelete = r
		}
	}
	got, _ := env.games().Get(ctx, game.ID)
	if got.ReviewsCount != 3 || got.AverageRating != 4.0 {
		t.Fatalf("expected 3 reviews avg 4.0, got %d %.1f", got.ReviewsCount, got.AverageRating)
	}

	if err := svc.Delete(ctx, player(11), toDelete.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = env.games().Get(ctx, game.ID)
	if got.ReviewsCount != 2 || got.AverageRating != 3.5 {
		t.Fatalf("expected 2 reviews avg 3.5, got %d %.1f", got.ReviewsCount, got.AverageRating)
	}
}

func TestReviewRoundsToOneDecimal(t *testing.T) {
	env := newTestEnv(t)
	svc := env.reviews()
	ctx := context.Background()
	game := env.seedGame(t, player(1))

	for i, rating := range []int{5, 4, 4} {
		if _, err := svc.Create(ctx, player(uint64(20+i)), game.ID, rating, "Fun with friends on weekends."); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	got, _ := env.games().Get(ctx, game.ID)
	if got.AverageRating != 4.3 {
		t.Fatalf("expected 4.3, got %v", got.AverageRating)
	}
}

func TestReviewValidationAndDuplicates(t *testing.T) {
	env := newTestEnv(t)
	svc := env.reviews()
	ctx := context.Background()
	game := env.seedGame(t, player(1))

	if _, err := svc.Create(ctx, player(2), game.ID, 0, "Rating missing here."); !IsValidation(err) {
		t.Fatalf("expected validation for rating, got %v", err)
	}
	if _, err := svc.Create(ctx, player(2), game.ID, 3, "short"); !IsValidation(err) {
		t.Fatalf("expected validation for comment, got %v", err)
	}
	if _, err := svc.Create(ctx, player(2), 999, 3, "No such game exists."); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected game not found, got %v", err)
	}
	if _, err := svc.Create(ctx, player(2), game.ID, 3, "Decent but repetitive."); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, player(2), game.ID, 5, "Changed my mind, love it."); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected already reviewed, got %v", err)
	}

	// 缓存丢失后回源仍能识别
	env.MR.FlushAll()
	if _, err := svc.Create(ctx, player(2), game.ID, 5, "Changed my mind, love it."); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected already reviewed after cache loss, got %v", err)
	}
	got, _ := env.games().Get(ctx, game.ID)
	if got.ReviewsCount != 1 {
		t.Fatalf("duplicate must not change count, got %d", got.ReviewsCount)
	}
}

func TestHasUserReviewedFollowsWrites(t *testing.T) {
	env := newTestEnv(t)
	svc := env.reviews()
	ctx := context.Background()
	game := env.seedGame(t, player(1))

	if ok, err := svc.HasUserReviewed(ctx, game.ID, 2); err != nil || ok {
		t.Fatalf("expected false before review, got %v %v", ok, err)
	}
	r, err := svc.Create(ctx, player(2), game.ID, 4, "Tight controls, great bosses.")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, _ := svc.HasUserReviewed(ctx, game.ID, 2); !ok {
		t.Fatalf("expected true right after review")
	}
	if err := svc.Delete(ctx, player(2), r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := svc.HasUserReviewed(ctx, game.ID, 2); ok {
		t.Fatalf("expected false after delete")
	}
}

func TestReviewerSetSkipsStaleRefillAfterDelete(t *testing.T) {
	env := newTestEnv(t)
	svc := env.reviews()
	ctx := context.Background()
	game := env.seedGame(t, player(1))

	r, err := svc.Create(ctx, player(2), game.ID, 3, "Decent, but the ending drags.")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 回源读到快照后，删除先提交，再用旧快照回填
	gen, err := env.Cache.ReviewerGen(ctx, game.ID)
	if err != nil {
		t.Fatalf("gen: %v", err)
	}
	snapshot, _ := svc.ListByGame(ctx, game.ID)
	ids := make([]uint64, 0, len(snapshot))
	for _, rv := range snapshot {
		ids = append(ids, rv.UserID)
	}
	if err := svc.Delete(ctx, player(2), r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	loaded, err := env.Cache.LoadReviewers(ctx, game.ID, gen, ids)
	if err != nil || loaded {
		t.Fatalf("stale snapshot must not be loaded, loaded=%v err=%v", loaded, err)
	}

	if ok, err := svc.HasUserReviewed(ctx, game.ID, 2); err != nil || ok {
		t.Fatalf("expected false after delete, got %v %v", ok, err)
	}
	if _, err := svc.Create(ctx, player(2), game.ID, 4, "Second playthrough was better."); err != nil {
		t.Fatalf("review again after delete: %v", err)
	}
}

func TestReviewerSetSkipsStaleRefillAfterCreate(t *testing.T) {
	env := newTestEnv(t)
	svc := env.reviews()
	ctx := context.Background()
	game := env.seedGame(t, player(1))

	gen, _ := env.Cache.ReviewerGen(ctx, game.ID)
	snapshot, _ := svc.ListByGame(ctx, game.ID)
	if len(snapshot) != 0 {
		t.Fatalf("expected empty snapshot, got %d", len(snapshot))
	}
	if _, err := svc.Create(ctx, player(3), game.ID, 5, "Instant classic, loved it."); err != nil {
		t.Fatalf("create: %v", err)
	}
	if loaded, _ := env.Cache.LoadReviewers(ctx, game.ID, gen, nil); loaded {
		t.Fatalf("empty snapshot taken before the review must not be loaded")
	}
	if ok, _ := svc.HasUserReviewed(ctx, game.ID, 3); !ok {
		t.Fatalf("expected reviewer to be seen")
	}
	if _, err := svc.Create(ctx, player(3), game.ID, 1, "Changed my mind entirely."); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected already reviewed, got %v", err)
	}
}

func TestReviewDeletePermissions(t *testing.T) {
	env := newTestEnv(t)
	svc := env.reviews()
	ctx := context.Background()
	game := env.seedGame(t, player(1))

	r, err := svc.Create(ctx, player(2), game.ID, 2, "Too grindy for my taste.")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, player(3), r.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.Delete(ctx, withRole(4, model.RoleModerator), r.ID); err != nil {
		t.Fatalf("moderator delete: %v", err)
	}
	if err := svc.Delete(ctx, player(2), r.ID); !errors.Is(err, ErrReviewNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	list, _ := svc.ListByUser(ctx, 2)
	if len(list) != 0 {
		t.Fatalf("expected no reviews left, got %d", len(list))
	}
}

func TestRatingStatsCachedAndInvalidated(t *testing.T) {
	env := newTestEnv(t)
	svc := env.reviews()
	ctx := context.Background()
	game := env.seedGame(t, player(1))

	stats, err := svc.RatingStats(ctx, game.ID)
	if err != nil || stats.Count != 0 {
		t.Fatalf("initial stats: %+v %v", stats, err)
	}
	if _, hit, _ := env.Cache.GetStatsCached(ctx, game.ID); !hit {
		t.Fatalf("expected stats cached after first read")
	}

	if _, err := svc.Create(ctx, player(2), game.ID, 5, "Masterpiece of the genre."); err != nil {
		t.Fatalf("create: %v", err)
	}
	stats, err = svc.RatingStats(ctx, game.ID)
	if err != nil || stats.Count != 1 || stats.Average != 5 {
		t.Fatalf("stats after review: %+v %v", stats, err)
	}

	if _, err := svc.RatingStats(ctx, 999); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected game not found, got %v", err)
	}
}

func TestRatingStatsWithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	svc := env.reviews()
	ctx := context.Background()
	game := env.seedGame(t, player(1))

	if _, err := svc.Create(ctx, player(2), game.ID, 4, "Solid co-op experience."); err != nil {
		t.Fatalf("create: %v", err)
	}
	// 退避设得很长，走到退避分支会明显超时
	svc.lockBackoff = time.Minute
	env.MR.Close()

	start := time.Now()
	stats, err := svc.RatingStats(ctx, game.ID)
	if err != nil {
		t.Fatalf("stats without redis: %v", err)
	}
	if stats.Count != 1 || stats.Average != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if elapsed := time.Since(start); elapsed >= 30*time.Second {
		t.Fatalf("redis failure must not wait for the lock backoff, took %v", elapsed)
	}
}
