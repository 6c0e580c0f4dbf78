package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"GameHub/internal/config"
	"GameHub/internal/model"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.Default()
	cfg.DBDriver = "sqlite"
	cfg.DBDSN = ":memory:"
	conn, err := Open(cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

func seedGame(t *testing.T, conn *gorm.DB, authorID uint64) *model.Game {
	t.Helper()
	game := &model.Game{
		Title:       "Hollow Knight",
		Genre:       "Platform",
		Description: "A challenging 2D action adventure.",
		ImageURL:    "https://example.com/hk.png",
		Platforms:   []string{"PC", "Nintendo Switch"},
		ReleaseYear: 2017,
		AuthorID:    authorID,
		AuthorEmail: "author@example.com",
	}
	if err := (&GameRepository{DB: conn}).Create(context.Background(), game); err != nil {
		t.Fatalf("create game: %v", err)
	}
	return game
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.DBDriver = "oracle"
	if _, err := Open(cfg); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestReviewCreateMaintainsRating(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	game := seedGame(t, conn, 1)
	reviews := &ReviewRepository{DB: conn}
	games := &GameRepository{DB: conn}

	var created []*model.Review
	for i, rating := range []int{4, 5, 3} {
		rv := &model.Review{GameID: game.ID, UserID: uint64(10 + i), Rating: rating, Comment: "solid game overall"}
		if err := reviews.Create(ctx, rv); err != nil {
			t.Fatalf("create review: %v", err)
		}
		created = append(created, rv)
	}

	got, err := games.FindByID(ctx, game.ID)
	if err != nil {
		t.Fatalf("find game: %v", err)
	}
	if got.ReviewsCount != 3 || got.RatingSum != 12 || got.AverageRating != 4.0 {
		t.Fatalf("unexpected aggregate count=%d sum=%d avg=%v", got.ReviewsCount, got.RatingSum, got.AverageRating)
	}

	if _, err := reviews.DeleteWithPermission(ctx, created[1].ID, created[1].UserID, false); err != nil {
		t.Fatalf("delete review: %v", err)
	}
	got, _ = games.FindByID(ctx, game.ID)
	if got.ReviewsCount != 2 || got.AverageRating != 3.5 {
		t.Fatalf("expected 2 reviews avg 3.5, got %d / %v", got.ReviewsCount, got.AverageRating)
	}
}

func TestReviewDuplicateRollsBack(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	game := seedGame(t, conn, 1)
	reviews := &ReviewRepository{DB: conn}

	if err := reviews.Create(ctx, &model.Review{GameID: game.ID, UserID: 7, Rating: 5}); err != nil {
		t.Fatalf("create review: %v", err)
	}
	err := reviews.Create(ctx, &model.Review{GameID: game.ID, UserID: 7, Rating: 1})
	if !errors.Is(err, ErrDuplicateReview) {
		t.Fatalf("expected duplicate review error, got %v", err)
	}

	got, _ := (&GameRepository{DB: conn}).FindByID(ctx, game.ID)
	if got.ReviewsCount != 1 || got.AverageRating != 5 {
		t.Fatalf("aggregate changed by rejected review: %d / %v", got.ReviewsCount, got.AverageRating)
	}
}

func TestReviewForMissingGame(t *testing.T) {
	conn := newTestDB(t)
	err := (&ReviewRepository{DB: conn}).Create(context.Background(), &model.Review{GameID: 999, UserID: 1, Rating: 3})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestReviewDeletePermission(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	game := seedGame(t, conn, 1)
	reviews := &ReviewRepository{DB: conn}

	rv := &model.Review{GameID: game.ID, UserID: 5, Rating: 2}
	if err := reviews.Create(ctx, rv); err != nil {
		t.Fatalf("create review: %v", err)
	}
	if _, err := reviews.DeleteWithPermission(ctx, rv.ID, 6, false); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if _, err := reviews.DeleteWithPermission(ctx, rv.ID, 6, true); err != nil {
		t.Fatalf("privileged delete: %v", err)
	}
	got, _ := (&GameRepository{DB: conn}).FindByID(ctx, game.ID)
	if got.ReviewsCount != 0 || got.AverageRating != 0 {
		t.Fatalf("expected empty aggregate, got %d / %v", got.ReviewsCount, got.AverageRating)
	}
}

func TestSessionVersionConflict(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	repo := &SessionRepository{DB: conn}

	s := &model.Session{
		GameID:         1,
		HostID:         1,
		Title:          "Friday raid",
		MaxPlayers:     4,
		CurrentPlayers: []uint64{1},
		ScheduledTime:  time.Now().Add(time.Hour),
		Status:         model.SessionOpen,
	}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	stale, _ := repo.FindByID(ctx, s.ID)

	updated, err := repo.UpdateVersioned(ctx, s.ID, 2, model.EventSessionJoined, func(cur *model.Session) error {
		cur.CurrentPlayers = append(cur.CurrentPlayers, 2)
		return nil
	})
	if err != nil {
		t.Fatalf("versioned update: %v", err)
	}
	if updated.Version != 1 || len(updated.CurrentPlayers) != 2 {
		t.Fatalf("unexpected session after update: %+v", updated)
	}

	stale.CurrentPlayers = append(stale.CurrentPlayers, 3)
	if err := updateIfVersion(conn, stale, 0); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	reloaded, _ := repo.FindByID(ctx, s.ID)
	if len(reloaded.CurrentPlayers) != 2 || reloaded.CurrentPlayers[1] != 2 {
		t.Fatalf("stale write leaked: %v", reloaded.CurrentPlayers)
	}
}

func TestSessionMutationErrorAborts(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	repo := &SessionRepository{DB: conn}
	s := &model.Session{GameID: 1, HostID: 1, Title: "t", MaxPlayers: 2, CurrentPlayers: []uint64{1}, Status: model.SessionOpen}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	boom := errors.New("boom")
	if _, err := repo.UpdateVersioned(ctx, s.ID, 1, model.EventSessionJoined, func(*model.Session) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected mutation error, got %v", err)
	}
	pending, _ := (&OutboxRepository{DB: conn}).ListPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no outbox rows, got %d", len(pending))
	}
}

func TestGameDeleteCascades(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	game := seedGame(t, conn, 1)
	games := &GameRepository{DB: conn}

	if err := (&ReviewRepository{DB: conn}).Create(ctx, &model.Review{GameID: game.ID, UserID: 2, Rating: 4}); err != nil {
		t.Fatalf("create review: %v", err)
	}
	if err := (&SessionRepository{DB: conn}).Create(ctx, &model.Session{GameID: game.ID, HostID: 2, Title: "x", MaxPlayers: 2, Status: model.SessionOpen}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	affected, err := games.DeleteWithPermission(ctx, game.ID, 2, false)
	if err != nil || affected != 0 {
		t.Fatalf("expected non-author delete to be a no-op, got %d %v", affected, err)
	}
	affected, err = games.DeleteWithPermission(ctx, game.ID, 1, false)
	if err != nil || affected != 1 {
		t.Fatalf("expected author delete, got %d %v", affected, err)
	}

	var reviews, sessions int64
	conn.Model(&model.Review{}).Where("game_id = ?", game.ID).Count(&reviews)
	conn.Model(&model.Session{}).Where("game_id = ?", game.ID).Count(&sessions)
	if reviews != 0 || sessions != 0 {
		t.Fatalf("expected cascade, got %d reviews %d sessions", reviews, sessions)
	}

	pending, _ := (&OutboxRepository{DB: conn}).ListPending(ctx, 10)
	last := pending[len(pending)-1]
	if last.EventType != model.EventGameDeleted || last.AggregateID != game.ID {
		t.Fatalf("expected game.deleted event, got %+v", last)
	}
}

func TestGameUpdateWithPermission(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	game := seedGame(t, conn, 1)
	games := &GameRepository{DB: conn}

	n, err := games.UpdateWithPermission(ctx, game.ID, 2, false, map[string]any{"title": "Stolen"})
	if err != nil || n != 0 {
		t.Fatalf("expected no rows for non-author, got %d %v", n, err)
	}
	n, err = games.UpdateWithPermission(ctx, game.ID, 1, false, map[string]any{"title": "Silksong"})
	if err != nil || n != 1 {
		t.Fatalf("expected author update, got %d %v", n, err)
	}
	got, _ := games.FindByID(ctx, game.ID)
	if got.Title != "Silksong" || len(got.Platforms) != 2 {
		t.Fatalf("unexpected game after update: %+v", got)
	}
}

func TestOutboxLifecycle(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	repo := &OutboxRepository{DB: conn}
	for i := 0; i < 3; i++ {
		if err := insertOutbox(conn, model.EventSessionJoined, uint64(i+1), 9, nil); err != nil {
			t.Fatalf("insert outbox: %v", err)
		}
	}
	rows, err := repo.ListPending(ctx, 2)
	if err != nil || len(rows) != 2 || rows[0].AggregateID != 1 {
		t.Fatalf("unexpected pending batch %v %v", rows, err)
	}
	if err := repo.MarkSent(ctx, rows[0].ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(ctx, rows[1].ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	rows, _ = repo.ListPending(ctx, 10)
	if len(rows) != 1 || rows[0].AggregateID != 3 {
		t.Fatalf("expected only the third event pending, got %v", rows)
	}
	n, err := repo.RequeueFailed(ctx, 3)
	if err != nil || n != 1 {
		t.Fatalf("expected one requeued event, got %d %v", n, err)
	}
}

func TestReconcileHelpers(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	game := seedGame(t, conn, 1)
	games := &GameRepository{DB: conn}
	if err := (&ReviewRepository{DB: conn}).Create(ctx, &model.Review{GameID: game.ID, UserID: 2, Rating: 3}); err != nil {
		t.Fatalf("create review: %v", err)
	}
	conn.Model(&model.Game{}).Where("id = ?", game.ID).UpdateColumns(map[string]any{"reviews_count": 9, "rating_sum": 40})

	rows, last, err := games.ReconcileList(ctx, 10, 0)
	if err != nil || len(rows) != 1 || last != game.ID || rows[0].ReviewsCount != 9 {
		t.Fatalf("unexpected reconcile batch %v %d %v", rows, last, err)
	}
	count, sum, err := games.RealRating(ctx, game.ID)
	if err != nil || count != 1 || sum != 3 {
		t.Fatalf("unexpected real rating %d %d %v", count, sum, err)
	}
	if err := games.FixRating(ctx, game.ID, count, sum); err != nil {
		t.Fatalf("fix rating: %v", err)
	}
	got, _ := games.FindByID(ctx, game.ID)
	if got.ReviewsCount != 1 || got.AverageRating != 3 {
		t.Fatalf("expected repaired aggregate, got %d / %v", got.ReviewsCount, got.AverageRating)
	}
}
