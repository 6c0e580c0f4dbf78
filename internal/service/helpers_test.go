package service

import (
	"context"
	"testing"
	"time"

	"GameHub/internal/config"
	"GameHub/internal/model"
	"GameHub/internal/pkg"
	"GameHub/internal/repository/db"
	"GameHub/internal/repository/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type testEnv struct {
	DB    *gorm.DB
	Redis *goredis.Client
	MR    *miniredis.Miniredis
	Cache *redis.ReviewCacheRepository
	JWT   *pkg.JWT
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.DBDriver = "sqlite"
	cfg.DBDSN = ":memory:"
	conn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	client, err := redis.NewClient(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &testEnv{
		DB:    conn,
		Redis: client,
		MR:    mr,
		Cache: redis.NewReviewCacheRepository(client),
		JWT:   pkg.NewJWT("test-access", "test-refresh", time.Minute, time.Hour),
	}
}

func (e *testEnv) games() *GameService {
	return NewGameService(e.DB, e.Cache)
}

func (e *testEnv) reviews() *ReviewService {
	return NewReviewService(e.DB, e.Cache, &redis.DistLock{RDB: e.Redis})
}

func (e *testEnv) sessions() *SessionService {
	return NewSessionService(e.DB)
}

func player(id uint64) Identity {
	return Identity{UserID: id, Email: "player@example.com", Role: model.RoleUser}
}

func withRole(id uint64, role model.Role) Identity {
	return Identity{UserID: id, Email: "staff@example.com", Role: role}
}

func validGameInput() GameInput {
	return GameInput{
		Title:       "Hollow Knight",
		Genre:       "Platform",
		Description: "A challenging 2D action adventure through a ruined kingdom.",
		ImageURL:    "https://example.com/hk.png",
		Platforms:   []string{"PC", "Nintendo Switch"},
		ReleaseYear: 2017,
	}
}

func (e *testEnv) seedGame(t *testing.T, author Identity) *model.Game {
	t.Helper()
	game, err := e.games().Create(context.Background(), author, validGameInput())
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	return game
}

func (e *testEnv) seedSession(t *testing.T, host Identity, gameID uint64, maxPlayers int) *model.Session {
	t.Helper()
	sess, err := e.sessions().Create(context.Background(), host, SessionInput{
		GameID:        gameID,
		Title:         "Friday night run",
		Description:   "Casual co-op, all welcome.",
		MaxPlayers:    maxPlayers,
		ScheduledTime: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}
