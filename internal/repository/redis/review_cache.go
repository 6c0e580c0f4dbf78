package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ReviewerSetTTL       = 24 * time.Hour
	RatingStatsTTL       = 10 * time.Minute
	LockTTL              = 300 * time.Millisecond
	ReviewerSetKeyPrefix = "review:set:game"   // 某个游戏已评论的用户ID集合
	ReviewerGenKeyPrefix = "review:gen:game"   // 评论人集合的写版本
	RatingStatsKeyPrefix = "review:stats:game" // 某个游戏的评论数和平均分
	LockKeyPrefix        = "lock:review:game"  // 分布式锁
)

type RatingStats struct {
	Count   int64   `json:"reviews_count"`
	Average float64 `json:"average_rating"`
}

type ReviewCacheRepository struct {
	Client   *redis.Client
	setTTL   time.Duration
	statsTTL time.Duration
}

type DistLock struct {
	RDB *redis.Client
}

func NewReviewCacheRepository(client *redis.Client) *ReviewCacheRepository {
	return &ReviewCacheRepository{
		Client:   client,
		setTTL:   ReviewerSetTTL,
		statsTTL: RatingStatsTTL,
	}
}

func (r *ReviewCacheRepository) reviewerSetKey(gameID uint64) string {
	return fmt.Sprintf("%s:%d", ReviewerSetKeyPrefix, gameID)
}

func (r *ReviewCacheRepository) reviewerGenKey(gameID uint64) string {
	return fmt.Sprintf("%s:%d", ReviewerGenKeyPrefix, gameID)
}

func (r *ReviewCacheRepository) statsKey(gameID uint64) string {
	return fmt.Sprintf("%s:%d", RatingStatsKeyPrefix, gameID)
}

// ReviewerGen 读取评论人集合的写版本，回源前先读，回填时比对
func (r *ReviewCacheRepository) ReviewerGen(ctx context.Context, gameID uint64) (int64, error) {
	gen, err := r.Client.Get(ctx, r.reviewerGenKey(gameID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// InvalidateReviewers 写库成功后调用：版本加一并删除集合
func (r *ReviewCacheRepository) InvalidateReviewers(ctx context.Context, gameID uint64) error {
	genKey := r.reviewerGenKey(gameID)
	_, err := r.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey)
		p.Expire(ctx, genKey, 2*r.setTTL)
		p.Del(ctx, r.reviewerSetKey(gameID))
		return nil
	})
	return err
}

var loadReviewersScript = redis.NewScript(`
local cur = redis.call("get", KEYS[2])
if (cur or "0") ~= ARGV[1] then
  return 0
end
redis.call("del", KEYS[1])
redis.call("sadd", KEYS[1], unpack(ARGV, 3))
redis.call("pexpire", KEYS[1], ARGV[2])
return 1`)

// LoadReviewers 用数据库快照重建集合；读快照之后有过写入则放弃回填
func (r *ReviewCacheRepository) LoadReviewers(ctx context.Context, gameID uint64, gen int64, userIDs []uint64) (bool, error) {
	// 空集合用 0 占位，表示已加载
	args := []any{strconv.FormatInt(gen, 10), r.setTTL.Milliseconds(), 0}
	for _, id := range userIDs {
		args = append(args, id)
	}
	n, err := loadReviewersScript.Run(ctx, r.Client,
		[]string{r.reviewerSetKey(gameID), r.reviewerGenKey(gameID)}, args...).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// HasReviewedCached 返回 (是否评论过, 是否命中缓存, error)
func (r *ReviewCacheRepository) HasReviewedCached(ctx context.Context, gameID, userID uint64) (bool, bool, error) {
	k := r.reviewerSetKey(gameID)
	exists, err := r.Client.Exists(ctx, k).Result()
	if err != nil {
		return false, false, err
	}
	if exists == 0 {
		return false, false, nil
	}
	b, err := r.Client.SIsMember(ctx, k, userID).Result()
	return b, true, err
}

func (r *ReviewCacheRepository) GetStatsCached(ctx context.Context, gameID uint64) (RatingStats, bool, error) {
	vals, err := r.Client.HGetAll(ctx, r.statsKey(gameID)).Result()
	if err != nil {
		return RatingStats{}, false, err
	}
	if len(vals) == 0 {
		return RatingStats{}, false, nil
	}
	count, err := strconv.ParseInt(vals["count"], 10, 64)
	if err != nil {
		return RatingStats{}, false, nil
	}
	avg, err := strconv.ParseFloat(vals["avg"], 64)
	if err != nil {
		return RatingStats{}, false, nil
	}
	return RatingStats{Count: count, Average: avg}, true, nil
}

func (r *ReviewCacheRepository) SetStats(ctx context.Context, gameID uint64, stats RatingStats) error {
	k := r.statsKey(gameID)
	_, err := r.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, "count", stats.Count, "avg", strconv.FormatFloat(stats.Average, 'f', 1, 64))
		p.Expire(ctx, k, r.statsTTL)
		return nil
	})
	return err
}

// DeleteStats 删除统计缓存，delay>0 时异步延迟二删，抵消并发回填窗口
func (r *ReviewCacheRepository) DeleteStats(ctx context.Context, gameID uint64, delay ...time.Duration) error {
	key := r.statsKey(gameID)
	if err := r.Client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if len(delay) > 0 && delay[0] > 0 {
		d := delay[0]
		go func() {
			t := time.NewTimer(d)
			defer t.Stop()
			<-t.C
			_ = r.Client.Del(context.Background(), key).Err()
		}()
	}
	return nil
}

// DropGame 游戏删除后清理全部缓存
func (r *ReviewCacheRepository) DropGame(ctx context.Context, gameID uint64) error {
	return r.Client.Del(ctx, r.reviewerSetKey(gameID), r.reviewerGenKey(gameID), r.statsKey(gameID)).Err()
}

// Acquire 请求加分布式锁
func (l *DistLock) Acquire(ctx context.Context, gameID uint64, token string) (bool, error) {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, gameID)
	return l.RDB.SetNX(ctx, key, token, LockTTL).Result()
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Release 用lua保证原子性
func (l *DistLock) Release(ctx context.Context, gameID uint64, token string) error {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, gameID)
	return releaseScript.Run(ctx, l.RDB, []string{key}, token).Err()
}
