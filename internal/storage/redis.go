package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

const (
	alertHistoryKey = "alerts:history"
	statsKeyPrefix  = "stats"
	statsTTL        = time.Hour
)

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	// MaxAlerts caps the alert history; AlertTTL expires it when idle.
	MaxAlerts int64
	AlertTTL  time.Duration
}

// RedisClient publishes alerts and keeps dashboard counters in Redis.
type RedisClient struct {
	client    *redis.Client
	channel   string
	maxAlerts int64
	alertTTL  time.Duration
	logger    *slog.Logger
}

func NewRedisClient(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*RedisClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	r := &RedisClient{
		client:    client,
		channel:   opts.Channel,
		maxAlerts: opts.MaxAlerts,
		alertTTL:  opts.AlertTTL,
		logger:    logger,
	}
	if r.channel == "" {
		r.channel = "alerts"
	}
	if r.maxAlerts <= 0 {
		r.maxAlerts = DefaultMaxAlerts
	}
	return r, nil
}

// PublishAlert publishes alert to subscribers and appends it to the capped
// history.
func (r *RedisClient) PublishAlert(ctx context.Context, alert models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, alertHistoryKey, redis.Z{
		Score:  float64(alert.Timestamp.UnixNano()),
		Member: string(data),
	})
	// Keep only the newest maxAlerts entries.
	pipe.ZRemRangeByRank(ctx, alertHistoryKey, 0, -r.maxAlerts-1)
	if r.alertTTL > 0 {
		pipe.Expire(ctx, alertHistoryKey, r.alertTTL)
	}
	pipe.Publish(ctx, r.channel, string(data))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (r *RedisClient) RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		return []models.Alert{}, nil
	}
	results, err := r.client.ZRevRange(ctx, alertHistoryKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read alerts: %w", err)
	}

	alerts := make([]models.Alert, 0, len(results))
	for _, result := range results {
		var alert models.Alert
		if err := json.Unmarshal([]byte(result), &alert); err != nil {
			r.logger.Warn("Skipping unreadable alert", "error", err)
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// RecordBatch folds a batch's counters into its minute window.
func (r *RedisClient) RecordBatch(ctx context.Context, stats models.BatchStats) error {
	key := statsKey(stats.At)

	pipe := r.client.Pipeline()
	pipe.HIncrBy(ctx, key, "batches", 1)
	pipe.HIncrBy(ctx, key, "urls_analyzed", int64(stats.URLs))
	if stats.Degraded {
		pipe.HIncrBy(ctx, key, "degraded_batches", 1)
	}
	for level, n := range stats.Levels {
		pipe.HIncrBy(ctx, key, "level:"+string(level), int64(n))
	}
	for rule, n := range stats.RuleHits {
		pipe.ZIncrBy(ctx, key+":rules", float64(n), string(rule))
	}
	for identity, density := range stats.Identities {
		pipe.PFAdd(ctx, key+":identities", identity)
		if density > 0 {
			pipe.ZIncrBy(ctx, key+":identity_attacks", float64(density), identity)
		}
	}

	pipe.Expire(ctx, key, statsTTL)
	pipe.Expire(ctx, key+":rules", statsTTL)
	pipe.Expire(ctx, key+":identities", statsTTL)
	pipe.Expire(ctx, key+":identity_attacks", statsTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record batch stats: %w", err)
	}
	return nil
}

// Stats reads the minute window containing at.
func (r *RedisClient) Stats(ctx context.Context, at time.Time) (*models.WindowStats, error) {
	key := statsKey(at)

	data, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoStats, at.Truncate(time.Minute).Format(time.RFC3339))
	}

	stats := newWindowStats(at)
	for field, raw := range data {
		var n int
		if _, err := fmt.Sscan(raw, &n); err != nil {
			continue
		}
		switch {
		case field == "batches":
			stats.Batches = n
		case field == "urls_analyzed":
			stats.URLsAnalyzed = n
		case field == "degraded_batches":
			stats.DegradedBatches = n
		case strings.HasPrefix(field, "level:"):
			stats.Levels[strings.TrimPrefix(field, "level:")] = n
		}
	}

	unique, err := r.client.PFCount(ctx, key+":identities").Result()
	if err == nil {
		stats.UniqueIdentities = int(unique)
	}
	stats.TopIdentities = r.top(ctx, key+":identity_attacks", 10)
	stats.TopRules = r.top(ctx, key+":rules", 10)
	return stats, nil
}

func (r *RedisClient) top(ctx context.Context, key string, n int64) []models.Count {
	entries, err := r.client.ZRevRangeWithScores(ctx, key, 0, n-1).Result()
	if err != nil {
		r.logger.Warn("Reading top list failed", "key", key, "error", err)
		return []models.Count{}
	}
	counts := make([]models.Count, 0, len(entries))
	for _, z := range entries {
		member, _ := z.Member.(string)
		counts = append(counts, models.Count{Key: member, Count: int(z.Score)})
	}
	return withPercentages(counts)
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

func statsKey(at time.Time) string {
	return fmt.Sprintf("%s:%d", statsKeyPrefix, at.Truncate(time.Minute).Unix())
}
