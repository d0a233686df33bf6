package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hitoshi/wealthio/internal/model"
	"github.com/redis/go-redis/v9"
)

const msgTooManyLoginAttempts = "Too many login attempts. Try again later."

// LoginLimitResult は1回の試行を記録した結果を表す。
type LoginLimitResult struct {
	Allowed    bool
	Count      int
	RetryAfter time.Duration // 窓がリセットされるまでの残り時間
}

// LoginLimiter はキー（クライアントIP）ごとのログイン試行回数を固定窓で数える。
type LoginLimiter interface {
	// Hit は試行を1回記録し、許可されるかどうかを返す。
	Hit(ctx context.Context, key string) (LoginLimitResult, error)
	// Reset はキーの試行回数を0に戻す。
	Reset(ctx context.Context, key string) error
}

// LoginRateLimitRecorder はレート制限発動を記録するメトリクスのインターフェース。
type LoginRateLimitRecorder interface {
	RecordLoginRateLimited()
}

// LoginLimiterConfig は固定窓の設定を保持する。
type LoginLimiterConfig struct {
	Max    int           // 窓内で許可する試行回数
	Window time.Duration // 窓の長さ。最初の試行から計測する
}

// DefaultLoginLimiterConfig はデフォルトの設定（15分あたり10回）を返す。
func DefaultLoginLimiterConfig() LoginLimiterConfig {
	return LoginLimiterConfig{
		Max:    10,
		Window: 15 * time.Minute,
	}
}

func (c LoginLimiterConfig) normalized() LoginLimiterConfig {
	def := DefaultLoginLimiterConfig()
	if c.Max <= 0 {
		c.Max = def.Max
	}
	if c.Window <= 0 {
		c.Window = def.Window
	}
	return c
}

// --- インメモリ実装 ---

// loginWindow はキーごとの試行回数と窓の終了時刻を保持する。
type loginWindow struct {
	count   int
	resetAt time.Time
}

// MemoryLoginLimiter はプロセス内のマップで試行回数を管理するLoginLimiter。
// 単一インスタンス構成向け。
type MemoryLoginLimiter struct {
	config LoginLimiterConfig
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*loginWindow

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryLoginLimiter はMemoryLoginLimiterを生成する。
// バックグラウンドで期限切れの窓を定期的に削除する。
func NewMemoryLoginLimiter(config LoginLimiterConfig) *MemoryLoginLimiter {
	l := newMemoryLoginLimiter(config, time.Now)
	go l.cleanupLoop()
	return l
}

func newMemoryLoginLimiter(config LoginLimiterConfig, now func() time.Time) *MemoryLoginLimiter {
	return &MemoryLoginLimiter{
		config:  config.normalized(),
		now:     now,
		windows: make(map[string]*loginWindow),
		stopCh:  make(chan struct{}),
	}
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (l *MemoryLoginLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Hit は試行を記録する。
func (l *MemoryLoginLimiter) Hit(_ context.Context, key string) (LoginLimitResult, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &loginWindow{resetAt: now.Add(l.config.Window)}
		l.windows[key] = w
	}
	w.count++

	return LoginLimitResult{
		Allowed:    w.count <= l.config.Max,
		Count:      w.count,
		RetryAfter: w.resetAt.Sub(now),
	}, nil
}

// Reset はキーの窓を破棄する。
func (l *MemoryLoginLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.windows, key)
	l.mu.Unlock()
	return nil
}

// Len は現在管理している窓の数を返す。テスト用。
func (l *MemoryLoginLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *MemoryLoginLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.Window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// cleanup は終了時刻を過ぎた窓を削除する。
func (l *MemoryLoginLimiter) cleanup() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

// --- Redis実装 ---

const redisLoginKeyPrefix = "wealthio:login:"

// RedisLoginLimiter はRedisのカウンタで試行回数を管理するLoginLimiter。
// 複数インスタンス間で試行回数を共有する。
type RedisLoginLimiter struct {
	client redis.Cmdable
	config LoginLimiterConfig
}

// NewRedisLoginLimiter はRedisLoginLimiterを生成する。
func NewRedisLoginLimiter(client redis.Cmdable, config LoginLimiterConfig) *RedisLoginLimiter {
	return &RedisLoginLimiter{
		client: client,
		config: config.normalized(),
	}
}

// Hit はINCRで試行を記録する。
// INCRとEXPIRE NXを1つのトランザクションで送るため、カウンタに有効期限が付かないまま残ることはない。
func (l *RedisLoginLimiter) Hit(ctx context.Context, key string) (LoginLimitResult, error) {
	redisKey := redisLoginKeyPrefix + key

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, l.config.Window)
		return nil
	})
	if err != nil {
		return LoginLimitResult{}, fmt.Errorf("failed to record login attempt: %w", err)
	}
	count := incr.Val()

	result := LoginLimitResult{
		Allowed:    count <= int64(l.config.Max),
		Count:      int(count),
		RetryAfter: l.config.Window,
	}
	if result.Allowed {
		return result, nil
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		slog.WarnContext(ctx, "failed to read login window ttl",
			slog.String("client_ip", key),
			slog.String("error", err.Error()),
		)
		return result, nil
	}
	if ttl > 0 {
		result.RetryAfter = ttl
	}
	return result, nil
}

// Reset はキーを削除する。
func (l *RedisLoginLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, redisLoginKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

// --- ミドルウェア ---

// loginResetContextKey はログイン成功時に試行回数をリセットする関数を格納するキー。
var loginResetContextKey = contextKey("login_reset")

// NewLoginRateLimitMiddleware はクライアントIPごとにログイン試行を制限するミドルウェアを返す。
// 上限を超えた試行には資格情報に関わらず429を返す。
// ストアのエラー時はリクエストを通過させる。
func NewLoginRateLimitMiddleware(limiter LoginLimiter, recorder LoginRateLimitRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)

			result, err := limiter.Hit(r.Context(), key)
			if err != nil {
				slog.Error("login rate limiter unavailable",
					slog.String("client_ip", key),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				if recorder != nil {
					recorder.RecordLoginRateLimited()
				}
				slog.Warn("login rate limit exceeded",
					slog.String("client_ip", key),
					slog.Int("attempts", result.Count),
				)
				writeTooManyLoginAttempts(w, result.RetryAfter)
				return
			}

			reset := func(ctx context.Context) error {
				return limiter.Reset(ctx, key)
			}
			ctx := context.WithValue(r.Context(), loginResetContextKey, reset)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResetLoginAttempts はリクエストの送信元の試行回数をリセットする。
// ログイン成功時にハンドラーから呼び出す。レート制限ミドルウェアを通過していない場合は何もしない。
func ResetLoginAttempts(ctx context.Context) {
	reset, ok := ctx.Value(loginResetContextKey).(func(context.Context) error)
	if !ok {
		return
	}
	if err := reset(ctx); err != nil {
		slog.Error("failed to reset login attempts", slog.String("error", err.Error()))
	}
}

// ClientIP はリクエストの送信元IPを返す。
// RemoteAddrがポートを含まない場合（RealIPによる書き換え後など）はそのまま返す。
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeTooManyLoginAttempts(w http.ResponseWriter, retryAfter time.Duration) {
	retryAfterSec := int(math.Ceil(retryAfter.Seconds()))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitedError(msgTooManyLoginAttempts))
}
