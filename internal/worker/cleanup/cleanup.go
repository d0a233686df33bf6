// Package cleanup は期限切れパスワードリセットエントリの定期削除ジョブを提供する。
// 読み取り時の期限判定とは別に、ストアに残った期限切れエントリを掃除する。
// MongoDBではTTLインデックスも併用されるが、削除タイミングを保証するためジョブも動かす。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sweeper は期限切れエントリの一括削除を抽象化するインターフェース。
// repository.ResetEntryRepositoryの部分集合として定義する。
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SweepRecorder は削除件数を記録するメトリクスのインターフェース。
type SweepRecorder interface {
	RecordResetEntriesSwept(count int64)
}

// DefaultInterval はジョブのデフォルト実行間隔。
const DefaultInterval = time.Minute

// CleanupJob は期限切れリセットエントリの削除ジョブ。
// 冪等な削除処理であり、複数プロセスから同時に実行しても問題ない。
type CleanupJob struct {
	sweeper  Sweeper
	recorder SweepRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
func NewCleanupJob(sweeper Sweeper, recorder SweepRecorder, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sweeper:  sweeper,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Run は現在時刻の時点で期限切れのエントリを削除する。
// 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.sweeper.DeleteExpired(ctx, j.now())
	if err != nil {
		j.logger.Error("リセットエントリのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("リセットエントリのクリーンアップに失敗: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordResetEntriesSwept(deletedCount)
	}

	duration := time.Since(start)
	j.logger.Info("リセットエントリのクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は指定間隔でジョブを繰り返し実行する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
// 個々の実行エラーはログに記録して次回の実行を待つ。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("リセットエントリのクリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
	)

	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("リセットエントリのクリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
