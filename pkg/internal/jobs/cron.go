// Package jobs 注册并实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/internal/model"
	"github.com/yeisme/gradevault/pkg/internal/store"
	"github.com/yeisme/gradevault/pkg/internal/transfer"
	"github.com/yeisme/gradevault/pkg/log"
	"github.com/yeisme/gradevault/pkg/metrics"
	"github.com/yeisme/gradevault/pkg/scheduler"
)

// RegisterCronJobs 注册孤儿清理任务，jobs.enabled 为 false 时什么都不做.
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, sw *OrphanSweeper, cfg configs.JobsConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if sched == nil || sw == nil {
		return errors.New("scheduler and sweeper are required")
	}

	return sched.AddCron(ctx, JobOrphanSweep, cfg.OrphanSweepCron, func(ctx context.Context) error {
		_, err := sw.Sweep(ctx)
		return err
	})
}

// SweepResult 一次清理的统计.
type SweepResult struct {
	ChunkSets  int `json:"chunkSets"`  // 没有元数据的分块集合
	Incomplete int `json:"incomplete"` // 分块数与 totalChunks 不一致的记录
}

// OrphanSweeper 清理上传中断或清理失败后遗留的数据.
//
// 只处理早于宽限期的数据，正在进行的上传不会被误删.
type OrphanSweeper struct {
	store  store.Store
	grades []string
	grace  time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// NewOrphanSweeper 创建清理器.
func NewOrphanSweeper(st store.Store, grades []string, grace time.Duration) *OrphanSweeper {
	return &OrphanSweeper{
		store:  st,
		grades: grades,
		grace:  grace,
		now:    time.Now,
		log:    log.Component("jobs").With().Str("job", JobOrphanSweep).Logger(),
	}
}

// WithClock 替换时钟，用于测试.
func (s *OrphanSweeper) WithClock(now func() time.Time) *OrphanSweeper {
	s.now = now
	return s
}

// Sweep 执行一次清理.
func (s *OrphanSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	cutoff := s.now().Add(-s.grace)
	known := make(map[string]struct{})

	// 已知 id 取自 files/ 下实际存在的所有年级，不只是当前配置的年级
	grades, err := s.store.Children(ctx, transfer.FilesRoot)
	if err != nil {
		return res, fmt.Errorf("list grades: %w", err)
	}

	catalogued := make(map[string]struct{}, len(s.grades))
	for _, g := range s.grades {
		catalogued[g] = struct{}{}
	}

	for _, g := range grades {
		grade := g.Key

		nodes, err := s.store.Children(ctx, store.Join(transfer.FilesRoot, grade))
		if err != nil {
			return res, fmt.Errorf("list %s: %w", grade, err)
		}

		_, checkIncomplete := catalogued[grade]

		for _, n := range nodes {
			known[n.Key] = struct{}{}

			if n.Value == nil || !checkIncomplete {
				continue
			}

			rec, err := model.UnmarshalFileRecord(n.Value)
			if err != nil || rec.UploadedTime().After(cutoff) {
				continue
			}

			removed, err := s.sweepIncomplete(ctx, grade, n.Key, rec)
			if err != nil {
				return res, err
			}

			if removed {
				res.Incomplete++
			}
		}
	}

	sets, err := s.store.Children(ctx, transfer.ChunksRoot)
	if err != nil {
		return res, fmt.Errorf("list chunk sets: %w", err)
	}

	for _, n := range sets {
		if _, ok := known[n.Key]; ok {
			continue
		}

		if t, ok := store.IDTime(n.Key); ok && t.After(cutoff) {
			continue
		}

		if err := s.store.Remove(ctx, transfer.ChunksPath(n.Key)); err != nil {
			return res, fmt.Errorf("remove chunk set %s: %w", n.Key, err)
		}

		res.ChunkSets++

		metrics.OrphansRemoved.WithLabelValues(OrphanChunks).Inc()
		s.log.Info().Str("id", n.Key).Msg("removed orphaned chunk set")
	}

	s.log.Info().Int("chunk_sets", res.ChunkSets).Int("incomplete", res.Incomplete).Msg("orphan sweep done")

	return res, nil
}

func (s *OrphanSweeper) sweepIncomplete(ctx context.Context, grade, id string, rec *model.FileRecord) (bool, error) {
	chunks, err := s.store.Children(ctx, transfer.ChunksPath(id))
	if err != nil {
		return false, fmt.Errorf("list chunks of %s: %w", id, err)
	}

	if len(chunks) == rec.TotalChunks {
		return false, nil
	}

	if err := s.store.Remove(ctx, transfer.FilePath(grade, id)); err != nil {
		return false, fmt.Errorf("remove record %s: %w", id, err)
	}

	if err := s.store.Remove(ctx, transfer.ChunksPath(id)); err != nil {
		return false, fmt.Errorf("remove chunks of %s: %w", id, err)
	}

	metrics.OrphansRemoved.WithLabelValues(OrphanIncomplete).Inc()
	s.log.Warn().Str("grade", grade).Str("id", id).
		Int("have", len(chunks)).Int("want", rec.TotalChunks).Msg("removed incomplete upload")

	return true, nil
}
