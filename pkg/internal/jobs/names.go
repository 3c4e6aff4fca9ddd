package jobs

// 任务名称.
const (
	JobOrphanSweep = "store.orphan_sweep"
)

// 孤儿类型，用作 orphans_removed_total 的 kind 标签.
const (
	OrphanChunks     = "chunks"
	OrphanIncomplete = "incomplete"
)
