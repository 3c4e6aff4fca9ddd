package queue

// 主题命名规范：gv.<域>.<动作>[.<状态>]，发布后保持稳定.
// 域：file(文件分块传输)、cleanup(失败上传的清理).

const (
	// 文件领域.
	TopicFileUploaded     = "gv.file.uploaded"      // 元数据与全部分块写入完成
	TopicFileUploadFailed = "gv.file.upload_failed" // 上传失败（校验、元数据或分块阶段）
	TopicFileDownloaded   = "gv.file.downloaded"    // 重组下载成功，计数已增加
	TopicFileDeleted      = "gv.file.deleted"       // 元数据与分块已删除

	// 清理领域.
	TopicCleanupFailed = "gv.cleanup.failed" // 失败上传的清理未完成，可能留下孤儿分块
)

// 主题分组，用于批量订阅.
var (
	// FileTopics 文件相关主题集合.
	FileTopics = []string{
		TopicFileUploaded, TopicFileUploadFailed,
		TopicFileDownloaded, TopicFileDeleted,
	}

	// CatalogChangeTopics 会改变年级列表内容的主题.
	CatalogChangeTopics = []string{
		TopicFileUploaded, TopicFileDeleted, TopicFileDownloaded,
	}
)
