package app

import (
	"context"

	"github.com/yeisme/gradevault/pkg/cache"
	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/internal/service"
	"github.com/yeisme/gradevault/pkg/internal/storage"
	"github.com/yeisme/gradevault/pkg/internal/transfer"
	"github.com/yeisme/gradevault/pkg/log"
	"github.com/yeisme/gradevault/pkg/queue"
)

// Core 不依赖 HTTP 的业务组件，serve 与命令行共用.
type Core struct {
	Config  *configs.AppConfig
	Manager *storage.Manager
	Engine  *transfer.Engine
	Events  *queue.Publisher
	Cache   *cache.Cache
	Files   *service.FileService
	Admins  *service.AdminService
}

// NewCore 打开存储资源并组装服务.
func NewCore(ctx context.Context, cfg *configs.AppConfig) (*Core, error) {
	mgr, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return Assemble(cfg, mgr), nil
}

// Assemble 在已有的存储管理器上组装服务.
func Assemble(cfg *configs.AppConfig, mgr *storage.Manager) *Core {
	c := &Core{Config: cfg, Manager: mgr}

	if mq := mgr.GetMQClient(); mq != nil {
		c.Events = queue.NewPublisher(mq.Publisher(), cfg.Events)
	}

	if kv := mgr.GetKVClient(); kv != nil {
		c.Cache = cache.NewCache(kv)
	}

	c.Engine = transfer.New(mgr.GetStore(), cfg.Transfer, cfg.Catalog.GradeKeys(),
		transfer.WithLogger(log.Component("transfer")),
		transfer.WithCleanupFailureHook(service.CleanupFailedHook(c.Events)),
	)
	c.Files = service.NewFileService(c.Engine, c.Events, c.Cache, cfg.Catalog)
	c.Admins = service.NewAdminService(mgr.GetStore(), cfg.Auth)

	return c
}

// Close 关闭存储资源.
func (c *Core) Close() error {
	if c == nil || c.Manager == nil {
		return nil
	}

	return c.Manager.Close()
}
