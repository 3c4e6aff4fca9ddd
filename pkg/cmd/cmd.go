// Package cmd 提供 gradevault 命令行：serve 启动服务，其余子命令直接操作存储.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/gradevault/pkg/app"
	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/log"
)

var (
	cfgPath string
	debug   bool

	rootCmd = &cobra.Command{
		Use:           configs.AppName,
		Short:         "Chunked file library for grade-level teaching materials",
		Version:       configs.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// serve 在 app.New 中自行加载配置
			if cmd == serveCmd {
				return nil
			}

			return configs.InitConfig(cfgPath)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose output")

	registerServeCommands()
	registerConfigsCommands()
	registerKVCommands()
	registerDBCommands()
	registerMQCommands()
	registerStoreCommands()
	registerFilesCommands()
	registerAdminCommands()
}

// openCore 按已加载的配置打开存储并组装服务，调用方负责 Close.
func openCore(cmd *cobra.Command) (*app.Core, error) {
	log.Init()

	return app.NewCore(cmd.Context(), configs.GetConfig())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
