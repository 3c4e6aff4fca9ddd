package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/gradevault/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:   "kv",
		Short: "Key-Value store related commands",
	}

	kvListCmd = &cobra.Command{
		Use:     "ls",
		Short:   "list registered kv types usable by store.backend=kv",
		Aliases: []string{"list"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered kv types:")

			for _, name := range kv.Drivers() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+name)
			}
		},
	}
)

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	rootCmd.AddCommand(kvCmd)
	kvCmd.AddCommand(kvListCmd)
}
