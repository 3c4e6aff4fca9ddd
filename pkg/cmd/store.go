package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/gradevault/pkg/configs"
)

var (
	storeCmd = &cobra.Command{
		Use:   "store",
		Short: "Path store related commands",
	}

	storeListCmd = &cobra.Command{
		Use:   "ls [path]",
		Short: "list store backends, or the children of path in the configured store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				cur := configs.GetConfig().Store.Backend
				fmt.Fprintln(out, "Store backends:")

				for _, b := range []configs.StoreBackend{configs.StoreBackendKV, configs.StoreBackendSQL, configs.StoreBackendS3} {
					mark := " "
					if b == cur {
						mark = "*"
					}

					fmt.Fprintf(out, " %s - %s\n", mark, b)
				}

				return nil
			}

			core, err := openCore(cmd)
			if err != nil {
				return err
			}
			defer core.Close()

			nodes, err := core.Manager.GetStore().Children(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			for _, n := range nodes {
				if n.Value == nil {
					fmt.Fprintf(out, "%s/\n", n.Key)
					continue
				}

				fmt.Fprintf(out, "%s\t%d bytes\n", n.Key, len(n.Value))
			}

			return nil
		},
	}
)

func registerStoreCommands() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeListCmd)
}
