package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/gradevault/pkg/internal/storage/mq"
	"github.com/yeisme/gradevault/pkg/queue"
)

var (
	mqCmd = &cobra.Command{
		Use:   "mq",
		Short: "Message queue related commands",
	}

	mqListCmd = &cobra.Command{
		Use:     "ls",
		Short:   "list registered mq types and the event topics",
		Aliases: []string{"list"},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Registered mq types:")

			for _, t := range mq.Drivers() {
				fmt.Fprintln(out, "   - "+t)
			}

			fmt.Fprintln(out, "Event topics:")

			for _, t := range queue.FileTopics {
				fmt.Fprintln(out, "   - "+t)
			}
		},
	}
)

// registerMQCommands 注册 MQ 相关命令.
func registerMQCommands() {
	rootCmd.AddCommand(mqCmd)
	mqCmd.AddCommand(mqListCmd)
}
