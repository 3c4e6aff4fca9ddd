// Package main 启动 gradevault.
package main

import (
	"os"

	"github.com/yeisme/gradevault/pkg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
