package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd 创建 version 子命令。
// 命令示例：pyloc version
func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示当前版本号",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pyloc version %s\n", version)
		},
	}
}
