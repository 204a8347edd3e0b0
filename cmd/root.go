// Package cmd 提供 pyloc 的命令行入口与子命令编排。
package cmd

import (
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Execute 组装根命令并执行。
// version 参数由 main 包注入，便于在 CI/CD 中打包不同版本。
// 当前目录存在 .env 时先加载，其中的 PYLOC_* 变量参与配置覆盖。
func Execute(version string) error {
	_ = godotenv.Load()
	return NewRootCmd(version, os.Stdout, os.Stderr).Execute()
}

// NewRootCmd 创建根命令并注册全部子命令。
// 根命令本身等价于 scan，便于直接执行 pyloc <path>。
func NewRootCmd(version string, stdout io.Writer, stderr io.Writer) *cobra.Command {
	flags := newScanFlags()

	rootCmd := &cobra.Command{
		Use:   "pyloc [path]",
		Short: "统计 Python 源码的代码行、注释行与空行",
		Long: "pyloc 基于词法扫描与语法树统计 Python 源码，\n" +
			"把每一行归为 code/comments/blanks 之一，文档字符串计入注释，支持并发扫描与 JSON 导出。",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return &ExitError{Code: ExitFailure, Msg: "missing path argument"}
			}
			return runScan(cmd, flags, args[0])
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	bindScanFlags(rootCmd, flags)

	rootCmd.AddCommand(newVersionCmd(version))
	rootCmd.AddCommand(newLanguageCmd())
	rootCmd.AddCommand(newScanCmd())

	return rootCmd
}
