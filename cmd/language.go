package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pyloc/internal/config"
	"pyloc/internal/languages"
)

// newLanguageCmd 创建 language 子命令。
// 命令展示当前生效的语言以及对应文件后缀（受 PYLOC_EXTENSIONS 与配置文件影响）。
func newLanguageCmd() *cobra.Command {
	var configPath string

	languageCmd := &cobra.Command{
		Use:   "language",
		Short: "展示已注册语言及后缀",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := config.Resolve(configPath)
			if err != nil {
				return &ExitError{Code: ExitFailure, Msg: err.Error()}
			}
			registry := languages.NewRegistry(cfg.Scan.Extensions...)

			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			if _, err := fmt.Fprintln(writer, "LANGUAGE\tEXTENSIONS"); err != nil {
				return err
			}

			for _, item := range registry.Languages() {
				if _, err := fmt.Fprintf(writer, "%s\t%s\n", item.Name, strings.Join(item.Extensions, ", ")); err != nil {
					return err
				}
			}

			return writer.Flush()
		},
	}
	languageCmd.Flags().StringVar(&configPath, "config", "", "YAML 配置文件路径（默认读取 PYLOC_CONFIG）")
	return languageCmd
}
