package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd 不带子命令时等同于 serve
var rootCmd = &cobra.Command{
	Use:   "gigscout",
	Short: "GigScout - 需求信号采集与机会融合服务",
	Long: `GigScout 从多个公开信号源（Reddit、Google Trends、X、Hacker News、Product Hunt）
采集需求信号，按主题聚类融合为可变现的机会，并通过 HTTP 接口对外提供。

Example:
  gigscout                 # 启动HTTP服务
  gigscout scan            # 执行一次完整扫描，报告输出到 stdout
  gigscout sanity          # 数据库与单个bot的探测`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runServe,
}

// Execute 入口
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（默认 ./config/config.yaml）")
	rootCmd.AddCommand(serveCmd, scanCmd, sanityCmd)
}
