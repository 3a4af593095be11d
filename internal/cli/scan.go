package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "执行一次完整扫描（bots → 入库 → 融合），JSON报告输出到 stdout",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		report, err := a.scanner.Run(cmd.Context())
		if err != nil {
			return err
		}
		return writeJSON(report)
	},
}

var sanityCmd = &cobra.Command{
	Use:   "sanity",
	Short: "自检：数据库连通性、有效机会数与单个bot探测",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		return writeJSON(a.sanity.Check(cmd.Context()))
	},
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
