package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zawa-kun/zawa-tools/internal/schedule"
)

var titleCmd = &cobra.Command{
	Use:   "title STATUS COMPANY [LOCATION]",
	Short: "Print the entry title a row would get",
	Example: `  gss2cal title ES Acme
  gss2cal title 説明会 Acme オンライン`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		marks := schedule.DefaultTitleMarks()
		if configFile != "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			marks = cfg.Title
		}

		location := ""
		if len(args) == 3 {
			location = args[2]
		}
		fmt.Fprintln(cmd.OutOrStdout(), marks.Format(args[0], args[1], location))
		return nil
	},
}
