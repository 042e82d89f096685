package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Tilak559/gutter-estimate/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List recent estimates, or print one full report by id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Store.Driver == "" || cfg.Store.Driver == "none" {
			return eris.New("history requires a configured store driver")
		}
		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if len(args) == 1 {
			report, err := st.GetEstimate(ctx, args[0])
			if err != nil {
				return err
			}
			if report == nil {
				return eris.Errorf("no estimate with id %s", args[0])
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		records, err := st.ListRecent(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no estimates recorded")
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%s  %-40s  %-8s  %6.1f ft  %s\n",
				rec.CreatedAt.Format("2006-01-02 15:04"),
				rec.Address, rec.RoofType, rec.TotalGutterFt, rec.ID)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum rows to list")
	rootCmd.AddCommand(historyCmd)
}
