package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"checkqc/pkg/domain"
)

func (a *app) historyCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history <runfolder>",
		Short: "List recorded reports for a run folder, newest first",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			e, err := a.openEnv(ctx, true)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := e.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			key, err := e.folderKey(args[0])
			if err != nil {
				return err
			}
			records, err := e.service.History(ctx, key)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}
			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No reports recorded for %s\n", key)
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tCONFIG\tFATAL\tWARNING\tEXIT")
			for _, r := range records {
				res := r.Result()
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
					r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.ResolvedKey,
					res.Count(domain.SeverityFatal), res.Count(domain.SeverityWarning), r.ExitStatus)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <report-id>",
		Short: "Print one recorded report as JSON",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			e, err := a.openEnv(ctx, true)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := e.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			record, err := e.service.Report(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, record)
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
