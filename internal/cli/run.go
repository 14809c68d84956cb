package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"checkqc/internal/core"
	"checkqc/internal/qcconfig"
	"checkqc/pkg/domain"
)

func (a *app) runCmd() *cobra.Command {
	var (
		readLength string
		closest    bool
		archive    bool
		colorMode  string
	)

	cmd := &cobra.Command{
		Use:   "run <runfolder>",
		Short: "Check a run folder against the handler configuration",
		Long: `Recognise the run folder's instrument, reagent version and read length,
run the configured QC handlers and print the report in the configured view.

The report is recorded in the report store. With --archive it is also
written into the run folder under checkqc/.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			colored, err := useColor(colorMode)
			if err != nil {
				return usageError{err: err}
			}
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

			qc, err := qcconfig.Load(a.cfg.ConfigPath, e.service.Engine().Registry())
			if err != nil {
				return err
			}
			folder, err := e.folder(ctx, args[0])
			if err != nil {
				return err
			}
			out, err := e.service.Run(ctx, core.RunRequest{
				Folder:        folder,
				Config:        qc,
				Options:       core.Options{UseClosestReadLength: closest || a.cfg.UseClosestReadLength},
				ReadLength:    domain.ReadLength(readLength),
				ConfigVersion: qc.Digest,
				Archive:       archive,
			})
			if err != nil {
				return err
			}

			report := out.Report
			if colored && out.Record.View == core.IlluminaViewName {
				if report, err = core.NewIlluminaView(true).Render(out.Data, out.Evaluation); err != nil {
					return err
				}
			}
			if _, err := cmd.OutOrStdout().Write(report); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if out.ArchiveKey != "" {
				e.logger.Info("report archived", "key", out.ArchiveKey)
			}
			a.exitCode = out.Evaluation.ExitStatus()
			return nil
		},
	}

	cmd.Flags().StringVar(&readLength, "read-length", "", "use this read length instead of the one recognised from RunInfo.xml")
	cmd.Flags().BoolVar(&closest, "use-closest-read-length", false, "fall back to the closest configured read length")
	cmd.Flags().BoolVar(&archive, "archive", false, "write the report into the run folder")
	cmd.Flags().StringVar(&colorMode, "color", "auto", "auto|always|never")
	return cmd
}

// useColor decides whether the terminal view is coloured. auto follows
// fatih/color's terminal detection on stdout.
func useColor(mode string) (bool, error) {
	switch mode {
	case "auto":
		return !color.NoColor, nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	default:
		return false, fmt.Errorf("unknown --color %q", mode)
	}
}
