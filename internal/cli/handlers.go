package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"checkqc/internal/qcconfig"
)

func (a *app) handlersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handlers",
		Short: "List the registered QC handlers, views and plugins",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			w := cmd.OutOrStdout()
			reg := e.service.Engine().Registry()
			fmt.Fprintln(w, "Handlers:")
			for _, name := range reg.HandlerNames() {
				fmt.Fprintf(w, "  %s\n", name)
			}
			fmt.Fprintln(w, "Views:")
			for _, name := range reg.ViewNames() {
				fmt.Fprintf(w, "  %s\n", name)
			}
			fmt.Fprintln(w, "Plugins:")
			for _, p := range e.service.RegisteredPlugins() {
				fmt.Fprintf(w, "  %s %s (%s)\n", p.Name, p.Version, strings.Join(p.Handlers, ", "))
			}
			return nil
		},
	}
}

func (a *app) validateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config [path]",
		Short: "Validate a handler configuration file",
		Long: `Parse the handler configuration and check read-length keys, threshold
ordering and handler and view names against the registered handlers.
Defaults to the configured CHECKQC_CONFIG path.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return usageError{err: err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			path := a.cfg.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			file, err := qcconfig.Load(path, e.service.Engine().Registry())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s: ok (%s)\n", path, file.Digest)
			for _, key := range file.InstrumentKeys() {
				fmt.Fprintf(w, "  %s: %d read length keys\n", key, len(file.Instruments[key].ReadLengths))
			}
			return nil
		},
	}
}
