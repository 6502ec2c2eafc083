package cli

import (
	"github.com/spf13/cobra"
)

func NewProcessesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "processes",
		Short: "List the processes you can start",
		Long: `List the processes you can start. The list is fetched from the server
and cached; offline, the cached list is shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorker(rootOpts)
			if err != nil {
				return err
			}
			defer w.close()

			if _, err := requireSession(w); err != nil {
				return err
			}
			defs, cachedAt, err := w.refreshProcesses(commandContext(cmd))
			if err != nil {
				return err
			}
			return newPrinter(cmd, rootOpts).Processes(defs, cachedAt)
		},
	}
}

type historyOptions struct {
	*RootOptions
	Limit int
}

func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &historyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent records on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorker(opts.RootOptions)
			if err != nil {
				return err
			}
			defer w.close()
			ctx := commandContext(cmd)

			sess, err := requireSession(w)
			if err != nil {
				return err
			}
			records, err := w.store.RecentRecords(ctx, sess.User.ID, opts.Limit)
			if err != nil {
				return err
			}
			return newPrinter(cmd, opts.RootOptions).History(records, w.processNames(ctx))
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of records to show")

	return cmd
}

func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push finished records to the server now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorker(rootOpts)
			if err != nil {
				return err
			}
			defer w.close()
			ctx := commandContext(cmd)

			if _, err := requireSession(w); err != nil {
				return err
			}
			res, online := w.sync.SyncIfOnline(ctx)
			pending, err := w.pendingCount(ctx)
			if err != nil {
				return err
			}
			return newPrinter(cmd, rootOpts).Sync(res, online, pending)
		},
	}
}
