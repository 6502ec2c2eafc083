package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"Mansoor88-6/process-tracker/internal/controller"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type startOptions struct {
	*RootOptions
	ObjectID     int64
	AssignmentID int64
}

func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &startOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "start <process-id>",
		Short: "Start timing a process",
		Long: `Start timing a process. Sequential processes open their first step
right away. Works offline as long as the process list was fetched once.

Example:
  process-tracker start 3
  process-tracker start 3 --object 12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || processID <= 0 {
				return fmt.Errorf("invalid process id %q", args[0])
			}

			w, err := openWorker(opts.RootOptions)
			if err != nil {
				return err
			}
			defer w.close()
			ctx := commandContext(cmd)

			ctrl, err := w.controller(ctx)
			if err != nil {
				return err
			}
			if _, _, err := w.refreshProcesses(ctx); err != nil {
				w.log.Warn("Failed to refresh processes", zap.Error(err))
			}

			if err := ctrl.Start(ctx, processID, optionalID(opts.ObjectID), optionalID(opts.AssignmentID)); err != nil {
				return err
			}
			return printStatus(cmd, opts.RootOptions, w, ctrl)
		},
	}

	cmd.Flags().Int64Var(&opts.ObjectID, "object", 0, "object the work is performed on")
	cmd.Flags().Int64Var(&opts.AssignmentID, "assignment", 0, "assignment the work belongs to")

	return cmd
}

func optionalID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

func NewStepCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Complete or advance the current step",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "complete",
		Short: "Mark the current step done",
		Long: `Mark the current step done. Steps that require a photo refuse to
complete until one is attached with "process-tracker photo".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, rootOpts, func(w *worker, ctrl *controller.Controller) error {
				return ctrl.CompleteStep(commandContext(cmd))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "next",
		Short: "Open the step after the completed one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, rootOpts, func(w *worker, ctrl *controller.Controller) error {
				return ctrl.NextStep(commandContext(cmd))
			})
		},
	})

	return cmd
}

func NewPhotoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "photo <file>",
		Short: "Attach a photo to the running record",
		Long: `Attach a photo to the running record. While a step is open the photo
belongs to that step.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read photo: %w", err)
			}

			w, err := openWorker(rootOpts)
			if err != nil {
				return err
			}
			defer w.close()

			ctrl, err := w.controller(commandContext(cmd))
			if err != nil {
				return err
			}
			photo, err := ctrl.AttachPhoto(commandContext(cmd), data)
			if err != nil {
				return err
			}

			p := newPrinter(cmd, rootOpts)
			if photo.StepID != nil {
				return p.Message("Photo attached to step %d (%d bytes).", *photo.StepID, len(data))
			}
			return p.Message("Photo attached to record #%d (%d bytes).", photo.RecordID, len(data))
		},
	}
}

type stopOptions struct {
	*RootOptions
	Comment string
	Yes     bool
}

func NewStopCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &stopOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Finish the running record",
		Long: `Finish the running record with an optional comment. The record is
saved locally first and pushed to the server right away when it is reachable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorker(opts.RootOptions)
			if err != nil {
				return err
			}
			defer w.close()
			ctx := commandContext(cmd)

			ctrl, err := w.controller(ctx)
			if err != nil {
				return err
			}
			if err := ctrl.RequestStop(); err != nil {
				return err
			}

			p := newPrinter(cmd, opts.RootOptions)
			if !opts.Yes {
				question := fmt.Sprintf("Stop after %s? [y/N] ", formatDuration(ctrl.Elapsed()))
				if !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), question) {
					if err := ctrl.CancelStop(); err != nil {
						return err
					}
					return p.Message("Stop cancelled.")
				}
			}

			rec, err := ctrl.ConfirmStop(ctx, opts.Comment)
			if err != nil {
				return err
			}
			if err := p.Stopped(rec); err != nil {
				return err
			}

			res, online := w.sync.SyncIfOnline(ctx)
			pending, err := w.pendingCount(ctx)
			if err != nil {
				return err
			}
			return p.Sync(res, online, pending)
		},
	}

	cmd.Flags().StringVarP(&opts.Comment, "comment", "m", "", "comment stored with the record")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

// confirm asks question on out and reads a yes/no answer from in. Anything but y/yes is no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprint(out, question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running record and pending sync count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorker(rootOpts)
			if err != nil {
				return err
			}
			defer w.close()

			ctrl, err := w.controller(commandContext(cmd))
			if err != nil {
				return err
			}
			return printStatus(cmd, rootOpts, w, ctrl)
		},
	}
}

func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show a live timer and sync in the background",
		Long: `Show a live timer for the running record and keep syncing finished
records whenever the server becomes reachable. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorker(rootOpts)
			if err != nil {
				return err
			}
			defer w.close()

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ctrl, err := w.controller(ctx)
			if err != nil {
				return err
			}

			w.sync.Start(ctx)
			defer w.sync.Stop()

			p := newPrinter(cmd, rootOpts)
			ticker := controller.NewTicker(ctrl, time.Duration(w.cfg.Sync.TimerTick)*time.Second, w.log.Logger)
			ticker.Start(func(v controller.View) {
				if err := p.Tick(v); err != nil {
					w.log.Warn("Failed to render timer", zap.Error(err))
				}
			})
			defer ticker.Stop()

			if ctrl.State() == controller.StateNone {
				p.Message("No record running; syncing in the background.")
			}

			<-ctx.Done()
			return nil
		},
	}
}

func withController(cmd *cobra.Command, opts *RootOptions, fn func(*worker, *controller.Controller) error) error {
	w, err := openWorker(opts)
	if err != nil {
		return err
	}
	defer w.close()

	ctrl, err := w.controller(commandContext(cmd))
	if err != nil {
		return err
	}
	if err := fn(w, ctrl); err != nil {
		return err
	}
	return printStatus(cmd, opts, w, ctrl)
}

func printStatus(cmd *cobra.Command, opts *RootOptions, w *worker, ctrl *controller.Controller) error {
	pending, err := w.pendingCount(commandContext(cmd))
	if err != nil {
		return err
	}
	return newPrinter(cmd, opts).Status(ctrl.Snapshot(), pending)
}
