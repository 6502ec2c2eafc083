package cli

import (
	"errors"
	"fmt"

	"Mansoor88-6/process-tracker/internal/credential"
	"Mansoor88-6/process-tracker/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type accountOptions struct {
	*RootOptions
	Username  string
	Password  string
	FirstName string
}

func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &accountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a worker account",
		Long: `Create a worker account on the server. New accounts wait for an
administrator's approval before they can log in. The first account created
on an empty server becomes the administrator.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorker(opts.RootOptions)
			if err != nil {
				return err
			}
			defer w.close()

			resp, err := w.api.Register(commandContext(cmd), models.RegisterRequest{
				Username:  opts.Username,
				Password:  opts.Password,
				FirstName: opts.FirstName,
			})
			if err != nil {
				return err
			}
			return newPrinter(cmd, opts.RootOptions).Message("%s", resp.Message)
		},
	}

	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "account username (required)")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "account password (required)")
	cmd.Flags().StringVar(&opts.FirstName, "first-name", "", "display name (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("first-name")

	return cmd
}

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &accountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorker(opts.RootOptions)
			if err != nil {
				return err
			}
			defer w.close()
			ctx := commandContext(cmd)

			resp, err := w.api.Login(ctx, opts.Username, opts.Password)
			if err != nil {
				return err
			}
			if err := w.creds.Save(&credential.Session{Token: resp.Token, User: resp.User}); err != nil {
				return err
			}
			w.api.SetToken(resp.Token)

			if _, _, err := w.refreshProcesses(ctx); err != nil {
				w.log.Warn("Failed to refresh processes after login", zap.Error(err))
			}
			if res, online := w.sync.SyncIfOnline(ctx); online && res.Pushed > 0 {
				w.log.Info("Pending records synced after login", zap.Int("pushed", res.Pushed))
			}

			return newPrinter(cmd, opts.RootOptions).Message("Logged in as %s (%s).", resp.User.Username, resp.User.Role)
		},
	}

	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "account username (required)")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "account password (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session on this device",
		Long: `Forget the session on this device. Local records are kept and are
synced after the next login.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorker(rootOpts)
			if err != nil {
				return err
			}
			defer w.close()

			if err := w.creds.Clear(); err != nil {
				return err
			}
			return newPrinter(cmd, rootOpts).Message("Logged out.")
		},
	}
}

// requireSession turns a missing session into a readable error.
func requireSession(w *worker) (*credential.Session, error) {
	sess, err := w.creds.Load()
	if errors.Is(err, credential.ErrNoSession) {
		return nil, fmt.Errorf("%w (run \"process-tracker login\")", err)
	}
	return sess, err
}

func newPrinter(cmd *cobra.Command, opts *RootOptions) *Printer {
	return &Printer{Format: opts.Format, W: cmd.OutOrStdout()}
}
