package cli

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/spf13/cobra"
)

func (a *App) newRegisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register <name> <key>",
		Short: "Create an account bound to an unused license key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := GetPassword(a.in, "Password", a.out)
			if err != nil {
				return err
			}
			o, err := a.client.Register(cmd.Context(), args[0], pw, args[1])
			if err != nil {
				return err
			}
			return a.report(o, common.Registered)
		},
	}
}

func (a *App) newLoginCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "login <name>",
		Short: "Log in, receive the payload and keep the session alive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pw, err := GetPassword(a.in, "Password", a.out)
			if err != nil {
				return err
			}
			o, sess, err := a.client.Login(ctx, args[0], pw)
			if err != nil {
				return err
			}
			if err := a.report(o, common.LoggedIn); err != nil {
				return err
			}
			defer sess.Close()

			fmt.Fprintf(a.out, "Received payload: %d bytes, %d offsets\n", len(sess.Payload.Image), len(sess.Payload.Offsets))
			if out != "" {
				if err := os.WriteFile(out, sess.Payload.Image, 0o700); err != nil {
					return fmt.Errorf("save payload: %w", err)
				}
				fmt.Fprintf(a.out, "Saved to %s\n", out)
			}

			fmt.Fprintln(a.out, "Session active, press Ctrl-C to end.")
			if err := sess.ServeProbes(ctx, nil); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Session ended.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the received image to this file")
	return cmd
}

func (a *App) newAddKeyCommand() *cobra.Command {
	var admin string

	cmd := &cobra.Command{
		Use:   "add-key <key>",
		Short: "Issue a new license key (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := GetPassword(a.in, "Admin password", a.out)
			if err != nil {
				return err
			}
			o, err := a.client.AddKey(cmd.Context(), admin, pw, args[0])
			if err != nil {
				return err
			}
			return a.report(o, common.KeyAdded)
		},
	}

	cmd.Flags().StringVar(&admin, "admin", "admin", "Admin account name")
	return cmd
}

func (a *App) newValidateCommand() *cobra.Command {
	var admin string

	cmd := &cobra.Command{
		Use:   "validate <key>",
		Short: "Re-validate a license key and reset its expiry clock (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := GetPassword(a.in, "Admin password", a.out)
			if err != nil {
				return err
			}
			o, err := a.client.Validate(cmd.Context(), admin, pw, args[0])
			if err != nil {
				return err
			}
			return a.report(o, common.KeyValidated)
		},
	}

	cmd.Flags().StringVar(&admin, "admin", "admin", "Admin account name")
	return cmd
}
