package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/cosync/cosyncjwt"
)

func (a *app) appCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "app",
		Short: "Show the application's authentication policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			policy, err := client.GetApplication(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(cmd, policy)
		},
	}
}

func (a *app) loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and show the user profile",
		Long: `Log in with a handle and password. When the account has a second factor
enabled, the verification code is prompted for and the login completed.

Examples:
  cosyncjwt login --handle alice@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handle, err := requireFlag(cmd, "handle")
			if err != nil {
				return err
			}
			client, err := a.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := a.login(cmd, client, handle); err != nil {
				return err
			}

			user, err := client.GetUser(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(cmd, user)
		},
	}
	cmd.Flags().String("handle", "", "user handle (email)")
	return cmd
}

// login runs Login and, when a second factor is required, LoginComplete.
func (a *app) login(cmd *cobra.Command, client *cosyncjwt.Client, handle string) error {
	pw, err := a.prompt.Secret("Password")
	if err != nil {
		return err
	}

	res, err := client.Login(cmd.Context(), handle, pw)
	if err != nil {
		return err
	}
	if !res.NeedsCompletion() {
		return nil
	}

	code, err := a.prompt.Secret("Verification code")
	if err != nil {
		return err
	}
	_, err = client.LoginComplete(cmd.Context(), code)
	return err
}

func (a *app) loginAnonymousCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login-anonymous",
		Short: "Log in as an anonymous user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handle, _ := cmd.Flags().GetString("handle")
			if handle == "" {
				handle = cosyncjwt.NewAnonymousHandle()
			}
			client, err := a.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.LoginAnonymous(cmd.Context(), handle); err != nil {
				return err
			}
			claims, err := client.Session().Claims()
			if err != nil {
				return err
			}
			a.printf(cmd, "logged in as %s\n", claims.Handle)
			return nil
		},
	}
	cmd.Flags().String("handle", "", "anonymous handle; must start with "+cosyncjwt.AnonymousHandlePrefix+" (generated when empty)")
	return cmd
}

func (a *app) signupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create an account. When the application uses the "code" signup flow the
emailed code is prompted for and the signup completed.

Examples:
  cosyncjwt signup --handle bob@example.com
  cosyncjwt signup --handle bob@example.com --metadata '{"plan":"free"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handle, err := requireFlag(cmd, "handle")
			if err != nil {
				return err
			}
			metaData, _ := cmd.Flags().GetString("metadata")

			client, err := a.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			pw, err := a.prompt.Secret("Password")
			if err != nil {
				return err
			}

			_, err = client.Signup(cmd.Context(), handle, pw, metaData)
			return a.finishAccount(cmd, client, handle, err)
		},
	}
	cmd.Flags().String("handle", "", "user handle (email)")
	cmd.Flags().String("metadata", "", "JSON metadata stored with the account")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an invited account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handle, err := requireFlag(cmd, "handle")
			if err != nil {
				return err
			}
			code, err := requireFlag(cmd, "code")
			if err != nil {
				return err
			}
			metaData, _ := cmd.Flags().GetString("metadata")

			client, err := a.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			pw, err := a.prompt.Secret("Password")
			if err != nil {
				return err
			}

			_, err = client.Register(cmd.Context(), handle, pw, metaData, code)
			return a.finishAccount(cmd, client, handle, err)
		},
	}
	cmd.Flags().String("handle", "", "invited handle (email)")
	cmd.Flags().String("code", "", "invitation code")
	cmd.Flags().String("metadata", "", "JSON metadata stored with the account")
	return cmd
}

// finishAccount handles the outcome of Signup or Register, completing a
// pending "code" flow interactively.
func (a *app) finishAccount(cmd *cobra.Command, client *cosyncjwt.Client, handle string, err error) error {
	if err == nil {
		a.printf(cmd, "account created for %s\n", handle)
		return nil
	}
	if !errors.Is(err, cosyncjwt.ErrCompletionPending) {
		return err
	}

	policy, perr := client.GetApplication(cmd.Context())
	if perr != nil {
		return perr
	}
	if policy.SignupFlow != cosyncjwt.SignupFlowCode {
		a.printf(cmd, "check the inbox of %s to finish signing up\n", handle)
		return nil
	}

	code, err := a.prompt.Secret("Signup code")
	if err != nil {
		return err
	}
	if _, err := client.CompleteSignup(cmd.Context(), handle, code); err != nil {
		return err
	}
	a.printf(cmd, "account created for %s\n", handle)
	return nil
}

func (a *app) inviteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Invite a user to the application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handle, err := requireFlag(cmd, "handle")
			if err != nil {
				return err
			}
			metaData, _ := cmd.Flags().GetString("metadata")
			sender, _ := cmd.Flags().GetString("sender")

			client, err := a.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			ok, err := client.Invite(cmd.Context(), handle, metaData, sender)
			if err != nil {
				return err
			}
			a.printf(cmd, "invited: %t\n", ok)
			return nil
		},
	}
	cmd.Flags().String("handle", "", "handle to invite")
	cmd.Flags().String("metadata", "", "JSON metadata attached to the invitation")
	cmd.Flags().String("sender", "", "sender user id")
	return cmd
}

func (a *app) forgotPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Send a password reset code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handle, err := requireFlag(cmd, "handle")
			if err != nil {
				return err
			}
			client, err := a.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			ok, err := client.ForgotPassword(cmd.Context(), handle)
			if err != nil {
				return err
			}
			a.printf(cmd, "reset requested: %t\n", ok)
			return nil
		},
	}
	cmd.Flags().String("handle", "", "user handle (email)")
	return cmd
}

func (a *app) changePasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "change-password",
		Short: "Log in and change the password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handle, err := requireFlag(cmd, "handle")
			if err != nil {
				return err
			}
			client, err := a.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			pw, err := a.prompt.Secret("Current password")
			if err != nil {
				return err
			}
			if err := a.loginWith(cmd, client, handle, pw); err != nil {
				return err
			}
			newPw, err := a.prompt.Secret("New password")
			if err != nil {
				return err
			}

			ok, err := client.ChangePassword(cmd.Context(), newPw, pw)
			client.Logout()
			if err != nil {
				return err
			}
			a.printf(cmd, "password changed: %t\n", ok)
			return nil
		},
	}
	cmd.Flags().String("handle", "", "user handle (email)")
	return cmd
}

func (a *app) deleteAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Log in and permanently delete the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handle, err := requireFlag(cmd, "handle")
			if err != nil {
				return err
			}
			client, err := a.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			pw, err := a.prompt.Secret("Password")
			if err != nil {
				return err
			}
			if err := a.loginWith(cmd, client, handle, pw); err != nil {
				return err
			}

			ok, err := client.DeleteAccount(cmd.Context(), handle, pw)
			client.Logout()
			if err != nil {
				return err
			}
			a.printf(cmd, "account deleted: %t\n", ok)
			return nil
		},
	}
	cmd.Flags().String("handle", "", "user handle (email)")
	return cmd
}

// loginWith is login with an already collected password.
func (a *app) loginWith(cmd *cobra.Command, client *cosyncjwt.Client, handle, pw string) error {
	res, err := client.Login(cmd.Context(), handle, pw)
	if err != nil {
		return err
	}
	if !res.NeedsCompletion() {
		return nil
	}
	code, err := a.prompt.Secret("Verification code")
	if err != nil {
		return err
	}
	_, err = client.LoginComplete(cmd.Context(), code)
	return err
}
