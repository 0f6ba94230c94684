package cli

import (
	"errors"
	"fmt"

	"ecofinds/internal/models"
	"ecofinds/internal/services"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newRegisterCommand(rt *runtime) *cobra.Command {
	var in services.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.client(cmd.Context())
			if err != nil {
				return err
			}
			user, err := c.holder.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			return rt.emit(user, func() {
				rt.printf("Welcome, %s! You are signed in.\n", user.Username)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Username, "username", "", "Display name")
	f.StringVar(&in.Email, "email", "", "Email address")
	f.StringVar(&in.Password, "password", "", "Password (at least 6 characters)")
	return cmd
}

func newLoginCommand(rt *runtime) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.client(cmd.Context())
			if err != nil {
				return err
			}
			user, err := c.holder.Login(cmd.Context(), email, password)
			if err != nil {
				if errors.Is(err, services.ErrInvalidCredentials) {
					return fmt.Errorf("invalid email or password")
				}
				return err
			}
			return rt.emit(user, func() {
				rt.printf("Signed in as %s.\n", user.Username)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	return cmd
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.client(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.holder.Logout(cmd.Context()); err != nil {
				return err
			}
			rt.printf("Signed out.\n")
			return nil
		},
	}
}

func newWhoamiCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.client(cmd.Context())
			if err != nil {
				return err
			}
			user := c.holder.Current()
			if user == nil {
				rt.printf("Not signed in.\n")
				return nil
			}
			return rt.emit(user, func() { rt.printUser(user) })
		},
	}
}

func newProfileCommand(rt *runtime) *cobra.Command {
	var avatarPath string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
		Long:  "Without flags, shows your profile. Any of --username, --email, --bio, --gender, --address or --avatar edits it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}

			var upd services.ProfileUpdate
			f := cmd.Flags()
			changed := false
			for name, dst := range map[string]**string{
				"username": &upd.Username,
				"email":    &upd.Email,
				"bio":      &upd.Bio,
				"address":  &upd.Address,
			} {
				if f.Changed(name) {
					v, _ := f.GetString(name)
					*dst = &v
					changed = true
				}
			}
			if f.Changed("gender") {
				v, _ := f.GetString("gender")
				g := models.Gender(v)
				upd.Gender = &g
				changed = true
			}

			var avatar *services.Upload
			if avatarPath != "" {
				data, err := afero.ReadFile(rt.fs, avatarPath)
				if err != nil {
					return fmt.Errorf("read avatar: %w", err)
				}
				avatar = &services.Upload{Filename: avatarPath, Data: data}
				changed = true
			}

			if !changed {
				user := c.holder.Current()
				return rt.emit(user, func() { rt.printUser(user) })
			}

			user, err := c.holder.UpdateProfile(cmd.Context(), upd, avatar)
			if err != nil && user == nil {
				return err
			}
			if err != nil {
				rt.printf("Profile saved, but the avatar was rejected: %v\n", err)
			}
			return rt.emit(user, func() { rt.printUser(user) })
		},
	}
	f := cmd.Flags()
	f.String("username", "", "New display name")
	f.String("email", "", "New email address")
	f.String("bio", "", "Short bio")
	f.String("gender", "", "male, female, other or undisclosed")
	f.String("address", "", "Address")
	f.StringVar(&avatarPath, "avatar", "", "Image file to use as avatar")
	return cmd
}
