package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		email, name string
		owner       bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update an active admin. The password is prompted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" || name == "" {
				return usage(cmd)
			}
			pwd, err := cli.readPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				return usage(cmd)
			}
			if err := cli.addUser(cmd.Context(), name, email, pwd, owner); err != nil {
				return err
			}
			cli.printf("admin %s saved\n", core.CleanString(email, true /* lower */))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The admin's email")
	cmd.Flags().StringVar(&name, "name", "", "The admin's name")
	cmd.Flags().BoolVar(&owner, "owner", false, "Make the admin a school owner")
	return cmd
}

// addUser updates or creates an active admin user.User.
func (cli *commandLine) addUser(ctx context.Context, name, email, pwd string, isOwner bool) error {
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	isNew := errors.Cause(err) == user.ErrNotFound
	if err != nil && !isNew {
		return err
	}
	if isNew {
		usr = user.User{Email: email, CreatedAt: now}
	}

	usr.Name = name
	usr.IsActive = true
	usr.UpdatedAt = now
	usr.Roles = []string{user.RoleAdmin}
	if isOwner {
		usr.Roles = user.AdminRoles
	}
	if err := usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}

	if isNew {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
