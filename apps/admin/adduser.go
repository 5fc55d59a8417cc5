package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/academia/core/user"
)

func (cli *commandLine) addUserCommand() *cobra.Command {
	var (
		name  string
		email string
		roles []string
	)
	cmd := &cobra.Command{
		Use:   "adduser --name NAME --email EMAIL [--role student|teacher|admin]...",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.addUser(name, email, roles)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name of the user")
	cmd.Flags().StringVar(&email, "email", "", "email of the user")
	cmd.Flags().StringSliceVar(&roles, "role", []string{"student"}, "role of the user, repeatable")
	return cmd
}

// addUser creates a user.User
func (cli *commandLine) addUser(name, email string, roleNames []string) error {
	nu := user.NewUser{Name: name, Email: email}
	for _, rn := range roleNames {
		role, ok := user.RoleFromName(rn)
		if !ok {
			return fmt.Errorf("unknown role %q", rn)
		}
		nu.Roles = append(nu.Roles, role)
	}
	if err := nu.Validate(cli.validate, cli.usrSvc); err != nil {
		return err
	}

	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	_, _ = fmt.Fprintf(cli.out, "created user %s <%s>: %s\n", usr.Name, usr.Email, usr.ID)
	return nil
}
