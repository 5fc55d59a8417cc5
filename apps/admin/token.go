package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	echoapi "github.com/trezcool/academia/apps/api/echo"
)

func (cli *commandLine) tokenCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "token --email EMAIL",
		Short: "Mint an API token for a user (development)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.token(email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user")
	return cmd
}

func (cli *commandLine) token(email string) error {
	usr, err := cli.usrSvc.GetByEmail(context.Background(), email)
	if err != nil {
		return errors.Wrap(err, "getting user")
	}
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, cli.conf), cli.conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	_, _ = fmt.Fprintln(cli.out, token)
	return nil
}
