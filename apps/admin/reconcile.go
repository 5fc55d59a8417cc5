package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (cli *commandLine) reconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Re-sync passing quiz scores and issue missing certificates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.reconcile()
		},
	}
}

func (cli *commandLine) reconcile() error {
	report, err := cli.learningSvc.Reconcile(context.Background())
	if err != nil {
		return errors.Wrap(err, "reconciling")
	}
	enc := yaml.NewEncoder(cli.out)
	defer enc.Close()
	return errors.Wrap(enc.Encode(report), "printing report")
}
