package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var digestGenerate bool

var setRoleCmd = &cobra.Command{
	Use:   "set-role <email> <role>",
	Short: "Change a user's role (parent, educator, admin, specialist)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		svc, done, err := e.services(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		user, err := svc.Auth.SetRole(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
		return nil
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Email the weekly plan digest to opted-in users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		svc, done, err := e.services(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		out := cmd.OutOrStdout()
		if digestGenerate {
			n, err := svc.Plans.AutoGenerate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "generated %d plans\n", n)
		}
		report, err := svc.Digest.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "digest: %d recipients, %d sent, %d failed\n", report.Recipients, report.Sent, report.Failed)
		return nil
	},
}

func init() {
	digestCmd.Flags().BoolVar(&digestGenerate, "generate", true, "generate missing current and next week plans first")
}
