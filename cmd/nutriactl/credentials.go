package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCredentialsCmd(load containerLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the stored LLM API keys",
	}
	cmd.AddCommand(newCredentialsSeedCmd(load), newCredentialsListCmd(load))
	return cmd
}

func newCredentialsSeedCmd(load containerLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "seed KEY [KEY...]",
		Short: "Store API keys; keys already stored are skipped",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := load(false)
			if err != nil {
				return err
			}
			defer c.Close()

			created, err := c.CredentialService.Seed(cmd.Context(), args)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stored %d of %d keys\n", created, len(args))
			return nil
		},
	}
}

func newCredentialsListCmd(load containerLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show stored keys with their usage counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := load(false)
			if err != nil {
				return err
			}
			defer c.Close()

			creds, err := c.CredentialService.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tKEY\tUSES\tACTIVE")
			for _, cr := range creds {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%t\n", cr.Id, maskKey(cr.Key), cr.Uses, cr.Active)
			}
			return w.Flush()
		},
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
