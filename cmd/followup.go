package cmd

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

func followUpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "followup",
		Short: "Inspect and control a lead's follow-up cadence",
	}
	cmd.AddCommand(followUpAction("status", "Show the follow-up record", http.MethodGet, ""))
	cmd.AddCommand(followUpAction("cancel", "Cancel pending follow-ups", http.MethodPost, "/cancel"))
	cmd.AddCommand(followUpAction("trigger", "Send the next follow-up now", http.MethodPost, "/trigger"))
	return cmd
}

func followUpAction(use, short, method, suffix string) *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   use + " <sender>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			path := "/admin/followup/" + url.PathEscape(args[0]) + suffix
			status, out, err := c.do(cmd.Context(), method, path, nil)
			if err != nil {
				return err
			}
			printResult(cmd, "== followup "+use, status, out)
			if status >= 400 {
				return fmt.Errorf("followup %s: status %d", use, status)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
