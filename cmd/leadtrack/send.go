package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/osr-alliance/leadtrack/relay"
)

func sendCmd(a *app) *cobra.Command {
	var req relay.SendRequest

	c := &cobra.Command{
		Use:   "send",
		Short: "Send one SMS through the configured provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rl, err := newRelay(a.cfg.Provider, a.log)
			if err != nil {
				return err
			}

			resp, sendErr := rl.Send(cmd.Context(), req)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp); err != nil {
				return err
			}
			return sendErr
		},
	}

	c.Flags().StringVar(&req.To, "to", "", "destination phone number")
	c.Flags().StringVar(&req.Message, "message", "", "message body")
	_ = c.MarkFlagRequired("to")
	_ = c.MarkFlagRequired("message")
	return c
}
