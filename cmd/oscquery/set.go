package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/plml/oscquery-go/pkg/control"
	"github.com/plml/oscquery-go/pkg/service"
	"github.com/plml/oscquery-go/pkg/wire"
)

var setCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Send a control message",
	Long: `Sends one control message to a server's UDP port. Values are sent as
integers, floats or booleans when they parse as such; quote a value
("\"42\"") to send it as a string.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)

	setCmd.Flags().String("server", fmt.Sprintf("localhost:%d", service.DefaultControlPort), "Server control address (host:port)")
	setCmd.Flags().Duration("timeout", 2*time.Second, "Send timeout")
}

func runSet(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	msg := wire.NewMessage(args[0], parseValues(args[1:])...)
	if err := msg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, err := control.Dial(ctx, server)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Send(ctx, msg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent %s %v to %s\n", msg.Address, msg.Args, server)
	return nil
}
