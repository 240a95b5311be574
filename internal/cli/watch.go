package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "watch <roomId>",
		Short: "Join a room and print every event it receives",
		Long: `watch joins the room as a regular participant, so other members see it
arrive and leave. It never answers offers. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := opts.api()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			sc, err := DialSignal(ctx, api.WebSocketURL())
			if err != nil {
				return err
			}
			defer sc.Close()

			if err := sc.Join(args[0], userID); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s connection %s watching %s\n",
				mutedStyle.Render("·"), titleStyle.Render(sc.ID()), titleStyle.Render(args[0]))

			for {
				ev, err := sc.Next(ctx)
				if err != nil {
					if errors.Is(err, errSignalClosed) {
						printWarning(out, "server closed the connection")
						return nil
					}
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				fmt.Fprintln(out, describeEvent(ev))
			}
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "signalctl", "userId announced to the room")
	return cmd
}
