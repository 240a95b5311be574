package cli

import (
	"github.com/spf13/cobra"
)

func newRoomsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rooms",
		Aliases: []string{"room", "r"},
		Short:   "Create, inspect and delete rooms",
	}
	cmd.AddCommand(
		newRoomsCreateCmd(opts),
		newRoomsGetCmd(opts),
		newRoomsListCmd(opts),
		newRoomsDeleteCmd(opts),
	)
	return cmd
}

func newRoomsCreateCmd(opts *rootOptions) *cobra.Command {
	var capacity int
	cmd := &cobra.Command{
		Use:   "create [roomId]",
		Short: "Create a room; the server generates an id when none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := opts.api()
			if err != nil {
				return err
			}
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			res, err := api.CreateRoom(cmd.Context(), id, capacity)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "%s: %s", res.Message, titleStyle.Render(res.RoomID))
			return nil
		},
	}
	cmd.Flags().IntVarP(&capacity, "capacity", "c", 0, "participant limit, 0 for the server default")
	return cmd
}

func newRoomsGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <roomId>",
		Short: "Show a room and its participants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := opts.api()
			if err != nil {
				return err
			}
			room, err := api.GetRoom(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderRoom(cmd.OutOrStdout(), room)
			return nil
		},
	}
}

func newRoomsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List rooms, oldest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := opts.api()
			if err != nil {
				return err
			}
			rooms, err := api.ListRooms(cmd.Context())
			if err != nil {
				return err
			}
			renderRooms(cmd.OutOrStdout(), rooms)
			return nil
		},
	}
}

func newRoomsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <roomId>",
		Aliases: []string{"rm"},
		Short:   "Delete an empty room",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := opts.api()
			if err != nil {
				return err
			}
			if err := api.DeleteRoom(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "room %s deleted", args[0])
			return nil
		},
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show signaling hub counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := opts.api()
			if err != nil {
				return err
			}
			s, err := api.Stats(cmd.Context())
			if err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), s)
			return nil
		},
	}
}
