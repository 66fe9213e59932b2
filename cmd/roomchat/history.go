package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomchat-server/internal/app"
	"github.com/vovakirdan/roomchat-server/internal/chat"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <room-token>",
		Short: "Print the stored messages of a room as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}

			st, err := app.OpenStore(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			svc := chat.NewService(st, nil, logger)
			room, err := svc.GetRoom(cmd.Context(), chat.GetRoomInput{RoomID: args[0]})
			if err != nil {
				return err
			}
			msgs, err := svc.GetMessages(cmd.Context(), chat.GetMessagesInput{RoomID: room.RoomID, Limit: limit})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s), %d messages\n", room.Name, room.RoomID, len(msgs))
			writeHistory(cmd.OutOrStdout(), msgs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of most recent messages (default 100, max 500)")
	return cmd
}

func writeHistory(w io.Writer, msgs []chat.MessageView) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Time", "User", "Account", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, m := range msgs {
		account := "-"
		if m.UserID != nil {
			account = strconv.FormatInt(*m.UserID, 10)
		}
		table.Append([]string{
			strconv.FormatInt(m.ID, 10),
			m.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			m.UserName,
			account,
			m.Content,
		})
	}
	table.Render()
}
