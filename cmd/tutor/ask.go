package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/upb/physics-tutor/app"
	"github.com/upb/physics-tutor/models"
)

func newAskCmd() *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Run the full tutor pipeline once and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			ctx := models.WithRequestID(cmd.Context(), "cli-"+uuid.New().String())

			return withDependencies(ctx, func(deps *app.Dependencies) error {
				reply, err := deps.Tutor.Reply(ctx, []models.ChatMessage{
					{Role: models.RoleUser, Content: question},
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, reply.Text)
				if showSources && len(reply.Sources) > 0 {
					fmt.Fprintf(out, "\nsources: %s\n", strings.Join(reply.Sources, ", "))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showSources, "sources", false, "print the lessons the answer was grounded on")
	return cmd
}
