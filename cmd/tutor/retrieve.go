package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/upb/physics-tutor/app"
)

const snippetLen = 80

func newRetrieveCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "retrieve <question>",
		Short: "Print the lesson chunks that would ground an answer, without calling the completion service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			return withDependencies(cmd.Context(), func(deps *app.Dependencies) error {
				if k <= 0 {
					k = deps.Config.Retrieval.TopK
				}
				ranked, err := deps.Tutor.Retrieve(cmd.Context(), query, k)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(ranked) == 0 {
					fmt.Fprintln(out, "no matching lesson material")
					return nil
				}
				for i, sc := range ranked {
					fmt.Fprintf(out, "%2d. %.4f  %s#%d  %s\n", i+1, sc.Score, sc.Chunk.Source, sc.Chunk.Index, snippet(sc.Chunk.Text))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 0, "number of chunks to return (default RETRIEVAL_TOP_K)")
	return cmd
}

// snippet flattens whitespace and truncates to snippetLen runes
func snippet(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	r := []rune(flat)
	if len(r) <= snippetLen {
		return flat
	}
	return string(r[:snippetLen]) + "..."
}
