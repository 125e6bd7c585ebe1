package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
)

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search albums by name.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp(cmd)
			if err != nil {
				return fail(cmd, err)
			}

			query := strings.Join(args, " ")
			results := a.Catalog.Search(cmd.Context(), query)
			if len(results) == 0 {
				colorWarning.Fprintf(cmd.OutOrStdout(), "No albums found for %q\n", query)
				return nil
			}
			printSummaries(cmd.OutOrStdout(), results)
			return nil
		},
	}
}

// NewHomeCommand creates the home command.
func NewHomeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show popular series and the latest albums.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp(cmd)
			if err != nil {
				return fail(cmd, err)
			}

			sections := a.Catalog.HomeSections(cmd.Context())
			out := cmd.OutOrStdout()
			colorTitle.Fprintln(out, "Popular series")
			printSummaries(out, sections.Popular)
			fmt.Fprintln(out)
			colorTitle.Fprintln(out, "Latest soundtracks")
			printSummaries(out, sections.Latest)
			return nil
		},
	}
}

// NewAlbumCommand creates the album command.
func NewAlbumCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "album [album_id|album_url]",
		Short: "List the tracks of an album.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp(cmd)
			if err != nil {
				return fail(cmd, err)
			}

			album, err := a.Catalog.AlbumDetail(cmd.Context(), args[0])
			if err != nil {
				return fail(cmd, errors.New("album not found: "+args[0]))
			}

			out := cmd.OutOrStdout()
			colorTitle.Fprintln(out, album.Title)
			if album.Icon != "" {
				fmt.Fprintln(out, album.Icon)
			}
			for _, t := range album.Tracks {
				fmt.Fprintf(out, "%3d  %s\n", t.Ordinal, t.Name)
			}
			colorInfo.Fprintf(out, "%d tracks\n", album.TotalTracks)
			return nil
		},
	}
}

func printSummaries(out io.Writer, items []domain.AlbumSummary) {
	for _, it := range items {
		colorInfo.Fprintf(out, "%-40s", it.ID)
		fmt.Fprintf(out, " %s\n", it.Name)
	}
}
