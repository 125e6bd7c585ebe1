package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
	"github.com/veranemoloko/soundtrack-downloader/internal/validation"
)

const (
	pollInterval = 250 * time.Millisecond
	barTemplate  = `{{ cyan "Tracks:" }} {{counters . }} {{bar . }} {{percent . }} {{string . "track"}}`
)

// NewDownloadCommand creates the download command.
func NewDownloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download [album_id|album_url]",
		Short: "Download an album, or a selection of its tracks.",
		Args:  cobra.ExactArgs(1),
		RunE:  runDownloadCommand,
	}

	cmd.Flags().StringP("out", "o", "", "Output directory (relative paths are placed under the default download directory)")
	cmd.Flags().StringArrayP("track", "t", nil, "Download only tracks with this name (repeatable)")
	cmd.Flags().IntSliceP("ordinal", "n", nil, "Download only these track numbers (takes precedence over --track)")

	return cmd
}

func runDownloadCommand(cmd *cobra.Command, args []string) error {
	a, err := initApp(cmd)
	if err != nil {
		return fail(cmd, err)
	}

	out, _ := cmd.Flags().GetString("out")
	names, _ := cmd.Flags().GetStringArray("track")
	ordinals, _ := cmd.Flags().GetIntSlice("ordinal")

	req := &domain.StartDownloadRequest{
		AlbumID:          args[0],
		OutputPath:       out,
		SelectedTracks:   names,
		SelectedOrdinals: ordinals,
	}
	if err := a.Validator.Struct(req); err != nil {
		return fail(cmd, errors.New(validation.Message(err)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := a.Downloads.StartDownload(ctx, req)
	if err != nil {
		return fail(cmd, err)
	}
	colorInfo.Fprintf(cmd.OutOrStdout(), "Downloading %s into %s\n", req.AlbumID, session.Destination)

	final, err := waitForSession(ctx, cmd, a.Downloads, session.ID)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	_ = a.Downloads.Shutdown(shutdownCtx)

	if err != nil {
		return fail(cmd, err)
	}
	return report(cmd, final)
}

type sessionWatcher interface {
	GetSession(ctx context.Context, id string) (*domain.DownloadSession, error)
	CancelSession(ctx context.Context, id string) (*domain.DownloadSession, error)
}

// waitForSession renders progress until the session finishes. An interrupt cancels
// the session and keeps waiting for the worker to stop.
func waitForSession(ctx context.Context, cmd *cobra.Command, downloads sessionWatcher, id string) (*domain.DownloadSession, error) {
	bar := pb.ProgressBarTemplate(barTemplate).New(0)
	bar.SetWriter(cmd.ErrOrStderr())
	bar.Set(pb.Terminal, isTerminal())
	bar.Start()
	defer bar.Finish()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	interrupted := ctx.Done()
	for {
		select {
		case <-interrupted:
			interrupted = nil
			if _, err := downloads.CancelSession(context.Background(), id); err != nil {
				colorWarning.Fprintf(cmd.ErrOrStderr(), "\ncancel: %v\n", err)
			}
		case <-ticker.C:
		}

		session, err := downloads.GetSession(context.Background(), id)
		if err != nil {
			return nil, err
		}

		if session.TotalTracks > 0 {
			bar.SetTotal(int64(session.TotalTracks))
			bar.SetCurrent(int64(session.Succeeded + session.Failed))
		}
		bar.Set("track", session.CurrentFile)

		if session.Status.IsTerminal() {
			return session, nil
		}
	}
}

func report(cmd *cobra.Command, session *domain.DownloadSession) error {
	out := cmd.OutOrStdout()

	switch session.Status {
	case domain.SessionStatusCompleted:
		colorSuccess.Fprintf(out, "✓ %s\n", session.Message)
		if session.Bytes > 0 {
			fmt.Fprintf(out, "  %s in %s, took %s\n",
				humanize.Bytes(uint64(session.Bytes)),
				session.AlbumDir,
				session.UpdatedAt.Sub(session.CreatedAt).Round(time.Second))
		}
		if session.Skipped > 0 {
			colorInfo.Fprintf(out, "  %d track(s) were already downloaded\n", session.Skipped)
		}
		if session.Failed > 0 {
			colorWarning.Fprintf(out, "  %d track(s) could not be downloaded\n", session.Failed)
		}
		return nil
	case domain.SessionStatusCancelled:
		colorWarning.Fprintf(out, "%s\n", session.Message)
		return nil
	default:
		return fail(cmd, errors.New(session.Message))
	}
}
