package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/veranemoloko/soundtrack-downloader/internal/app"
	"github.com/veranemoloko/soundtrack-downloader/internal/config"
)

var (
	colorInfo    = color.New(color.FgCyan)
	colorSuccess = color.New(color.FgGreen)
	colorWarning = color.New(color.FgYellow)
	colorError   = color.New(color.FgRed)
	colorTitle   = color.New(color.FgBlue, color.Bold)
)

func init() {
	color.NoColor = !isTerminal()
}

func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// NewRootCommand creates the ostdl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ostdl",
		Short:         "Search and download video game soundtracks.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "Print debug logs to stderr")

	root.AddCommand(
		NewSearchCommand(),
		NewHomeCommand(),
		NewAlbumCommand(),
		NewDownloadCommand(),
	)
	return root
}

// initApp loads configuration and wires the services. CLI runs never touch the
// server's session state file.
func initApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	var logger *slog.Logger
	if verbose {
		cfg.LogLevel, cfg.LogFormat = "debug", "text"
		logger = config.SetupLogger(cfg)
	} else {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return app.New(cfg, logger, false)
}

func fail(cmd *cobra.Command, err error) error {
	colorError.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", err)
	return err
}
