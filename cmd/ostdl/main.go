package main

import (
	"os"

	"github.com/veranemoloko/soundtrack-downloader/cmd/ostdl/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
