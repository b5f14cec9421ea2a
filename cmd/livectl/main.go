package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"
)

var (
	version = "dev"
	commit  = "none"
)

// Globals are flags shared by every command.
type Globals struct {
	Config string `help:"Config file path (default ~/.livectl/config.yaml)" env:"LIVECTL_CONFIG" placeholder:"PATH"`
	Host   string `help:"Remote script host" env:"LIVECTL_HOST"`
	Port   int    `help:"Remote script port" env:"LIVECTL_PORT"`
	Debug  bool   `help:"Write debug records to the log file"`
}

type CLI struct {
	Globals

	Send     SendCmd     `cmd:"" help:"Send a raw command and print its result"`
	Status   StatusCmd   `cmd:"" help:"Show connection and session status"`
	Track    TrackCmd    `cmd:"" help:"Show a track and its clips"`
	Tempo    TempoCmd    `cmd:"" help:"Set the session tempo"`
	Play     PlayCmd     `cmd:"" help:"Start playback"`
	Stop     StopCmd     `cmd:"" help:"Stop playback"`
	Commands CommandsCmd `cmd:"" help:"List known commands and their timeout class"`
	Peer     PeerCmd     `cmd:"" help:"Run an emulated remote script for testing"`
	Logs     LogsCmd     `cmd:"" help:"Show logs"`
	Version  VersionCmd  `cmd:"" help:"Show version"`

	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
}

func main() {
	var cli CLI
	parser := kong.Must(&cli,
		kong.Name("livectl"),
		kong.Description("Drive Ableton Live through its remote script socket"),
		kong.UsageOnError(),
	)

	kongplete.Complete(parser,
		kongplete.WithPredictor("command", newCommandPredictor()),
	)

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := ctx.Run(&cli.Globals); err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}
