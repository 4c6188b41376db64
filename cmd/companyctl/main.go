package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/gartstein/companydir/cmd/companyctl/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		List    commands.ListCmd   `cmd:"" help:"List companies"`
		Get     commands.GetCmd    `cmd:"" help:"Show one company"`
		Create  commands.CreateCmd `cmd:"" help:"Create a company"`
		Update  commands.UpdateCmd `cmd:"" help:"Update fields of a company"`
		Delete  commands.DeleteCmd `cmd:"" help:"Delete a company"`
		Events  commands.EventsCmd `cmd:"" help:"Tail company change events"`
		Debug   bool               `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
