package cmd

import (
	"fmt"

	"github.com/urfave/cli"
)

// noArgs 动作只接受选项，出现位置参数时打印该动作的帮助
func noArgs(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return nil
	}
	cmdName := ctx.Command.Name
	fmt.Fprintf(cli.ErrWriter, "Incorrect Usage.\n\n")
	cli.ShowCommandHelp(ctx, cmdName)
	return fmt.Errorf("%s: %q takes no arguments, got %q", ctx.App.Name, cmdName, ctx.Args().First())
}
