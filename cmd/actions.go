package cmd

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic-io/manifest-tools/app"
	"github.com/elastic-io/manifest-tools/internal/config"
	"github.com/elastic-io/manifest-tools/internal/options"
	"github.com/urfave/cli"
)

var (
	manifestFlag = cli.StringFlag{
		Name:   "manifest-s3url, m",
		Usage:  "S3 path to manifest file",
		EnvVar: "MANIFEST_S3URL",
	}
	destFlag = cli.StringFlag{
		Name:  "dest, d",
		Usage: "Target directory where to store files",
	}
	symmetricKeyFlag = cli.StringFlag{
		Name:   "symmetric-key, k",
		Usage:  "Symmetric key provided to unload data. If provided then client side encryption is assumed",
		EnvVar: "MANIFEST_SYMMETRIC_KEY",
	}
	overwriteFlag = cli.BoolFlag{
		Name:  "overwrite",
		Usage: "Replace local files that already exist",
	}
	flattenFlag = cli.BoolFlag{
		Name:  "flatten-paths",
		Usage: "Store every file directly in the target directory",
	}
	fetchSizeFlag = cli.StringFlag{
		Name:  "fetch-size",
		Value: "10000000",
		Usage: "Bytes fetched per ranged read (K, M and G suffixes allowed)",
	}
	parallelFlag = cli.IntFlag{
		Name:  "parallel, p",
		Value: 1,
		Usage: "Number of files retrieved concurrently",
	}
)

// action 一个可执行动作及其参数说明
type action struct {
	name        string
	description string
	flags       []cli.Flag
	mandatory   []string
}

var actions = []action{
	{
		name:        config.ActionListActions,
		description: "Returns the list of supported actions",
	},
	{
		name:        config.ActionListFiles,
		description: "List the files mentioned in the manifest",
		flags:       []cli.Flag{manifestFlag},
		mandatory:   []string{"manifest-s3url"},
	},
	{
		name:        config.ActionRetrieveFiles,
		description: "Retrieve files and store locally",
		flags:       []cli.Flag{symmetricKeyFlag, destFlag, manifestFlag, overwriteFlag, flattenFlag, fetchSizeFlag, parallelFlag},
		mandatory:   []string{"dest", "manifest-s3url"},
	},
	{
		name:        config.ActionCatFiles,
		description: "Concatenate the files in manifest and print on stdout",
		flags:       []cli.Flag{symmetricKeyFlag, manifestFlag, fetchSizeFlag},
		mandatory:   []string{"manifest-s3url"},
	},
}

func lookupAction(name string) action {
	for _, a := range actions {
		if a.name == name {
			return a
		}
	}
	panic(fmt.Sprintf("action %s not defined", name))
}

func flagName(f cli.Flag) string {
	return strings.TrimSpace(strings.Split(f.GetName(), ",")[0])
}

func flagUsage(f cli.Flag) string {
	switch f := f.(type) {
	case cli.StringFlag:
		return f.Usage
	case cli.BoolFlag:
		return f.Usage
	case cli.IntFlag:
		return f.Usage
	}
	return ""
}

func (a action) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, " - %s: %s", a.name, a.description)
	for _, f := range a.flags {
		name := flagName(f)
		fmt.Fprintf(&b, "\n\t * %s: %s", name, flagUsage(f))
		for _, m := range a.mandatory {
			if m == name {
				b.WriteString(" MANDATORY")
			}
		}
	}
	return b.String()
}

func printActions(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "Available actions:"); err != nil {
		return err
	}
	for _, a := range actions {
		if _, err := fmt.Fprintln(w, a); err != nil {
			return err
		}
	}
	return nil
}

func listActionsCommand() cli.Command {
	a := lookupAction(config.ActionListActions)
	return cli.Command{
		Name:  a.name,
		Usage: a.description,
		Action: func(ctx *cli.Context) error {
			return printActions(ctx.App.Writer)
		},
	}
}

func listFilesCommand(transport http.RoundTripper) cli.Command {
	return manifestCommand(lookupAction(config.ActionListFiles), transport)
}

func retrieveFilesCommand(transport http.RoundTripper) cli.Command {
	return manifestCommand(lookupAction(config.ActionRetrieveFiles), transport)
}

func catFilesCommand(transport http.RoundTripper) cli.Command {
	return manifestCommand(lookupAction(config.ActionCatFiles), transport)
}

func manifestCommand(a action, transport http.RoundTripper) cli.Command {
	return cli.Command{
		Name:      a.name,
		Usage:     a.description,
		ArgsUsage: ``,
		Flags:     a.flags,
		Action: func(ctx *cli.Context) error {
			if err := noArgs(ctx); err != nil {
				return err
			}
			return runAction(ctx, transport)
		},
	}
}

// runAction 构建参数并在 app.Main 中执行动作
func runAction(ctx *cli.Context, transport http.RoundTripper) error {
	opts, err := options.New(ctx)
	if err != nil {
		return err
	}
	opts.Transport = transport
	return app.Main(func() (app.App, error) {
		return app.New(opts, ctx.App.Writer)
	})
}
