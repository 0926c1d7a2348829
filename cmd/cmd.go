package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/elastic-io/manifest-tools/internal/log"
	"github.com/elastic-io/manifest-tools/internal/utils"
	"github.com/urfave/cli"
)

// ExitUnsupportedAction 未知动作的退出码
const ExitUnsupportedAction = 404

func Execute(name, usage, version, commit string) {
	app := newApp(name, usage, version, commit, os.Stdout, nil)
	if err := app.Run(os.Args); err != nil {
		log.Logger.Error(err)
		log.Close()
		os.Exit(1)
	}
	log.Close()
}

// newApp builds the command line application. out receives command output
// (cat-files content included); transport, when not nil, replaces the HTTP
// transport of the blob store.
func newApp(name, usage, version, commit string, out io.Writer, transport http.RoundTripper) *cli.App {
	app := cli.NewApp()
	app.Name = name
	app.Usage = usage
	app.Writer = out

	v := []string{version}

	if commit != "" {
		v = append(v, "commit: "+commit)
	}
	v = append(v, "go: "+runtime.Version())
	app.Version = strings.Join(v, "\n")

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "set the log file to write logs to (default is '/dev/stderr')",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "set the log level ('debug', 'info', 'warn', 'error', 'fatal')",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "print debug messages",
		},
		cli.StringFlag{
			Name:   "region",
			Usage:  "force the region to be used",
			EnvVar: "MANIFEST_TOOLS_REGION",
		},
		cli.StringFlag{
			Name:   "backend",
			Value:  "s3",
			Usage:  "object store client ('s3' or 'minio')",
			EnvVar: "MANIFEST_TOOLS_BACKEND",
		},
		cli.StringFlag{
			Name:   "endpoint, e",
			Usage:  "object store endpoint, empty for AWS S3",
			EnvVar: "MANIFEST_TOOLS_ENDPOINT",
		},
		cli.StringFlag{
			Name:  "access-key",
			Usage: "access key, the SDK credential chain is used when empty",
		},
		cli.StringFlag{
			Name:  "secret-key",
			Usage: "secret key",
		},
		cli.StringFlag{
			Name:  "session-token",
			Usage: "session token for temporary credentials",
		},
		cli.BoolFlag{
			Name:  "path-style",
			Usage: "use path style bucket addressing",
		},
		cli.BoolFlag{
			Name:  "disable-ssl",
			Usage: "talk plain HTTP to the endpoint",
		},
		cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip TLS certificate verification",
		},
		cli.IntFlag{
			Name:  "max-retries",
			Usage: "retries of the object store client, 0 keeps the client default",
		},
		cli.DurationFlag{
			Name:  "monitor-interval",
			Usage: "log memory usage at this interval, 0 disables it",
		},
		cli.IntFlag{
			Name:  "gc-percent",
			Value: 100,
			Usage: "set the garbage collection percent",
		},
		cli.StringFlag{
			Name:  "memory-limit",
			Value: "",
			Usage: "set the soft memory limit, e.g. 4G",
		},
	}

	app.Commands = []cli.Command{
		listActionsCommand(),
		listFilesCommand(transport),
		retrieveFilesCommand(transport),
		catFilesCommand(transport),
	}

	app.Before = func(ctx *cli.Context) error {
		if err := log.Init(ctx.String("log"), ctx.String("log-level"), ctx.Bool("debug")); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		debug.SetGCPercent(ctx.Int("gc-percent"))
		if s := ctx.String("memory-limit"); s != "" {
			limit, err := utils.ParseSize(s)
			if err != nil {
				return fmt.Errorf("invalid memory-limit: %w", err)
			}
			debug.SetMemoryLimit(limit)
		}
		return nil
	}

	// 没有匹配的子命令时到达这里
	app.Action = func(ctx *cli.Context) error {
		if ctx.NArg() > 0 {
			return cli.NewExitError(fmt.Sprintf("Unsupported action: %s", ctx.Args().First()), ExitUnsupportedAction)
		}
		fmt.Fprintln(ctx.App.Writer, "No action specified, defaulting to list available actions.")
		return printActions(ctx.App.Writer)
	}

	return app
}
