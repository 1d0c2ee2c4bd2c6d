package shiori

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gookit/color"
	"gopkg.in/urfave/cli.v1"
)

// NewApp builds the command line application.
func NewApp(ctx context.Context) *cli.App {
	app := cli.NewApp()
	app.Name = "shiori"
	app.Usage = "review, build and install packages from the AUR"
	app.ArgsUsage = "PACKAGE..."
	app.Version = fmt.Sprintf("%s (built %s)", version, buildDate)
	// -v is --verbose here, so the version flag moves to -V.
	cli.VersionFlag = cli.BoolFlag{Name: "version, V", Usage: "print the version"}
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "batch", Usage: "disable interactive mode"},
		cli.BoolFlag{Name: "verbose, v", Usage: "show executed commands"},
		cli.BoolFlag{Name: "quiet, q", Usage: "only show warnings and errors"},
		cli.BoolFlag{Name: "debug", Usage: "show debugging output"},
		cli.BoolFlag{Name: "color", Usage: "colorize output"},
		cli.BoolFlag{Name: "no-color, C", Usage: "do not colorize output"},
		cli.StringFlag{Name: "root, r", Value: "/", Usage: "alternative installation root"},
		cli.BoolFlag{Name: "keep-files, k", Usage: "keep temporary files needed to build packages"},
		cli.BoolFlag{Name: "git-pull-push, P", Usage: "pull remote changes and push ours for PACKAGE... (default: all)"},
		cli.StringSliceFlag{Name: "remote", Usage: "remote base URL for -P (default: git_remote)"},
	}
	app.Action = func(c *cli.Context) error {
		return run(ctx, c)
	}
	return app
}

func verbosityOf(c *cli.Context) int {
	switch {
	case c.Bool("debug"):
		return Debug
	case c.Bool("verbose"):
		return Verbose
	case c.Bool("quiet"):
		return Quiet
	}
	return Normal
}

func colorOf(c *cli.Context) *bool {
	var v bool
	switch {
	case c.Bool("no-color"):
		v = false
	case c.Bool("color"):
		v = true
	default:
		return nil
	}
	return &v
}

func run(ctx context.Context, c *cli.Context) error {
	disp := NewDisplay(verbosityOf(c), colorOf(c))
	root := c.String("root")

	configPath := ConfigFile
	if root != "/" && root != "" {
		configPath = filepath.Join(root, ConfigFile)
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	settings, err := initSettings(cfg, root)
	if err != nil {
		return err
	}
	settings.Interactive = !c.Bool("batch")
	settings.KeepFiles = c.Bool("keep-files")

	tools, err := NewToolset(cfg, disp, settings.Interactive)
	if err != nil {
		return err
	}
	m := NewManager(cfg, settings, disp, tools)

	if c.Bool("git-pull-push") {
		return m.SyncRepositories(ctx, c.StringSlice("remote"), c.Args())
	}
	if c.NArg() == 0 {
		return cli.ShowAppHelp(c)
	}
	if settings.Interactive {
		prompt := newLinerPrompt(m.complete)
		defer prompt.Close()
		m.prompt = prompt
	}
	return m.InstallPackages(ctx, c.Args())
}

// Main is the CLI entrypoint for cmd/shiori.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			colArrow.Print("\n-> ")
			color.Danger.Printf("Received %v. Cancelling process gracefully\n", sig)
			cancel()
			select {
			case <-sigs:
				colArrow.Print("\n-> ")
				color.Danger.Println("Second interrupt received. Forcing immediate exit.")
				os.Exit(130)
			case <-time.After(5 * time.Second):
				os.Exit(130)
			}
		case <-ctx.Done():
		}
	}()

	err := NewApp(ctx).Run(os.Args)
	switch {
	case err == nil:
		return
	case errors.Is(err, ErrAborted):
		cli.HandleExitCoder(cli.NewExitError("", 2))
	case errors.Is(err, context.Canceled):
		os.Exit(130)
	default:
		colArrow.Print("-> ")
		colError.Printf("%v\n", err)
		os.Exit(1)
	}
}
