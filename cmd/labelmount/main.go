package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/kriansa/labelmount/internal/automount"
	"github.com/kriansa/labelmount/internal/blkid"
	"github.com/kriansa/labelmount/internal/config"
	"github.com/kriansa/labelmount/internal/log"
	"github.com/kriansa/labelmount/internal/lsblk"
	"github.com/kriansa/labelmount/internal/mount"
	"github.com/kriansa/labelmount/internal/procmounts"
	"github.com/kriansa/labelmount/internal/report"
	"github.com/kriansa/labelmount/internal/version"
)

const (
	exitFailure  = 1
	exitNotFound = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newCommand(os.Stdout, os.Stderr)
	err := cmd.Run(ctx, os.Args)
	log.Flush()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, automount.ErrDeviceNotFound) {
		return exitNotFound
	}
	return exitFailure
}

// app carries state shared by all commands of a single run
type app struct {
	cfg       *config.Config
	verbosity int
	stdout    io.Writer
	stderr    io.Writer
}

func newCommand(stdout, stderr io.Writer) *cli.Command {
	a := &app{stdout: stdout, stderr: stderr}

	return &cli.Command{
		Name:                   version.Name,
		Usage:                  "Mount labeled block devices under <mount-root>/<label>",
		Writer:                 stdout,
		ErrWriter:              stderr,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file path",
				Value:   config.DefaultConfigPath,
			},
			&cli.StringFlag{
				Name:    "mount-root",
				Aliases: []string{"m"},
				Usage:   "Base directory for mount points",
			},
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "Mount backend: exec or syscall",
			},
			&cli.BoolFlag{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "Show only labeled devices that are not mounted",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Increase log verbosity (-v info, -vv debug)",
				Config:  cli.BoolConfig{Count: &a.verbosity},
			},
			&cli.BoolFlag{
				Name:    "version",
				Aliases: []string{"V"},
				Usage:   "Print version information",
			},
		},
		Before: a.setup,
		Action: a.root,
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List block devices reported by blkid",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "mountable",
						Usage: "Show only labeled devices that are not mounted",
					},
					formatFlag(),
				},
				Action: a.list,
			},
			{
				Name:      "mount",
				Usage:     "Mount one device by label, or all labeled devices",
				ArgsUsage: "[label]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "all",
						Aliases: []string{"a"},
						Usage:   "Mount every labeled device that is not mounted",
					},
				},
				Action: a.mount,
			},
			{
				Name:      "unmount",
				Aliases:   []string{"umount"},
				Usage:     "Unmount the device mounted at <mount-root>/<label>",
				ArgsUsage: "<label>",
				Action:    a.unmount,
			},
			{
				Name:   "tree",
				Usage:  "Show block device topology from lsblk",
				Flags:  []cli.Flag{formatFlag()},
				Action: a.tree,
			},
		},
	}
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: table, json or yaml",
		Value:   report.FormatTable,
		Validator: func(s string) error {
			return report.ValidateFormat(s)
		},
	}
}

func (a *app) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	log.Setup(a.verbosity)

	// --version must work even when the config file is broken
	if cmd.Bool("version") {
		a.cfg = &config.Config{}
		a.cfg.ApplyDefaults()
		return ctx, nil
	}

	// Load config file
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, fmt.Errorf("load config: %w", err)
	}

	// Merge CLI flags (CLI takes precedence)
	cfg.Merge(cmd.String("mount-root"), cmd.String("backend"))
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return ctx, fmt.Errorf("invalid config: %w", err)
	}

	log.Debug("configuration loaded",
		"mount_root", cfg.MountRoot,
		"backend", cfg.Backend,
		"blkid", cfg.Blkid,
		"mounts_file", cfg.MountsFile,
		"command_timeout", cfg.CommandTimeout,
	)

	a.cfg = cfg
	return ctx, nil
}

func (a *app) root(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("version") {
		fmt.Fprintln(a.stdout, version.String())
		return nil
	}

	reg, err := a.registry(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("list") {
		log.Info("showing labeled devices that are not mounted")
		return report.Devices(a.stdout, reg.Mountable(), report.FormatTable)
	}

	log.Info("showing all devices")
	_, err = io.WriteString(a.stdout, reg.RenderTable())
	return err
}

func (a *app) list(ctx context.Context, cmd *cli.Command) error {
	reg, err := a.registry(ctx)
	if err != nil {
		return err
	}

	devices := reg.Devices()
	if cmd.Bool("mountable") {
		devices = reg.Mountable()
	}
	return report.Devices(a.stdout, devices, cmd.String("format"))
}

func (a *app) mount(ctx context.Context, cmd *cli.Command) error {
	all := cmd.Bool("all")
	label := cmd.Args().First()

	if all && label != "" {
		return fmt.Errorf("use either --all or a label, not both")
	}
	if !all && label == "" {
		return fmt.Errorf("nothing to mount: pass --all or a device label")
	}

	svc, err := a.service()
	if err != nil {
		return err
	}
	reg, err := a.registry(ctx)
	if err != nil {
		return err
	}

	if all {
		return a.mountAll(ctx, svc, reg)
	}

	res, err := svc.MountLabel(ctx, reg, label)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "mounted %s at %s\n", res.Device.Path, res.Target)
	return nil
}

func (a *app) mountAll(ctx context.Context, svc *automount.Service, reg *blkid.Registry) error {
	failed := 0
	results := svc.MountAll(ctx, reg)
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(a.stderr, "failed to mount %s: %v\n", res.Device.Path, res.Err)
			continue
		}
		fmt.Fprintf(a.stdout, "mounted %s at %s\n", res.Device.Path, res.Target)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d devices failed to mount", failed, len(results))
	}
	return nil
}

func (a *app) unmount(ctx context.Context, cmd *cli.Command) error {
	label := cmd.Args().First()
	if label == "" {
		return fmt.Errorf("missing label")
	}

	svc, err := a.service()
	if err != nil {
		return err
	}

	res, err := svc.Unmount(ctx, label)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "unmounted %s\n", res.Target)
	return nil
}

func (a *app) tree(ctx context.Context, cmd *cli.Command) error {
	tree, err := lsblk.Probe(ctx, a.cfg.Lsblk)
	if err != nil {
		return err
	}
	return report.Tree(a.stdout, tree, cmd.String("format"))
}

// registry probes blkid and stamps every device with its current mount status
func (a *app) registry(ctx context.Context) (*blkid.Registry, error) {
	out, err := blkid.Probe(ctx, a.cfg.Blkid)
	if err != nil {
		return nil, fmt.Errorf("probe devices: %w", err)
	}

	reg, err := blkid.Build(out, procmounts.NewChecker(a.cfg.MountsFile))
	if err != nil {
		return nil, fmt.Errorf("build device registry: %w", err)
	}
	return reg, nil
}

func (a *app) service() (*automount.Service, error) {
	mounter, err := mount.New(a.cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("create mounter: %w", err)
	}
	return automount.NewService(a.cfg.MountRoot, mounter, automount.WithTimeout(a.cfg.CommandTimeout)), nil
}
