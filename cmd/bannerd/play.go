package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/fbanim/bannerd/internal/animation"
	"github.com/fbanim/bannerd/internal/command"
	"github.com/fbanim/bannerd/internal/config"
	"github.com/fbanim/bannerd/internal/framebuffer"
	"github.com/fbanim/bannerd/internal/logging"
)

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "show the given bitmaps as an animation centered on the screen",
		ArgsUsage: "[interval[fps]] frame.bmp...",
		Action:    playAction,
	}
}

// splitPlayArgs separates an optional leading interval from the frame files.
// A lone argument is always a frame.
func splitPlayArgs(args []string) (interval string, files []string) {
	if len(args) > 1 {
		if _, err := config.ParseInterval(args[0]); err == nil {
			return args[0], args[1:]
		}
	}
	return "", args
}

func playAction(ctx context.Context, cmd *cli.Command) error {
	interval, files := splitPlayArgs(cmd.Args().Slice())
	if len(files) == 0 {
		return cli.Exit("no frames given, see --help", 2)
	}

	cfg, err := loadConfig(cmd, interval)
	if err != nil {
		return err
	}

	dev, err := framebuffer.Open(cfg.Display.Device)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(!cfg.Display.PreserveMode); err != nil {
			logging.Warn("%v", err)
		}
	}()

	anim, err := animation.Load(files, dev.Center(), cfg.Interval())
	if err != nil {
		return err
	}

	err = play(ctx, animation.NewPlayer(anim, dev), cfg.Animation)
	if errors.Is(err, context.Canceled) {
		logging.Info("Stopping on signal")
		return nil
	}
	return err
}

// play either serves the command pipe or free runs the animation RunCount
// times, forever when RunCount is not positive.
func play(ctx context.Context, p *animation.Player, cfg config.AnimationConfig) error {
	if cfg.CommandPipe != "" {
		return serve(ctx, p, cfg.CommandPipe)
	}

	n := animation.Forever
	if cfg.RunCount > 0 {
		n = cfg.RunCount * p.FrameCount()
	}
	return p.Run(ctx, n)
}

// serve runs the interpreter on the pipe at path. The interpreter may be
// blocked opening a FIFO nobody writes to, so on cancellation it is left
// behind rather than waited for.
func serve(ctx context.Context, p *animation.Player, path string) error {
	pipe := command.NewPipe(path)
	defer pipe.Close()

	logging.Info("Waiting for commands on %s", path)

	done := make(chan error, 1)
	go func() {
		done <- command.NewInterpreter(pipe, p).Serve(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("command pipe %s: %w", path, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
