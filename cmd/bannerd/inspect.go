package main

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/fbanim/bannerd/internal/codec"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "decode bitmaps and describe them without touching the display",
		ArgsUsage: "file.bmp...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "png",
				Usage: "write the decoded frame of a single input to `FILE`",
			},
		},
		Action: inspectAction,
	}
}

func inspectAction(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return cli.Exit("no bitmaps given, see --help", 2)
	}
	out := cmd.String("png")
	if out != "" && len(files) != 1 {
		return cli.Exit("--png takes exactly one bitmap", 2)
	}

	if _, err := loadConfig(cmd, ""); err != nil {
		return err
	}

	w := cmd.Root().Writer
	for _, path := range files {
		if err := describe(w, path); err != nil {
			return err
		}
	}

	if out != "" {
		return writePNG(files[0], out)
	}
	return nil
}

func describe(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	info, err := codec.DecodeInfo(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	header, order := "info", "bottom-up"
	if info.Core {
		header = "core"
	}
	if info.TopDown {
		order = "top-down"
	}
	_, err = fmt.Fprintf(w, "%s: %dx%d %s (%s header, %s), pixels at %d, %s stored, %s decoded\n",
		path, info.Width, info.Height, info.Format, header, order, info.Offset,
		humanize.Bytes(uint64(info.DataSize)),
		humanize.Bytes(uint64(info.Width*info.Height*codec.BytesPerPixel)))
	return err
}

func writePNG(src, dst string) error {
	frame, err := codec.DecodeFile(src)
	if err != nil {
		return err
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", dst, err)
	}
	return f.Close()
}
