// Package main provides the CLI entry point for gifcast.
package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"

	_ "image/jpeg"
	_ "image/png"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/user/gifcast/pkg/adapters/gifenc"
	"github.com/user/gifcast/pkg/adapters/logger"
	"github.com/user/gifcast/pkg/adapters/sysinfo"
	"github.com/user/gifcast/pkg/adapters/wasmenc"
	"github.com/user/gifcast/pkg/config"
	"github.com/user/gifcast/pkg/export"
	"github.com/user/gifcast/pkg/ports"
	"github.com/user/gifcast/pkg/registry"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "gifcast",
		Usage:   l10n.T("Encode image sequences as animated GIF"),
		Version: version,
		Commands: []*cli.Command{
			exportCommand(),
			estimateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func settingsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "settings", Usage: l10n.T("YAML settings file")},
		&cli.Float64Flag{Name: "quality", Aliases: []string{"q"}, Value: 0.7, Usage: l10n.T("Quality (0.1-1.0)")},
		&cli.IntFlag{Name: "frame-skip", Value: 1, Usage: l10n.T("Keep every Nth frame (1-5)")},
		&cli.Float64Flag{Name: "speed", Value: 1.0, Usage: l10n.T("Playback speed multiplier (0.25-4.0)")},
		&cli.IntFlag{Name: "loops", Value: 0, Usage: l10n.T("Loop count (0 = infinite)")},
		&cli.BoolFlag{Name: "no-dithering", Usage: l10n.T("Disable error diffusion dithering")},
		&cli.StringFlag{Name: "encoder", Usage: l10n.T("Encoder backend (software, native)")},
		&cli.StringFlag{Name: "preset", Value: string(config.PresetBalanced), Usage: l10n.T("Encoder preset (quality, balanced, speed)")},
		&cli.Float64Flag{Name: "fps", Value: 30, Usage: l10n.T("Source frame rate")},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     l10n.T("Encode a directory of frames as an animated GIF"),
		ArgsUsage: "FRAME_DIR",
		Flags: append(settingsFlags(),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output GIF file path")},
			&cli.StringFlag{Name: "crop", Usage: l10n.T("Crop area as X,Y,WxH")},
			&cli.StringFlag{Name: "wasm-module", Usage: l10n.T("Path to the native encoder wasm module")},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info", Usage: l10n.T("Log level (debug, info, warn, error)")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output")},
		),
		Action: runExport,
	}
}

func estimateCommand() *cli.Command {
	return &cli.Command{
		Name:      "estimate",
		Usage:     l10n.T("Print the estimated output size without encoding"),
		ArgsUsage: "FRAME_DIR",
		Flags:     settingsFlags(),
		Action:    runEstimate,
	}
}

func runExport(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit(l10n.T("exactly one frame directory is required"), 2)
	}

	var log ports.Logger
	if c.Bool("quiet") {
		log = logger.NewNoop()
	} else {
		log = logger.NewConsole(ports.ParseLogLevel(c.String("log-level")))
	}

	settings, err := buildSettings(c)
	if err != nil {
		return err
	}

	crop, err := parseCrop(c.String("crop"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn(l10n.T("Interrupted, shutting down..."))
		cancel()
	}()

	frameDir := c.Args().First()
	frames, err := loadFrames(ctx, frameDir, c.Float64("fps"))
	if err != nil {
		return fmt.Errorf("load frames: %w", err)
	}
	log.Info(l10n.F("Loaded %d frames from %s", len(frames), frameDir))

	width, height := frames[0].Width(), frames[0].Height()
	if crop != nil {
		width, height = crop.Width, crop.Height
	}
	warnOnLowMemory(log, len(frames), width, height)
	log.Info(l10n.F("Estimated output size: %d KB",
		settings.EstimateOutputSize(len(frames), width, height)/1024))

	reg := registry.New()
	reg.Register(gifenc.ID, gifenc.Factory(), true)
	registerNativeEncoder(ctx, reg, log, c.String("wasm-module"))

	exporter := export.New(reg, log, export.WithPlaceholderFrames())
	data, err := exporter.Encode(ctx, frames, crop, settings, c.Float64("fps"), nil)
	if err != nil {
		return err
	}

	output := c.String("output")
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info(l10n.F("Output saved to %s", output))
	return nil
}

func runEstimate(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit(l10n.T("exactly one frame directory is required"), 2)
	}

	settings, err := buildSettings(c)
	if err != nil {
		return err
	}

	frames, err := loadFrames(context.Background(), c.Args().First(), c.Float64("fps"))
	if err != nil {
		return fmt.Errorf("load frames: %w", err)
	}

	width, height := frames[0].Width(), frames[0].Height()
	fmt.Println(l10n.F("Estimated output size: %d KB",
		settings.EstimateOutputSize(len(frames), width, height)/1024))
	return nil
}

// buildSettings loads the settings file when given, then applies flag
// overrides on top.
func buildSettings(c *cli.Context) (config.ExportSettings, error) {
	settings := config.Defaults()
	if path := c.String("settings"); path != "" {
		var err error
		if settings, err = config.LoadFromFile(path); err != nil {
			return settings, err
		}
	}

	if c.IsSet("quality") {
		settings.Quality = c.Float64("quality")
	}
	if c.IsSet("frame-skip") {
		settings.FrameSkip = c.Int("frame-skip")
	}
	if c.IsSet("speed") {
		settings.PlaybackSpeed = c.Float64("speed")
	}
	if c.IsSet("loops") {
		settings.LoopCount = c.Int("loops")
	}
	if c.IsSet("no-dithering") {
		settings.Dithering = !c.Bool("no-dithering")
	}
	if c.IsSet("encoder") {
		settings.EncoderID = c.String("encoder")
	}
	if c.IsSet("preset") {
		settings.EncoderPreset = config.Preset(c.String("preset"))
	}

	return settings, settings.Validate()
}

// parseCrop parses the X,Y,WxH crop flag.
func parseCrop(spec string) (*ports.CropArea, error) {
	if spec == "" {
		return nil, nil
	}
	crop := &ports.CropArea{}
	if _, err := fmt.Sscanf(spec, "%d,%d,%dx%d", &crop.X, &crop.Y, &crop.Width, &crop.Height); err != nil {
		return nil, fmt.Errorf("invalid crop %q, expected X,Y,WxH: %w", spec, err)
	}
	return crop, nil
}

func registerNativeEncoder(ctx context.Context, reg *registry.Registry, log ports.Logger, modulePath string) {
	if modulePath == "" {
		return
	}
	backend := wasmenc.NewBackend(wasmenc.Options{ModulePath: modulePath})
	if !backend.Available(ctx) {
		log.Warn(l10n.T("Native encoder unavailable, using software encoder"))
		return
	}
	log.Info(l10n.F("Native encoder module loaded from %s", modulePath))
	reg.Register(wasmenc.ID, wasmenc.Factory(backend), true)
}

func warnOnLowMemory(log ports.Logger, frameCount, width, height int) {
	const mb = 1 << 20
	needed, available, ok, err := sysinfo.CheckMemory(sysinfo.NewHostProber(), frameCount, width, height)
	if err != nil || ok {
		return
	}
	log.Warn(l10n.F("Low available memory: %d MB free, export may need about %d MB",
		available/mb, needed/mb))
}

// fileFrame is a lazily decoded frame backed by an image file. Dimensions
// come from the image header; pixel decoding is deferred to extraction.
type fileFrame struct {
	path   string
	width  int
	height int
	ts     int64
}

func (f *fileFrame) Width() int             { return f.width }
func (f *fileFrame) Height() int            { return f.height }
func (f *fileFrame) TimestampMicros() int64 { return f.ts }

func (f *fileFrame) Image() (image.Image, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return img, nil
}

// loadFrames lists PNG and JPEG files in dir sorted by name and probes
// their headers concurrently. Timestamps are synthesized from fps.
func loadFrames(ctx context.Context, dir string, fps float64) ([]ports.Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frame images in %s", dir)
	}

	if fps <= 0 {
		fps = 30
	}
	frameMicros := int64(1e6 / fps)

	frames := make([]ports.Frame, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			cfg, _, err := image.DecodeConfig(file)
			if err != nil {
				return fmt.Errorf("read header of %s: %w", path, err)
			}
			frames[i] = &fileFrame{
				path:   path,
				width:  cfg.Width,
				height: cfg.Height,
				ts:     int64(i) * frameMicros,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}
