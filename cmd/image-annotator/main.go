package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	imageannotator "github.com/menta2k/image-annotator"
	"github.com/menta2k/image-annotator/internal/config"
	"github.com/menta2k/image-annotator/internal/logging"
)

const usage = "usage: %s -dir images/ -cmd snap|suggest|interpolate|massdelete|export|overlay|crops|stats [flags]"

func main() {
	var dir, db, cfgPath, classesPath, cmd, logLevel, logPath string
	var frame, from, fromMark, to, toMark, class, forward int
	var rect, outDir, backend, url, model string
	var showVersion bool

	flag.StringVar(&dir, "dir", "", "image directory")
	flag.StringVar(&db, "db", "", "mark database (default: <dir>/marks.db)")
	flag.StringVar(&cfgPath, "config", "", "JSON configuration file")
	flag.StringVar(&classesPath, "classes", "", "class names file, one per line (default: <dir>/obj.names)")
	flag.StringVar(&cmd, "cmd", "stats", "command: snap|suggest|interpolate|massdelete|export|overlay|crops|stats")
	flag.StringVar(&logLevel, "log", "", "log level: trace|debug|info|warn|error")
	flag.StringVar(&logPath, "logfile", "", "also write logs to this file")

	flag.IntVar(&frame, "frame", -1, "frame index, -1 for every frame (snap, suggest, overlay, crops)")
	flag.IntVar(&from, "from", 0, "first key frame (interpolate)")
	flag.IntVar(&fromMark, "from-mark", 0, "mark position on the first key frame (interpolate)")
	flag.IntVar(&to, "to", 0, "second key frame (interpolate)")
	flag.IntVar(&toMark, "to-mark", 0, "mark position on the second key frame (interpolate)")
	flag.IntVar(&class, "class", 0, "class id (massdelete)")
	flag.IntVar(&forward, "forward", 0, "frames after -frame to include (massdelete)")
	flag.StringVar(&rect, "rect", "", "pixel rectangle x,y,w,h (massdelete)")

	flag.StringVar(&outDir, "out", "", "output directory for overlays and crops (default from config)")
	flag.StringVar(&backend, "backend", "", "suggest backend: ollama or llamacpp")
	flag.StringVar(&url, "url", "", "suggest server URL")
	flag.StringVar(&model, "model", "", "suggest model name")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(imageannotator.GetVersion())
		return
	}
	if dir == "" {
		fmt.Fprintf(os.Stderr, usage+"\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if classesPath != "" {
		cfg.Classes = classesPath
	}
	if db != "" {
		cfg.Store.Path = db
	} else if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(dir, "marks.db")
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if backend != "" {
		cfg.Suggest.Backend = backend
	}
	if url != "" {
		cfg.Suggest.URL = url
	}
	if model != "" {
		cfg.Suggest.Model = model
	}

	var logFile *os.File
	if logPath != "" {
		logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer logFile.Close()
	}
	var logger zerolog.Logger
	if logFile != nil {
		logger = logging.New(cfg.LogLevel, os.Stderr, logFile)
	} else {
		logger = logging.New(cfg.LogLevel, os.Stderr, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := imageannotator.Open(dir, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", dir).Msg("failed to open image directory")
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close session")
		}
	}()
	logger.Info().Int("frames", a.Len()).Int("classes", a.Classes().Len()).Str("db", cfg.Store.Path).Msg("session opened")

	if err := run(ctx, a, cfg, logger, cmd, options{
		frame: frame, from: from, fromMark: fromMark, to: to, toMark: toMark,
		class: class, forward: forward, rect: rect,
	}); err != nil {
		logger.Error().Err(err).Str("cmd", cmd).Msg("command failed")
		a.Close()
		os.Exit(1)
	}
}

type options struct {
	frame, from, fromMark, to, toMark int
	class, forward                    int
	rect                              string
}

func run(ctx context.Context, a *imageannotator.Annotator, cfg *config.Config, logger zerolog.Logger, cmd string, o options) error {
	switch cmd {
	case "snap":
		if o.frame >= 0 {
			s, err := a.SnapFrame(ctx, o.frame)
			if err != nil {
				return err
			}
			logger.Info().Int("snapped", s.Snapped).Int("total", s.Total).Msg("snap finished")
			return a.Save(ctx)
		}
		s, err := a.SnapAll(ctx)
		if err != nil {
			return err
		}
		logger.Info().Int("snapped", s.Snapped).Int("total", s.Total).Msg("snap finished")

	case "suggest":
		vc, err := imageannotator.NewVisionClient(cfg.Suggest)
		if err != nil {
			return err
		}
		for _, i := range frameRange(a, o.frame) {
			n, err := a.Suggest(ctx, vc, i)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			logger.Info().Int("frame", i).Int("marks", n).Msg("suggested")
		}

	case "interpolate":
		res, err := a.Interpolate(ctx, o.from, o.fromMark, o.to, o.toMark)
		if err != nil {
			return err
		}
		logger.Info().Int("from", res.From).Int("to", res.To).Int("created", res.Created).Msg("interpolation finished")

	case "massdelete":
		r, err := parseRect(o.rect)
		if err != nil {
			return err
		}
		start := max(o.frame, 0)
		n, err := a.MassDelete(ctx, start, r, o.class, o.forward)
		if err != nil {
			return err
		}
		logger.Info().Int("deleted", n).Msg("mass delete finished")

	case "export":
		files, lines, err := a.ExportYOLO(ctx)
		if err != nil {
			return err
		}
		logger.Info().Int("files", files).Int("labels", lines).Msg("export finished")

	case "overlay":
		ext := cfg.Output.Format
		for _, i := range frameRange(a, o.frame) {
			path := filepath.Join(cfg.Output.Dir, fmt.Sprintf("overlay_%05d.%s", i, ext))
			if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
				return err
			}
			if err := a.RenderOverlay(ctx, i, path); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			logger.Info().Str("path", path).Msg("saved overlay")
		}

	case "crops":
		for _, i := range frameRange(a, o.frame) {
			paths, err := a.ExportCrops(ctx, i, cfg.Output.Dir)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			logger.Info().Int("frame", i).Int("crops", len(paths)).Msg("saved crops")
		}

	case "stats":
		counts, err := a.Store().CountByClass(ctx)
		if err != nil {
			return err
		}
		out := make(map[string]int64, len(counts))
		for _, c := range counts {
			name, err := a.Classes().Name(c.ClassID)
			if err != nil {
				name = strconv.Itoa(c.ClassID)
			}
			out[name] = c.Count
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func frameRange(a *imageannotator.Annotator, frame int) []int {
	if frame >= 0 {
		return []int{frame}
	}
	idx := make([]int, a.Len())
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// parseRect reads "x,y,w,h" into a pixel rectangle
func parseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("rect must be x,y,w,h, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("rect: %w", err)
		}
		v[i] = n
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}
