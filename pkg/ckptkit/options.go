package ckptkit

import (
	"log/slog"

	"github.com/randalmurphal/ckptkit/pkg/ckptkit/backend"
	"github.com/randalmurphal/ckptkit/pkg/ckptkit/config"
	"github.com/randalmurphal/ckptkit/pkg/ckptkit/observability"
	"github.com/randalmurphal/ckptkit/pkg/ckptkit/retain"
)

// Options configures a Checkpointer. Start from DefaultOptions and
// adjust fields; the zero value of TopK retains nothing.
type Options struct {
	// Dir is the directory checkpoint files are written under.
	Dir string

	// Monitor names the scored quantity, recorded on snapshots and
	// usable in filename templates.
	Monitor string

	// Mode selects min-is-best or max-is-best ranking.
	Mode retain.Mode

	// TopK is the number of best checkpoints to retain.
	// retain.TopKAll (-1) keeps everything, retain.TopKNone (0) keeps
	// nothing via top-K.
	TopK int

	// SaveLast maintains a fixed-name "last" checkpoint.
	SaveLast bool

	// Template is the filename template ({epoch}, {step}, metric names).
	Template string

	// Ext is the checkpoint file extension, including the dot.
	Ext string

	// SaveAsync offloads saves onto NumThreads background workers.
	SaveAsync bool

	// NumThreads is the async worker count. Only meaningful when
	// SaveAsync is set, and must then be at least 1.
	NumThreads int

	// Compression stores checkpoint files LZ4-compressed.
	// Ignored when a custom Backend is supplied.
	Compression bool

	// Backend overrides the default filesystem backend.
	Backend backend.Interface

	// Logger receives structured progress logs. Nil disables logging.
	Logger *slog.Logger

	// Metrics records checkpoint metrics. Nil disables metrics.
	Metrics observability.MetricsRecorder

	// Spans records trace spans. Nil disables tracing.
	Spans observability.SpanManager
}

// DefaultOptions returns the defaults for a directory: keep the single
// best checkpoint, counter-based filenames, synchronous saves.
func DefaultOptions(dir string) Options {
	return Options{
		Dir:      dir,
		Mode:     retain.ModeMin,
		TopK:     1,
		Template: retain.DefaultTemplate,
		Ext:      retain.DefaultExt,
	}
}

// OptionsFromConfig maps configuration keys onto Options. Recognized
// keys: dir, monitor, mode, save_top_k, save_last, filename, ext,
// save_async, num_threads, compression. Missing keys fall back to
// DefaultOptions; an invalid mode string is reported by New.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	opts := DefaultOptions(cfg.String("dir", ""))

	mode, err := retain.ParseMode(cfg.String("mode", "min"))
	if err != nil {
		return Options{}, err
	}

	opts.Monitor = cfg.String("monitor", "")
	opts.Mode = mode
	opts.TopK = cfg.Int("save_top_k", 1)
	opts.SaveLast = cfg.Bool("save_last", false)
	opts.Template = cfg.String("filename", retain.DefaultTemplate)
	opts.Ext = cfg.String("ext", retain.DefaultExt)
	opts.SaveAsync = cfg.Bool("save_async", false)
	opts.NumThreads = cfg.Int("num_threads", 0)
	opts.Compression = cfg.Bool("compression", false)
	return opts, nil
}
