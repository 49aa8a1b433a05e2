// Package locator runs the string-to-function pipeline: find the needle in
// the data sections, then find the function whose code references it.
package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"siglocate/internal/analysis"
	"siglocate/internal/config"
	"siglocate/internal/disasm"
	"siglocate/internal/hook"
	"siglocate/internal/logging"
	"siglocate/internal/sections"
)

var (
	// ErrStringNotFound means no candidate data section holds the needle.
	ErrStringNotFound = errors.New("string not found")
	// ErrCodeSectionMissing means the image has no section with the code name.
	ErrCodeSectionMissing = errors.New("code section missing")
)

// Options controls a locate run. Zero values select the defaults.
type Options struct {
	Needle       string
	DataSections []string
	CodeSection  string
	Arch         disasm.Arch
	Logger       *logging.LoggerCloser
}

// FromConfig builds Options from a loaded configuration.
func FromConfig(cfg config.Config, lg *logging.LoggerCloser) (Options, error) {
	arch, err := disasm.ParseArch(cfg.Arch)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Needle:       cfg.Needle,
		DataSections: cfg.DataSections,
		CodeSection:  cfg.CodeSection,
		Arch:         arch,
		Logger:       lg,
	}, nil
}

func (o Options) withDefaults() Options {
	if o.Needle == "" {
		o.Needle = config.DefaultNeedle
	}
	if len(o.DataSections) == 0 {
		o.DataSections = config.DefaultDataSections
	}
	if o.CodeSection == "" {
		o.CodeSection = config.DefaultCodeSection
	}
	if o.Arch == disasm.ArchUnknown {
		o.Arch = disasm.HostArch()
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	return o
}

// Result describes a successful locate.
type Result struct {
	Needle        string        `json:"needle"`
	StringSection string        `json:"string_section"`
	StringAddr    uint64        `json:"string_addr"`
	CodeSection   string        `json:"code_section"`
	FuncAddr      uint64        `json:"func_addr"`
	Arch          string        `json:"arch"`
	Elapsed       time.Duration `json:"elapsed_ns"`
}

// Miss reports whether err is a lookup miss rather than a failure: the
// image was readable but the needle or its user was not there.
func Miss(err error) bool {
	return errors.Is(err, ErrStringNotFound) ||
		errors.Is(err, ErrCodeSectionMissing) ||
		errors.Is(err, analysis.ErrNotFound)
}

// Locate finds the needle in the first matching data section, in the order
// secs lists them, and resolves the function in the code section that
// references it. The same sections always give the same result.
func Locate(ctx context.Context, secs []sections.Section, opts Options) (res Result, err error) {
	start := time.Now()
	opts = opts.withDefaults()
	lg := opts.Logger

	res = Result{Needle: opts.Needle, CodeSection: opts.CodeSection, Arch: opts.Arch.String()}
	defer func() {
		res.Elapsed = time.Since(start)
	}()

	resolver, err := analysis.ResolverFor(opts.Arch)
	if err != nil {
		return res, err
	}

	var found bool
	for _, s := range sections.Filter(secs, opts.DataSections...) {
		if addr, ok := analysis.FindString(s.Bytes(), opts.Needle, s.Addr); ok {
			res.StringAddr, res.StringSection, found = addr, s.Name, true
			break
		}
	}
	if !found {
		lg.Warn("Failed to find string", "needle", opts.Needle)
		return res, fmt.Errorf("%q: %w", opts.Needle, ErrStringNotFound)
	}
	lg.Debug(fmt.Sprintf("Found %s at 0x%X", opts.Needle, res.StringAddr), "section", res.StringSection)

	if err := ctx.Err(); err != nil {
		return res, err
	}

	code, ok := sections.Find(secs, opts.CodeSection)
	if !ok {
		lg.Warn("No code section", "name", opts.CodeSection)
		return res, fmt.Errorf("%s: %w", opts.CodeSection, ErrCodeSectionMissing)
	}

	fn, err := resolver.Resolve(code.Bytes(), code.Addr, res.StringAddr)
	if err != nil {
		lg.Warn("No function references string", "addr", fmt.Sprintf("0x%X", res.StringAddr), "arch", opts.Arch)
		return res, fmt.Errorf("resolve %s: %w", opts.CodeSection, err)
	}
	res.FuncAddr = fn
	lg.Info(fmt.Sprintf("Found function at 0x%X", fn), "section", opts.CodeSection)
	lg.Info(fmt.Sprintf("Took: %s", time.Since(start)))
	return res, nil
}

// Run resolves the sections of target in this process, locates the
// function and hands it to h. Nothing is installed on a miss.
func Run(ctx context.Context, target sections.Target, opts Options, h hook.Hook) (Result, error) {
	opts = opts.withDefaults()

	secs, err := sections.Resolve(target)
	if err != nil {
		opts.Logger.Error("Failed to get module sections", "target", target.Name, "err", err)
		return Result{}, err
	}

	res, err := Locate(ctx, secs, opts)
	if err != nil {
		return res, err
	}

	if h != nil {
		if err := h.Install(ctx, res.FuncAddr); err != nil {
			return res, fmt.Errorf("install hook: %w", err)
		}
	}
	return res, nil
}
