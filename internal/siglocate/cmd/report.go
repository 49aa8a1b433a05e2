package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"

	"siglocate/internal/analysis"
	"siglocate/internal/config"
	"siglocate/internal/disasm"
	"siglocate/internal/locator"
	"siglocate/internal/logging"
	"siglocate/internal/sections"
	"siglocate/internal/siglocate/styles"
	"siglocate/internal/ui/colorize"
)

// maxListing bounds the disassembly shown for a located function.
const maxListing = 512

// source is an image whose sections are ready to scan: a file on disk or a
// module of this process.
type source struct {
	Name    string
	Format  string
	Arch    disasm.Arch
	Base    uint64
	Secs    []sections.Section
	Symbols []sections.Symbol
}

func openFile(path string) (source, error) {
	img, err := sections.Open(path)
	if err != nil {
		return source{}, err
	}
	return source{
		Name:    path,
		Format:  img.Format,
		Arch:    img.Arch,
		Base:    img.Base,
		Secs:    img.Sections,
		Symbols: img.Symbols,
	}, nil
}

func openProcess(target string) (source, error) {
	secs, err := sections.Resolve(sections.Target{Name: target})
	if err != nil {
		return source{}, err
	}
	name := target
	if name == "" {
		name = "self"
	}
	return source{Name: name, Format: "process", Arch: disasm.HostArch(), Secs: secs}, nil
}

// report is what every output mode renders.
type report struct {
	Source  string         `json:"source"`
	Format  string         `json:"format"`
	Result  locator.Result `json:"result"`
	Symbol  string         `json:"symbol,omitempty"`
	Miss    string         `json:"miss,omitempty"`
	Listing string         `json:"listing,omitempty"`

	arch disasm.Arch
	err  error // lookup miss, kept for the exit status
}

// scan runs the locator over src. Lookup misses end up in the report; any
// other failure is returned.
func scan(ctx context.Context, src source, cfg config.Config, lg *logging.LoggerCloser, symbols bool) (report, error) {
	opts, err := locator.FromConfig(cfg, lg)
	if err != nil {
		return report{}, err
	}
	// Offline images carry their own machine type.
	if cfg.Arch == "" && src.Arch != disasm.ArchUnknown {
		opts.Arch = src.Arch
	}

	rep := report{Source: src.Name, Format: src.Format, arch: opts.Arch}
	res, err := locator.Locate(ctx, src.Secs, opts)
	rep.Result = res
	if err != nil {
		if !locator.Miss(err) {
			return rep, err
		}
		rep.Miss = err.Error()
		rep.err = err
		return rep, nil
	}

	if code, ok := sections.Find(src.Secs, res.CodeSection); ok {
		data := code.Bytes()
		if off := res.FuncAddr - code.Addr; off < uint64(len(data)) {
			if stream, err := disasm.UntilReturn(opts.Arch, data[off:], res.FuncAddr, maxListing); err == nil {
				rep.Listing = stream.String()
			}
		}
	}
	if symbols {
		rep.Symbol, _ = analysis.Symbolize(src.Symbols, res.FuncAddr)
	}
	return rep, nil
}

func paint(st lipgloss.Style, s string) string {
	if !colorize.Enabled() {
		return s
	}
	return st.Render(s)
}

// writePlain prints rep for --no-tui. full adds the listing.
func writePlain(w io.Writer, rep report, full bool) {
	fmt.Fprintln(w, paint(styles.Title, "# siglocate"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "; %s (%s, %s)\n\n", rep.Source, rep.Format, rep.Result.Arch)

	field := func(name, value string) {
		fmt.Fprintf(w, "%s %s\n", paint(styles.Label, fmt.Sprintf("%-9s", name+":")), value)
	}
	field("needle", fmt.Sprintf("%q", rep.Result.Needle))
	if rep.Result.StringSection != "" {
		field("string", fmt.Sprintf("%s %s", paint(styles.Addr, hexAddr(rep.Result.StringAddr)), rep.Result.StringSection))
	}
	if rep.Miss != "" {
		field("miss", paint(styles.Miss, rep.Miss))
		return
	}
	fn := paint(styles.Addr, hexAddr(rep.Result.FuncAddr))
	if rep.Symbol != "" {
		fn += " <" + rep.Symbol + ">"
	}
	field("function", fmt.Sprintf("%s %s", fn, rep.Result.CodeSection))
	field("took", rep.Result.Elapsed.String())

	if full && rep.Listing != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, colorize.Listing(rep.arch, rep.Listing))
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// markdown renders the summary shown in the TUI.
func (rep report) markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# siglocate\n\n```\n; %s\n; %s %s\n```\n\n", rep.Source, rep.Format, rep.Result.Arch)
	fmt.Fprintf(&b, "- **needle** `%s`\n", rep.Result.Needle)
	if rep.Result.StringSection != "" {
		fmt.Fprintf(&b, "- **string** `%s` in %s\n", hexAddr(rep.Result.StringAddr), rep.Result.StringSection)
	}
	if rep.Miss != "" {
		fmt.Fprintf(&b, "\n> %s\n", rep.Miss)
		return b.String()
	}
	fmt.Fprintf(&b, "- **function** `%s` in %s\n", hexAddr(rep.Result.FuncAddr), rep.Result.CodeSection)
	if rep.Symbol != "" {
		fmt.Fprintf(&b, "- **symbol** `%s`\n", rep.Symbol)
	}
	fmt.Fprintf(&b, "- **took** %s\n", rep.Result.Elapsed)
	return b.String()
}

// writeSections lists the sections of src.
func writeSections(w io.Writer, src source) {
	fmt.Fprintf(w, "; %s (%s, %s)\n", src.Name, src.Format, src.Arch)
	for _, s := range src.Secs {
		state := ""
		if len(s.Bytes()) == 0 && s.Size != 0 {
			state = " (no data)"
		}
		fmt.Fprintf(w, "%-20s %s %8d%s\n", s.Name, paint(styles.Addr, fmt.Sprintf("%016x", s.Addr)), s.Size, state)
	}
}

type sectionJSON struct {
	Name string `json:"name"`
	Addr uint64 `json:"addr"`
	Size uint64 `json:"size"`
}

func sectionsJSON(src source) []sectionJSON {
	out := make([]sectionJSON, 0, len(src.Secs))
	for _, s := range src.Secs {
		out = append(out, sectionJSON{Name: s.Name, Addr: s.Addr, Size: s.Size})
	}
	return out
}
