package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/TFMV/pathfinder/internal/search"
)

// printer writes results in one of the supported output formats.
type printer struct {
	w      io.Writer
	format string
	file   *color.Color
	folder *color.Color
	title  *color.Color
	json   *json.Encoder
	yaml   *yaml.Encoder
}

func newPrinter(w io.Writer, format, colorMode string) (*printer, error) {
	p := &printer{
		w:      w,
		format: format,
		file:   color.New(color.FgGreen),
		folder: color.New(color.FgBlue, color.Bold),
		title:  color.New(color.FgCyan, color.Bold),
	}
	for _, c := range []*color.Color{p.file, p.folder, p.title} {
		if useColor(w, colorMode) {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	switch format {
	case "text":
	case "json":
		p.json = json.NewEncoder(w)
	case "yaml":
		p.yaml = yaml.NewEncoder(w)
		p.yaml.SetIndent(2)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return p, nil
}

// useColor decides whether text output to w is colorized.
func useColor(w io.Writer, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// print writes a single file or folder result.
func (p *printer) print(r search.Result) error {
	switch p.format {
	case "json":
		return p.json.Encode(r)
	case "yaml":
		return p.yaml.Encode(r)
	}

	label := p.file.Sprint("file  ")
	if r.Kind == search.KindFolder {
		label = p.folder.Sprint("folder")
	}
	_, err := fmt.Fprintf(p.w, "%s  %s\n", label, r.Path)
	return err
}

// encode writes an arbitrary value in the structured formats.
func (p *printer) encode(v any) error {
	switch p.format {
	case "json":
		return p.json.Encode(v)
	case "yaml":
		return p.yaml.Encode(v)
	}
	return fmt.Errorf("cannot encode values in %s format", p.format)
}

// heading writes a section title in text mode.
func (p *printer) heading(text string) error {
	_, err := fmt.Fprintln(p.w, p.title.Sprint(text))
	return err
}

// stream prints a session's results until its stream closes or stop is
// closed, and returns the number of results printed. The terminal marker is
// not printed.
func (p *printer) stream(stop <-chan struct{}, s *search.Session) (int, error) {
	var n int
	for {
		select {
		case <-stop:
			return n, nil
		case r, ok := <-s.Results():
			if !ok {
				return n, nil
			}
			if r.IsTerminal() {
				continue
			}
			if err := p.print(r); err != nil {
				return n, err
			}
			n++
		}
	}
}

// Close flushes buffered structured output.
func (p *printer) Close() error {
	if p.yaml != nil {
		return p.yaml.Close()
	}
	return nil
}
