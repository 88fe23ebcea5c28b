// Package render writes command results (attempt reports, client lists,
// diagnostics) as json, yaml or a plain table.
//
// Without --format, a terminal gets a table and a pipe gets json so that
// scripts can read upload outcomes. --no-color only concerns tables; the
// upload screen has its own styling.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Renderer handles output formatting.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer from CLI context, writing to stdout.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}

	if format == "" {
		if IsTTY(os.Stdout) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}

	return &Renderer{
		format:  format,
		noColor: c.Bool("no-color"),
		out:     os.Stdout,
	}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{
		format:  format,
		noColor: noColor,
		out:     out,
	}
}

// Render outputs the data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(data)
	case FormatTable:
		return r.renderTable(data)
	case FormatYAML:
		return r.renderYAML(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// Format returns the selected output format.
func (r *Renderer) Format() Format {
	return r.format
}

func (r *Renderer) renderJSON(data any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (r *Renderer) renderYAML(data any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	return enc.Encode(data)
}

// column is one exported field of a rendered struct.
type column struct {
	name      string
	index     int
	omitEmpty bool
}

// columnsOf lists the fields of t named by their json tags.
func columnsOf(t reflect.Type) []column {
	var cols []column
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		cols = append(cols, column{
			name:      name,
			index:     i,
			omitEmpty: slices.Contains(strings.Split(opts, ","), "omitempty"),
		})
	}
	return cols
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func (r *Renderer) renderTable(data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	v := indirect(reflect.ValueOf(data))
	switch {
	case !v.IsValid():
		fmt.Fprintln(w, "(no results)")
	case v.Kind() == reflect.Slice || v.Kind() == reflect.Array:
		writeRows(w, v)
	case v.Kind() == reflect.Struct:
		// One "name: value" line per field; unset optional fields are left out.
		for _, col := range columnsOf(v.Type()) {
			f := v.Field(col.index)
			if col.omitEmpty && f.IsZero() {
				continue
			}
			fmt.Fprintf(w, "%s:\t%s\n", col.name, cell(f))
		}
	case v.Kind() == reflect.Map:
		for _, key := range sortedKeys(v) {
			fmt.Fprintf(w, "%v:\t%s\n", key.Interface(), cell(v.MapIndex(key)))
		}
	default:
		fmt.Fprintln(w, cell(v))
	}
	return nil
}

// writeRows prints a header line and one line per element. Struct elements
// use their fields as columns; map elements use the first element's keys.
func writeRows(w io.Writer, v reflect.Value) {
	if v.Len() == 0 {
		fmt.Fprintln(w, "(no results)")
		return
	}

	first := indirect(v.Index(0))
	var header []string
	var row func(reflect.Value) []string
	switch first.Kind() {
	case reflect.Struct:
		cols := columnsOf(first.Type())
		for _, col := range cols {
			header = append(header, col.name)
		}
		row = func(e reflect.Value) []string {
			out := make([]string, len(cols))
			for i, col := range cols {
				out[i] = cell(e.Field(col.index))
			}
			return out
		}
	case reflect.Map:
		for _, key := range sortedKeys(first) {
			header = append(header, fmt.Sprint(key.Interface()))
		}
		row = func(e reflect.Value) []string {
			out := make([]string, len(header))
			for i, h := range header {
				out[i] = cell(e.MapIndex(reflect.ValueOf(h)))
			}
			return out
		}
	default:
		for i := range v.Len() {
			fmt.Fprintln(w, cell(v.Index(i)))
		}
		return
	}

	fmt.Fprintln(w, strings.Join(header, "\t"))
	for i := range v.Len() {
		e := indirect(v.Index(i))
		if !e.IsValid() {
			continue
		}
		fmt.Fprintln(w, strings.Join(row(e), "\t"))
	}
}

// cell formats a single value on one line.
func cell(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() {
		return ""
	}

	switch x := v.Interface().(type) {
	case time.Duration:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		if v.Len() <= 3 {
			items := make([]string, v.Len())
			for i := range v.Len() {
				items[i] = cell(v.Index(i))
			}
			return "[" + strings.Join(items, ", ") + "]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		pairs := make([]string, 0, v.Len())
		for _, key := range sortedKeys(v) {
			pairs = append(pairs, fmt.Sprintf("%v=%s", key.Interface(), cell(v.MapIndex(key))))
		}
		return strings.Join(pairs, " ")
	case reflect.Struct:
		// Nested records such as data_info print inline.
		var pairs []string
		for _, col := range columnsOf(v.Type()) {
			pairs = append(pairs, col.name+"="+cell(v.Field(col.index)))
		}
		return strings.Join(pairs, " ")
	default:
		return fmt.Sprint(v.Interface())
	}
}

func sortedKeys(v reflect.Value) []reflect.Value {
	keys := v.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return strings.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
	})
	return keys
}

// IsTTY reports whether f is a terminal.
func IsTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
