package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/termenv"
)

// Formatter is the interface for output formatting
type Formatter interface {
	Print(data any) error
	PrintList(items any, columns []Column) error
	PrintError(err error)
	PrintHint(msg string)
}

// Column defines a column for table/list output
type Column struct {
	Name  string // Display name
	Key   string // Struct field name or map key
	Width int    // Width for rich mode (0 = auto)
}

// Options tunes a formatter. Nil writers default to os.Stdout and os.Stderr.
type Options struct {
	ResultsOnly bool // JSON lists without the {data, count} envelope
	Out         io.Writer
	Err         io.Writer
}

// New creates a formatter for the specified mode
func New(mode string) Formatter {
	return NewWithOptions(mode, Options{})
}

// NewWithOptions creates a formatter for mode writing to the given streams.
func NewWithOptions(mode string, opts Options) Formatter {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}

	switch mode {
	case "json":
		return &jsonFormatter{out: opts.Out, err: opts.Err, resultsOnly: opts.ResultsOnly}
	case "rich":
		return &richFormatter{
			out:     opts.Out,
			err:     opts.Err,
			profile: termenv.NewOutput(opts.Out).EnvColorProfile(),
		}
	default:
		return &plainFormatter{out: opts.Out, err: opts.Err}
	}
}

// jsonFormatter outputs JSON to stdout
type jsonFormatter struct {
	out, err    io.Writer
	resultsOnly bool
}

func (f *jsonFormatter) Print(data any) error {
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (f *jsonFormatter) PrintList(items any, columns []Column) error {
	// If results-only mode, print raw array
	if f.resultsOnly {
		return f.Print(items)
	}

	v := reflect.ValueOf(items)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	count := 0
	if v.Kind() == reflect.Slice {
		count = v.Len()
	}

	envelope := map[string]any{
		"data":  items,
		"count": count,
	}

	return f.Print(envelope)
}

func (f *jsonFormatter) PrintError(err error) {
	errObj := map[string]string{"error": err.Error()}
	enc := json.NewEncoder(f.err)
	enc.SetIndent("", "  ")
	_ = enc.Encode(errObj)
}

// Hints are for humans; JSON consumers get the error object only.
func (f *jsonFormatter) PrintHint(msg string) {}

// plainFormatter outputs tab-separated values
type plainFormatter struct {
	out, err io.Writer
}

func (f *plainFormatter) Print(data any) error {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() == reflect.Struct {
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			fmt.Fprintf(f.out, "%s\t%v\n", t.Field(i).Name, v.Field(i).Interface())
		}
		return nil
	}

	// For non-struct types, just print the value
	fmt.Fprintf(f.out, "%v\n", data)
	return nil
}

func (f *plainFormatter) PrintList(items any, columns []Column) error {
	rows, err := extractRows(items, columns)
	if err != nil {
		return err
	}

	// Single-column lists print bare values so they pipe cleanly.
	if len(columns) > 1 {
		headers := make([]string, len(columns))
		for i, col := range columns {
			headers[i] = col.Name
		}
		fmt.Fprintf(f.out, "%s\n", strings.Join(headers, "\t"))
	}

	for _, row := range rows {
		values := make([]string, len(columns))
		for j, col := range columns {
			values[j] = row[col.Key]
		}
		fmt.Fprintf(f.out, "%s\n", strings.Join(values, "\t"))
	}

	return nil
}

func (f *plainFormatter) PrintError(err error) {
	fmt.Fprintf(f.err, "error: %v\n", err)
}

func (f *plainFormatter) PrintHint(msg string) {
	fmt.Fprintf(f.err, "hint: %v\n", msg)
}

// richFormatter outputs styled content for terminal
type richFormatter struct {
	out, err io.Writer
	profile  termenv.Profile
}

// render applies style unless the output cannot show colors.
func (f *richFormatter) render(style lipgloss.Style, s string) string {
	if f.profile == termenv.Ascii {
		return s
	}
	return style.Render(s)
}

func (f *richFormatter) Print(data any) error {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() == reflect.Struct {
		keyStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
		valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

		t := v.Type()
		width := 0
		for i := 0; i < t.NumField(); i++ {
			width = max(width, len(t.Field(i).Name)+1)
		}

		for i := 0; i < v.NumField(); i++ {
			fmt.Fprintf(f.out, "%s %s\n",
				f.render(keyStyle, PadString(t.Field(i).Name+":", width)),
				f.render(valueStyle, fmt.Sprintf("%v", v.Field(i).Interface())),
			)
		}
		return nil
	}

	// For non-struct types, just print the value
	fmt.Fprintf(f.out, "%v\n", data)
	return nil
}

func (f *richFormatter) PrintList(items any, columns []Column) error {
	rows, err := extractRows(items, columns)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Fprintln(f.err, f.render(lipgloss.NewStyle().Faint(true), "(none)"))
		return nil
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Underline(true)
	RenderTable(f.out, columns, rows, func(s string) string {
		return f.render(headerStyle, s)
	})
	return nil
}

func (f *richFormatter) PrintError(err error) {
	errorStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("9"))

	fmt.Fprintf(f.err, "%s\n", f.render(errorStyle, "error: "+err.Error()))
}

func (f *richFormatter) PrintHint(msg string) {
	hintStyle := lipgloss.NewStyle().
		Faint(true).
		Foreground(lipgloss.Color("8"))

	fmt.Fprintf(f.err, "%s\n", f.render(hintStyle, "hint: "+msg))
}

// extractRows reads the columns out of a slice of structs, maps, or plain
// values. A plain value fills the first column.
func extractRows(items any, columns []Column) ([]map[string]string, error) {
	v := reflect.ValueOf(items)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("PrintList requires a slice")
	}

	rows := make([]map[string]string, v.Len())
	for i := 0; i < v.Len(); i++ {
		item := v.Index(i)
		if item.Kind() == reflect.Ptr {
			item = item.Elem()
		}

		row := make(map[string]string, len(columns))
		for j, col := range columns {
			switch item.Kind() {
			case reflect.Map:
				mapVal := item.MapIndex(reflect.ValueOf(col.Key))
				if mapVal.IsValid() {
					row[col.Key] = fmt.Sprintf("%v", mapVal.Interface())
				}
			case reflect.Struct:
				field := item.FieldByName(col.Key)
				if field.IsValid() {
					row[col.Key] = fmt.Sprintf("%v", field.Interface())
				}
			default:
				if j == 0 {
					row[col.Key] = fmt.Sprintf("%v", item.Interface())
				}
			}
		}
		rows[i] = row
	}

	return rows, nil
}
