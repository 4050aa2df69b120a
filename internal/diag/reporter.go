package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// Bag collects diagnostics across a pass pipeline. It is not
// concurrency-safe; callers that fan out across goroutines should
// collect into per-goroutine bags and Merge them back in.
type Bag struct {
	records []Diagnostic
}

// NewBag returns an empty diagnostic bag.
func NewBag() *Bag { return &Bag{} }

// Add appends a diagnostic.
func (b *Bag) Add(d Diagnostic) { b.records = append(b.records, d) }

// Addf is a convenience for Add(New(...)).
func (b *Bag) Addf(code Code, coord Coordinate, format string, args ...any) {
	b.Add(New(code, coord, format, args...))
}

// Merge appends every record from other into b.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.records = append(b.records, other.records...)
}

// All returns every diagnostic in report order (insertion order).
func (b *Bag) All() []Diagnostic { return b.records }

// HasErrors reports whether any error-severity diagnostic is present.
func (b *Bag) HasErrors() bool {
	for _, d := range b.records {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any warning-severity diagnostic is present.
func (b *Bag) HasWarnings() bool {
	for _, d := range b.records {
		if d.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func (b *Bag) Errors() []Diagnostic { return b.filter(SeverityError) }

// Warnings returns only the warning-severity diagnostics.
func (b *Bag) Warnings() []Diagnostic { return b.filter(SeverityWarning) }

func (b *Bag) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range b.records {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// SortStable orders records by severity (errors first) then by code,
// keeping relative insertion order within a tie. Useful before
// rendering a final report to a human.
func (b *Bag) SortStable() {
	sort.SliceStable(b.records, func(i, j int) bool {
		if b.records[i].Severity != b.records[j].Severity {
			return b.records[i].Severity < b.records[j].Severity
		}
		return b.records[i].Code < b.records[j].Code
	})
}

// Reporter renders diagnostics as colored, caret-annotated text,
// rendering severity, coordinate, suggestions and notes as one block.
type Reporter struct {
	noColor bool
}

// NewReporter constructs a Reporter. Pass noColor=true for non-tty
// output (CI logs, redirected files).
func NewReporter(noColor bool) *Reporter {
	return &Reporter{noColor: noColor}
}

func (r *Reporter) colorize(c *color.Color, s string) string {
	if r.noColor {
		return s
	}
	return c.Sprint(s)
}

// Format renders a single diagnostic as a one-paragraph report:
// a bold severity/code header line, the coordinate, the message, then
// any suggestions and notes indented beneath it.
func (r *Reporter) Format(d Diagnostic) string {
	var sb strings.Builder

	var headColor *color.Color
	switch d.Severity {
	case SeverityError:
		headColor = color.New(color.FgRed, color.Bold)
	case SeverityWarning:
		headColor = color.New(color.FgYellow, color.Bold)
	default:
		headColor = color.New(color.FgCyan, color.Bold)
	}

	header := fmt.Sprintf("%s[%s]", strings.ToUpper(d.Severity.String()[:1])+d.Severity.String()[1:], d.Code)
	sb.WriteString(r.colorize(headColor, header))
	sb.WriteString(" ")
	sb.WriteString(d.Message)
	sb.WriteString("\n")

	dim := color.New(color.Faint)
	sb.WriteString("  --> ")
	sb.WriteString(r.colorize(dim, d.Coord.String()))
	sb.WriteString("\n")

	help := color.New(color.FgGreen)
	for _, s := range d.Suggestions {
		sb.WriteString("  ")
		sb.WriteString(r.colorize(help, "help: "))
		sb.WriteString(s.Message)
		if s.Replacement != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", s.Replacement))
		}
		sb.WriteString("\n")
	}
	for _, n := range d.Notes {
		sb.WriteString("  ")
		sb.WriteString(r.colorize(dim, "note: "))
		sb.WriteString(n)
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatBag renders every diagnostic in b, sorted errors-first.
func (r *Reporter) FormatBag(b *Bag) string {
	b.SortStable()
	var sb strings.Builder
	for _, d := range b.All() {
		sb.WriteString(r.Format(d))
	}
	return sb.String()
}

// MarkCaret renders a caret line under a source/disassembly line,
// pointing at column col (0-based). Kept for callers that have a
// textual rendering of the IL or disassembly to annotate; the
// dataflow and target passes that only have structural coordinates
// use Coordinate.String() instead.
func MarkCaret(line string, col, length int) string {
	if col < 0 {
		col = 0
	}
	if col > len(line) {
		col = len(line)
	}
	if length < 1 {
		length = 1
	}
	pad := strings.Repeat(" ", col)
	caret := strings.Repeat("^", length)
	return line + "\n" + pad + caret
}
