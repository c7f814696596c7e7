package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestVisualLen(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"plain", "hello", 5},
		{"empty", "", 0},
		{"bold", "\x1b[1mhello\x1b[0m", 5},
		{"color", "\x1b[31mred\x1b[0m", 3},
		{"hangul is double width", "병원", 4},
		{"mixed", "A병원", 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := visualLen(tc.input); got != tc.want {
				t.Errorf("visualLen(%q) = %d, want %d", tc.input, got, tc.want)
			}
		})
	}
}

func TestPad(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  int // expected cell width of output
	}{
		{"needs padding", "hi", 10, 10},
		{"exact width", "hello", 5, 5},
		{"over width", "toolong", 3, 7},
		{"wide runes", "병원", 6, 6},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := pad(tc.input, tc.width)
			if visualLen(got) != tc.want {
				t.Errorf("pad(%q, %d) width = %d, want %d", tc.input, tc.width, visualLen(got), tc.want)
			}
		})
	}
}

func TestTable_Render(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	tbl := NewTable("Account", "Priority")
	tbl.AddRow("서울대병원", "90")
	tbl.AddRow("Mercy Clinic", "60")

	out := tbl.Render()

	for _, want := range []string{"Account", "Priority", "서울대병원", "Mercy Clinic", "─"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output", want)
		}
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}

	// Both data rows start the second column at the same cell offset.
	first := strings.Index(lines[2], "90")
	second := strings.Index(lines[3], "60")
	if visualLen(lines[2][:first]) != visualLen(lines[3][:second]) {
		t.Errorf("columns misaligned:\n%s\n%s", lines[2], lines[3])
	}
}

func TestTable_EmptyHeaders(t *testing.T) {
	tbl := NewTable()
	if out := tbl.Render(); out != "" {
		t.Errorf("expected empty output for empty table, got %q", out)
	}
}

func TestTable_ShortRow(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	tbl := NewTable("A", "B", "C")
	tbl.AddRow("only")
	lines := strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[2], "only") {
		t.Errorf("unexpected data row %q", lines[2])
	}
}

func TestTable_Print(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	tbl := NewTable("Col1")
	tbl.AddRow("Val1")

	var buf bytes.Buffer
	tbl.Print(&buf)
	if buf.String() != tbl.String() {
		t.Error("Print output differs from String()")
	}
}

func TestSetNoColor(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	if !IsNoColor() {
		t.Error("IsNoColor() = false after SetNoColor(true)")
	}
	if rendered := StyleHeader.Render("test"); strings.Contains(rendered, "\x1b[") {
		t.Error("expected no ANSI codes after SetNoColor(true)")
	}
}
