package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const sampleDiff = `diff --git a/file b/file
--- a/file
+++ b/file
@@ -1,2 +1,2 @@
 one
-two
+three
`

func TestParseMode(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]Mode{
		"":      ModeAuto,
		"auto":  ModeAuto,
		"Dark":  ModeDark,
		"light": ModeLight,
		"never": ModeNever,
		"off":   ModeNever,
	} {
		got, err := ParseMode(raw)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %v, %v; want %v", raw, got, err, want)
		}
	}
	if _, err := ParseMode("sepia"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestDiffNeverIsVerbatim(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Diff(&buf, sampleDiff, ModeNever); err != nil {
		t.Fatal(err)
	}
	if buf.String() != sampleDiff {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestDiffColored(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Diff(&buf, sampleDiff, ModeDark); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected ANSI escapes, got %q", out)
	}
	if !strings.Contains(out, "three") {
		t.Fatalf("content lost: %q", out)
	}
}

func TestAutoModeFallsBackToLight(t *testing.T) {
	orig := detectDarkMode
	detectDarkMode = func() (bool, error) { return false, errors.New("no desktop") }
	t.Cleanup(func() { detectDarkMode = orig })

	if st := styleFor(ModeAuto); st == nil || st.Name != "github" {
		t.Fatalf("style = %v, want github", st)
	}
	detectDarkMode = func() (bool, error) { return true, nil }
	if st := styleFor(ModeAuto); st == nil || st.Name != "github-dark" {
		t.Fatalf("style = %v, want github-dark", st)
	}
}

func TestSourcePicksLexer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Source(&buf, "main.go", "package main\n", ModeLight); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "package") {
		t.Fatalf("output = %q", buf.String())
	}
}
