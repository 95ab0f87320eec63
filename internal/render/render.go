// Package render prints diffs and file contents to a terminal with syntax
// highlighting.
package render

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	darkmode "github.com/thiagokokada/dark-mode-go"
)

type Mode int

const (
	ModeAuto Mode = iota
	ModeLight
	ModeDark
	ModeNever
)

func (m Mode) String() string {
	switch m {
	case ModeLight:
		return "light"
	case ModeDark:
		return "dark"
	case ModeNever:
		return "never"
	default:
		return "auto"
	}
}

func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", ModeAuto.String():
		return ModeAuto, nil
	case ModeLight.String():
		return ModeLight, nil
	case ModeDark.String():
		return ModeDark, nil
	case ModeNever.String(), "none", "off":
		return ModeNever, nil
	}
	return ModeAuto, fmt.Errorf("unknown color mode %q (want auto, light, dark or never)", raw)
}

var detectDarkMode = darkmode.IsDarkMode

func styleFor(mode Mode) *chroma.Style {
	dark := mode == ModeDark
	if mode == ModeAuto && detectDarkMode != nil {
		d, err := detectDarkMode()
		if err != nil {
			slog.Debug("detect dark-mode", slog.Any("err", err))
		}
		dark = err == nil && d
	}
	name := "github"
	if dark {
		name = "github-dark"
	}
	if st := styles.Get(name); st != nil {
		return st
	}
	return styles.Fallback
}

func highlight(w io.Writer, lexer chroma.Lexer, text string, mode Mode) error {
	if mode == ModeNever || text == "" {
		_, err := io.WriteString(w, text)
		return err
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, text)
	if err != nil {
		return err
	}
	return formatters.Get("terminal256").Format(w, styleFor(mode), iterator)
}

// Diff writes a unified diff.
func Diff(w io.Writer, text string, mode Mode) error {
	lexer := lexers.Get("diff")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return highlight(w, lexer, text, mode)
}

// Source writes file content, picking a lexer from the file name.
func Source(w io.Writer, path, text string, mode Mode) error {
	lexer := lexers.Match(path)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return highlight(w, lexer, text, mode)
}
