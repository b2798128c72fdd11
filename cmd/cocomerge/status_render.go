package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// renderStatus formats a scene status cell, coloring it only on terminals.
func renderStatus(label string, kind statusKind, colorize bool) string {
	if !colorize {
		return label
	}
	switch kind {
	case statusOK:
		return ansiGreen + label + ansiReset
	case statusWarn:
		return ansiYellow + label + ansiReset
	case statusError:
		return ansiRed + label + ansiReset
	default:
		return label
	}
}

func sceneStatus(present bool, colorize bool) string {
	if present {
		return renderStatus("present", statusOK, colorize)
	}
	return renderStatus("missing", statusWarn, colorize)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
