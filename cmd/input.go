package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"mvn-audit/mvn"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var errNoInput = errors.New("no input provided: pipe 'mvn dependency:tree' output, pass --file, or run in a directory with a pom.xml")

// stdinIsPiped reports whether in carries data rather than a terminal.
// Readers that are not files (tests) always count as piped.
var stdinIsPiped = func(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return true
	}
	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// readTree parses a dependency tree from --file, stdin or a Maven run, in
// that order of preference.
func readTree(cmd *cobra.Command, file string) ([]mvn.PackageCoordinate, error) {
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return mvn.ReadDependencyTree(f)
	}

	if in := cmd.InOrStdin(); stdinIsPiped(in) {
		return mvn.ReadDependencyTree(in)
	}

	if _, err := os.Stat("pom.xml"); err != nil {
		return nil, errNoInput
	}
	out, err := runMaven(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return mvn.ReadDependencyTree(bytes.NewReader(out))
}

func runMaven(ctx context.Context, stderr io.Writer) ([]byte, error) {
	executable := "./mvnw"
	if _, err := os.Stat(executable); err != nil {
		executable, err = exec.LookPath("mvn")
		if err != nil {
			return nil, errors.New("maven executable not found: install Maven or add ./mvnw")
		}
	}

	c := exec.CommandContext(ctx, executable, "dependency:tree")
	c.Stderr = stderr
	out, err := c.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run %s dependency:tree: %w", executable, err)
	}
	return out, nil
}
