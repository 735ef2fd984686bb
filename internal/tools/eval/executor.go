package eval

import (
	"context"
	"fmt"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// allowedPackages is the stdlib import whitelist. Anything touching the
// filesystem, the network, or the process (os, os/exec, net, net/http,
// syscall, unsafe) is deliberately absent.
var allowedPackages = map[string]bool{
	"strings":         true,
	"strconv":         true,
	"fmt":             true,
	"math":            true,
	"regexp":          true,
	"encoding/json":   true,
	"encoding/base64": true,
	"time":            true,
	"sort":            true,
	"bytes":           true,
	"path":            true,
	"path/filepath":   true,
}

// runSnippet interprets code, which must define
// func RunTool(input string) (string, error), and calls it with input.
func runSnippet(ctx context.Context, code, input string) (string, error) {
	if err := validateImports(code); err != nil {
		return "", fmt.Errorf("invalid imports: %w", err)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return "", fmt.Errorf("load stdlib: %w", err)
	}

	if _, err := i.Eval(wrapCode(code)); err != nil {
		return "", fmt.Errorf("code evaluation failed: %w", err)
	}

	runTool, err := i.Eval("main.RunTool")
	if err != nil {
		return "", fmt.Errorf("RunTool function not found: %w", err)
	}
	runToolFunc, ok := runTool.Interface().(func(string) (string, error))
	if !ok {
		return "", fmt.Errorf("RunTool has incorrect signature (expected: func(string) (string, error))")
	}

	resultChan := make(chan string, 1)
	errChan := make(chan error, 1)
	go func() {
		result, err := runToolFunc(input)
		if err != nil {
			errChan <- err
			return
		}
		resultChan <- result
	}()

	select {
	case result := <-resultChan:
		return result, nil
	case err := <-errChan:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("snippet execution timed out: %w", ctx.Err())
	}
}

func validateImports(code string) error {
	var imports []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
		case inBlock:
			imports = append(imports, strings.Trim(trimmed, `"`))
		case strings.HasPrefix(trimmed, "import "):
			imports = append(imports, strings.Trim(strings.TrimPrefix(trimmed, "import "), `"`))
		}
	}

	var forbidden []string
	for _, pkg := range imports {
		if pkg == "" {
			continue
		}
		if !allowedPackages[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports %v (only stdlib allowed: %v)", forbidden, allowedList())
	}
	return nil
}

func wrapCode(code string) string {
	if strings.Contains(code, "package main") {
		return code
	}
	return fmt.Sprintf("package main\n\n%s\n", code)
}

func allowedList() []string {
	out := make([]string, 0, len(allowedPackages))
	for pkg := range allowedPackages {
		out = append(out, pkg)
	}
	return out
}
