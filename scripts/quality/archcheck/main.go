package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePrefix = "guildsync/"

type listedPackage struct {
	ImportPath   string
	Imports      []string
	TestImports  []string
	XTestImports []string
}

// importRule forbids packages under importer from importing packages under
// any of forbidden. Paths are relative to the module root.
type importRule struct {
	importer  string
	forbidden []string
	reason    string
}

var importRules = []importRule{
	{
		importer:  "pkg/collection",
		forbidden: []string{"pkg/", "internal/"},
		reason:    "pkg/collection is a leaf package",
	},
	{
		importer:  "pkg/wire",
		forbidden: []string{"pkg/", "internal/"},
		reason:    "pkg/wire is a leaf package",
	},
	{
		importer:  "pkg/guildsync",
		forbidden: []string{"internal/", "pkg/client"},
		reason:    "pkg/guildsync holds contracts only",
	},
	{
		importer:  "internal/rest",
		forbidden: []string{"internal/gateway", "internal/store", "internal/dispatch", "internal/kernel"},
		reason:    "internal/rest must not depend on the streaming side",
	},
	{
		importer:  "internal/gateway",
		forbidden: []string{"internal/rest", "internal/router", "internal/store", "internal/dispatch", "internal/kernel"},
		reason:    "internal/gateway delivers frames without interpreting them",
	},
	{
		importer:  "internal/store",
		forbidden: []string{"internal/"},
		reason:    "internal/store must not depend on transports",
	},
	{
		importer:  "internal/kernel",
		forbidden: []string{"internal/"},
		reason:    "internal/kernel fans out events only",
	},
	{
		importer:  "internal/dispatch",
		forbidden: []string{"internal/rest", "internal/router", "internal/kernel"},
		reason:    "internal/dispatch reaches REST and subscribers through interfaces",
	},
	{
		importer:  "internal/",
		forbidden: []string{"pkg/client", "cmd/"},
		reason:    "internal/* must not import the composition root",
	},
}

func main() {
	packages, err := listPackages()
	if err != nil {
		fmt.Fprintf(os.Stderr, "arch-check: %v\n", err)
		os.Exit(1)
	}

	violations := collectViolations(packages)
	if len(violations) == 0 {
		_, _ = fmt.Fprintf(os.Stdout, "arch-check: passed\n")
		return
	}

	_, _ = fmt.Fprintf(os.Stdout, "arch-check: architecture violations:\n")
	for _, violation := range violations {
		_, _ = fmt.Fprintf(os.Stdout, "  - %s\n", violation)
	}
	os.Exit(1)
}

func listPackages() ([]listedPackage, error) {
	cmd := exec.Command("go", "list", "-json", "-test", "./...")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("go list -json -test ./...: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(stdout.Bytes()))
	result := make([]listedPackage, 0, 64)
	for {
		var pkg listedPackage
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode go list output: %w", err)
		}
		if pkg.ImportPath == "" {
			continue
		}
		result = append(result, pkg)
	}

	return result, nil
}

func collectViolations(packages []listedPackage) []string {
	found := make(map[string]struct{})

	for _, pkg := range packages {
		imports := append([]string{}, pkg.Imports...)
		imports = append(imports, pkg.TestImports...)
		imports = append(imports, pkg.XTestImports...)

		for _, imported := range imports {
			reason := violationReason(pkg.ImportPath, imported)
			if reason == "" {
				continue
			}
			entry := fmt.Sprintf("%s -> %s (%s)", pkg.ImportPath, imported, reason)
			found[entry] = struct{}{}
		}
	}

	violations := make([]string, 0, len(found))
	for violation := range found {
		violations = append(violations, violation)
	}
	sort.Strings(violations)

	return violations
}

// violationReason returns the first rule imported breaks, or "".
func violationReason(importer, imported string) string {
	// go list -test reports test variants as "path [path.test]".
	importer, _, _ = strings.Cut(importer, " ")
	if !strings.HasPrefix(imported, modulePrefix) {
		return ""
	}
	importerPath := strings.TrimPrefix(importer, modulePrefix)
	importedPath := strings.TrimPrefix(imported, modulePrefix)
	if samePackage(importerPath, importedPath) {
		return ""
	}

	for _, rule := range importRules {
		if !strings.HasPrefix(importerPath, rule.importer) {
			continue
		}
		for _, forbidden := range rule.forbidden {
			if strings.HasPrefix(importedPath, forbidden) {
				return rule.reason
			}
		}
	}

	return ""
}

// samePackage reports whether imported is importer or one of its subpackages.
func samePackage(importer, imported string) bool {
	return imported == importer || strings.HasPrefix(imported, importer+"/")
}
