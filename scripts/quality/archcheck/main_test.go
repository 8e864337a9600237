package main

import "testing"

func TestViolationReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		importer string
		imported string
		wantRule bool
	}{
		{name: "client composes internals", importer: "guildsync/pkg/client", imported: "guildsync/internal/gateway"},
		{name: "dispatch reads gateway frames", importer: "guildsync/internal/dispatch", imported: "guildsync/internal/gateway"},
		{name: "stdlib import ignored", importer: "guildsync/pkg/wire", imported: "encoding/json"},
		{name: "self import ignored", importer: "guildsync/internal/store [guildsync/internal/store.test]", imported: "guildsync/internal/store"},
		{name: "contracts import internal", importer: "guildsync/pkg/guildsync", imported: "guildsync/internal/store", wantRule: true},
		{name: "gateway imports store", importer: "guildsync/internal/gateway", imported: "guildsync/internal/store", wantRule: true},
		{name: "dispatch imports bus", importer: "guildsync/internal/dispatch", imported: "guildsync/internal/kernel", wantRule: true},
		{name: "wire imports collection", importer: "guildsync/pkg/wire", imported: "guildsync/pkg/collection", wantRule: true},
		{name: "internal imports client", importer: "guildsync/internal/router", imported: "guildsync/pkg/client", wantRule: true},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			reason := violationReason(testCase.importer, testCase.imported)
			if got := reason != ""; got != testCase.wantRule {
				t.Fatalf("violationReason(%q, %q) = %q, want violation %v", testCase.importer, testCase.imported, reason, testCase.wantRule)
			}
		})
	}
}

func TestCollectViolationsIsSortedAndDeduplicated(t *testing.T) {
	t.Parallel()

	violations := collectViolations([]listedPackage{
		{
			ImportPath:  "guildsync/internal/kernel",
			Imports:     []string{"guildsync/internal/store", "guildsync/pkg/guildsync"},
			TestImports: []string{"guildsync/internal/store"},
		},
		{
			ImportPath: "guildsync/internal/gateway",
			Imports:    []string{"guildsync/internal/dispatch"},
		},
	})

	if len(violations) != 2 {
		t.Fatalf("violations = %v, want 2 entries", violations)
	}
	if violations[0] > violations[1] {
		t.Fatalf("violations not sorted: %v", violations)
	}
}
