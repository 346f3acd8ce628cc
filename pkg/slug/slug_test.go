// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/labtrace/labtrace/pkg/slug"
)

/*
TestFrom verifies the canonicalization pipeline on the inputs that actually
show up in privilege entity names.
*/
func TestFrom(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"sample", "sample"},
		{"Lab Report", "lab-report"},
		{"  Trimmed  ", "trimmed"},
		{"Invoice Líne", "invoice-line"},
		{"a--b---c", "a-b-c"},
		{"UPPER_case.name", "upper-case-name"},
		{"   ", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, slug.From(tt.input), "input %q", tt.input)
	}
}
