// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteArgForShell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `'plain'`},
		{"has space", `'has space'`},
		{"it's", `'it'\''s'`},
		{"~/apps/comfy", `~/'apps/comfy'`},
		{"", `''`},
		{"$HOME", `'$HOME'`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, QuoteArgForShell(tt.in), "input %q", tt.in)
	}
}

func TestEnvAssignmentForShell(t *testing.T) {
	assert.Equal(t,
		`PYTHONPATH='/srv/app:/opt/shared'`,
		EnvAssignmentForShell("PYTHONPATH", "/srv/app:/opt/shared"))
}
