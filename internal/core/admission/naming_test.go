package admission

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/olusolaa/fleet-provisioner/internal/validation"
)

func TestNamer_NameFor(t *testing.T) {
	n := Namer{Prefix: "iot_"}

	tests := []struct {
		name     string
		identity string
		check    func(t *testing.T, got string)
	}{
		{
			name:     "clean identity kept verbatim",
			identity: "dev-123",
			check: func(t *testing.T, got string) {
				assert.Equal(t, "iot_dev-123", got)
			},
		},
		{
			name:     "unsafe characters replaced and hashed",
			identity: "dev 123/a",
			check: func(t *testing.T, got string) {
				assert.True(t, strings.HasPrefix(got, "iot_dev_123_a_"))
				assert.Len(t, got, len("iot_dev_123_a_")+8)
			},
		},
		{
			name:     "long identity truncated to limit",
			identity: strings.Repeat("x", 200),
			check: func(t *testing.T, got string) {
				assert.Len(t, got, 128)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := n.NameFor(tc.identity)
			tc.check(t, got)
			assert.True(t, validation.IsIoTName(got), "derived name %q is not a valid thing name", got)
			assert.Equal(t, got, n.NameFor(tc.identity))
		})
	}
}

func TestNamer_SanitizedCollisionsStayDistinct(t *testing.T) {
	n := Namer{Prefix: "iot_"}

	a := n.NameFor("dev/1")
	b := n.NameFor("dev.1")

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, "iot_dev_1", a)
}
