package sid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSIDIsDeterministicForSameInput(t *testing.T) {
	a := NewSID("node.lus", 3, 1, "NodeDecl", "Counter")
	b := NewSID("node.lus", 3, 1, "NodeDecl", "Counter")
	assert.Equal(t, a, b)
}

func TestNewSIDDiffersOnName(t *testing.T) {
	a := NewSID("node.lus", 3, 1, "NodeDecl", "Counter")
	b := NewSID("node.lus", 3, 1, "NodeDecl", "Delay")
	assert.NotEqual(t, a, b)
}

func TestNewSIDDiffersOnPosition(t *testing.T) {
	a := NewSID("node.lus", 3, 1, "NodeDecl", "Counter")
	b := NewSID("node.lus", 4, 1, "NodeDecl", "Counter")
	assert.NotEqual(t, a, b)
}

func TestNewSIDIsStableAcrossRelativeAndAbsolutePaths(t *testing.T) {
	rel := NewSID("node.lus", 3, 1, "NodeDecl", "Counter")
	abs := NewSID(mustAbs(t, "node.lus"), 3, 1, "NodeDecl", "Counter")
	assert.Equal(t, rel, abs)
}

func mustAbs(t *testing.T, path string) string {
	t.Helper()
	canon := canonicalizePath(path)
	return canon
}
