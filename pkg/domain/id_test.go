package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeID_Parent(t *testing.T) {
	p, ok := NodeID("a:b:c").Parent()
	assert.True(t, ok)
	assert.Equal(t, NodeID("a:b"), p)

	_, ok = NodeID("a").Parent()
	assert.False(t, ok, "root-like ids have no parent")
}

func TestNodeID_ChildAndName(t *testing.T) {
	assert.Equal(t, NodeID("a:b"), NodeID("a").Child("b"))
	assert.Equal(t, NodeID("b"), NodeID("").Child("b"))
	assert.Equal(t, "c", NodeID("a:b:c").Name())
	assert.Equal(t, "a", NodeID("a").Name())
}

func TestNodeID_IsAncestorOf(t *testing.T) {
	tests := []struct {
		id, other NodeID
		want      bool
	}{
		{"a", "a:b", true},
		{"a", "a:b:c", true},
		{"a:b", "a:b", false},
		{"a", "ab:c", false},
		{"a:b", "a", false},
		{"", "a", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.id.IsAncestorOf(tt.other), "%q ancestor of %q", tt.id, tt.other)
	}
}

func TestNodeID_Valid(t *testing.T) {
	assert.True(t, NodeID("a:b").Valid())
	assert.False(t, NodeID("").Valid())
	assert.False(t, NodeID("a::b").Valid())
	assert.False(t, NodeID("a:").Valid())
}

func TestNodeID_RecentAndDepth(t *testing.T) {
	assert.Equal(t, NodeID("a:b:recent"), NodeID("a:b").Recent())
	assert.Equal(t, 0, NodeID("a").Depth())
	assert.Equal(t, 2, NodeID("a:b:c").Depth())
}
