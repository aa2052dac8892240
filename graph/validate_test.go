package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validTestNode() Node {
	return Node{
		ID:       NewID(),
		NodeType: "memory",
		VaultID:  "test_vault",
		Content:  []byte{1, 2, 3},
		Metadata: NewNodeMetadata(3, nil),
	}
}

func TestValidateNode(t *testing.T) {
	node := validTestNode()
	assert.NoError(t, ValidateNode(&node))

	node = validTestNode()
	node.VaultID = ""
	assert.Error(t, ValidateNode(&node))

	node = validTestNode()
	node.NodeType = ""
	assert.ErrorIs(t, ValidateNode(&node), ErrInvalidNodeType)

	node = validTestNode()
	node.Content = nil
	assert.Error(t, ValidateNode(&node))

	node = validTestNode()
	node.Embedding = []float32{}
	assert.ErrorIs(t, ValidateNode(&node), ErrInvalidEmbedding)

	node = validTestNode()
	node.Embedding = []float32{0.1, 0.2}
	assert.NoError(t, ValidateNode(&node))
}

func validTestEdge() Edge {
	return Edge{
		ID:         NewID(),
		FromNode:   NewID(),
		ToNode:     NewID(),
		EdgeType:   "relates_to",
		VaultID:    "test_vault",
		Properties: NewEdgeProperties(0.8, false),
	}
}

func TestValidateEdge(t *testing.T) {
	edge := validTestEdge()
	assert.NoError(t, ValidateEdge(&edge))

	edge = validTestEdge()
	edge.VaultID = ""
	assert.Error(t, ValidateEdge(&edge))

	edge = validTestEdge()
	edge.EdgeType = ""
	assert.ErrorIs(t, ValidateEdge(&edge), ErrInvalidEdgeType)

	edge = validTestEdge()
	edge.Properties.Weight = -0.1
	assert.Error(t, ValidateEdge(&edge))

	edge = validTestEdge()
	edge.Properties.Weight = 1.1
	assert.Error(t, ValidateEdge(&edge))

	edge = validTestEdge()
	edge.Properties.Weight = 0.0
	assert.NoError(t, ValidateEdge(&edge))

	edge = validTestEdge()
	edge.Properties.Weight = 1.0
	assert.NoError(t, ValidateEdge(&edge))
}

func TestValidateEdgeSelfLoop(t *testing.T) {
	edge := validTestEdge()
	edge.ToNode = edge.FromNode
	assert.Error(t, ValidateEdge(&edge))
}

func TestIsNodeExpired(t *testing.T) {
	node := validTestNode()
	assert.False(t, IsNodeExpired(&node, 1000))

	expiresAt := int64(100)
	node.Metadata.ExpiresAt = &expiresAt
	assert.False(t, IsNodeExpired(&node, 50))
	assert.True(t, IsNodeExpired(&node, 150))
}

func TestTouchNode(t *testing.T) {
	node := validTestNode()
	TouchNode(&node, 42)
	assert.Equal(t, int64(42), node.AccessedAt)
	assert.Equal(t, uint32(1), node.AccessCount)

	node.AccessCount = ^uint32(0)
	TouchNode(&node, 43)
	assert.Equal(t, ^uint32(0), node.AccessCount)
}
