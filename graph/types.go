// Package graph implements the encrypted knowledge graph attached to a vault:
// labelled, embedding-bearing nodes joined by typed weighted edges, stored in
// flat relations and searchable through an HNSW index over the embeddings.
package graph

import "github.com/google/uuid"

// ID identifies a node or edge. Cross-entity references carry only ids;
// cycles are fine because nothing owns anything else.
type ID string

// NewID draws a fresh random id.
func NewID() ID {
	return ID(uuid.NewString())
}

// ParseID validates an id string.
func ParseID(s string) (ID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", wrapError(KindDatabase, "invalid id", err)
	}
	return ID(parsed.String()), nil
}

func (id ID) String() string { return string(id) }

// NodeMetadata carries bookkeeping fields for a node.
type NodeMetadata struct {
	ContentSize int    `json:"content_size"`
	Version     uint32 `json:"version"`
	ExpiresAt   *int64 `json:"expires_at,omitempty"`
}

// NewNodeMetadata builds metadata for a node with the current schema version.
func NewNodeMetadata(contentSize int, expiresAt *int64) NodeMetadata {
	return NodeMetadata{
		ContentSize: contentSize,
		Version:     1,
		ExpiresAt:   expiresAt,
	}
}

// Node is a labelled, optionally embedded unit of content in a vault's graph.
// Timestamps are Unix milliseconds.
type Node struct {
	ID          ID           `json:"id"`
	NodeType    string       `json:"node_type"`
	VaultID     string       `json:"vault_id"`
	Namespace   *string      `json:"namespace,omitempty"`
	Content     []byte       `json:"content"`
	Labels      []string     `json:"labels"`
	Embedding   []float32    `json:"embedding,omitempty"`
	Metadata    NodeMetadata `json:"metadata"`
	CreatedAt   int64        `json:"created_at"`
	UpdatedAt   int64        `json:"updated_at"`
	AccessedAt  int64        `json:"accessed_at"`
	AccessCount uint32       `json:"access_count"`
}

// EdgeProperties carries the payload of an edge.
type EdgeProperties struct {
	Weight           float64           `json:"weight"`
	Bidirectional    bool              `json:"bidirectional"`
	EncryptedContext []byte            `json:"encrypted_context,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// NewEdgeProperties builds edge properties with an empty context.
func NewEdgeProperties(weight float64, bidirectional bool) EdgeProperties {
	return EdgeProperties{
		Weight:        weight,
		Bidirectional: bidirectional,
		Metadata:      map[string]string{},
	}
}

// Edge is a typed, weighted connection between two nodes of the same vault.
type Edge struct {
	ID         ID             `json:"id"`
	FromNode   ID             `json:"from_node"`
	ToNode     ID             `json:"to_node"`
	EdgeType   string         `json:"edge_type"`
	VaultID    string         `json:"vault_id"`
	Properties EdgeProperties `json:"properties"`
	CreatedAt  int64          `json:"created_at"`
}

// SearchResult is one hit of a vector search, optionally with the joined
// neighbour set.
type SearchResult struct {
	Node       Node
	Similarity float32
	Neighbors  []Node
}

// Backup is the serializable snapshot of one vault's graph.
type Backup struct {
	Version   uint32 `json:"version"`
	Nodes     []Node `json:"nodes"`
	Edges     []Edge `json:"edges"`
	CreatedAt int64  `json:"created_at"`
}
