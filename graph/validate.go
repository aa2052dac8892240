package graph

// ValidateNode enforces the node invariants before insertion.
func ValidateNode(node *Node) error {
	if node.VaultID == "" {
		return newError(KindOther, "vault_id cannot be empty")
	}
	if node.NodeType == "" {
		return newError(KindInvalidNodeType, "node_type cannot be empty")
	}
	if len(node.Content) == 0 {
		return newError(KindOther, "content cannot be empty")
	}
	if node.Embedding != nil && len(node.Embedding) == 0 {
		return newError(KindInvalidEmbedding, "embedding cannot be empty if present")
	}
	return nil
}

// ValidateEdge enforces the edge invariants before insertion.
func ValidateEdge(edge *Edge) error {
	if edge.VaultID == "" {
		return newError(KindOther, "vault_id cannot be empty")
	}
	if edge.EdgeType == "" {
		return newError(KindInvalidEdgeType, "edge_type cannot be empty")
	}
	if edge.Properties.Weight < 0.0 || edge.Properties.Weight > 1.0 {
		return newError(KindOther, "edge weight must be between 0.0 and 1.0")
	}
	if edge.FromNode == edge.ToNode {
		return newError(KindOther, "self-loops are not allowed")
	}
	return nil
}

// IsNodeExpired reports whether a node carries an expiry in the past.
// currentTime is Unix milliseconds.
func IsNodeExpired(node *Node, currentTime int64) bool {
	return node.Metadata.ExpiresAt != nil && currentTime > *node.Metadata.ExpiresAt
}

// TouchNode records an access at currentTime, saturating the counter.
func TouchNode(node *Node, currentTime int64) {
	node.AccessedAt = currentTime
	if node.AccessCount < ^uint32(0) {
		node.AccessCount++
	}
}
