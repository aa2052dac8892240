package graph

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"hoddor.sh/graph/hnsw"
	"hoddor.sh/internal/database"
	"hoddor.sh/internal/observability"
)

// DefaultEmbeddingDim is the embedding dimension the store indexes unless
// configured otherwise.
const DefaultEmbeddingDim = 384

// StoreConfig parameterises a graph store.
type StoreConfig struct {
	EmbeddingDim int
	HNSW         hnsw.Config
}

// DefaultStoreConfig returns the standard parameter set.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		EmbeddingDim: DefaultEmbeddingDim,
		HNSW:         hnsw.DefaultConfig(),
	}
}

// Store keeps one vault-partitioned graph in two flat SQLite relations,
// `nodes` and `edges`, with an in-process HNSW index over the embeddings.
// Individual operations are atomic; references between entities are ids
// resolved only at query time.
type Store struct {
	db     *database.DB
	dim    int
	index  *hnsw.Index
	logger *observability.Logger
}

var (
	defaultStore *Store
	defaultOnce  sync.Once
	defaultErr   error
)

// OpenDefault opens the process-wide store on first call; later calls return
// the already-initialised instance regardless of arguments.
func OpenDefault(dsn string, cfg StoreConfig) (*Store, error) {
	defaultOnce.Do(func() {
		db, err := database.New(database.DefaultConfig(dsn))
		if err != nil {
			defaultErr = wrapError(KindDatabase, "failed to open graph database", err)
			return
		}
		defaultStore, defaultErr = NewStore(db, cfg)
	})
	return defaultStore, defaultErr
}

// NewStore initialises the schema (idempotent) and rebuilds the vector index
// from the stored embeddings.
func NewStore(db *database.DB, cfg StoreConfig) (*Store, error) {
	if cfg.EmbeddingDim <= 0 {
		cfg = DefaultStoreConfig()
	}

	s := &Store{
		db:     db,
		dim:    cfg.EmbeddingDim,
		index:  hnsw.New(cfg.EmbeddingDim, cfg.HNSW),
		logger: observability.GetLogger().With(zap.String("component", "graph-store")),
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}
	if err := s.rebuildIndex(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.db.QueryTimeout())
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			node_type TEXT NOT NULL,
			vault_id TEXT NOT NULL,
			namespace TEXT,
			content TEXT NOT NULL,
			labels TEXT NOT NULL DEFAULT '[]',
			embedding BLOB,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			accessed_at INTEGER NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_vault_type ON nodes(vault_id, node_type)`,
		`CREATE TABLE IF NOT EXISTS edges (
			id TEXT PRIMARY KEY,
			from_node TEXT NOT NULL,
			to_node TEXT NOT NULL,
			edge_type TEXT NOT NULL,
			vault_id TEXT NOT NULL,
			weight REAL NOT NULL,
			bidirectional INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_vault_from ON edges(vault_id, from_node)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_vault_to ON edges(vault_id, to_node)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return wrapError(KindDatabase, "failed to initialise schema", err)
		}
	}
	return nil
}

func (s *Store) rebuildIndex() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.db.QueryTimeout())
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM nodes WHERE embedding IS NOT NULL`)
	if err != nil {
		return wrapError(KindDatabase, "failed to load embeddings", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return wrapError(KindDatabase, "failed to scan embedding", err)
		}
		embedding := decodeEmbedding(blob)
		if err := s.index.Add(id, embedding); err != nil {
			s.logger.Warn("skipping stored embedding with unexpected dimension",
				zap.String("node_id", id), zap.Int("dim", len(embedding)))
		}
	}
	return rows.Err()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func encodeEmbedding(embedding []float32) []byte {
	if embedding == nil {
		return nil
	}
	out := make([]byte, 4*len(embedding))
	for i, f := range embedding {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

func decodeEmbedding(blob []byte) []float32 {
	if len(blob) == 0 {
		return nil
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return out
}

func (s *Store) checkEmbeddingDim(embedding []float32) error {
	if len(embedding) != s.dim {
		return newError(KindInvalidEmbedding,
			fmt.Sprintf("embedding has %d dimensions, expected %d", len(embedding), s.dim))
	}
	return nil
}

const nodeColumns = `id, node_type, vault_id, namespace, content, labels, embedding, created_at, updated_at, accessed_at, access_count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(scanner rowScanner) (Node, error) {
	var (
		node       Node
		id         string
		namespace  sql.NullString
		contentB64 string
		labelsJSON string
		embedding  []byte
	)

	err := scanner.Scan(&id, &node.NodeType, &node.VaultID, &namespace, &contentB64,
		&labelsJSON, &embedding, &node.CreatedAt, &node.UpdatedAt, &node.AccessedAt, &node.AccessCount)
	if err != nil {
		return Node{}, wrapError(KindDatabase, "failed to scan node row", err)
	}

	node.ID = ID(id)
	if namespace.Valid {
		ns := namespace.String
		node.Namespace = &ns
	}

	content, err := base64.StdEncoding.DecodeString(contentB64)
	if err != nil {
		return Node{}, wrapError(KindDatabase, "corrupt node content encoding", err)
	}
	node.Content = content

	if err := json.Unmarshal([]byte(labelsJSON), &node.Labels); err != nil {
		node.Labels = nil
	}

	node.Embedding = decodeEmbedding(embedding)
	node.Metadata = NewNodeMetadata(len(content), nil)

	return node, nil
}

// CreateNode validates and inserts a node, indexing its embedding when
// present, and returns the generated id.
func (s *Store) CreateNode(ctx context.Context, vaultID, nodeType string, content []byte, labels []string, embedding []float32, namespace *string) (ID, error) {
	id := NewID()
	now := nowMillis()

	node := Node{
		ID:          id,
		NodeType:    nodeType,
		VaultID:     vaultID,
		Namespace:   namespace,
		Content:     content,
		Labels:      labels,
		Embedding:   embedding,
		Metadata:    NewNodeMetadata(len(content), nil),
		CreatedAt:   now,
		UpdatedAt:   now,
		AccessedAt:  now,
		AccessCount: 0,
	}

	if err := ValidateNode(&node); err != nil {
		return "", err
	}
	if embedding != nil {
		if err := s.checkEmbeddingDim(embedding); err != nil {
			return "", err
		}
	}

	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		labelsJSON = []byte("[]")
	}

	var namespaceVal sql.NullString
	if namespace != nil {
		namespaceVal = sql.NullString{String: *namespace, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO nodes (`+nodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), nodeType, vaultID, namespaceVal,
		base64.StdEncoding.EncodeToString(content), string(labelsJSON),
		encodeEmbedding(embedding), now, now, now, 0)
	if err != nil {
		return "", wrapError(KindDatabase, "failed to insert node", err)
	}

	if embedding != nil {
		if err := s.index.Add(id.String(), embedding); err != nil {
			return "", newError(KindInvalidEmbedding, err.Error())
		}
	}

	return id, nil
}

// UpdateNode replaces a node's content and embedding.
func (s *Store) UpdateNode(ctx context.Context, vaultID string, id ID, content []byte, embedding []float32) error {
	if embedding != nil {
		if err := s.checkEmbeddingDim(embedding); err != nil {
			return err
		}
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE nodes SET content = ?, embedding = ?, updated_at = ? WHERE id = ? AND vault_id = ?`,
		base64.StdEncoding.EncodeToString(content), encodeEmbedding(embedding),
		nowMillis(), id.String(), vaultID)
	if err != nil {
		return wrapError(KindDatabase, "failed to update node", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return wrapError(KindDatabase, "failed to read update result", err)
	}
	if affected == 0 {
		return newError(KindNodeNotFound, id.String())
	}

	if embedding != nil {
		if err := s.index.Add(id.String(), embedding); err != nil {
			return newError(KindInvalidEmbedding, err.Error())
		}
	} else {
		s.index.Remove(id.String())
	}

	return nil
}

// DeleteNode removes every edge incident to the node within the vault, then
// the node itself.
func (s *Store) DeleteNode(ctx context.Context, vaultID string, id ID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM edges WHERE vault_id = ? AND (from_node = ? OR to_node = ?)`,
		vaultID, id.String(), id.String())
	if err != nil {
		return wrapError(KindDatabase, "failed to delete edges", err)
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM nodes WHERE id = ? AND vault_id = ?`, id.String(), vaultID)
	if err != nil {
		return wrapError(KindDatabase, "failed to delete node", err)
	}

	s.index.Remove(id.String())
	return nil
}

// GetNode loads one node by id within a vault.
func (s *Store) GetNode(ctx context.Context, vaultID string, id ID) (Node, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE id = ? AND vault_id = ?`, id.String(), vaultID)

	node, err := scanNode(row)
	if err != nil {
		var ge *Error
		if errors.As(err, &ge) && errors.Is(ge.Cause, sql.ErrNoRows) {
			return Node{}, newError(KindNodeNotFound, id.String())
		}
		return Node{}, err
	}
	return node, nil
}

// ListNodesByType returns nodes of one type in a vault; limit <= 0 means all.
func (s *Store) ListNodesByType(ctx context.Context, vaultID, nodeType string, limit int) ([]Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE node_type = ? AND vault_id = ?`
	args := []any{nodeType, vaultID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError(KindDatabase, "failed to list nodes", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// CreateEdge validates and inserts an edge, returning the generated id.
func (s *Store) CreateEdge(ctx context.Context, vaultID string, fromNode, toNode ID, edgeType string, properties EdgeProperties) (ID, error) {
	id := NewID()
	now := nowMillis()

	edge := Edge{
		ID:         id,
		FromNode:   fromNode,
		ToNode:     toNode,
		EdgeType:   edgeType,
		VaultID:    vaultID,
		Properties: properties,
		CreatedAt:  now,
	}

	if err := ValidateEdge(&edge); err != nil {
		return "", err
	}

	bidirectional := 0
	if properties.Bidirectional {
		bidirectional = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO edges (id, from_node, to_node, edge_type, vault_id, weight, bidirectional, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), fromNode.String(), toNode.String(), edgeType, vaultID,
		properties.Weight, bidirectional, now)
	if err != nil {
		return "", wrapError(KindDatabase, "failed to insert edge", err)
	}

	return id, nil
}

// GetNeighbors returns the distinct nodes adjacent to nodeID within a vault
// in a single joined query, optionally restricted to a set of edge types. The
// node itself is excluded.
func (s *Store) GetNeighbors(ctx context.Context, vaultID string, nodeID ID, edgeTypes []string) ([]Node, error) {
	query := `
		SELECT DISTINCT ` + prefixedNodeColumns("n") + `
		FROM edges e
		JOIN nodes n ON n.id = CASE WHEN e.from_node = ? THEN e.to_node ELSE e.from_node END
		WHERE e.vault_id = ?
		  AND (e.from_node = ? OR e.to_node = ?)
		  AND n.id != ?`
	args := []any{nodeID.String(), vaultID, nodeID.String(), nodeID.String(), nodeID.String()}

	if len(edgeTypes) > 0 {
		query += ` AND e.edge_type IN (` + placeholders(len(edgeTypes)) + `)`
		for _, t := range edgeTypes {
			args = append(args, t)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError(KindDatabase, "failed to get neighbors", err)
	}
	defer rows.Close()

	var neighbors []Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, node)
	}
	return neighbors, rows.Err()
}

// VectorSearch finds up to k nodes nearest the query embedding, converts the
// cosine distance d to similarity 1 - d/2, drops hits under minSimilarity
// when given, and returns the rest ordered by descending similarity.
func (s *Store) VectorSearch(ctx context.Context, vaultID string, queryEmbedding []float32, k int, minSimilarity *float32) ([]SearchResult, error) {
	hits, err := s.searchIndex(queryEmbedding, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]any, 0, len(hits)+1)
	ids = append(ids, vaultID)
	for _, h := range hits {
		ids = append(ids, h.ID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE vault_id = ? AND id IN (`+placeholders(len(hits))+`)`,
		ids...)
	if err != nil {
		return nil, wrapError(KindDatabase, "vector search failed", err)
	}
	defer rows.Close()

	byID := make(map[string]Node, len(hits))
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		byID[node.ID.String()] = node
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(KindDatabase, "vector search failed", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		node, ok := byID[h.ID]
		if !ok {
			// Indexed embedding from another vault.
			continue
		}
		similarity := 1 - h.Distance/2
		if minSimilarity != nil && similarity < *minSimilarity {
			continue
		}
		results = append(results, SearchResult{Node: node, Similarity: similarity})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results, nil
}

// VectorSearchWithNeighbors runs VectorSearch and attaches each hit's
// neighbour set, resolved in one joined query over the whole hit set. Results
// are grouped so each node appears once with its full neighbour list.
func (s *Store) VectorSearchWithNeighbors(ctx context.Context, vaultID string, queryEmbedding []float32, k int, minSimilarity *float32, edgeTypes []string) ([]SearchResult, error) {
	results, err := s.VectorSearch(ctx, vaultID, queryEmbedding, k, minSimilarity)
	if err != nil || len(results) == 0 {
		return results, err
	}

	query := `
		SELECT DISTINCT f.id, ` + prefixedNodeColumns("m") + `
		FROM nodes f
		JOIN edges e ON e.vault_id = ? AND (e.from_node = f.id OR e.to_node = f.id)
		JOIN nodes m ON m.id = CASE WHEN e.from_node = f.id THEN e.to_node ELSE e.from_node END
		WHERE f.vault_id = ?
		  AND f.id IN (` + placeholders(len(results)) + `)
		  AND m.id != f.id`
	args := []any{vaultID, vaultID}
	for _, r := range results {
		args = append(args, r.Node.ID.String())
	}

	if len(edgeTypes) > 0 {
		query += ` AND e.edge_type IN (` + placeholders(len(edgeTypes)) + `)`
		for _, t := range edgeTypes {
			args = append(args, t)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError(KindDatabase, "vector search with neighbors failed", err)
	}
	defer rows.Close()

	found := make(map[string]int, len(results))
	for i, r := range results {
		found[r.Node.ID.String()] = i
	}

	for rows.Next() {
		var foundID string
		neighbor, err := scanNeighborRow(rows, &foundID)
		if err != nil {
			return nil, err
		}
		if idx, ok := found[foundID]; ok {
			results[idx].Neighbors = append(results[idx].Neighbors, neighbor)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(KindDatabase, "vector search with neighbors failed", err)
	}

	return results, nil
}

func scanNeighborRow(rows *sql.Rows, foundID *string) (Node, error) {
	var (
		node       Node
		id         string
		namespace  sql.NullString
		contentB64 string
		labelsJSON string
		embedding  []byte
	)

	err := rows.Scan(foundID, &id, &node.NodeType, &node.VaultID, &namespace,
		&contentB64, &labelsJSON, &embedding,
		&node.CreatedAt, &node.UpdatedAt, &node.AccessedAt, &node.AccessCount)
	if err != nil {
		return Node{}, wrapError(KindDatabase, "failed to scan neighbor row", err)
	}

	node.ID = ID(id)
	if namespace.Valid {
		ns := namespace.String
		node.Namespace = &ns
	}
	content, err := base64.StdEncoding.DecodeString(contentB64)
	if err != nil {
		return Node{}, wrapError(KindDatabase, "corrupt node content encoding", err)
	}
	node.Content = content
	if err := json.Unmarshal([]byte(labelsJSON), &node.Labels); err != nil {
		node.Labels = nil
	}
	node.Embedding = decodeEmbedding(embedding)
	node.Metadata = NewNodeMetadata(len(content), nil)
	return node, nil
}

func (s *Store) searchIndex(queryEmbedding []float32, k int) ([]hnsw.Result, error) {
	if len(queryEmbedding) != s.dim {
		return nil, newError(KindInvalidEmbedding,
			fmt.Sprintf("query embedding has %d dimensions, expected %d", len(queryEmbedding), s.dim))
	}
	if k <= 0 {
		return nil, nil
	}

	hits, err := s.index.Search(queryEmbedding, k)
	if err != nil {
		return nil, newError(KindInvalidEmbedding, err.Error())
	}
	return hits, nil
}

// ExportBackup snapshots every node and edge of one vault.
func (s *Store) ExportBackup(ctx context.Context, vaultID string) (*Backup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE vault_id = ?`, vaultID)
	if err != nil {
		return nil, wrapError(KindDatabase, "failed to export nodes", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(KindDatabase, "failed to export nodes", err)
	}

	edgeRows, err := s.db.QueryContext(ctx,
		`SELECT id, from_node, to_node, edge_type, vault_id, weight, bidirectional, created_at
		 FROM edges WHERE vault_id = ?`, vaultID)
	if err != nil {
		return nil, wrapError(KindDatabase, "failed to export edges", err)
	}
	defer edgeRows.Close()

	var edges []Edge
	for edgeRows.Next() {
		var (
			edge          Edge
			id, from, to  string
			bidirectional int
		)
		if err := edgeRows.Scan(&id, &from, &to, &edge.EdgeType, &edge.VaultID,
			&edge.Properties.Weight, &bidirectional, &edge.CreatedAt); err != nil {
			return nil, wrapError(KindDatabase, "failed to scan edge row", err)
		}
		edge.ID = ID(id)
		edge.FromNode = ID(from)
		edge.ToNode = ID(to)
		edge.Properties.Bidirectional = bidirectional != 0
		edges = append(edges, edge)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, wrapError(KindDatabase, "failed to export edges", err)
	}

	return &Backup{
		Version:   1,
		Nodes:     nodes,
		Edges:     edges,
		CreatedAt: nowMillis(),
	}, nil
}

// ImportBackup re-creates every node under a fresh id and every edge with its
// endpoints remapped, so ids in the backup can never collide with existing
// store ids.
func (s *Store) ImportBackup(ctx context.Context, backup *Backup) error {
	idMap := make(map[ID]ID, len(backup.Nodes))

	for _, node := range backup.Nodes {
		newID, err := s.CreateNode(ctx, node.VaultID, node.NodeType, node.Content,
			node.Labels, node.Embedding, node.Namespace)
		if err != nil {
			return err
		}
		idMap[node.ID] = newID
	}

	for _, edge := range backup.Edges {
		from := edge.FromNode
		if mapped, ok := idMap[from]; ok {
			from = mapped
		}
		to := edge.ToNode
		if mapped, ok := idMap[to]; ok {
			to = mapped
		}

		if _, err := s.CreateEdge(ctx, edge.VaultID, from, to, edge.EdgeType, edge.Properties); err != nil {
			return err
		}
	}

	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func prefixedNodeColumns(alias string) string {
	cols := strings.Split(nodeColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

