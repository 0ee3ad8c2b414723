package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/researchgraph/crossref/pkg/graph"
	"github.com/researchgraph/crossref/pkg/logger"
)

// ImportGraph applies a batch of node and relationship upserts as a unit.
// Node labels and properties union with existing rows; relationships are
// deduplicated by (type, start, end).
func (db *DB) ImportGraph(ctx context.Context, g *graph.Graph) error {
	tx, err := db.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, node := range g.Nodes() {
		properties, err := json.Marshal(node.Properties)
		if err != nil {
			return fmt.Errorf("encoding properties for %s/%s: %w", node.Key.Source, node.Key.Value, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO graph_node (key_source, key_value, node_type, node_source, labels, properties)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (key_source, key_value) DO UPDATE SET
				labels = (SELECT array_agg(DISTINCT l) FROM unnest(graph_node.labels || EXCLUDED.labels) AS l),
				properties = graph_node.properties || EXCLUDED.properties`,
			node.Key.Source, node.Key.Value, node.NodeType, node.NodeSource, node.Labels, properties)
		if err != nil {
			return fmt.Errorf("upserting node %s/%s: %w", node.Key.Source, node.Key.Value, err)
		}
	}

	for _, rel := range g.Relationships() {
		properties, err := json.Marshal(rel.Properties)
		if err != nil {
			return fmt.Errorf("encoding relationship properties: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO graph_relationship
				(relationship_type, start_source, start_value, end_source, end_value, properties)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (relationship_type, start_source, start_value, end_source, end_value) DO NOTHING`,
			rel.Type, rel.Start.Source, rel.Start.Value, rel.End.Source, rel.End.Value, properties)
		if err != nil {
			return fmt.Errorf("inserting relationship %s: %w", rel.Type, err)
		}
	}
	return tx.Commit(ctx)
}

// ImportSchemas forwards declared uniqueness and index requirements to the
// store before imports begin.
func (db *DB) ImportSchemas(ctx context.Context, schemas []graph.Schema) error {
	for _, schema := range schemas {
		unique := ""
		if schema.Unique {
			unique = "UNIQUE "
		}
		_, err := db.conn.Exec(ctx, fmt.Sprintf(
			`CREATE %sINDEX IF NOT EXISTS %s ON graph_node ((properties->>%s)) WHERE %s = ANY(labels)`,
			unique,
			indexName(schema.Label, schema.Property),
			quoteLiteral(schema.Property),
			quoteLiteral(schema.Label)))
		if err != nil {
			return fmt.Errorf("creating schema index for %s.%s: %w", schema.Label, schema.Property, err)
		}
	}
	return nil
}

// CreateIndex is an optimization hint ahead of enumeration; failures are the
// caller's to tolerate.
func (db *DB) CreateIndex(ctx context.Context, label, property string) error {
	_, err := db.conn.Exec(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s ON graph_node ((properties->>%s)) WHERE %s = ANY(labels)`,
		indexName(label, property),
		quoteLiteral(property),
		quoteLiteral(label)))
	if err != nil {
		return fmt.Errorf("creating index for %s.%s: %w", label, property, err)
	}
	return nil
}

// EnumerateAllNodesWithLabelAndProperty invokes visitor once per node carrying
// the label and the property, returning the number of nodes visited. The
// visitor stops the scan early by returning false.
func (db *DB) EnumerateAllNodesWithLabelAndProperty(ctx context.Context, label, property string, visitor NodeVisitor) (int, error) {
	rows, err := db.conn.Query(ctx,
		`SELECT key_source, key_value, node_type, node_source, labels, properties
		 FROM graph_node
		 WHERE $1 = ANY(labels) AND properties ? $2`, label, property)
	if err != nil {
		return 0, fmt.Errorf("enumerating nodes with label %s: %w", label, err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			node       graph.Node
			properties []byte
		)
		err := rows.Scan(&node.Key.Source, &node.Key.Value, &node.NodeType, &node.NodeSource, &node.Labels, &properties)
		if err != nil {
			return count, fmt.Errorf("scanning node: %w", err)
		}
		node.Properties, err = decodeProperties(properties)
		if err != nil {
			return count, fmt.Errorf("decoding properties for %s/%s: %w", node.Key.Source, node.Key.Value, err)
		}
		count++
		if !visitor(&node) {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return count, err
	}
	return count, nil
}

// decodeProperties restores the string-or-string-slice property shape from
// stored JSON. Values of any other shape are dropped with a warning.
func decodeProperties(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	properties := make(map[string]any, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case string:
			properties[name] = v
		case []any:
			values := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					values = append(values, s)
				}
			}
			properties[name] = values
		default:
			logger.Warn("[Store] Dropping property with unexpected shape", "property", name)
		}
	}
	return properties, nil
}

var identPattern = regexp.MustCompile(`[^a-z0-9_]+`)

func indexName(label, property string) string {
	sanitize := func(s string) string {
		return identPattern.ReplaceAllString(strings.ToLower(s), "_")
	}
	return fmt.Sprintf("graph_node_%s_%s_idx", sanitize(label), sanitize(property))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
