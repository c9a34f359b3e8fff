//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open file database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Segment(
		id INT64,
		length INT64,
		depth INT64,
		assemblies INT64,
		sequence STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Path(
		id INT64,
		assembly STRING,
		name STRING,
		circular BOOLEAN,
		length INT64,
		refs STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Cluster(
		id INT64,
		role STRING,
		unique_length INT64,
		mean_depth DOUBLE,
		copy_number DOUBLE,
		is_loop BOOLEAN,
		low_confidence BOOLEAN,
		coverage STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS LINK(
		FROM Segment TO Segment,
		from_strand STRING,
		to_strand STRING,
		support INT64,
		assemblies INT64
	)`,
	`CREATE REL TABLE IF NOT EXISTS TRAVERSES(
		FROM Path TO Segment,
		position INT64,
		strand STRING
	)`,
	`CREATE REL TABLE IF NOT EXISTS BELONGS_TO(FROM Segment TO Cluster)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddSegment inserts a Segment node.
func (s *KuzuStore) AddSegment(_ context.Context, rec SegmentRecord) error {
	return s.exec(
		`CREATE (n:Segment {
			id: $id,
			length: $len,
			depth: $depth,
			assemblies: $asm,
			sequence: $seq
		})`,
		map[string]any{
			"id":    int64(rec.ID),
			"len":   int64(rec.Length),
			"depth": int64(rec.Depth),
			"asm":   int64(rec.Assemblies),
			"seq":   rec.Sequence,
		},
	)
}

// AddPath inserts a Path node.
func (s *KuzuStore) AddPath(_ context.Context, rec PathRecord) error {
	return s.exec(
		`CREATE (p:Path {
			id: $id,
			assembly: $asm,
			name: $name,
			circular: $circ,
			length: $len,
			refs: $refs
		})`,
		map[string]any{
			"id":   int64(rec.ID),
			"asm":  rec.Assembly,
			"name": rec.Name,
			"circ": rec.Circular,
			"len":  int64(rec.Length),
			"refs": rec.Refs,
		},
	)
}

// AddCluster inserts a Cluster node and a BELONGS_TO edge per member segment.
func (s *KuzuStore) AddCluster(_ context.Context, rec ClusterRecord) error {
	err := s.exec(
		`CREATE (c:Cluster {
			id: $id,
			role: $role,
			unique_length: $len,
			mean_depth: $depth,
			copy_number: $copies,
			is_loop: $loop,
			low_confidence: $low,
			coverage: $cov
		})`,
		map[string]any{
			"id":     int64(rec.ID),
			"role":   string(rec.Role),
			"len":    int64(rec.UniqueLength),
			"depth":  rec.MeanDepth,
			"copies": rec.CopyNumber,
			"loop":   rec.Loop,
			"low":    rec.LowConfidence,
			"cov":    rec.Coverage,
		},
	)
	if err != nil {
		return err
	}
	for _, m := range rec.Members {
		err := s.exec(
			`MATCH (a:Segment {id: $seg}), (c:Cluster {id: $cid})
			 CREATE (a)-[:BELONGS_TO]->(c)`,
			map[string]any{"seg": int64(m), "cid": int64(rec.ID)},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// AddLink inserts a LINK edge between two existing segments.
func (s *KuzuStore) AddLink(_ context.Context, rec LinkRecord) error {
	return s.exec(
		`MATCH (a:Segment {id: $src}), (b:Segment {id: $dst})
		 CREATE (a)-[:LINK {from_strand: $fs, to_strand: $ts, support: $sup, assemblies: $asm}]->(b)`,
		map[string]any{
			"src": int64(rec.From),
			"dst": int64(rec.To),
			"fs":  rec.FromStrand,
			"ts":  rec.ToStrand,
			"sup": int64(rec.Support),
			"asm": int64(rec.Assemblies),
		},
	)
}

// AddTraversal inserts a TRAVERSES edge from a path to a segment.
func (s *KuzuStore) AddTraversal(_ context.Context, rec TraversalRecord) error {
	return s.exec(
		`MATCH (p:Path {id: $pid}), (n:Segment {id: $seg})
		 CREATE (p)-[:TRAVERSES {position: $pos, strand: $strand}]->(n)`,
		map[string]any{
			"pid":    int64(rec.Path),
			"seg":    int64(rec.Segment),
			"pos":    int64(rec.Position),
			"strand": rec.Strand,
		},
	)
}

// ---------- Read operations ----------

// GetSegment retrieves a single Segment node by id, or nil if not found.
func (s *KuzuStore) GetSegment(_ context.Context, id int) (*SegmentRecord, error) {
	rows, err := s.query(
		"MATCH (n:Segment {id: $id}) RETURN n.id, n.length, n.depth, n.assemblies, n.sequence",
		map[string]any{"id": int64(id)},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	return &SegmentRecord{
		ID:         toInt(r[0]),
		Length:     toInt(r[1]),
		Depth:      toInt(r[2]),
		Assemblies: toInt(r[3]),
		Sequence:   toString(r[4]),
	}, nil
}

// GetPath retrieves a single Path node by id, or nil if not found.
func (s *KuzuStore) GetPath(_ context.Context, id int) (*PathRecord, error) {
	rows, err := s.query(
		"MATCH (p:Path {id: $id}) RETURN p.id, p.assembly, p.name, p.circular, p.length, p.refs",
		map[string]any{"id": int64(id)},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	return &PathRecord{
		ID:       toInt(r[0]),
		Assembly: toString(r[1]),
		Name:     toString(r[2]),
		Circular: toBool(r[3]),
		Length:   toInt(r[4]),
		Refs:     toString(r[5]),
	}, nil
}

// GetPathsThrough returns every TRAVERSES edge into the given segment.
func (s *KuzuStore) GetPathsThrough(_ context.Context, segment int) ([]TraversalRecord, error) {
	rows, err := s.query(
		`MATCH (p:Path)-[t:TRAVERSES]->(n:Segment {id: $seg})
		 RETURN p.id, n.id, t.position, t.strand`,
		map[string]any{"seg": int64(segment)},
	)
	if err != nil {
		return nil, err
	}
	out := make([]TraversalRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, TraversalRecord{
			Path:     toInt(r[0]),
			Segment:  toInt(r[1]),
			Position: toInt(r[2]),
			Strand:   toString(r[3]),
		})
	}
	sortTraversals(out)
	return out, nil
}

// GetClusters returns all Cluster nodes with their members, ordered by id.
func (s *KuzuStore) GetClusters(_ context.Context) ([]ClusterRecord, error) {
	rows, err := s.query(
		`MATCH (c:Cluster)
		 RETURN c.id, c.role, c.unique_length, c.mean_depth, c.copy_number, c.is_loop, c.low_confidence, c.coverage
		 ORDER BY c.id`,
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]ClusterRecord, 0, len(rows))
	for _, r := range rows {
		id := toInt(r[0])

		memberRows, err := s.query(
			"MATCH (n:Segment)-[:BELONGS_TO]->(c:Cluster {id: $id}) RETURN n.id ORDER BY n.id",
			map[string]any{"id": int64(id)},
		)
		if err != nil {
			return nil, err
		}
		members := make([]int, 0, len(memberRows))
		for _, mr := range memberRows {
			members = append(members, toInt(mr[0]))
		}

		out = append(out, ClusterRecord{
			ID:            id,
			Role:          Role(toString(r[1])),
			UniqueLength:  toInt(r[2]),
			MeanDepth:     toFloat64(r[3]),
			CopyNumber:    toFloat64(r[4]),
			Loop:          toBool(r[5]),
			LowConfidence: toBool(r[6]),
			Coverage:      toString(r[7]),
			Members:       members,
		})
	}
	return out, nil
}

// GetAllLinks returns every LINK edge.
func (s *KuzuStore) GetAllLinks(_ context.Context) ([]LinkRecord, error) {
	rows, err := s.query(
		`MATCH (a:Segment)-[l:LINK]->(b:Segment)
		 RETURN a.id, l.from_strand, b.id, l.to_strand, l.support, l.assemblies`,
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]LinkRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, LinkRecord{
			From:       toInt(r[0]),
			FromStrand: toString(r[1]),
			To:         toInt(r[2]),
			ToStrand:   toString(r[3]),
			Support:    toInt(r[4]),
			Assemblies: toInt(r[5]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out, nil
}

// ---------- Graph traversal ----------

// GetNeighbors performs a BFS over LINK edges in both directions starting
// from the given segment. It returns one NeighborChain per reachable segment.
func (s *KuzuStore) GetNeighbors(_ context.Context, segment int, maxDepth int) ([]NeighborChain, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	type bfsEntry struct {
		path  []int
		depth int
	}
	visited := map[int]bool{segment: true}
	queue := []bfsEntry{{path: []int{segment}, depth: 0}}
	var chains []NeighborChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.path[len(cur.path)-1]
		neighbors, err := s.segmentNeighbors(tip)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := make([]int, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = nb
			chains = append(chains, NeighborChain{
				Segments: newPath,
				Depth:    cur.depth + 1,
			})
			queue = append(queue, bfsEntry{path: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

// segmentNeighbors returns segments one LINK away in either direction.
func (s *KuzuStore) segmentNeighbors(id int) ([]int, error) {
	rows, err := s.query(
		`MATCH (a:Segment {id: $id})-[:LINK]-(b:Segment)
		 WHERE b.id <> $id
		 RETURN DISTINCT b.id ORDER BY b.id`,
		map[string]any{"id": int64(id)},
	)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		out = append(out, toInt(r[0]))
	}
	return out, nil
}

// ---------- Stats ----------

// Stats returns counts of all node and relationship tables.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	segments, err := s.countTable("Segment")
	if err != nil {
		return nil, err
	}
	paths, err := s.countTable("Path")
	if err != nil {
		return nil, err
	}
	clusters, err := s.countTable("Cluster")
	if err != nil {
		return nil, err
	}
	links, err := s.countRel("LINK")
	if err != nil {
		return nil, err
	}
	traversals, err := s.countRel("TRAVERSES")
	if err != nil {
		return nil, err
	}
	total := 0
	// sum() widens INT64 to INT128, so add lengths up here.
	rows, err := s.query("MATCH (n:Segment) RETURN n.length", nil)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		total += toInt(r[0])
	}
	return &GraphStats{
		SegmentCount:   segments,
		PathCount:      paths,
		ClusterCount:   clusters,
		LinkCount:      links,
		TraversalCount: traversals,
		TotalLength:    total,
	}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// countTable returns the number of rows in a node table.
func (s *KuzuStore) countTable(table string) (int, error) {
	// Table name is a fixed internal constant, not user input.
	rows, err := s.query(fmt.Sprintf("MATCH (n:%s) RETURN count(n)", table), nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// countRel returns the number of edges in a relationship table.
func (s *KuzuStore) countRel(table string) (int, error) {
	rows, err := s.query(fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", table), nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
