// Package graph serves the static trust graph.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/trustgraph/internal/domain"
)

// FileName is the graph document inside the data file system.
const FileName = "graph_mock.json"

// ErrProfileNotFound is returned for an unknown profile id.
var ErrProfileNotFound = errors.New("profile not found")

// Store is a read-only, in-memory trust graph.
type Store struct {
	graph domain.Graph
	index map[string]int
	stats domain.GraphStats
}

// Load reads FileName from fsys.
func Load(fsys fs.FS) (*Store, error) {
	data, err := fs.ReadFile(fsys, FileName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	var g domain.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", FileName, err)
	}
	return New(g)
}

// New builds a Store from an already decoded graph.
func New(g domain.Graph) (*Store, error) {
	g.Nodes = append([]domain.GraphNode{}, g.Nodes...)
	if g.Edges == nil {
		g.Edges = []domain.GraphEdge{}
	}
	index := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.Skills == nil {
			g.Nodes[i].Skills = []string{}
		}
		if n.Verifications == nil {
			g.Nodes[i].Verifications = []domain.Verification{}
		}
		if n.ID == "" {
			return nil, fmt.Errorf("node %d has no id", i)
		}
		if _, dup := index[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		index[n.ID] = i
	}
	for _, e := range g.Edges {
		if _, ok := index[e.Source]; !ok {
			return nil, fmt.Errorf("edge references unknown source %q", e.Source)
		}
		if _, ok := index[e.Target]; !ok {
			return nil, fmt.Errorf("edge references unknown target %q", e.Target)
		}
	}

	st, err := summarize(g)
	if err != nil {
		return nil, err
	}
	return &Store{graph: g, index: index, stats: st}, nil
}

// Graph returns the whole graph.
func (s *Store) Graph() domain.Graph {
	return s.graph
}

// Profile returns the node with the given id.
func (s *Store) Profile(id string) (domain.GraphNode, error) {
	i, ok := s.index[id]
	if !ok {
		return domain.GraphNode{}, ErrProfileNotFound
	}
	return s.graph.Nodes[i], nil
}

// Stats returns the summary computed at load time.
func (s *Store) Stats() domain.GraphStats {
	return s.stats
}

func summarize(g domain.Graph) (domain.GraphStats, error) {
	st := domain.GraphStats{Nodes: len(g.Nodes), Edges: len(g.Edges)}
	if len(g.Nodes) == 0 {
		return st, nil
	}

	scores := make(stats.Float64Data, 0, len(g.Nodes))
	connections := make(stats.Float64Data, 0, len(g.Nodes))
	verifiedNodes := 0
	for _, n := range g.Nodes {
		scores = append(scores, n.TrustScore)
		connections = append(connections, float64(n.Connections))
		if n.Verified {
			verifiedNodes++
		}
	}

	var err error
	if st.MeanTrustScore, err = scores.Mean(); err != nil {
		return st, fmt.Errorf("failed to compute mean trust score: %w", err)
	}
	if st.MedianTrustScore, err = scores.Median(); err != nil {
		return st, fmt.Errorf("failed to compute median trust score: %w", err)
	}
	if st.MeanConnections, err = connections.Mean(); err != nil {
		return st, fmt.Errorf("failed to compute mean connections: %w", err)
	}
	st.VerifiedNodeRatio = float64(verifiedNodes) / float64(len(g.Nodes))

	if len(g.Edges) > 0 {
		verifiedEdges := 0
		for _, e := range g.Edges {
			if e.Verified {
				verifiedEdges++
			}
		}
		st.VerifiedEdgeRatio = float64(verifiedEdges) / float64(len(g.Edges))
	}
	return st, nil
}
