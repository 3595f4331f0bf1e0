package rag

import (
	"context"
	"math"
)

// GraphData is the node/edge payload served by GET /api/graph/data.
type GraphData struct {
	Nodes []GraphNode     `json:"nodes"`
	Edges []GraphEdge     `json:"edges"`
	Stats GraphDataStats  `json:"stats"`
}

type GraphNode struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Type        string         `json:"type,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type GraphEdge struct {
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Label    string         `json:"label,omitempty"`
	Weight   float64        `json:"weight,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// GraphDataStats is the summary embedded in a GraphData response.
type GraphDataStats struct {
	TotalNodes   int     `json:"total_nodes"`
	TotalEdges   int     `json:"total_edges"`
	AvgDegree    float64 `json:"avg_degree"`
	GraphDensity float64 `json:"graph_density"`
}

// GraphStatsSummary is the payload served by GET /api/graph/stats: a
// cheaper, retriever-wide summary distinct from the truncated GraphData
// view, reporting totals before any `limit` truncation is applied.
type GraphStatsSummary struct {
	Initialized    bool   `json:"initialized"`
	TotalEntities  int    `json:"total_entities"`
	TotalRelations int    `json:"total_relations"`
	WorkingDir     string `json:"working_dir"`
}

// GraphData assembles the unioned entity/relation view across every
// processed document, truncated to limit nodes and 2*limit edges, matching
// the reference's get_graph_data endpoint. limit<=0 means unlimited.
func (s *Service) GraphData(ctx context.Context, limit int) (*GraphData, error) {
	r, err := s.getOrInit(ctx)
	if err != nil {
		return nil, err
	}
	return buildGraphData(ctx, r, limit)
}

// GraphStats reports the retriever's initialization state plus unioned
// entity/relation totals (uncapped by any display limit), matching the
// reference's get_graph_stats endpoint.
func (s *Service) GraphStats(ctx context.Context) (*GraphStatsSummary, error) {
	initialized, initErr := s.Status()
	if initErr != nil {
		return nil, initErr
	}
	if !initialized {
		return &GraphStatsSummary{WorkingDir: s.cfg.Storage.WorkingDir}, nil
	}

	r, err := s.getOrInit(ctx)
	if err != nil {
		return nil, err
	}

	entityReader, err := r.EntityRecords(ctx)
	if err != nil {
		return nil, err
	}
	entities, err := entityReader.List(ctx)
	if err != nil {
		return nil, err
	}

	relationReader, err := r.RelationRecords(ctx)
	if err != nil {
		return nil, err
	}
	relations, err := relationReader.List(ctx)
	if err != nil {
		return nil, err
	}

	return &GraphStatsSummary{
		Initialized:    true,
		TotalEntities:  len(unionEntityNames(entities)),
		TotalRelations: len(unionRelationPairs(relations)),
		WorkingDir:     r.WorkingDir(),
	}, nil
}

func buildGraphData(ctx context.Context, r Retriever, limit int) (*GraphData, error) {
	entityReader, err := r.EntityRecords(ctx)
	if err != nil {
		return nil, err
	}
	entities, err := entityReader.List(ctx)
	if err != nil {
		return nil, err
	}

	nodeNames := unionEntityNames(entities)
	if limit > 0 && len(nodeNames) > limit {
		nodeNames = nodeNames[:limit]
	}

	nodeSet := make(map[string]bool, len(nodeNames))
	for _, n := range nodeNames {
		nodeSet[n] = true
	}

	nodes := make([]GraphNode, 0, len(nodeNames))
	for _, name := range nodeNames {
		node := GraphNode{ID: name, Label: name}
		if entity, ok, err := r.GetEntity(ctx, name); err == nil && ok {
			node.Type = entity.Type
			node.Description = entity.Description
			node.Metadata = map[string]any{"file_path": entity.FilePath}
		}
		nodes = append(nodes, node)
	}

	relationReader, err := r.RelationRecords(ctx)
	if err != nil {
		return nil, err
	}
	relations, err := relationReader.List(ctx)
	if err != nil {
		return nil, err
	}

	edgeLimit := 0
	if limit > 0 {
		edgeLimit = limit * 2
	}
	pairs := unionRelationPairs(relations)
	edges := make([]GraphEdge, 0, len(pairs))
	for _, p := range pairs {
		if !nodeSet[p[0]] || !nodeSet[p[1]] {
			continue
		}
		if edgeLimit > 0 && len(edges) >= edgeLimit {
			continue
		}
		edge := GraphEdge{Source: p[0], Target: p[1]}
		if relation, ok, err := r.GetRelation(ctx, p[0], p[1]); err == nil && ok {
			edge.Label = relation.Description
			edge.Weight = relation.Weight
		}
		edges = append(edges, edge)
	}

	return &GraphData{
		Nodes: nodes,
		Edges: edges,
		Stats: computeGraphDataStats(len(nodes), len(edges)),
	}, nil
}

// unionEntityNames de-duplicates entity names across every document record
// while preserving first-seen order, since KVReader.List has no stable
// iteration order of its own to rely on beyond that.
func unionEntityNames(records map[string]any) []string {
	seen := make(map[string]bool)
	var names []string
	for _, v := range records {
		rec, ok := v.(EntityRecord)
		if !ok {
			continue
		}
		for _, name := range rec.EntityNames {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

func unionRelationPairs(records map[string]any) [][2]string {
	seen := make(map[[2]string]bool)
	var pairs [][2]string
	for _, v := range records {
		rec, ok := v.(RelationRecord)
		if !ok {
			continue
		}
		for _, p := range rec.RelationPairs {
			if !seen[p] {
				seen[p] = true
				pairs = append(pairs, p)
			}
		}
	}
	return pairs
}

// computeGraphDataStats follows the reference's formulas exactly: average
// degree counts each edge endpoint once, and density is the ratio of
// actual to possible undirected edges over non-trivial node counts.
func computeGraphDataStats(nodeCount, edgeCount int) GraphDataStats {
	stats := GraphDataStats{TotalNodes: nodeCount, TotalEdges: edgeCount}
	if nodeCount == 0 {
		return stats
	}

	stats.AvgDegree = round2(2 * float64(edgeCount) / float64(nodeCount))
	if nodeCount > 1 {
		stats.GraphDensity = round4(2 * float64(edgeCount) / (float64(nodeCount) * float64(nodeCount-1)))
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
