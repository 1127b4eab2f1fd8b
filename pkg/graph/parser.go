package graph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ReadEdgeList loads an undirected graph from an edge list file
func ReadEdgeList(path string) (*Graph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open edge list: %w", err)
	}
	defer file.Close()

	g, err := ParseEdgeList(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return g, nil
}

// ParseEdgeList reads whitespace separated "from to [weight]" lines. A line
// with a single field declares an isolated node. Lines starting with '#' or
// '%' are comments. Weights are ignored, self loops and repeated edges are
// dropped.
//
// Original identifiers are mapped to dense indices sorted numerically when
// every identifier is an integer, lexicographically otherwise. The original
// identifiers are kept in Graph.Labels.
func ParseEdgeList(r io.Reader) (*Graph, error) {
	type rawEdge struct{ from, to string }

	seen := make(map[string]bool)
	var ids []string
	var edges []rawEdge

	addID := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "%") {
			continue
		}

		fields := strings.Fields(line)
		switch len(fields) {
		case 1:
			addID(fields[0])
		case 2, 3:
			if len(fields) == 3 {
				if _, err := strconv.ParseFloat(fields[2], 64); err != nil {
					return nil, fmt.Errorf("line %d: invalid weight %q", lineNum, fields[2])
				}
			}
			addID(fields[0])
			addID(fields[1])
			edges = append(edges, rawEdge{fields[0], fields[1]})
		default:
			return nil, fmt.Errorf("line %d: expected 'from to [weight]', got %d fields", lineNum, len(fields))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	sortIDs(ids)
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	g := NewGraph(len(ids))
	g.Labels = ids
	for _, e := range edges {
		u, v := index[e.from], index[e.to]
		if u == v || g.HasEdge(u, v) {
			continue
		}
		if err := g.AddEdge(u, v); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// sortIDs orders numerically if all ids are integers, lexicographically otherwise
func sortIDs(ids []string) {
	allIntegers := true
	for _, id := range ids {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			allIntegers = false
			break
		}
	}

	if allIntegers {
		sort.Slice(ids, func(i, j int) bool {
			a, _ := strconv.ParseInt(ids[i], 10, 64)
			b, _ := strconv.ParseInt(ids[j], 10, 64)
			return a < b
		})
		return
	}
	sort.Strings(ids)
}
