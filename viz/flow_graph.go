// ABOUTME: Graphviz rendering of the session flow transition table
// ABOUTME: Produces DOT or SVG with one node per state and one edge per state pair
package viz

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/peoplelogin/flow"
)

// FlowGraphOptions controls GenerateFlowGraph.
type FlowGraphOptions struct {
	// Format is graphviz.XDOT when empty.
	Format graphviz.Format
	// Current, when set, is drawn filled.
	Current *flow.State
}

// GenerateFlowGraph renders the transition table. Events that move
// between the same two states share one edge.
func GenerateFlowGraph(ctx context.Context, opts FlowGraphOptions) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.LRRank)

	nodes := make(map[flow.State]*cgraph.Node)
	for _, state := range flow.AllStates() {
		node, err := graph.CreateNodeByName(state.String())
		if err != nil {
			return "", fmt.Errorf("failed to create node %s: %w", state, err)
		}
		node.SetShape(cgraph.EllipseShape)
		if state == flow.StateUnauthenticated {
			node.SetShape(cgraph.DoubleCircleShape)
		}
		if opts.Current != nil && *opts.Current == state {
			node.SetStyle(cgraph.FilledNodeStyle)
			node.SetFillColor("#4285F4")
			node.SetFontColor("white")
		}
		nodes[state] = node
	}

	type pair struct{ from, to flow.State }
	var order []pair
	labels := make(map[pair][]string)
	for _, t := range flow.Transitions() {
		p := pair{t.From, t.To}
		if _, seen := labels[p]; !seen {
			order = append(order, p)
		}
		labels[p] = append(labels[p], string(t.Event))
	}

	for _, p := range order {
		name := p.from.String() + "->" + p.to.String()
		edge, err := graph.CreateEdgeByName(name, nodes[p.from], nodes[p.to])
		if err != nil {
			return "", fmt.Errorf("failed to create edge %s: %w", name, err)
		}
		edge.SetLabel(strings.Join(labels[p], " / "))
	}

	format := opts.Format
	if format == "" {
		format = graphviz.XDOT
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}

	return buf.String(), nil
}
