package export

import (
	"fmt"

	"github.com/awalterschulze/gographviz"

	"github.com/c360studio/ontogenia/ontology"
)

// DOT renders the class graph of an ontology: one node per class and one
// labelled edge per object property domain/range pair. Classes referenced
// only by an edge still get a node.
func DOT(name string, classes []ontology.Entity, edges []ontology.Edge) (string, error) {
	g := gographviz.NewEscape()
	if err := g.SetName(name); err != nil {
		return "", fmt.Errorf("set graph name: %w", err)
	}
	if err := g.SetDir(true); err != nil {
		return "", fmt.Errorf("set directed: %w", err)
	}

	added := make(map[string]bool)
	addNode := func(n string) error {
		if added[n] {
			return nil
		}
		added[n] = true
		return g.AddNode(name, n, nil)
	}

	for _, c := range classes {
		if err := addNode(c.Name); err != nil {
			return "", fmt.Errorf("add node %s: %w", c.Name, err)
		}
	}
	for _, e := range edges {
		for _, n := range []string{e.From, e.To} {
			if err := addNode(n); err != nil {
				return "", fmt.Errorf("add node %s: %w", n, err)
			}
		}
		if err := g.AddEdge(e.From, e.To, true, map[string]string{"label": e.Property}); err != nil {
			return "", fmt.Errorf("add edge %s: %w", e.Property, err)
		}
	}

	return g.String(), nil
}
