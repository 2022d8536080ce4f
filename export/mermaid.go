package export

import (
	"fmt"
	"strings"

	"github.com/c360studio/ontogenia/ontology"
)

// Mermaid produces a Mermaid graph LR diagram of the class graph.
func Mermaid(classes []ontology.Entity, edges []ontology.Edge) string {
	// Mermaid node IDs must be alphanumeric.
	nodeIDs := make(map[string]string)
	var order []string
	getID := func(name string) string {
		if id, ok := nodeIDs[name]; ok {
			return id
		}
		id := fmt.Sprintf("C%d", len(nodeIDs))
		nodeIDs[name] = id
		order = append(order, name)
		return id
	}

	for _, c := range classes {
		getID(c.Name)
	}
	for _, e := range edges {
		getID(e.From)
		getID(e.To)
	}

	var sb strings.Builder
	sb.WriteString("graph LR\n")
	for _, name := range order {
		sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", nodeIDs[name], mermaidLabel(name)))
	}
	for _, e := range edges {
		sb.WriteString(fmt.Sprintf("  %s -->|%s| %s\n", nodeIDs[e.From], mermaidLabel(e.Property), nodeIDs[e.To]))
	}
	return sb.String()
}

func mermaidLabel(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "|", "#124;").Replace(s)
}
