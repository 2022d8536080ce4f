package ontology

// Stats summarises an ontology the way the validation utility prints it.
type Stats struct {
	IRI              string     `yaml:"iri"`
	BaseIRI          string     `yaml:"base_iri"`
	Classes          []Entity   `yaml:"classes"`
	ObjectProperties []Property `yaml:"object_properties"`
	DataProperties   []Property `yaml:"data_properties"`
	Individuals      []Entity   `yaml:"individuals"`
	Triples          int        `yaml:"triples"`
}

// Stats collects the structural statistics of o.
func (o *Ontology) Stats() Stats {
	return Stats{
		IRI:              o.IRI,
		BaseIRI:          o.BaseIRI(),
		Classes:          o.Classes(),
		ObjectProperties: o.ObjectProperties(),
		DataProperties:   o.DataProperties(),
		Individuals:      o.Individuals(),
		Triples:          o.graph.Len(),
	}
}

// Edge is one domain → range arc of an object property.
type Edge struct {
	From     string
	To       string
	Property string
}

// ClassEdges expands object properties into one edge per domain × range
// pair. Properties missing a domain or range contribute nothing.
func (o *Ontology) ClassEdges() []Edge {
	var edges []Edge
	for _, p := range o.ObjectProperties() {
		for _, d := range p.Domain {
			for _, r := range p.Range {
				edges = append(edges, Edge{From: d.Name, To: r.Name, Property: p.Name})
			}
		}
	}
	return edges
}
