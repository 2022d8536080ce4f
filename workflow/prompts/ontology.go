package prompts

import "strings"

// ontologyTemplate asks for a single RDF/XML OWL document answering the
// competency questions. The missing space after "ontology." is part of the
// tuned prompt.
const ontologyTemplate = "Read the following instructions: '{procedure}'. \n" +
	"Based on the procedure, design an ontology that comprehensively answers the following competency questions categorized by several titles.\n" +
	"---------------------\n" +
	"{CQs}" +
	"\n---------------------\n" +
	"Use the titles as a guide to design the ontology." +
	"Do not repeat classes, object properties, data properties, restrictions, etc. if they have been addressed in the previous output. \n" +
	"When you're done send me only the whole ontology you've designed in OWL format, without any comment outside the OWL.\n" +
	"Output should be a valid xml format, do not add any character."

// OntologyPrompt embeds the design procedure and the flattened competency
// questions into the ontology template.
func OntologyPrompt(procedure, questions string) string {
	return strings.NewReplacer("{procedure}", procedure, "{CQs}", questions).Replace(ontologyTemplate)
}

// OntologyCorrectionPrompt asks the model to re-emit a document that failed
// to parse. Used only when synthesis retries are enabled.
func OntologyCorrectionPrompt(parseErr error) string {
	return "The ontology you sent could not be parsed as RDF/XML. Error: " + parseErr.Error() + "\n" +
		"Send the complete corrected ontology again as a single RDF/XML OWL document, without any comment outside the OWL."
}
