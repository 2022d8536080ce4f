// Package prompts holds the fixed prompt templates sent to the LLM by the
// question generator and the ontology synthesizer.
package prompts

import "strings"

// questionsTemplate asks for competency questions grouped under bold titles.
// {context_str} is replaced with the cleaned report text.
const questionsTemplate = "You are an expert in cybersecurity threat analysis and ontology construction.\n" +
	"You have the following text describing a cybersecurity threat report: \n" +
	"---------------------\n" +
	"{context_str}" +
	"\n---------------------\n" +
	"I would like you to come up with a set of competency questions for the purpose of constructing an effective ontology for this threat report.\n" +
	"Competency questions are user-oriented interrogatives that allow us to scope our ontology. In other words, they are questions that our users would want to gain answers for, through exploring and querying the ontology and its associated knowledge base."

// CompetencyQuestionsPrompt embeds the report text into the competency
// question template.
func CompetencyQuestionsPrompt(reportText string) string {
	return strings.Replace(questionsTemplate, "{context_str}", reportText, 1)
}
