package questiongenerator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/c360studio/ontogenia/llm"
)

// titleMarker opens and closes a theme title line, e.g. "**Attribution**".
const titleMarker = "**"

// ErrQuestionBeforeTitle is returned in strict mode when a question line
// appears before any theme title.
var ErrQuestionBeforeTitle = errors.New("question before first title")

// Theme is a titled group of competency questions.
type Theme struct {
	Title     string   `json:"title" yaml:"title"`
	Questions []string `json:"questions" yaml:"questions"`
}

// QuestionSet is an ordered set of themes keyed by title.
type QuestionSet struct {
	Themes []Theme `json:"themes" yaml:"themes"`
	index  map[string]int
}

// open starts the theme called title. A title seen before keeps its
// original position and starts over with no questions.
func (s *QuestionSet) open(title string) int {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[title]; ok {
		s.Themes[i].Questions = nil
		return i
	}
	s.Themes = append(s.Themes, Theme{Title: title})
	s.index[title] = len(s.Themes) - 1
	return len(s.Themes) - 1
}

// Get returns the questions under title.
func (s *QuestionSet) Get(title string) ([]string, bool) {
	for _, t := range s.Themes {
		if t.Title == title {
			return t.Questions, true
		}
	}
	return nil, false
}

// Titles returns the theme titles in order.
func (s *QuestionSet) Titles() []string {
	titles := make([]string, len(s.Themes))
	for i, t := range s.Themes {
		titles[i] = t.Title
	}
	return titles
}

// QuestionCount returns the number of questions across all themes.
func (s *QuestionSet) QuestionCount() int {
	n := 0
	for _, t := range s.Themes {
		n += len(t.Questions)
	}
	return n
}

// Markdown renders the set as a heading per theme and a bullet per question.
func (s *QuestionSet) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# Competency Questions\n")
	for _, t := range s.Themes {
		fmt.Fprintf(&sb, "\n## %s\n\n", t.Title)
		for _, q := range t.Questions {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
	}
	return sb.String()
}

// ParseOptions tunes how LLM output is read.
type ParseOptions struct {
	// MarkerLen is the number of leading characters ("1. ", "-  ") cut from
	// every non-title line.
	MarkerLen int
	// Strict turns a question before the first title into an error.
	Strict bool
}

// Parsed is the outcome of reading the LLM's competency question output.
type Parsed struct {
	// Lines are the cleaned lines, titles still wrapped in "**".
	Lines []string
	Set   *QuestionSet
	// Flattened is Lines joined with newlines.
	Flattened string
	// Dropped counts question lines seen before any title.
	Dropped int
}

// CleanLines normalizes raw LLM output into title and question lines:
// empty lines are removed, non-title lines lose their list marker and
// surrounding space, the first and last lines (preamble and closing
// remark) are discarded and every line is trimmed.
func CleanLines(output string, markerLen int) ([]string, error) {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}

	for i, line := range lines {
		if !strings.HasPrefix(line, titleMarker) {
			lines[i] = strings.TrimSpace(dropRunes(line, markerLen))
		}
	}

	if len(lines) < 3 {
		return nil, llm.NewMalformedResponseError("question-generator",
			fmt.Sprintf("expected at least 3 non-empty lines, got %d", len(lines)), output)
	}
	lines = lines[1 : len(lines)-1]

	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines, nil
}

type parseState int

const (
	awaitingTitle parseState = iota
	accumulatingQuestions
)

// BuildSet groups cleaned lines into themes. It returns the set and the
// number of question lines that preceded the first title.
func BuildSet(lines []string, strict bool) (*QuestionSet, int, error) {
	set := &QuestionSet{}
	state := awaitingTitle
	current := -1
	dropped := 0

	for n, line := range lines {
		if strings.HasPrefix(line, titleMarker) {
			current = set.open(titleText(line))
			state = accumulatingQuestions
			continue
		}

		switch state {
		case awaitingTitle:
			if strict {
				return nil, dropped, fmt.Errorf("%w: line %d: %q", ErrQuestionBeforeTitle, n+1, line)
			}
			dropped++
		case accumulatingQuestions:
			set.Themes[current].Questions = append(set.Themes[current].Questions, line)
		}
	}
	return set, dropped, nil
}

// Parse runs CleanLines and BuildSet over raw LLM output.
func Parse(output string, opts ParseOptions) (*Parsed, error) {
	lines, err := CleanLines(output, opts.MarkerLen)
	if err != nil {
		return nil, err
	}
	set, dropped, err := BuildSet(lines, opts.Strict)
	if err != nil {
		return nil, err
	}
	return &Parsed{
		Lines:     lines,
		Set:       set,
		Flattened: strings.Join(lines, "\n"),
		Dropped:   dropped,
	}, nil
}

// titleText strips two marker characters from each end of a title line.
func titleText(line string) string {
	r := []rune(line)
	if len(r) < 4 {
		return ""
	}
	return string(r[2 : len(r)-2])
}

// dropRunes removes the first n runes of s.
func dropRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}
