package analysis

import (
	"fmt"
	"sort"

	"github.com/jdkato/prose/v2"
)

// DefaultTopThemes is how many themes a run reports.
const DefaultTopThemes = 3

// Universal part-of-speech tags the extractor counts.
const (
	TagNoun       = "NOUN"
	TagProperNoun = "PROPN"
)

// Token is one tagged word.
type Token struct {
	Text string
	Tag  string
}

// Tagger assigns a part-of-speech tag to every token of a text.
type Tagger interface {
	Tag(text string) ([]Token, error)
}

// ProseTagger tags English text with prose's averaged perceptron model and
// reports nouns with universal tags. Build one and share it; it holds no
// per-call state.
type ProseTagger struct {
	opts []prose.DocOpt
}

func NewProseTagger() *ProseTagger {
	return &ProseTagger{
		opts: []prose.DocOpt{
			prose.WithSegmentation(false),
			prose.WithExtraction(false),
		},
	}
}

func (p *ProseTagger) Tag(text string) ([]Token, error) {
	doc, err := prose.NewDocument(text, p.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to tag text: %w", err)
	}

	tokens := make([]Token, 0, len(doc.Tokens()))
	for _, tok := range doc.Tokens() {
		tokens = append(tokens, Token{Text: tok.Text, Tag: universalTag(tok.Tag)})
	}
	return tokens, nil
}

// universalTag maps Penn Treebank noun tags onto NOUN/PROPN and leaves every
// other tag as is.
func universalTag(penn string) string {
	switch penn {
	case "NN", "NNS":
		return TagNoun
	case "NNP", "NNPS":
		return TagProperNoun
	default:
		return penn
	}
}

// ThemeExtractor ranks the most frequent nouns across a comment corpus.
type ThemeExtractor struct {
	tagger Tagger
}

func NewThemeExtractor(tagger Tagger) *ThemeExtractor {
	return &ThemeExtractor{tagger: tagger}
}

// Extract returns at most topN noun strings by descending count. Matching is
// exact and case-sensitive; ties keep first-occurrence order.
func (e *ThemeExtractor) Extract(comments []string, topN int) ([]string, error) {
	counts := make(map[string]int)
	var order []string

	for _, comment := range comments {
		tokens, err := e.tagger.Tag(comment)
		if err != nil {
			return nil, err
		}
		for _, tok := range tokens {
			if tok.Tag != TagNoun && tok.Tag != TagProperNoun {
				continue
			}
			if _, seen := counts[tok.Text]; !seen {
				order = append(order, tok.Text)
			}
			counts[tok.Text]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if topN < 0 {
		topN = 0
	}
	if len(order) > topN {
		order = order[:topN]
	}
	return order, nil
}
