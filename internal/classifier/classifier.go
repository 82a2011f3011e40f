package classifier

import (
	"fmt"
	"strings"
)

// Result is the evidence found for one category.
type Result struct {
	Category Category
	Count    int
}

// Verdict is the outcome of checking a message against the category the caller picked.
type Verdict struct {
	Asserted Category
	Best     Result
	// Mismatch is set when Best has evidence and differs from Asserted.
	Mismatch bool
	Detected Definition
}

// Classifier scores free text against the keyword table.
type Classifier interface {
	Check(text string, asserted Category) Verdict
}

// KeywordClassifier counts case-insensitive substring hits of each category's keywords.
type KeywordClassifier struct {
	categories []Definition
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{categories: table}
}

// Scores returns the keyword count of every category, in table order.
// A keyword listed twice counts twice.
func (c *KeywordClassifier) Scores(text string) []Result {
	content := strings.ToLower(text)
	scores := make([]Result, 0, len(c.categories))
	for _, def := range c.categories {
		r := Result{Category: def.ID}
		for _, keyword := range def.Keywords {
			if strings.Contains(content, keyword) {
				r.Count++
			}
		}
		scores = append(scores, r)
	}
	return scores
}

// Classify returns the category with the most hits. The first category wins ties.
func (c *KeywordClassifier) Classify(text string) Result {
	var best Result
	for i, r := range c.Scores(text) {
		if i == 0 || r.Count > best.Count {
			best = r
		}
	}
	return best
}

// Check defers when nothing matched or the best category is the asserted one.
func (c *KeywordClassifier) Check(text string, asserted Category) Verdict {
	v := Verdict{Asserted: asserted, Best: c.Classify(text)}
	if v.Best.Count == 0 || v.Best.Category == asserted {
		return v
	}
	v.Mismatch = true
	v.Detected, _ = Lookup(v.Best.Category)
	return v
}

// Guidance is the text returned instead of a model answer when the question
// belongs to another category.
func Guidance(detected Definition) string {
	return fmt.Sprintf("Bu soru %s kategorisi ile ilgili görünüyor.\n\n", detected.Name) +
		fmt.Sprintf("%s Lütfen bu soruyu '%s' kategorisinde sorun. ", detected.Emoji, detected.Name) +
		"Böylece daha doğru ve kapsamlı bir yanıt alabilirsiniz."
}
