package recommend

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/bookmind/internal/book"
)

// Uncategorized is assigned when no keyword group matches.
const Uncategorized = "uncategorized"

// GenreRule maps a genre to the keywords that signal it.
type GenreRule struct {
	Genre    string
	Keywords []string
}

// Categorizer assigns genres from description keywords.
type Categorizer struct {
	rules []GenreRule
}

// DefaultGenreRules is the built-in keyword table.
var DefaultGenreRules = []GenreRule{
	{Genre: "fantasy", Keywords: []string{"fantasy", "magic", "dragons", "wizards", "mythical"}},
	{Genre: "science_fiction", Keywords: []string{"sci-fi", "science fiction", "space", "future", "dystopian"}},
	{Genre: "mystery", Keywords: []string{"mystery", "detective", "crime", "thriller", "suspense"}},
	{Genre: "romance", Keywords: []string{"romance", "love", "relationship", "romantic", "passion"}},
	{Genre: "historical", Keywords: []string{"historical", "history", "period", "ancient", "medieval"}},
	{Genre: "biography", Keywords: []string{"biography", "memoir", "autobiography", "true story", "life story"}},
	{Genre: "self_help", Keywords: []string{"self-help", "personal development", "motivation", "productivity", "psychology"}},
	{Genre: "horror", Keywords: []string{"horror", "scary", "supernatural", "ghost", "terrifying"}},
}

// NewCategorizer creates a categorizer; nil rules select DefaultGenreRules.
func NewCategorizer(rules []GenreRule) *Categorizer {
	if rules == nil {
		rules = DefaultGenreRules
	}
	return &Categorizer{rules: rules}
}

// LoadCategorizer reads a genre table from a YAML (or JSON) mapping of
// genre name to keyword list. The file order of genres is kept. An empty
// path or a missing file yields the built-in table.
func LoadCategorizer(path string) (*Categorizer, error) {
	if path == "" {
		return NewCategorizer(nil), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewCategorizer(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read genre table: %w", err)
	}

	rules, err := parseGenreRules(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse genre table %s: %w", path, err)
	}
	return NewCategorizer(rules), nil
}

func parseGenreRules(data []byte) ([]GenreRule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping of genre to keywords")
	}

	rules := make([]GenreRule, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		var keywords []string
		if err := root.Content[i+1].Decode(&keywords); err != nil {
			return nil, fmt.Errorf("genre %q: %w", root.Content[i].Value, err)
		}
		rules = append(rules, GenreRule{Genre: root.Content[i].Value, Keywords: keywords})
	}
	return rules, nil
}

// Categorize returns b's genres when it has any, otherwise every genre
// with a keyword present in the lowercased description, in table order.
func (c *Categorizer) Categorize(b book.Book) []string {
	if len(b.Genres) > 0 {
		return b.Genres
	}

	desc := strings.ToLower(b.Description)
	var genres []string
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(desc, strings.ToLower(kw)) {
				genres = append(genres, r.Genre)
				break
			}
		}
	}
	if len(genres) == 0 {
		return []string{Uncategorized}
	}
	return genres
}
