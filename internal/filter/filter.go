package filter

import (
	"strings"

	"bookmarks-browser/internal/items"
)

// State is the per-view filter configuration. Text is the raw filter string;
// the three toggles gate rows by flag state.
type State struct {
	Text           string `json:"text"`
	ActiveOnly     bool   `json:"activeOnly"`
	ShowArchived   bool   `json:"showArchived"`
	FavouritesOnly bool   `json:"favouritesOnly"`
}

// Token is one parsed filter term.
type Token struct {
	Needle  string
	Exclude bool
}

// Proxy is a read-through filter over the item store's current rows. It never
// mutates or reorders the store; it only answers Accepts per row.
type Proxy struct {
	state  State
	tokens []Token
}

// NewProxy returns a proxy with an empty filter.
func NewProxy() *Proxy {
	return &Proxy{}
}

// SetState replaces the filter configuration and reparses the text.
func (p *Proxy) SetState(s State) {
	p.state = s
	p.tokens = Tokenize(s.Text)
}

// State returns the current filter configuration.
func (p *Proxy) State() State { return p.state }

// Tokenize splits a filter string into inclusion and exclusion tokens.
// Tokens are space separated; a leading "--" negates; double quotes group a
// phrase (with or without the negation prefix). Needles are lower-cased so
// matching against the lower-cased haystack is effectively case-insensitive.
func Tokenize(text string) []Token {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}

	var tokens []Token
	i := 0
	for i < len(text) {
		// Skip separators.
		for i < len(text) && text[i] == ' ' {
			i++
		}
		if i >= len(text) {
			break
		}

		exclude := false
		if strings.HasPrefix(text[i:], "--") {
			exclude = true
			i += 2
		}

		var needle string
		if i < len(text) && text[i] == '"' {
			i++
			end := strings.IndexByte(text[i:], '"')
			if end < 0 {
				// Unterminated quote: take the rest.
				needle = text[i:]
				i = len(text)
			} else {
				needle = text[i : i+end]
				i += end + 1
			}
		} else {
			end := strings.IndexByte(text[i:], ' ')
			if end < 0 {
				needle = text[i:]
				i = len(text)
			} else {
				needle = text[i : i+end]
				i += end
			}
		}

		if needle == "" {
			continue
		}
		tokens = append(tokens, Token{Needle: needle, Exclude: exclude})
	}

	return tokens
}

// Accepts decides whether a record is visible under the current filter.
// The flag gate order is deliberate: active-only dominates, hiding archived
// comes next, favourites-only is weakest.
func (p *Proxy) Accepts(rec *items.Record) bool {
	if rec == nil {
		return false
	}

	flags := rec.Flags()
	archived := flags.Has(items.MarkedAsArchived)
	favourite := flags.Has(items.MarkedAsFavourite)
	active := flags.Has(items.MarkedAsActive)

	if len(p.tokens) > 0 {
		haystack := strings.ToLower(
			rec.Path + "\n" + rec.Description() + "\n" + rec.FileDetails())
		for _, tok := range p.tokens {
			found := strings.Contains(haystack, tok.Needle)
			if tok.Exclude && found {
				return false
			}
			if !tok.Exclude && !found {
				return false
			}
		}
	}

	switch {
	case p.state.ActiveOnly:
		return active
	case archived && !p.state.ShowArchived:
		return false
	case !favourite && p.state.FavouritesOnly:
		return false
	default:
		return true
	}
}
