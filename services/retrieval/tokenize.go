package retrieval

import (
	"strings"
	"unicode"
)

// stopwords are dropped from queries so that "what is the momentum of a car"
// scores on "momentum" and "car" only.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a about above after again against all am an and any are as at
		be because been before being below between both but by
		can could did do does doing down during each few for from further
		had has have having he her here hers him his how i if in into is it its itself
		just me more most my no nor not now of off on once only or other our ours out over own
		same she should so some such than that the their theirs them then there these they this
		those through to too under until up very was we were what when where which while who whom
		why will with would you your yours
		explain tell please describe show give mean means define definition`) {
		stopwords[w] = struct{}{}
	}
}

// IsStopword reports whether a lowercase token carries no topical signal
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// Tokenize lowercases text and splits it into runs of letters and digits.
// Each token is normalised with Normalize.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for i, f := range fields {
		fields[i] = Normalize(f)
	}
	return fields
}

// Normalize strips a plural "s" from tokens longer than three runes,
// leaving "ss" endings alone ("forces" -> "force", "mass" -> "mass").
func Normalize(token string) string {
	if len([]rune(token)) <= 3 {
		return token
	}
	if strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") {
		return strings.TrimSuffix(token, "s")
	}
	return token
}

// QueryTerms returns the distinct non-stopword tokens of a query in first-seen order
func QueryTerms(query string) []string {
	raw := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]struct{}, len(raw))
	terms := make([]string, 0, len(raw))
	for _, tok := range raw {
		if IsStopword(tok) {
			continue
		}
		tok = Normalize(tok)
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}
