package layer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NameStrategy derives a layer name from a layer page.
type NameStrategy interface {
	LayerName(doc *goquery.Document) (string, error)
}

// NameStrategyFunc adapts a function to NameStrategy.
type NameStrategyFunc func(doc *goquery.Document) (string, error)

// LayerName implements NameStrategy.
func (f NameStrategyFunc) LayerName(doc *goquery.Document) (string, error) {
	return f(doc)
}

// Strategy names accepted by StrategyByName.
const (
	StrategyBracketCode = "bracket-code"
	StrategyPlain       = "plain"
)

// StrategyByName returns the named built-in strategy.
func StrategyByName(name string) (NameStrategy, error) {
	switch name {
	case "", StrategyBracketCode:
		return BracketCode{}, nil
	case StrategyPlain:
		return Plain{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNameStrategy, name)
	}
}

var (
	parenthesized = regexp.MustCompile(`\(([^()]*)\)`)
	codeToken     = regexp.MustCompile(`^[A-Za-z0-9][^\s()]*$`)
	hasLetter     = regexp.MustCompile(`[A-Za-z]`)
	hasDigit      = regexp.MustCompile(`[0-9]`)
	nonAlnumRun   = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// BracketCode prefixes the layer name with an agency code written in
// parentheses, e.g. "Parks (ABC123)" becomes "ABC123_Parks" and
// "Parks (DBCA-011)" becomes "DBCA_011_Parks". A code is a parenthesized
// token without spaces that starts with a letter or digit and contains at
// least one of each; punctuation inside it is sanitized like the rest of
// the name. The last code in the name wins. When the name has none, the
// code is taken from the "Parent Layer:" link text.
type BracketCode struct{}

// LayerName implements NameStrategy.
func (BracketCode) LayerName(doc *goquery.Document) (string, error) {
	raw, ok := fieldValue(doc, "Name:")
	if !ok {
		return "", ErrNameNotFound
	}

	code := lastCode(raw)
	if code != "" {
		raw = strings.TrimSpace(strings.ReplaceAll(raw, "("+code+")", ""))
	} else {
		code = parentCode(doc)
	}

	name := SanitizeName(code + "_" + raw)
	if name == "" {
		return "", ErrNameNotFound
	}
	return name, nil
}

// Plain uses the sanitized "Name:" value as is.
type Plain struct{}

// LayerName implements NameStrategy.
func (Plain) LayerName(doc *goquery.Document) (string, error) {
	raw, ok := fieldValue(doc, "Name:")
	if !ok {
		return "", ErrNameNotFound
	}
	name := SanitizeName(raw)
	if name == "" {
		return "", ErrNameNotFound
	}
	return name, nil
}

// lastCode returns the last parenthesized code in s, or "".
func lastCode(s string) string {
	code := ""
	for _, m := range parenthesized.FindAllStringSubmatch(s, -1) {
		token := m[1]
		if codeToken.MatchString(token) && hasLetter.MatchString(token) && hasDigit.MatchString(token) {
			code = token
		}
	}
	return code
}

// parentCode returns the code in the "Parent Layer:" link text, or "".
func parentCode(doc *goquery.Document) string {
	code := ""
	doc.Find("b").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) != "Parent Layer:" {
			return true
		}
		code = lastCode(s.NextAllFiltered("a").First().Text())
		return false
	})
	return code
}

// SanitizeName replaces every run of characters other than letters and
// digits with a single underscore and trims underscores at both ends, so
// the result never starts or ends with a separator.
func SanitizeName(s string) string {
	return strings.Trim(nonAlnumRun.ReplaceAllString(s, "_"), "_")
}
