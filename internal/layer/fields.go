package layer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// fieldValue returns the text following the first bold label equal to
// label, ignoring surrounding whitespace.
func fieldValue(doc *goquery.Document, label string) (string, bool) {
	var value string
	found := false
	doc.Find("b").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) != label {
			return true
		}
		value = siblingText(s)
		found = true
		return false
	})
	return value, found
}

// labelValues returns the text following every bold label containing substr.
func labelValues(doc *goquery.Document, substr string) []string {
	values := make([]string, 0)
	doc.Find("b").Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(s.Text(), substr) {
			values = append(values, siblingText(s))
		}
	})
	return values
}

// siblingText returns the trimmed text node immediately after s.
func siblingText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	next := s.Get(0).NextSibling
	if next == nil || next.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(next.Data)
}

// textNodes returns every text node of the document in order.
func textNodes(doc *goquery.Document) []string {
	out := make([]string, 0)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return out
}

var spatialReferencePattern = regexp.MustCompile(`Spatial Reference:\s*(\d+)`)

// SpatialReference returns the first "Spatial Reference: <digits>" value.
// Text nodes are searched first; a bold label followed by the number in
// the next text node is accepted as a fallback.
func SpatialReference(doc *goquery.Document) (int, error) {
	for _, text := range textNodes(doc) {
		if m := spatialReferencePattern.FindStringSubmatch(text); m != nil {
			return strconv.Atoi(m[1])
		}
	}

	if v, ok := fieldValue(doc, "Spatial Reference:"); ok {
		if m := leadingDigits.FindString(v); m != "" {
			return strconv.Atoi(m)
		}
	}
	return 0, ErrSpatialReferenceNotFound
}

var leadingDigits = regexp.MustCompile(`^\d+`)

// numberPattern matches a signed decimal with optional exponent.
const numberPattern = `(-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)`

var coordinatePatterns = map[string]*regexp.Regexp{
	"XMin": regexp.MustCompile(`XMin:\s*` + numberPattern),
	"YMin": regexp.MustCompile(`YMin:\s*` + numberPattern),
	"XMax": regexp.MustCompile(`XMax:\s*` + numberPattern),
	"YMax": regexp.MustCompile(`YMax:\s*` + numberPattern),
}

// coordinate returns the first value declared for name, e.g. "XMin".
func coordinate(doc *goquery.Document, texts []string, name string) (float64, bool) {
	pattern := coordinatePatterns[name]
	for _, text := range texts {
		if m := pattern.FindStringSubmatch(text); m != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			return v, err == nil
		}
	}
	if v, ok := fieldValue(doc, name+":"); ok {
		if fields := strings.Fields(v); len(fields) > 0 {
			f, err := strconv.ParseFloat(fields[0], 64)
			return f, err == nil
		}
	}
	return 0, false
}
