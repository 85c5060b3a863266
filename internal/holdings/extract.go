// internal/holdings/extract.go
package holdings

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/rovshanmuradov/mnav/internal/types"
)

const (
	DefaultAnchor = "Holdings"
	DefaultSymbol = "ETH"
	DefaultMaxGap = 200
)

// number accepts 4,168,000 / 4168000 / 4,168,000.25
const numberPattern = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`

// Extractor finds the first "<anchor> ... <number> <symbol>" phrase whose
// number starts within maxGap characters of the anchor.
type Extractor struct {
	re *regexp.Regexp
}

// NewExtractor compiles the pattern for anchor and symbol. Matching is
// case-insensitive; where anchor or symbol begins or ends with a word
// character, that edge must not touch another word character.
func NewExtractor(anchor, symbol string, maxGap int) (*Extractor, error) {
	if anchor == "" || symbol == "" {
		return nil, fmt.Errorf("anchor and symbol are required")
	}
	if maxGap < 1 || maxGap > 1000 {
		return nil, fmt.Errorf("max gap %d out of range 1..1000", maxGap)
	}

	expr := fmt.Sprintf(`(?is)%s.{0,%d}?\b%s\s*%s`,
		bounded(anchor, true), maxGap, numberPattern, bounded(symbol, false))
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile holdings pattern: %w", err)
	}
	return &Extractor{re: re}, nil
}

// bounded quotes word and adds \b on each side that ends in a word
// character. A \b next to punctuation would require a letter beyond it.
// The leading edge is only bounded when lead is set; the symbol may touch
// its number, as in 500ETH.
func bounded(word string, lead bool) string {
	expr := regexp.QuoteMeta(word)
	if lead && isWordByte(word[0]) {
		expr = `\b` + expr
	}
	if isWordByte(word[len(word)-1]) {
		expr += `\b`
	}
	return expr
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// MustNewExtractor is NewExtractor that panics on invalid arguments
func MustNewExtractor(anchor, symbol string, maxGap int) *Extractor {
	e, err := NewExtractor(anchor, symbol, maxGap)
	if err != nil {
		panic(err)
	}
	return e
}

var defaultExtractor = MustNewExtractor(DefaultAnchor, DefaultSymbol, DefaultMaxGap)

// Extract applies the default Holdings/ETH pattern to text
func Extract(text string) (float64, error) {
	return defaultExtractor.Extract(text)
}

// Extract returns the first holdings quantity found in text
func (e *Extractor) Extract(text string) (float64, error) {
	m := e.re.FindStringSubmatch(text)
	if m == nil {
		return 0, types.ErrNoPatternMatch
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("parse holdings %q: %w", m[1], err)
	}
	return value, nil
}

// TextFromHTML strips markup and returns the visible text with whitespace
// collapsed. Adjacent text nodes are separated by a space so that table
// cells and inline tags do not glue words to numbers.
func TextFromHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, template").Remove()

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}

	return strings.Join(strings.Fields(sb.String()), " "), nil
}
