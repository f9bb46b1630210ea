package search

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Size unit multipliers recognised by the size: key.
const (
	kilobyte = 1024
	megabyte = 1024 * kilobyte
	gigabyte = 1024 * megabyte
)

// Criteria is the parsed form of a query. It is built once per search and not
// modified afterwards.
type Criteria struct {
	Terms      []string // Lowercase substrings that must all appear in a name
	Extensions []string // Lowercase, dot-prefixed suffixes; empty means no filter
	MinSize    *float64 // Exclusive lower bound in bytes
	MaxSize    *float64 // Exclusive upper bound in bytes
}

// HasFileFilter reports whether any extension or size criterion is set. Such
// criteria only apply to files, so they suppress folder results.
func (c Criteria) HasFileFilter() bool {
	return len(c.Extensions) > 0 || c.hasSizeBound()
}

// IsMatchAll reports whether c matches every entry.
func (c Criteria) IsMatchAll() bool {
	return len(c.Terms) == 0 && !c.HasFileFilter()
}

func (c Criteria) hasSizeBound() bool {
	return c.MinSize != nil || c.MaxSize != nil
}

// String renders c as a canonical query.
func (c Criteria) String() string {
	parts := make([]string, 0, len(c.Terms)+3)
	parts = append(parts, c.Terms...)
	if len(c.Extensions) > 0 {
		exts := make([]string, len(c.Extensions))
		for i, ext := range c.Extensions {
			exts[i] = strings.TrimPrefix(ext, ".")
		}
		parts = append(parts, "ext:"+strings.Join(exts, ","))
	}
	if c.MinSize != nil {
		parts = append(parts, "size:>"+strconv.FormatFloat(*c.MinSize, 'f', -1, 64))
	}
	if c.MaxSize != nil {
		parts = append(parts, "size:<"+strconv.FormatFloat(*c.MaxSize, 'f', -1, 64))
	}
	return strings.Join(parts, " ")
}

// ParseQuery turns a raw query into Criteria. It never fails: tokens it cannot
// use are dropped.
//
// Tokens are whitespace separated. A token without a colon is a search term.
// "ext:a,b" filters by extension; "ext:" with no value sets no extension
// filter, so folders are still reported. "size:>N" and "size:<N" set
// exclusive size bounds, where N may be fractional and may carry a kb, mb or
// gb suffix. Any other key is ignored.
func ParseQuery(raw string) Criteria {
	var c Criteria
	for _, token := range strings.Fields(raw) {
		key, value, ok := strings.Cut(token, ":")
		if !ok {
			c.Terms = append(c.Terms, normalize(token))
			continue
		}

		switch strings.ToLower(key) {
		case "ext":
			c.Extensions = parseExtensions(value)
		case "size":
			parseSizeBound(value, &c)
		}
	}
	return c
}

// parseExtensions parses the value of an ext: token. A later ext: token
// replaces the list rather than extending it.
func parseExtensions(value string) []string {
	var exts []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimPrefix(normalize(item), ".")
		if item == "" {
			continue
		}
		exts = append(exts, "."+item)
	}
	return exts
}

// parseSizeBound parses the value of a size: token into c. Malformed values
// leave c unchanged.
func parseSizeBound(value string, c *Criteria) {
	value = strings.ToLower(value)

	multiplier := 1.0
	switch {
	case strings.HasSuffix(value, "kb"):
		multiplier = kilobyte
		value = value[:len(value)-2]
	case strings.HasSuffix(value, "mb"):
		multiplier = megabyte
		value = value[:len(value)-2]
	case strings.HasSuffix(value, "gb"):
		multiplier = gigabyte
		value = value[:len(value)-2]
	}

	if value == "" {
		return
	}
	op, number := value[0], value[1:]
	if op != '>' && op != '<' {
		return
	}

	n, err := strconv.ParseFloat(number, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return
	}
	bound := n * multiplier

	if op == '>' {
		c.MinSize = &bound
	} else {
		c.MaxSize = &bound
	}
}

// normalize lowercases s after composing it to NFC, so names stored in
// decomposed form match terms typed in composed form.
func normalize(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
