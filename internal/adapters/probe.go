package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
)

// Built-in probe categories, evaluated on the fetched document.
const (
	ProbeBulk   = "bulk"
	ProbeRole   = "role"
	ProbeZIndex = "zIndex"
)

// ProbeCategories lists the categories the built-in probes measure.
var ProbeCategories = []string{ProbeBulk, ProbeRole, ProbeZIndex}

// Probe evaluates the document kept by the navigator without an external
// engine. It measures element volume (bulk), deprecated or invalid ARIA
// roles (role) and explicitly layered elements (zIndex).
type Probe struct{}

var _ ports.TestEngine = Probe{}

// Run implements ports.TestEngine.
func (Probe) Run(ctx context.Context, category string, page ports.Page) (model.RawResult, error) {
	if len(page.Body) == 0 {
		return nil, errors.New("page document is not available")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse page document: %w", err)
	}
	body := findBody(doc)
	if body == nil {
		return nil, errors.New("page has no body")
	}

	switch category {
	case ProbeBulk:
		return bulk(body), nil
	case ProbeRole:
		return roles(body), nil
	case ProbeZIndex:
		return zIndexes(body), nil
	default:
		return nil, fmt.Errorf("no built-in probe for category %s", category)
	}
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findBody(c); found != nil {
			return found
		}
	}
	return nil
}

// walk visits every element below root, skipping subtrees whose root
// returns false.
func walk(root *html.Node, visit func(n *html.Node) bool) {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if visit(c) {
			walk(c, visit)
		}
	}
}

var invisibleTags = map[string]struct{}{
	"script": {}, "style": {}, "template": {}, "noscript": {}, "meta": {}, "link": {},
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func hidden(n *html.Node) bool {
	if _, ok := attr(n, "hidden"); ok {
		return true
	}
	if v, ok := attr(n, "aria-hidden"); ok && v == "true" {
		return true
	}
	style, _ := attr(n, "style")
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// bulk counts the rendered elements of the body.
func bulk(body *html.Node) model.RawResult {
	visible := 0
	walk(body, func(n *html.Node) bool {
		if _, skip := invisibleTags[n.Data]; skip || hidden(n) {
			return false
		}
		visible++
		return true
	})
	return &model.Subtotals{Values: map[string]float64{"visibleElements": float64(visible)}}
}

// Roles that HTML elements carry implicitly and that should therefore not be
// assigned explicitly.
var redundantRoles = setOf(
	"article", "banner", "button", "cell", "checkbox", "columnheader", "combobox",
	"complementary", "contentinfo", "definition", "dialog", "document", "figure",
	"graphics-document", "gridcell", "group", "heading", "link", "list", "listbox",
	"listitem", "main", "navigation", "option", "progressbar", "radio", "region", "row",
	"rowgroup", "rowheader", "searchbox", "separator", "slider", "spinbutton", "status",
	"table", "term", "textbox",
)

// Non-abstract roles that may be assigned explicitly.
var assignableRoles = setOf(
	"alert", "alertdialog", "application", "directory", "feed", "form", "grid", "img",
	"log", "marquee", "menu", "menubar", "menuitem", "menuitemcheckbox", "menuitemradio",
	"none", "note", "presentation", "radiogroup", "scrollbar", "search", "switch", "tab",
	"tablist", "tabpanel", "timer", "toolbar", "tooltip", "tree", "treegrid", "treeitem",
)

func setOf(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

// roles tallies elements whose explicit role is redundant or invalid, by tag
// name and role. Examined is the number of elements with a role attribute.
func roles(body *html.Node) model.RawResult {
	tally := &model.Tally{Tags: map[string]map[string]int{}}
	walk(body, func(n *html.Node) bool {
		role, ok := attr(n, "role")
		if !ok || role == "" {
			return true
		}
		tally.Examined++
		_, redundant := redundantRoles[role]
		_, assignable := assignableRoles[role]
		if redundant || !assignable {
			add(tally, strings.ToUpper(n.Data), role)
		}
		return true
	})
	return tally
}

var zIndexPattern = regexp.MustCompile(`(?i)z-index\s*:\s*(-?\d+)`)

// zIndexes tallies elements with an inline non-auto z-index, by tag name and
// z-index value.
func zIndexes(body *html.Node) model.RawResult {
	tally := &model.Tally{Tags: map[string]map[string]int{}}
	walk(body, func(n *html.Node) bool {
		tally.Examined++
		style, _ := attr(n, "style")
		if m := zIndexPattern.FindStringSubmatch(style); m != nil {
			add(tally, strings.ToUpper(n.Data), m[1])
		}
		return true
	})
	return tally
}

func add(t *model.Tally, tag, value string) {
	inner, ok := t.Tags[tag]
	if !ok {
		inner = map[string]int{}
		t.Tags[tag] = inner
	}
	inner[value]++
}
