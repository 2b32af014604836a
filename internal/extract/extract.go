package extract

import (
    "strings"

    "golang.org/x/net/html"
)

// CellText returns the rendered text of a table cell, approximating what a
// browser's innerText would give: markup is dropped, whitespace runs are
// collapsed, <br> and block elements start new lines, and <pre> keeps its
// line breaks. Form controls, scripts and templates contribute nothing.
// A cell styled white-space:pre or pre-wrap keeps its text exactly.
func CellText(n *html.Node) string {
    if n == nil {
        return ""
    }
    if preservesSpace(n) {
        return rawText(n)
    }
    var b strings.Builder
    for c := n.FirstChild; c != nil; c = c.NextSibling {
        collectText(&b, c, false)
    }
    return normalizeWhitespace(b.String())
}

// Title returns the trimmed <title> of a parsed document, if any.
func Title(root *html.Node) string {
    head := findFirst(root, "head")
    if head == nil {
        return ""
    }
    t := findFirst(head, "title")
    if t == nil || t.FirstChild == nil {
        return ""
    }
    return strings.TrimSpace(t.FirstChild.Data)
}

func preservesSpace(n *html.Node) bool {
    for _, a := range n.Attr {
        if !strings.EqualFold(a.Key, "style") {
            continue
        }
        for _, decl := range strings.Split(a.Val, ";") {
            prop, val, ok := strings.Cut(decl, ":")
            if !ok || !strings.EqualFold(strings.TrimSpace(prop), "white-space") {
                continue
            }
            switch strings.ToLower(strings.TrimSpace(val)) {
            case "pre", "pre-wrap", "break-spaces":
                return true
            }
        }
    }
    return false
}

// rawText concatenates text nodes as written; <br> is a line break.
func rawText(n *html.Node) string {
    var b strings.Builder
    var walk func(*html.Node)
    walk = func(cur *html.Node) {
        switch cur.Type {
        case html.TextNode:
            b.WriteString(cur.Data)
            return
        case html.ElementNode:
            switch strings.ToLower(cur.Data) {
            case "script", "style", "noscript", "template", "input", "select", "button", "textarea":
                return
            case "br":
                b.WriteString("\n")
                return
            }
        }
        for c := cur.FirstChild; c != nil; c = c.NextSibling {
            walk(c)
        }
    }
    for c := n.FirstChild; c != nil; c = c.NextSibling {
        walk(c)
    }
    return strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(b.String())
}

func findFirst(n *html.Node, tag string) *html.Node {
    var res *html.Node
    var dfs func(*html.Node)
    dfs = func(cur *html.Node) {
        if res != nil {
            return
        }
        if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag) {
            res = cur
            return
        }
        for c := cur.FirstChild; c != nil; c = c.NextSibling {
            dfs(c)
            if res != nil {
                return
            }
        }
    }
    dfs(n)
    return res
}

func collectText(b *strings.Builder, n *html.Node, inPre bool) {
    if n.Type == html.ElementNode {
        name := strings.ToLower(n.Data)
        switch name {
        case "script", "style", "noscript", "template", "input", "select", "button", "textarea":
            return
        case "pre":
            inPre = true
            b.WriteString("\n")
        case "br":
            b.WriteString(hardBreak)
        case "p", "div", "li", "ul", "ol", "h1", "h2", "h3", "h4", "h5", "h6", "table", "tr":
            b.WriteString("\n")
        case "td", "th":
            // nested table cells stay separated
            b.WriteString(" ")
        }
    }

    if n.Type == html.TextNode {
        data := n.Data
        if !inPre {
            data = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(data)
        } else {
            data = strings.ReplaceAll(data, "\n", hardBreak)
        }
        b.WriteString(data)
    }

    for c := n.FirstChild; c != nil; c = c.NextSibling {
        collectText(b, c, inPre)
    }

    if n.Type == html.ElementNode {
        switch strings.ToLower(n.Data) {
        case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "table", "tr", "pre":
            b.WriteString("\n")
        }
    }
}

// hardBreak marks a line break that normalization must keep, including
// consecutive ones.
const hardBreak = "\x00"

func normalizeWhitespace(s string) string {
    // Soft newlines come from block boundaries and may collapse; hard
    // breaks come from <br> or <pre> and are kept as written.
    var lines []string
    for _, soft := range strings.Split(s, "\n") {
        trimmed := strings.TrimSpace(collapseSpaces(soft))
        if trimmed == "" {
            continue
        }
        lines = append(lines, trimmed)
    }
    joined := strings.Join(lines, "\n")
    parts := strings.Split(joined, hardBreak)
    for i, p := range parts {
        parts[i] = strings.TrimSpace(p)
    }
    return strings.Trim(strings.Join(parts, "\n"), "\n")
}

func collapseSpaces(s string) string {
    var b strings.Builder
    lastSpace := false
    for _, r := range s {
        if r == ' ' || r == '\t' || r == '\r' {
            if !lastSpace {
                b.WriteByte(' ')
                lastSpace = true
            }
            continue
        }
        b.WriteRune(r)
        lastSpace = false
    }
    return b.String()
}
