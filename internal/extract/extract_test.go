package extract

import (
    "strings"
    "testing"

    "golang.org/x/net/html"
)

func firstCell(t *testing.T, fragment string) *html.Node {
    t.Helper()
    doc, err := html.Parse(strings.NewReader("<table><tr><td>" + fragment + "</td></tr></table>"))
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    td := findFirst(doc, "td")
    if td == nil {
        t.Fatalf("no td in %q", fragment)
    }
    return td
}

func TestCellText_DropsMarkupAndCollapsesWhitespace(t *testing.T) {
    td := firstCell(t, "  <b>Hello</b>\n\t <i>world</i>  ")
    if got := CellText(td); got != "Hello world" {
        t.Fatalf("got %q", got)
    }
}

func TestCellText_PreservedWhitespace(t *testing.T) {
    doc, err := html.Parse(strings.NewReader(`<table><tr><td style="color: red; White-Space: pre">  two  spaces<br> x </td></tr></table>`))
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if got := CellText(findFirst(doc, "td")); got != "  two  spaces\n x " {
        t.Fatalf("got %q", got)
    }
}

func TestCellText_LineBreaks(t *testing.T) {
    td := firstCell(t, "line1<br>line2")
    if got := CellText(td); got != "line1\nline2" {
        t.Fatalf("got %q", got)
    }
    td = firstCell(t, "<div>a</div><div>b</div>")
    if got := CellText(td); got != "a\nb" {
        t.Fatalf("got %q", got)
    }
}

func TestCellText_SkipsControlsAndScripts(t *testing.T) {
    td := firstCell(t, `<input type="checkbox"><span>Name</span><script>var x = 1;</script>`)
    if got := CellText(td); got != "Name" {
        t.Fatalf("got %q", got)
    }
}

func TestCellText_PreKeepsLines(t *testing.T) {
    td := firstCell(t, "<pre>a\nb</pre>")
    if got := CellText(td); got != "a\nb" {
        t.Fatalf("got %q", got)
    }
}

func TestCellText_Nil(t *testing.T) {
    if got := CellText(nil); got != "" {
        t.Fatalf("got %q", got)
    }
}

func TestTitle(t *testing.T) {
    doc, err := html.Parse(strings.NewReader("<html><head><title> Prices </title></head><body></body></html>"))
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if got := Title(doc); got != "Prices" {
        t.Fatalf("expected title 'Prices', got %q", got)
    }
}
