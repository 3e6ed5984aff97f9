package usecase

import (
	"bytes"
	"regexp"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kirillkom/sunabot/internal/core/domain"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+[^\s<>".,;:]`)

// Linkify wraps every bare URL in an anchor and lists the raw matches in
// order of appearance. Run it once per response; anchors are not detected.
func Linkify(text string) domain.LinkifiedText {
	matches := urlPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return domain.LinkifiedText{HTML: text, Links: []string{}}
	}

	links := make([]string, 0, len(matches))
	var out bytes.Buffer
	out.Grow(len(text) + len(matches)*64)

	last := 0
	for _, loc := range matches {
		raw := text[loc[0]:loc[1]]
		links = append(links, raw)
		out.WriteString(text[last:loc[0]])
		if err := html.Render(&out, anchorNode(raw)); err != nil {
			out.WriteString(raw)
		}
		last = loc[1]
	}
	out.WriteString(text[last:])

	return domain.LinkifiedText{HTML: out.String(), Links: links}
}

func anchorNode(href string) *html.Node {
	anchor := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.A,
		Data:     "a",
		Attr: []html.Attribute{
			{Key: "href", Val: href},
			{Key: "target", Val: "_blank"},
			{Key: "rel", Val: "noopener noreferrer"},
		},
	}
	anchor.AppendChild(&html.Node{Type: html.TextNode, Data: href})
	return anchor
}
