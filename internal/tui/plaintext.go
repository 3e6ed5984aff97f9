package tui

import (
	"strings"

	"golang.org/x/net/html"
)

// PlainText strips the anchor markup added by the API. An anchor whose text
// differs from its href renders as "text (href)".
func PlainText(markup string) string {
	var (
		out    strings.Builder
		href   string
		label  strings.Builder
		inLink bool
	)
	tokenizer := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return out.String()
		case html.StartTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			inLink = true
			href = ""
			label.Reset()
			for _, attr := range token.Attr {
				if attr.Key == "href" {
					href = attr.Val
				}
			}
		case html.EndTagToken:
			token := tokenizer.Token()
			if token.Data != "a" || !inLink {
				continue
			}
			inLink = false
			text := label.String()
			switch {
			case href == "" || text == href:
				out.WriteString(text)
			case text == "":
				out.WriteString(href)
			default:
				out.WriteString(text + " (" + href + ")")
			}
		case html.TextToken:
			text := string(tokenizer.Text())
			if inLink {
				label.WriteString(text)
			} else {
				out.WriteString(text)
			}
		}
	}
}
