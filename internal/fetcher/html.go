package fetcher

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// CleanText strips HTML markup from a snippet and collapses whitespace.
// Text inside script and style elements is dropped.
func CleanText(input string) string {
	if !strings.ContainsAny(input, "<&") {
		return collapseSpace(input)
	}

	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var textBuilder strings.Builder
	skip := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				return collapseSpace(textBuilder.String())
			}
			// malformed markup, fall back to the raw text
			return collapseSpace(input)

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isHidden(string(name)) {
				skip++
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isHidden(string(name)) && skip > 0 {
				skip--
			}
			// block boundaries separate words
			textBuilder.WriteByte(' ')

		case html.SelfClosingTagToken:
			textBuilder.WriteByte(' ')

		case html.TextToken:
			if skip == 0 {
				textBuilder.Write(tokenizer.Text())
				textBuilder.WriteByte(' ')
			}
		}
	}
}

func isHidden(tag string) bool {
	return tag == "script" || tag == "style"
}

// collapseSpace removes excessive whitespace
func collapseSpace(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
