package util

import "strings"

// Link renders a reddit-markdown link.
func Link(text, url string) string {
	return "[" + text + "](" + url + ")"
}

// BoldLink renders a link whose text is bold.
func BoldLink(text, url string) string {
	return Link("**"+text+"**", url)
}

// TableCell makes s safe to place inside a markdown table cell.
func TableCell(s string) string {
	s = strings.ReplaceAll(s, "|", "&#124;")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

// JoinNonEmpty joins the non-blank parts with sep.
func JoinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// StripLeadingHeader removes header from the start of text, tolerating the line endings reddit adds.
func StripLeadingHeader(text, header string) string {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(header) == "" {
		return text
	}
	header = strings.TrimRight(header, "\r\n")
	candidates := []string{
		header + "\r\n\r\n",
		header + "\n\n",
		header + "\r\n",
		header + "\n",
		header,
	}
	for _, candidate := range candidates {
		if strings.HasPrefix(text, candidate) {
			return strings.TrimPrefix(text, candidate)
		}
	}
	return text
}
