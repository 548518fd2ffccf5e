package entities

import "strings"

// DefaultItemDelimiter separates the product code from the color in item codes like "CODE-COLOR"
const DefaultItemDelimiter = "-"

// ItemParts is the display decomposition of an item code.
// Join and aggregation never depend on it.
type ItemParts struct {
	Code  string `json:"code"`
	Color string `json:"color"`
}

// DecomposeItemCode splits code at the first delimiter. Codes without the
// delimiter keep the whole value as Code and get defaultColor.
func DecomposeItemCode(code ItemCode, delimiter, defaultColor string) ItemParts {
	s := string(code)
	if delimiter == "" {
		return ItemParts{Code: s, Color: defaultColor}
	}
	head, tail, found := strings.Cut(s, delimiter)
	if !found || tail == "" {
		return ItemParts{Code: head, Color: defaultColor}
	}
	// "CODE-RED-2": the color is the second segment only
	if next, _, ok := strings.Cut(tail, delimiter); ok {
		tail = next
	}
	return ItemParts{Code: head, Color: tail}
}
