// Package template substitutes {{token}} placeholders in email documents.
package template

import "strings"

// Recognized tokens.
const (
	TokenName            = "name"
	TokenStudentID       = "studentId"
	TokenMajor           = "major"
	TokenImageURL        = "imageUrl"
	TokenBarcodeURL      = "barcodeUrl"
	TokenAppleWalletURL  = "appleWalletUrl"
	TokenGoogleWalletURL = "googleWalletUrl"
)

// WalletPlaceholder replaces wallet links that are absent so the rendered
// anchor stays well formed.
const WalletPlaceholder = "#"

var recognized = []string{
	TokenName,
	TokenStudentID,
	TokenMajor,
	TokenImageURL,
	TokenBarcodeURL,
	TokenAppleWalletURL,
	TokenGoogleWalletURL,
}

// Tokens maps a recognized token name to its value.
type Tokens map[string]string

// Render substitutes every recognized token in document. Missing or empty
// values render as "", wallet URLs as WalletPlaceholder. Unknown placeholders
// are left as is.
func Render(document string, tokens Tokens) string {
	pairs := make([]string, 0, 2*len(recognized))
	for _, name := range recognized {
		value := tokens[name]
		if value == "" && isWalletToken(name) {
			value = WalletPlaceholder
		}
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(document)
}

func isWalletToken(name string) bool {
	return name == TokenAppleWalletURL || name == TokenGoogleWalletURL
}
