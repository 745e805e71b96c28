package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_AllTokens(t *testing.T) {
	doc := "{{name}}|{{studentId}}|{{major}}|{{imageUrl}}|{{barcodeUrl}}|{{appleWalletUrl}}|{{googleWalletUrl}}"
	out := Render(doc, Tokens{
		TokenName:            "Ada",
		TokenStudentID:       "T001",
		TokenMajor:           "CS",
		TokenImageURL:        "https://img",
		TokenBarcodeURL:      "https://bar",
		TokenAppleWalletURL:  "https://apple",
		TokenGoogleWalletURL: "https://google",
	})
	assert.Equal(t, "Ada|T001|CS|https://img|https://bar|https://apple|https://google", out)
}

func TestRender_MissingMajorAndWalletURLs(t *testing.T) {
	doc := `<p>{{name}}</p><p>[{{major}}]</p><a href="{{appleWalletUrl}}"></a><a href="{{googleWalletUrl}}"></a>`
	out := Render(doc, Tokens{TokenName: "Ada"})
	assert.Equal(t, `<p>Ada</p><p>[]</p><a href="#"></a><a href="#"></a>`, out)
}

func TestRender_NilTokens(t *testing.T) {
	assert.Equal(t, "[]#", Render("[{{name}}]{{googleWalletUrl}}", nil))
}

func TestRender_RepeatedAndUnknownPlaceholders(t *testing.T) {
	out := Render("{{name}} {{name}} {{unknown}}", Tokens{TokenName: "Ada"})
	assert.Equal(t, "Ada Ada {{unknown}}", out)
}

func TestRender_ValuesAreNotReexpanded(t *testing.T) {
	out := Render("{{name}}", Tokens{TokenName: "{{major}}", TokenMajor: "CS"})
	assert.Equal(t, "{{major}}", out)
}
