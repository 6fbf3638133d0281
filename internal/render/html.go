package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"unicode/utf8"

	"github.com/vallemsec/spectra-web/internal/cms"
	"github.com/vallemsec/spectra-web/internal/target"
)

const (
	indexTemplate   = "index.html"
	resultsTemplate = "results.html"

	// TypeSpeedMillis is the delay between two revealed advice characters.
	TypeSpeedMillis = 5
)

//go:embed templates/*.html
var pageTemplateFS embed.FS

var (
	pageTemplateFuncs = template.FuncMap{
		"typedRunes": typedRunes,
	}

	pageTemplates = template.Must(
		template.New("pages").Funcs(pageTemplateFuncs).ParseFS(pageTemplateFS, "templates/*.html"),
	)
)

// IndexPage is the data for the landing page with the scan form.
type IndexPage struct {
	Targets target.Targets
	Posts   []cms.Post
}

type resultsPage struct {
	*Report
	Score       Score
	Disclaimer  string
	MarkdownURL string
	PDFURL      string
}

// Index writes the landing page.
func Index(w io.Writer, page IndexPage) error {
	return executeTemplate(w, indexTemplate, page)
}

// Results writes the results page for rep. All scan text is escaped.
func Results(w io.Writer, rep *Report) error {
	query := rep.Targets.Query()
	return executeTemplate(w, resultsTemplate, resultsPage{
		Report:      rep,
		Score:       CosmeticScore(),
		Disclaimer:  Disclaimer,
		MarkdownURL: "/results.md?" + query,
		PDFURL:      "/results.pdf?" + query,
	})
}

func executeTemplate(w io.Writer, name string, data any) error {
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return nil
}

// typedRune is one character of the advice with its reveal delay.
type typedRune struct {
	Char        string
	DelayMillis int
}

// typedRunes splits text into characters that appear one after another,
// TypeSpeedMillis apart, whatever the line wrapping.
func typedRunes(text string) []typedRune {
	runes := make([]typedRune, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		runes = append(runes, typedRune{Char: string(r), DelayMillis: len(runes) * TypeSpeedMillis})
	}
	return runes
}
