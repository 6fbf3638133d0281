package render

import (
	"io"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// Markdown writes rep as a GitHub-flavoured markdown document.
func Markdown(w io.Writer, rep *Report) error {
	md := markdown.NewMarkdown(w)

	domain := rep.Targets.Domain
	if domain == "" {
		domain = "-"
	}
	md.H1("Scanresultaten: " + domain)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Eigenschap", "Waarde"},
		Rows: [][]string{
			{"Domein", domain},
			{"Modus", string(rep.Mode)},
			{"Gegenereerd", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")

	writeMarkdownScore(md)
	writeMarkdownAdvice(md, rep)
	writeMarkdownProblems(md, rep)
	writeMarkdownLeaks(md, rep)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*" + Disclaimer + "*")

	return md.Build()
}

func writeMarkdownScore(md *markdown.Markdown) {
	score := CosmeticScore()
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Score"),
		piechart.WithShowData(true),
	)
	chart.LabelAndIntValue("Score", uint64(score.Value))
	chart.LabelAndIntValue("Rest", uint64(score.Rest))
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func writeMarkdownAdvice(md *markdown.Markdown, rep *Report) {
	md.H2("Advies")
	md.PlainText("")
	switch {
	case rep.Scan.Failed():
		md.Cautionf("%s", rep.Scan.Error)
	case rep.Scan.Pending():
		md.Note("Bezig met scannen...")
	default:
		md.PlainText(rep.Scan.Value.Advice)
	}
	md.PlainText("")
}

func writeMarkdownProblems(md *markdown.Markdown, rep *Report) {
	md.H2("Gevonden problemen")
	md.PlainText("")
	if len(rep.Scan.Value.Results) == 0 {
		if rep.Scan.Succeeded() {
			md.Tip("Geen problemen gevonden.")
			md.PlainText("")
		}
		return
	}
	for _, problem := range rep.Scan.Value.Results {
		md.H3(problem.Name)
		md.PlainText("")
		md.PlainText(problem.AIAdvice)
		md.PlainText("")
	}
}

func writeMarkdownLeaks(md *markdown.Markdown, rep *Report) {
	if rep.Leaks == nil {
		return
	}
	md.H2("Gelekte gegevens")
	md.PlainText("")
	if rep.Leaks.Failed() {
		md.Cautionf("%s", rep.Leaks.Error)
		md.PlainText("")
		return
	}
	if len(rep.Leaks.Value) == 0 {
		md.Tip("Geen lekken gevonden voor " + rep.Targets.Email + ".")
		md.PlainText("")
		return
	}
	rows := make([][]string, len(rep.Leaks.Value))
	for i, entry := range rep.Leaks.Value {
		rows[i] = []string{entry.Service, entry.Date}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Dienst", "Datum"},
		Rows:   rows,
	})
	md.PlainText("")
}
