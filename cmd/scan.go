package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vallemsec/spectra-web/internal/render"
	"github.com/vallemsec/spectra-web/internal/target"
	"go.uber.org/zap"
)

const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

var outputFormats = []string{formatText, formatJSON, formatMarkdown}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan and print the report",
	Long: `Run the domain scan, and the email leak lookup when --email is given,
through the configured source and print the report.

Examples:
  # Fixture report as coloured text
  spectra-web scan --domain example.com

  # Live scan as markdown
  spectra-web scan --mode live --scanner-endpoint https://spectra.example.com \
    --domain example.com --email jan@example.com --format markdown`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("domain", "", "domain to scan")
	scanCmd.Flags().String("email", "", "email address to look up in known breaches")
	scanCmd.Flags().String("format", formatText, "output format: "+strings.Join(outputFormats, ", "))
	_ = scanCmd.MarkFlagRequired("domain")
}

func runScan(cmd *cobra.Command, _ []string) error {
	appCtx := getAppContext(cmd)
	if appCtx == nil {
		return fmt.Errorf("configuration not loaded")
	}
	domain, _ := cmd.Flags().GetString("domain")
	email, _ := cmd.Flags().GetString("email")
	format, _ := cmd.Flags().GetString("format")

	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case formatText, formatJSON, formatMarkdown:
	default:
		return &FormatError{Format: format}
	}

	t := target.Targets{Domain: domain, Email: email}
	rep := newPipeline(appCtx, nil).Run(commandContext(cmd), t)

	out := cmd.OutOrStdout()
	var err error
	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(rep)
	case formatMarkdown:
		err = render.Markdown(out, rep)
	default:
		err = printReport(out, rep)
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if rep.Failed() {
		appCtx.Logger.Warn("scan_failed", zap.String("domain", domain))
		return &ScanFailedError{Domain: domain, Sections: failedSections(rep)}
	}
	return nil
}

func failedSections(rep *render.Report) []string {
	var sections []string
	if rep.Scan.Failed() {
		sections = append(sections, "domain")
	}
	if rep.Leaks != nil && rep.Leaks.Failed() {
		sections = append(sections, "email")
	}
	return sections
}

// printReport writes rep as coloured terminal text.
func printReport(w io.Writer, rep *render.Report) error {
	var b strings.Builder
	score := render.CosmeticScore()

	fmt.Fprintf(&b, "%s %s\n", colorHeading("Scan results for"), colorInfo(rep.Targets.Domain))
	fmt.Fprintf(&b, "  mode:  %s\n", rep.Mode)
	fmt.Fprintf(&b, "  score: %d/100\n\n", score.Value)

	fmt.Fprintf(&b, "%s [%s]\n", colorHeading("Advice"), formatStatusWithColor(string(rep.Scan.State)))
	switch {
	case rep.Scan.Failed():
		fmt.Fprintf(&b, "  %s\n", colorError(rep.Scan.Error))
	case rep.Scan.Value.Advice != "":
		fmt.Fprintf(&b, "  %s\n", rep.Scan.Value.Advice)
	}

	problems := rep.Scan.Value.Results
	if len(problems) > 0 {
		fmt.Fprintf(&b, "\n%s (%d)\n", colorHeading("Problems"), len(problems))
		for i, p := range problems {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, colorWarn(p.Name))
			if p.AIAdvice != "" {
				fmt.Fprintf(&b, "     %s\n", p.AIAdvice)
			}
		}
	}

	if rep.Leaks != nil {
		fmt.Fprintf(&b, "\n%s [%s]\n", colorHeading("Email leaks for "+rep.Targets.Email), formatStatusWithColor(string(rep.Leaks.State)))
		switch {
		case rep.Leaks.Failed():
			fmt.Fprintf(&b, "  %s\n", colorError(rep.Leaks.Error))
		case len(rep.Leaks.Value) == 0:
			fmt.Fprintf(&b, "  %s\n", colorSuccess("no known leaks"))
		default:
			for _, leak := range rep.Leaks.Value {
				fmt.Fprintf(&b, "  - %s (%s)\n", colorError(leak.Service), leak.Date)
			}
		}
	}

	fmt.Fprintf(&b, "\n%s\n", render.Disclaimer)
	_, err := io.WriteString(w, b.String())
	return err
}
