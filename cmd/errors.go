package cmd

import (
	"fmt"
	"strings"

	sharedErrors "github.com/vallemsec/spectra-web/internal/shared/errors"
)

// ConfigError reports a configuration that could not be read or is invalid.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration in %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// FormatError signals an unsupported --format value.
type FormatError struct {
	Format string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported format %q (use one of: %s)", e.Format, strings.Join(outputFormats, ", "))
}

func (e *FormatError) Unwrap() error {
	return sharedErrors.ErrInvalidFormat
}

// ScanFailedError is returned after printing a report with failed sections,
// so the process exits non-zero.
type ScanFailedError struct {
	Domain   string
	Sections []string
}

func (e *ScanFailedError) Error() string {
	return fmt.Sprintf("scan of %q failed: %s", e.Domain, strings.Join(e.Sections, ", "))
}
