package scanner

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	sharedErrors "github.com/vallemsec/spectra-web/internal/shared/errors"
)

const (
	// DomainFixtureFile holds a ScanResult document.
	DomainFixtureFile = "domain_scan.json"
	// EmailFixtureFile holds an EmailLeakResult document.
	EmailFixtureFile = "email_leaks.json"
)

//go:embed fixtures/domain_scan.json fixtures/email_leaks.json
var embeddedFixtures embed.FS

// FixtureSource serves static scan documents instead of calling the scanner.
// The target is ignored; every lookup returns the same fixture.
type FixtureSource struct {
	fsys fs.FS
}

// NewFixtureSource returns a source backed by the bundled fixtures, or by
// dir when it is non-empty. Files missing from dir fall back to the bundled
// copies.
func NewFixtureSource(dir string) *FixtureSource {
	bundled, _ := fs.Sub(embeddedFixtures, "fixtures")
	if dir == "" {
		return &FixtureSource{fsys: bundled}
	}
	return &FixtureSource{fsys: overlayFS{primary: os.DirFS(dir), fallback: bundled}}
}

// NewFixtureSourceFS serves fixtures from fsys. Tests use it with fstest.MapFS.
func NewFixtureSourceFS(fsys fs.FS) *FixtureSource {
	return &FixtureSource{fsys: fsys}
}

// DomainScan returns the domain fixture.
func (f *FixtureSource) DomainScan(ctx context.Context, _ string) (ScanResult, error) {
	var result ScanResult
	err := f.load(ctx, DomainFixtureFile, &result)
	return result, err
}

// EmailScan returns the email leak fixture.
func (f *FixtureSource) EmailScan(ctx context.Context, _ string) (EmailLeakResult, error) {
	var result EmailLeakResult
	err := f.load(ctx, EmailFixtureFile, &result)
	return result, err
}

func (f *FixtureSource) load(ctx context.Context, name string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := fs.ReadFile(f.fsys, name)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", sharedErrors.ErrFixtureUnavailable, name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", sharedErrors.ErrMalformedResponse, name, err)
	}
	return nil
}

type overlayFS struct {
	primary  fs.FS
	fallback fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	file, err := o.primary.Open(name)
	if err == nil {
		return file, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return o.fallback.Open(name)
	}
	return nil, err
}
