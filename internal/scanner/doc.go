// Package scanner fetches scan results for a domain or email target.
//
// Client posts {"target": ...} to the external spectra scanner; email
// lookups go to the /api/emailLeaks path of the same endpoint. FixtureSource
// serves bundled JSON documents with the same shape and never touches the
// network. NewSource picks one of them from the configured mode.
//
// Failures are returned as wrapped sentinel errors from
// internal/shared/errors. Nothing is retried or cached.
package scanner
