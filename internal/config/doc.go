// Package config resolves the runtime configuration of spectra-web.
//
// The environment discriminator is read once at startup and folded into an
// explicit Config value that is passed to the scan source and the renderer.
// Unknown or missing values select fixture mode; they are never fatal.
package config
