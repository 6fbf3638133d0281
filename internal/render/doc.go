// Package render runs the scans for a target and turns the settled report
// into an HTML page, a markdown document or a PDF.
//
// Every section of a Report is either pending, success or failed. Scan text
// only ever reaches the page through html/template, so problem and leak
// fields are escaped.
package render
