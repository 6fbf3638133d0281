package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vallemsec/spectra-web/internal/render"
	"github.com/vallemsec/spectra-web/internal/shared/constants"
	"github.com/vallemsec/spectra-web/internal/target"
)

const (
	contentTypeHTML     = "text/html; charset=utf-8"
	contentTypeMarkdown = "text/markdown; charset=utf-8"
	contentTypePDF      = "application/pdf"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, r, http.StatusNotFound, errors.New("not found"))
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.methodNotAllowed(w, r)
		return
	}
	page := render.IndexPage{Targets: target.FromRequest(r)}
	if s.cfg.Reports != nil {
		page.Posts = s.cfg.Reports.LatestPosts(r.Context())
	}
	s.writeRendered(w, r, contentTypeHTML, "", func(out io.Writer) error {
		return render.Index(out, page)
	})
}

// handleScan turns the form submission into a results URL.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBytes)
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("invalid form"))
		return
	}
	t := target.Extract(r.PostForm)
	http.Redirect(w, r, "/results?"+t.Query(), http.StatusSeeOther)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	s.writeRendered(w, r, contentTypeHTML, "", func(out io.Writer) error {
		return render.Results(out, rep)
	})
}

func (s *Server) handleResultsMarkdown(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	s.writeRendered(w, r, contentTypeMarkdown, exportName(rep, "md"), func(out io.Writer) error {
		return render.Markdown(out, rep)
	})
}

func (s *Server) handleResultsPDF(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	s.writeRendered(w, r, contentTypePDF, exportName(rep, "pdf"), func(out io.Writer) error {
		return render.PDF(out, rep)
	})
}

// report runs the scans for the request's query string.
func (s *Server) report(w http.ResponseWriter, r *http.Request) (*render.Report, bool) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.methodNotAllowed(w, r)
		return nil, false
	}
	if s.cfg.Reports == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("report service not available"))
		return nil, false
	}
	return s.cfg.Reports.Run(r.Context(), target.FromRequest(r)), true
}

// writeRendered buffers the document so a rendering failure becomes a 500
// instead of a truncated page.
func (s *Server) writeRendered(w http.ResponseWriter, r *http.Request, contentType, filename string, fn func(io.Writer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	if filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(buf.Bytes())
}

func exportName(rep *render.Report, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, rep.Targets.Domain)
	if name == "" {
		name = "scan"
	}
	return fmt.Sprintf("spectra-%s.%s", name, ext)
}
