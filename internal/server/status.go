package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/focusd/internal/logfields"
	"git.home.luguber.info/inful/focusd/internal/version"
)

var serverStart = time.Now()

// handleStatus renders a small human-readable status page. The body is
// assembled as markdown and converted to HTML; ?format=markdown returns the
// raw source for terminal use.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	running, err := s.svc.RunningIntervals(r.Context())
	if err != nil {
		s.logger.Warn("Status page running count", logfields.Error(err))
		running = -1
	}

	var md bytes.Buffer
	fmt.Fprintf(&md, "# focusd\n\n")
	fmt.Fprintf(&md, "Work and break interval tracker.\n\n")
	fmt.Fprintf(&md, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&md, "| Version | %s |\n", version.Version)
	fmt.Fprintf(&md, "| Uptime | %s |\n", time.Since(serverStart).Round(time.Second))
	if running >= 0 {
		fmt.Fprintf(&md, "| Running intervals | %d |\n", running)
	}
	fmt.Fprintf(&md, "\nAPI under `/api/v1/intervals`; health at `/healthz`.\n")

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write(md.Bytes())
		return
	}

	var html bytes.Buffer
	html.WriteString("<!DOCTYPE html><html><head><title>focusd</title></head><body>")
	if err := goldmark.Convert(md.Bytes(), &html); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	html.WriteString("</body></html>")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html.Bytes())
}
