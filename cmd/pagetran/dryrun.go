package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ZaguanLabs/pagetran"
	"github.com/ZaguanLabs/pagetran/processor"
)

type dryRunSpan struct {
	Kind    pagetran.SpanKind `json:"kind"`
	Attr    string            `json:"attr,omitempty"`
	Text    string            `json:"text"`
	Context string            `json:"context,omitempty"`
}

type dryRunFile struct {
	Path  string       `json:"path"`
	Spans []dryRunSpan `json:"spans"`
	Error string       `json:"error,omitempty"`
}

// dryRun lists what would be translated without calling any provider.
func dryRun(w io.Writer, proc *processor.HTMLProcessor, files []string, jsonOut bool) error {
	report := make([]dryRunFile, 0, len(files))

	for _, path := range files {
		entry := dryRunFile{Path: path, Spans: []dryRunSpan{}}

		src, err := os.ReadFile(path) // #nosec G304 - CLI tool reads user-specified files
		if err == nil {
			var doc *pagetran.Document
			doc, err = proc.Extract(path, src)
			if err == nil {
				for _, s := range doc.Spans {
					entry.Spans = append(entry.Spans, dryRunSpan{Kind: s.Kind, Attr: s.Attr, Text: s.Text, Context: s.Context})
				}
			}
		}
		if err != nil {
			entry.Error = pagetran.FailureReason(err)
		}
		report = append(report, entry)
	}

	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	for _, entry := range report {
		if entry.Error != "" {
			fmt.Fprintf(w, "%s: %s\n", entry.Path, entry.Error)
			continue
		}
		fmt.Fprintf(w, "%s: %d translatable span(s)\n", entry.Path, len(entry.Spans))
		for i, s := range entry.Spans {
			text := s.Text
			if r := []rune(text); len(r) > 60 {
				text = string(r[:57]) + "..."
			}
			label := ""
			if s.Attr != "" {
				label = " [" + s.Attr + "]"
			}
			fmt.Fprintf(w, "%4d.%s %q\n", i+1, label, text)
		}
	}
	return nil
}
