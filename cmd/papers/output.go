package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
	"github.com/czczc/inspire-papers-viewer/internal/resolver"
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

func optional(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}

func printSmallPaper(p *domain.SmallPaper) {
	year := "-"
	if p.Year != nil {
		year = fmt.Sprint(*p.Year)
	}
	outputHuman("%s  %-12s  %s  %s\n", p.ID, p.ArxivID, year, p.Title)
	outputHuman("    authors: %s | publication: %s | added by %s\n", optional(p.Authors), optional(p.Publication), p.AddedBy)
}

func printRendered(r resolver.Rendered) {
	outputHuman("%s\n", r.Title)
	outputHuman("    %s | %s\n", r.Authors, r.PublicationInfo)
	outputHuman("    %s\n", r.RecordURL)
	if r.ArxivURL != nil {
		outputHuman("    %s\n", *r.ArxivURL)
	}
	if r.DOIURL != nil {
		outputHuman("    %s\n", *r.DOIURL)
	}
}
