// Package resolver derives human-presentable fields from INSPIRE literature records.
//
// Records coming from the literature API are heterogeneous and often partially
// populated. Every function in this package is total: missing fields degrade to
// a sentinel value ("N/A", "#", or a false ok flag) and nothing ever panics or
// returns an error. Records are only read, never modified.
package resolver

import (
	"strconv"
	"strings"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
)

// Sentinel outputs and link prefixes.
const (
	NotAvailable = "N/A"
	NoLink       = "#"

	etAlSuffix        = " et al."
	arxivPrefix       = "arXiv:"
	doiBaseURL        = "https://doi.org/"
	arxivAbsBaseURL   = "https://arxiv.org/abs/"
	inspireRecordBase = "https://inspirehep.net/literature/"
)

// AuthorCitation returns the first author's full name, suffixed with " et al."
// when the record lists more than one author. A first author without a name
// still yields "N/A et al." when others follow.
func AuthorCitation(rec *domain.LiteratureRecord) string {
	if rec == nil || len(rec.Metadata.Authors) == 0 {
		return NotAvailable
	}
	authors := rec.Metadata.Authors

	first := authors[0].FullName
	if first == "" {
		first = NotAvailable
	}
	if len(authors) > 1 {
		return first + etAlSuffix
	}
	return first
}

// PublicationInfo resolves a one-line publication reference.
//
// Priority: the first publication_info entry's freetext, then
// "<journal>[ <volume>][, <artid>] (<year>)" when journal and year are both
// present, then "arXiv:<id> (<year>)". Without any of these it returns "N/A".
func PublicationInfo(rec *domain.LiteratureRecord) string {
	if rec == nil {
		return NotAvailable
	}
	md := rec.Metadata
	arxiv := firstValue(md.ArxivEprints)

	if len(md.PublicationInfo) == 0 {
		if arxiv == "" {
			return NotAvailable
		}
		if year := earliestYear(md.EarliestDate); year != "" {
			return arxivPrefix + arxiv + " (" + year + ")"
		}
		return arxivPrefix + arxiv
	}

	info := md.PublicationInfo[0]
	if info.PubinfoFreetext != "" {
		return info.PubinfoFreetext
	}

	if info.JournalTitle != "" && info.Year != 0 {
		var sb strings.Builder
		sb.WriteString(info.JournalTitle)
		if info.JournalVolume != "" {
			sb.WriteString(" ")
			sb.WriteString(info.JournalVolume)
		}
		if info.ArtID != "" {
			sb.WriteString(", ")
			sb.WriteString(info.ArtID)
		}
		sb.WriteString(" (")
		sb.WriteString(strconv.Itoa(info.Year))
		sb.WriteString(")")
		return sb.String()
	}

	if arxiv == "" {
		return NotAvailable
	}
	year := earliestYear(md.EarliestDate)
	if info.Year != 0 {
		year = strconv.Itoa(info.Year)
	}
	if year == "" || year == NotAvailable {
		return arxivPrefix + arxiv
	}
	return arxivPrefix + arxiv + " (" + year + ")"
}

// DOILink returns the doi.org URL of the record's first DOI.
func DOILink(rec *domain.LiteratureRecord) (string, bool) {
	if rec == nil {
		return "", false
	}
	doi := firstValue(rec.Metadata.DOIs)
	if doi == "" {
		return "", false
	}
	return doiBaseURL + doi, true
}

// RecordLink returns the INSPIRE permalink of the record, or "#" without an id.
func RecordLink(rec *domain.LiteratureRecord) string {
	if rec == nil || rec.ID == "" {
		return NoLink
	}
	return inspireRecordBase + rec.ID
}

// ArxivLink returns the arXiv abstract URL of the record's first eprint.
func ArxivLink(rec *domain.LiteratureRecord) (string, bool) {
	if rec == nil {
		return "", false
	}
	arxiv := firstValue(rec.Metadata.ArxivEprints)
	if arxiv == "" {
		return "", false
	}
	return arxivAbsBaseURL + arxiv, true
}

// firstValue returns the value of the first entry, or "" for an empty list.
func firstValue(entries []domain.ValueEntry) string {
	if len(entries) == 0 {
		return ""
	}
	return entries[0].Value
}

// earliestYear takes the leading four characters of an ISO-like date.
func earliestYear(date string) string {
	if len(date) < 4 {
		return date
	}
	return date[:4]
}
