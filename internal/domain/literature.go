package domain

// LiteratureRecord is a bibliographic record as returned by the INSPIRE literature API.
// Any field may be absent; consumers must treat the record as read-only.
type LiteratureRecord struct {
	ID       string             `json:"id"`
	Metadata LiteratureMetadata `json:"metadata"`
}

// LiteratureMetadata holds the metadata block of a LiteratureRecord.
type LiteratureMetadata struct {
	Titles          []LiteratureTitle  `json:"titles,omitempty"`
	Authors         []LiteratureAuthor `json:"authors,omitempty"`
	AuthorCount     int                `json:"author_count,omitempty"`
	PublicationInfo []PublicationInfo  `json:"publication_info,omitempty"`
	ArxivEprints    []ValueEntry       `json:"arxiv_eprints,omitempty"`
	DOIs            []ValueEntry       `json:"dois,omitempty"`
	EarliestDate    string             `json:"earliest_date,omitempty"`
	ControlNumber   int64              `json:"control_number,omitempty"`
}

// LiteratureTitle is one entry of the titles list.
type LiteratureTitle struct {
	Title  string `json:"title"`
	Source string `json:"source,omitempty"`
}

// LiteratureAuthor is one entry of the authors list.
type LiteratureAuthor struct {
	FullName string `json:"full_name"`
}

// PublicationInfo is one entry of the publication_info list.
// Year is zero when the entry does not carry one.
type PublicationInfo struct {
	PubinfoFreetext string `json:"pubinfo_freetext,omitempty"`
	JournalTitle    string `json:"journal_title,omitempty"`
	JournalVolume   string `json:"journal_volume,omitempty"`
	ArtID           string `json:"artid,omitempty"`
	Year            int    `json:"year,omitempty"`
}

// ValueEntry is the {value} shape shared by arxiv_eprints and dois.
type ValueEntry struct {
	Value string `json:"value"`
}

// Title returns the first title of the record, or an empty string.
func (r *LiteratureRecord) Title() string {
	if r == nil || len(r.Metadata.Titles) == 0 {
		return ""
	}
	return r.Metadata.Titles[0].Title
}
