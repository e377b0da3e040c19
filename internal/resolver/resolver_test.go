package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
)

func authors(names ...string) []domain.LiteratureAuthor {
	out := make([]domain.LiteratureAuthor, len(names))
	for i, n := range names {
		out[i] = domain.LiteratureAuthor{FullName: n}
	}
	return out
}

func values(vs ...string) []domain.ValueEntry {
	out := make([]domain.ValueEntry, len(vs))
	for i, v := range vs {
		out[i] = domain.ValueEntry{Value: v}
	}
	return out
}

func TestAuthorCitation(t *testing.T) {
	tests := []struct {
		name     string
		record   *domain.LiteratureRecord
		expected string
	}{
		{
			name:     "nil record",
			record:   nil,
			expected: "N/A",
		},
		{
			name:     "no authors",
			record:   &domain.LiteratureRecord{},
			expected: "N/A",
		},
		{
			name:     "single author",
			record:   &domain.LiteratureRecord{Metadata: domain.LiteratureMetadata{Authors: authors("A. Smith")}},
			expected: "A. Smith",
		},
		{
			name:     "two authors",
			record:   &domain.LiteratureRecord{Metadata: domain.LiteratureMetadata{Authors: authors("A. Smith", "B. Jones")}},
			expected: "A. Smith et al.",
		},
		{
			name:     "later authors are ignored",
			record:   &domain.LiteratureRecord{Metadata: domain.LiteratureMetadata{Authors: authors("A. Smith", "", "C. Doe")}},
			expected: "A. Smith et al.",
		},
		{
			name:     "single author without name",
			record:   &domain.LiteratureRecord{Metadata: domain.LiteratureMetadata{Authors: authors("")}},
			expected: "N/A",
		},
		{
			name:     "unnamed first author with co-authors",
			record:   &domain.LiteratureRecord{Metadata: domain.LiteratureMetadata{Authors: authors("", "B. Jones")}},
			expected: "N/A et al.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AuthorCitation(tt.record))
		})
	}
}

func TestPublicationInfo(t *testing.T) {
	tests := []struct {
		name     string
		metadata domain.LiteratureMetadata
		expected string
	}{
		{
			name:     "nothing at all",
			metadata: domain.LiteratureMetadata{},
			expected: "N/A",
		},
		{
			name: "no publication info falls back to arxiv with earliest year",
			metadata: domain.LiteratureMetadata{
				ArxivEprints: values("2101.00001"),
				EarliestDate: "2021-03-01",
			},
			expected: "arXiv:2101.00001 (2021)",
		},
		{
			name: "no publication info and no earliest date",
			metadata: domain.LiteratureMetadata{
				ArxivEprints: values("2101.00001"),
			},
			expected: "arXiv:2101.00001",
		},
		{
			name: "no publication info and no arxiv",
			metadata: domain.LiteratureMetadata{
				EarliestDate: "2021-03-01",
			},
			expected: "N/A",
		},
		{
			name: "short earliest date is used whole",
			metadata: domain.LiteratureMetadata{
				ArxivEprints: values("2101.00001"),
				EarliestDate: "21",
			},
			expected: "arXiv:2101.00001 (21)",
		},
		{
			name: "freetext wins over everything",
			metadata: domain.LiteratureMetadata{
				PublicationInfo: []domain.PublicationInfo{{
					PubinfoFreetext: "Phys. Rev. D 1 (2020)",
					JournalTitle:    "JHEP",
					Year:            2022,
				}},
				ArxivEprints: values("2101.00001"),
			},
			expected: "Phys. Rev. D 1 (2020)",
		},
		{
			name: "journal with volume and artid",
			metadata: domain.LiteratureMetadata{
				PublicationInfo: []domain.PublicationInfo{{
					JournalTitle:  "JHEP",
					JournalVolume: "05",
					ArtID:         "123",
					Year:          2022,
				}},
			},
			expected: "JHEP 05, 123 (2022)",
		},
		{
			name: "journal with volume only",
			metadata: domain.LiteratureMetadata{
				PublicationInfo: []domain.PublicationInfo{{
					JournalTitle:  "JHEP",
					JournalVolume: "05",
					Year:          2022,
				}},
			},
			expected: "JHEP 05 (2022)",
		},
		{
			name: "journal with artid only",
			metadata: domain.LiteratureMetadata{
				PublicationInfo: []domain.PublicationInfo{{
					JournalTitle: "Phys.Rev.D",
					ArtID:        "012001",
					Year:         2019,
				}},
			},
			expected: "Phys.Rev.D, 012001 (2019)",
		},
		{
			name: "journal without year falls back to arxiv with earliest year",
			metadata: domain.LiteratureMetadata{
				PublicationInfo: []domain.PublicationInfo{{JournalTitle: "JHEP"}},
				ArxivEprints:    values("1901.00002"),
				EarliestDate:    "2019-01-05",
			},
			expected: "arXiv:1901.00002 (2019)",
		},
		{
			name: "entry year takes precedence over earliest date in arxiv fallback",
			metadata: domain.LiteratureMetadata{
				PublicationInfo: []domain.PublicationInfo{{Year: 2020}},
				ArxivEprints:    values("1901.00002"),
				EarliestDate:    "2019-01-05",
			},
			expected: "arXiv:1901.00002 (2020)",
		},
		{
			name: "arxiv fallback without any year",
			metadata: domain.LiteratureMetadata{
				PublicationInfo: []domain.PublicationInfo{{JournalVolume: "12"}},
				ArxivEprints:    values("1901.00002"),
			},
			expected: "arXiv:1901.00002",
		},
		{
			name: "literal N/A year is omitted in entry fallback",
			metadata: domain.LiteratureMetadata{
				PublicationInfo: []domain.PublicationInfo{{}},
				ArxivEprints:    values("1901.00002"),
				EarliestDate:    "N/A",
			},
			expected: "arXiv:1901.00002",
		},
		{
			name: "entry without usable fields and no arxiv",
			metadata: domain.LiteratureMetadata{
				PublicationInfo: []domain.PublicationInfo{{JournalTitle: "JHEP"}},
			},
			expected: "N/A",
		},
		{
			name: "only the first entry is consulted",
			metadata: domain.LiteratureMetadata{
				PublicationInfo: []domain.PublicationInfo{
					{},
					{PubinfoFreetext: "ignored"},
				},
			},
			expected: "N/A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &domain.LiteratureRecord{Metadata: tt.metadata}
			assert.Equal(t, tt.expected, PublicationInfo(rec))
		})
	}

	t.Run("nil record", func(t *testing.T) {
		assert.Equal(t, "N/A", PublicationInfo(nil))
	})
}

func TestLinks(t *testing.T) {
	t.Run("empty record yields sentinels", func(t *testing.T) {
		rec := &domain.LiteratureRecord{}

		doi, ok := DOILink(rec)
		assert.False(t, ok)
		assert.Empty(t, doi)

		arxiv, ok := ArxivLink(rec)
		assert.False(t, ok)
		assert.Empty(t, arxiv)

		assert.Equal(t, "#", RecordLink(rec))
	})

	t.Run("nil record yields sentinels", func(t *testing.T) {
		_, ok := DOILink(nil)
		assert.False(t, ok)
		_, ok = ArxivLink(nil)
		assert.False(t, ok)
		assert.Equal(t, "#", RecordLink(nil))
	})

	t.Run("first identifiers are used", func(t *testing.T) {
		rec := &domain.LiteratureRecord{
			ID: "1812345",
			Metadata: domain.LiteratureMetadata{
				DOIs:         values("10.1103/PhysRevD.1.1", "10.9999/other"),
				ArxivEprints: values("2101.00001", "2101.99999"),
			},
		}

		doi, ok := DOILink(rec)
		require.True(t, ok)
		assert.Equal(t, "https://doi.org/10.1103/PhysRevD.1.1", doi)

		arxiv, ok := ArxivLink(rec)
		require.True(t, ok)
		assert.Equal(t, "https://arxiv.org/abs/2101.00001", arxiv)

		assert.Equal(t, "https://inspirehep.net/literature/1812345", RecordLink(rec))
	})

	t.Run("empty identifier values count as absent", func(t *testing.T) {
		rec := &domain.LiteratureRecord{
			Metadata: domain.LiteratureMetadata{
				DOIs:         values(""),
				ArxivEprints: values(""),
			},
		}

		_, ok := DOILink(rec)
		assert.False(t, ok)
		_, ok = ArxivLink(rec)
		assert.False(t, ok)
	})
}

func TestResolversDoNotMutateRecord(t *testing.T) {
	rec := &domain.LiteratureRecord{
		ID: "1",
		Metadata: domain.LiteratureMetadata{
			Authors:         authors("A. Smith", "B. Jones"),
			PublicationInfo: []domain.PublicationInfo{{JournalTitle: "JHEP", Year: 2022}},
			ArxivEprints:    values("2101.00001"),
			DOIs:            values("10.1/x"),
			EarliestDate:    "2021-01-01",
		},
	}
	before := *rec
	before.Metadata.Authors = append([]domain.LiteratureAuthor(nil), rec.Metadata.Authors...)

	_ = Render(rec)

	assert.Equal(t, before.ID, rec.ID)
	assert.Equal(t, before.Metadata.Authors, rec.Metadata.Authors)
	assert.Equal(t, "2021-01-01", rec.Metadata.EarliestDate)
}

func TestRender(t *testing.T) {
	rec := &domain.LiteratureRecord{
		ID: "1812345",
		Metadata: domain.LiteratureMetadata{
			Titles:       []domain.LiteratureTitle{{Title: "Search for things"}},
			Authors:      authors("A. Smith", "B. Jones"),
			ArxivEprints: values("2101.00001"),
			EarliestDate: "2021-03-01",
		},
	}

	out := Render(rec)

	assert.Equal(t, "1812345", out.RecordID)
	assert.Equal(t, "Search for things", out.Title)
	assert.Equal(t, "A. Smith et al.", out.Authors)
	assert.Equal(t, "arXiv:2101.00001 (2021)", out.PublicationInfo)
	assert.Equal(t, "https://inspirehep.net/literature/1812345", out.RecordURL)
	assert.Nil(t, out.DOIURL)
	require.NotNil(t, out.ArxivURL)
	assert.Equal(t, "https://arxiv.org/abs/2101.00001", *out.ArxivURL)

	all := RenderAll([]*domain.LiteratureRecord{rec, nil})
	require.Len(t, all, 2)
	assert.Equal(t, "#", all[1].RecordURL)
	assert.Equal(t, "N/A", all[1].Authors)
}
