package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTagRules(t *testing.T) {
	t.Run("semicolon delimited export", func(t *testing.T) {
		path := writeFile(t, "tag_rules.csv",
			"Hovedkategori;Underkategori;Beskrivelse;Relevante tilbudseksempler\n"+
				"Kultur;Musik;Koncerter og musikarrangementer;Jazzaften, Fællessang\n"+
				"Læring;Foredrag;Oplæg og foredrag;\n")

		reg, err := LoadTagRules(path)
		require.NoError(t, err)

		assert.Equal(t, 2, reg.Len())
		assert.Equal(t, []string{"FOREDRAG", "MUSIK"}, reg.Names())

		rule, ok := reg.Rule("MUSIK")
		require.True(t, ok)
		assert.Equal(t, "Kultur", rule.MainCategory)
		assert.Equal(t, "Koncerter og musikarrangementer", rule.Description)
		assert.Equal(t, []string{"Jazzaften", "Fællessang"}, rule.Examples)
	})

	t.Run("comma delimited export", func(t *testing.T) {
		reg, err := ReadTagRules(strings.NewReader(
			"Hovedkategori,Underkategori,Beskrivelse\n" +
				"Kultur,Musik,Koncerter\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"MUSIK"}, reg.Names())
	})

	t.Run("rows without a subcategory are skipped", func(t *testing.T) {
		reg, err := ReadTagRules(strings.NewReader(
			"Hovedkategori;Underkategori;Beskrivelse\n" +
				"Kultur;Musik;Koncerter\n" +
				"Kultur;;Uden underkategori\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("missing required column", func(t *testing.T) {
		_, err := ReadTagRules(strings.NewReader("Hovedkategori;Underkategori\nKultur;Musik\n"))
		assert.ErrorIs(t, err, ErrMissingColumn)
	})
}

func TestLoadLabeledEvents(t *testing.T) {
	t.Run("full export", func(t *testing.T) {
		path := writeFile(t, "labeled_events.csv",
			"ArrangementNummer;ArrangementTitel;arrangør;nc_Teaser;CleanText;ArrangementUndertype;Underkategori1;Underkategori2;Underkategori3\n"+
				"1001;Jazzkoncert i parken;Kulturhuset;Gratis koncert;Tag familien med;Koncert;Musik;Koncert;\n"+
				"1002;Strikkecafé;Biblioteket;;;Værksted;Kreative fag;;\n")

		events, err := LoadLabeledEvents(path)
		require.NoError(t, err)
		require.Len(t, events, 2)

		first := events[0]
		assert.Equal(t, "1001", first.Event.ID)
		assert.Equal(t, "Jazzkoncert i parken", first.Event.Title)
		assert.Equal(t, "Kulturhuset", first.Event.Organizer)
		assert.Equal(t, "Gratis koncert", first.Event.Teaser)
		assert.Equal(t, "Tag familien med", first.Event.Description)
		assert.Equal(t, []string{"MUSIK", "KONCERT"}, first.Truth.Tags)

		assert.Equal(t, []string{"KREATIVE_FAG"}, events[1].Truth.Tags)
	})

	t.Run("rows without title or tags are skipped", func(t *testing.T) {
		events, err := ReadLabeledEvents(strings.NewReader(
			"ArrangementNummer;ArrangementTitel;Underkategori1\n" +
				"1001;;Musik\n" +
				"1002;Foredrag om rummet;\n" +
				"1003;Jazzkoncert;Musik\n"))
		require.NoError(t, err)

		require.Len(t, events, 1)
		assert.Equal(t, "1003", events[0].Event.ID)
	})

	t.Run("comma delimited export", func(t *testing.T) {
		events, err := ReadLabeledEvents(strings.NewReader(
			"ArrangementNummer,ArrangementTitel,Underkategori1\n" +
				"1001,Jazzkoncert,Musik\n"))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, []string{"MUSIK"}, events[0].Truth.Tags)
	})

	t.Run("byte order mark is tolerated", func(t *testing.T) {
		events, err := ReadLabeledEvents(strings.NewReader(
			"\ufeffArrangementNummer;ArrangementTitel;Underkategori1\n" +
				"1001;Jazzkoncert;Musik\n"))
		require.NoError(t, err)
		require.Len(t, events, 1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadLabeledEvents(filepath.Join(t.TempDir(), "absent.csv"))
		assert.Error(t, err)
	})
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', sniffDelimiter("a;b;c\n1;2;3\n"))
	assert.Equal(t, ',', sniffDelimiter("a,b,c\n1,2,3\n"))
	assert.Equal(t, ';', sniffDelimiter("single\n"), "semicolon wins a tie")
}
