package gloss

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/formations/internal/fileutil"
	"github.com/FocuswithJustin/formations/internal/store"
)

const lexicalIndex = `<?xml version="1.0" encoding="UTF-8"?>
<index xmlns="http://openscriptures.github.com/morphhb/namespace">
  <part xml:lang="heb">
    <entry id="a">
      <w xlit="ʼâb">אָב</w>
      <pos>N</pos>
      <def>father</def>
      <xref twot="4a" strong="1"/>
    </entry>
    <entry id="bbb">
      <w xlit="bârâʼ">בָּרָא</w>
      <pos>V</pos>
      <def>to create</def>
      <xref strong="1254" aug="a"/>
    </entry>
    <entry id="xyz">
      <w xlit="none">אאא</w>
      <def>unnumbered</def>
      <xref twot="1"/>
    </entry>
    <entry id="noxref"><def>no xref at all</def></entry>
  </part>
</index>`

func TestParse(t *testing.T) {
	gs, err := Parse(strings.NewReader(lexicalIndex))
	require.NoError(t, err)
	assert.Equal(t, []store.Gloss{
		{EntryID: "a", Strong: "1", Xlit: "ʼâb", POS: "N", Def: "father"},
		{EntryID: "bbb", Strong: "1254a", Xlit: "bârâʼ", POS: "V", Def: "to create"},
	}, gs)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse(strings.NewReader("<index><part>"))
	assert.Error(t, err)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(ctx))

	path := filepath.Join(t.TempDir(), "LexicalIndex.xml.xz")
	w, err := fileutil.Create(path)
	require.NoError(t, err)
	_, err = w.WriteString(lexicalIndex)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	for range 2 {
		n, err := Import(ctx, s, path)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	}
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Glosses, "re-import replaces the table")

	_, err = Import(ctx, s, filepath.Join(t.TempDir(), "missing.xml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
