package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor()

	text, err := e.Extract([]byte("사회자: 안녕하세요\n참석자: 네"), "meeting.txt")
	require.NoError(t, err)
	assert.Equal(t, "사회자: 안녕하세요\n참석자: 네", text)
}

func TestExtractMarkdownAndNoExtension(t *testing.T) {
	e := NewExtractor()

	text, err := e.Extract([]byte("# notes"), "meeting.md")
	require.NoError(t, err)
	assert.Equal(t, "# notes", text)

	text, err = e.Extract([]byte("raw transcript"), "transcript")
	require.NoError(t, err)
	assert.Equal(t, "raw transcript", text)
}

func TestExtractInvalidUTF8Replaced(t *testing.T) {
	e := NewExtractor()

	text, err := e.Extract([]byte{'o', 'k', 0xff, 0xfe}, "broken.txt")
	require.NoError(t, err)
	assert.Contains(t, text, "ok")
	assert.NotContains(t, text, string([]byte{0xff}))
}

func TestExtractUnsupportedType(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract([]byte("%PDF-1.4"), "meeting.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = e.Extract([]byte("binary"), "meeting.hwp")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractDOCX(t *testing.T) {
	docXML := `<?xml version="1.0"?><w:document>` +
		`<w:body>` +
		`<w:p><w:r><w:t>사회자: 회의를 시작합니다</w:t></w:r></w:p>` +
		`<w:p w:rsidR="00A"><w:r><w:t xml:space="preserve">참석자: </w:t></w:r><w:r><w:t>네</w:t></w:r></w:p>` +
		`<w:p></w:p>` +
		`</w:body></w:document>`

	e := NewExtractor()
	text, err := e.Extract(buildDocx(t, docXML), "meeting.docx")
	require.NoError(t, err)
	assert.Equal(t, "사회자: 회의를 시작합니다\n참석자: 네", text)
}

func TestExtractDOCXUnescapesEntities(t *testing.T) {
	docXML := `<?xml version="1.0"?><w:document><w:body>` +
		`<w:p><w:r><w:t>영업 &amp; 마케팅</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>목표 &lt; 10억 &gt; 5억</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	e := NewExtractor()
	text, err := e.Extract(buildDocx(t, docXML), "meeting.docx")
	require.NoError(t, err)
	assert.Equal(t, "영업 & 마케팅\n목표 < 10억 > 5억", text)
}

func TestExtractDOCXNotAZip(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract([]byte("definitely not a zip"), "meeting.docx")
	assert.Error(t, err)
}

func TestExtractDOCXMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<w:t>hidden</w:t>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	e := NewExtractor()
	_, err = e.Extract(buf.Bytes(), "meeting.docx")
	assert.Error(t, err)
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
