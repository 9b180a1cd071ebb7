package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/scenedex/scenedex/pkg/errors"
)

const sampleStructuredXML = `<?xml version="1.0" encoding="UTF-8"?>
<FinalDraft DocumentType="Script" Version="5">
  <Content>
    <Paragraph Type="Scene Heading">
      <Text>INT. DINER - DAY</Text>
    </Paragraph>
    <Paragraph Type="Character">
      <Text>JOHN (V.O.)</Text>
    </Paragraph>
    <Paragraph Type="Dialogue">
      <Text>Hello there.</Text>
    </Paragraph>
    <PageBreak/>
    <Paragraph Type="Action">
      <Text>He cleans the REVOLVER slowly.</Text>
    </Paragraph>
    <Paragraph Type="Scene Heading" Page="4">
      <Text>EXT. STREET - NIGHT</Text>
    </Paragraph>
  </Content>
  <TaggedElements>
    <TaggedElement Category="Props" Name="Revolver"/>
    <TaggedElement Category="Wardrobe" Name="Trench Coat"/>
  </TaggedElements>
</FinalDraft>`

func TestParseStructuredDocument(t *testing.T) {
	doc, err := ParseStructuredDocument([]byte(sampleStructuredXML))
	require.NoError(t, err)

	require.Len(t, doc.Paragraphs, 5)
	assert.Equal(t, ParagraphSceneHeading, doc.Paragraphs[0].Type)
	assert.Equal(t, "INT. DINER - DAY", doc.Paragraphs[0].Text)
	assert.Equal(t, 1, doc.Paragraphs[0].Page)

	assert.Equal(t, "JOHN (V.O.)", doc.Paragraphs[1].Text)

	// PageBreak advances the current page.
	assert.Equal(t, 2, doc.Paragraphs[3].Page)
	// An explicit Page attribute overrides the running counter.
	assert.Equal(t, 4, doc.Paragraphs[4].Page)
	assert.Equal(t, 4, doc.PageCount)

	require.Len(t, doc.TaggedElements, 2)
	assert.Equal(t, "Props", doc.TaggedElements[0].Category)
	assert.Equal(t, "Revolver", doc.TaggedElements[0].Name)
}

func TestParseStructuredDocument_FeedsDetector(t *testing.T) {
	doc, err := ParseStructuredDocument([]byte(sampleStructuredXML))
	require.NoError(t, err)

	res, err := DetectStructured(doc, DefaultStructuredOptions())
	require.NoError(t, err)

	assert.Equal(t, EntityCharacter, findEntity(t, res, "JOHN").Type)
	assert.Equal(t, EntityLocation, findEntity(t, res, "INT. DINER - DAY").Type)
	assert.Equal(t, EntityOther, findEntity(t, res, "REVOLVER").Type)
	assert.Equal(t, DeptCostume, findEntity(t, res, "TRENCH COAT").SuggestedDepartment)
}

func TestParseStructuredDocument_RejectsDoctype(t *testing.T) {
	payload := `<?xml version="1.0"?>
<!DOCTYPE FinalDraft [<!ENTITY bomb "boom">]>
<FinalDraft><Content><Paragraph Type="Action"><Text>&bomb;</Text></Paragraph></Content></FinalDraft>`

	_, err := ParseStructuredDocument([]byte(payload))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCodeSourceRejected, appErrors.GetCode(err))
}

func TestParseStructuredDocument_RejectsEntityDeclaration(t *testing.T) {
	payload := `<?xml version="1.0"?>
<!entity x "y">
<FinalDraft/>`

	_, err := ParseStructuredDocument([]byte(payload))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCodeSourceRejected, appErrors.GetCode(err))
}

func TestParseStructuredDocument_MalformedXML(t *testing.T) {
	_, err := ParseStructuredDocument([]byte(`<FinalDraft><Paragraph Type="Action">`))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCodeScriptParseFailed, appErrors.GetCode(err))
}

func TestParseStructuredDocument_UndeclaredEntityReference(t *testing.T) {
	payload := `<FinalDraft><Content><Paragraph Type="Action"><Text>&mystery;</Text></Paragraph></Content></FinalDraft>`
	_, err := ParseStructuredDocument([]byte(payload))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCodeScriptParseFailed, appErrors.GetCode(err))
}

func TestParseStructuredDocument_Empty(t *testing.T) {
	_, err := ParseStructuredDocument([]byte(`<FinalDraft></FinalDraft>`))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCodeScriptParseFailed, appErrors.GetCode(err))
}

func TestLooksStructured(t *testing.T) {
	assert.True(t, LooksStructured([]byte(`<?xml version="1.0"?><FinalDraft/>`)))
	assert.True(t, LooksStructured([]byte("  \n<FinalDraft DocumentType=\"Script\"/>")))
	assert.False(t, LooksStructured([]byte("INT. DINER - DAY\nJOHN\nHello.")))
	assert.False(t, LooksStructured([]byte("")))
}
