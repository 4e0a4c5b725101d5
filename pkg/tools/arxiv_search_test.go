package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tooltypes "github.com/abonvalle/hf-agent-course/pkg/types/tools"
)

const arxivFeedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <title>Attention Is All
 You Need</title>
    <summary>The dominant sequence transduction models are based on complex recurrent or
convolutional neural networks.</summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <title>BERT: Pre-training of Deep Bidirectional Transformers</title>
    <summary>%s</summary>
    <published>2018-10-11T00:50:01Z</published>
  </entry>
</feed>`

func TestArxivSearchExecute(t *testing.T) {
	longAbstract := strings.Repeat("word ", 400)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all:attention", r.URL.Query().Get("search_query"))
		assert.Equal(t, "3", r.URL.Query().Get("max_results"))
		fmt.Fprintf(w, arxivFeedFixture, longAbstract)
	}))
	defer server.Close()

	tool := &ArxivSearchTool{endpoint: server.URL}
	result := tool.Execute(context.TODO(), nil, `{"query":"attention"}`)
	require.False(t, result.IsError(), result.GetError())

	output := result.GetResult()
	// Whitespace inside feed fields is normalised
	assert.Contains(t, output, `title="Attention Is All You Need"`)
	assert.Contains(t, output, `source="http://arxiv.org/abs/1706.03762v7"`)
	assert.Contains(t, output, "The dominant sequence transduction models")
	assert.Contains(t, output, "Authors: Ashish Vaswani, Noam Shazeer")
	assert.Contains(t, output, "Published: 2017-06-12T17:57:34Z")

	var meta tooltypes.ArxivSearchMetadata
	require.True(t, tooltypes.ExtractMetadata(result.StructuredData().Metadata, &meta))
	require.Len(t, meta.Results, 2)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, meta.Results[0].Authors)
	// Long abstracts are capped
	assert.LessOrEqual(t, len(meta.Results[1].Summary), arxivMaxChars+3)
	assert.True(t, strings.HasSuffix(meta.Results[1].Summary, "..."))
}

func TestArxivSearchEmptyFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`)
	}))
	defer server.Close()

	tool := &ArxivSearchTool{endpoint: server.URL}
	result := tool.Execute(context.TODO(), nil, `{"query":"zzzz"}`)

	require.False(t, result.IsError())
	assert.Equal(t, "No results found.", result.GetResult())
}

func TestArxivSearchValidateInput(t *testing.T) {
	tool := &ArxivSearchTool{}

	assert.Error(t, tool.ValidateInput(nil, `{"query":" "}`))
	assert.NoError(t, tool.ValidateInput(nil, `{"query":"transformers"}`))
}
