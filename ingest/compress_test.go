package ingest_test

import (
	"strings"
	"testing"

	"ragkb/ingest"

	"gotest.tools/v3/assert"
)

func TestCompressChunks(t *testing.T) {
	inputTable := []ingest.Chunk{
		{Text: strings.Repeat("a", 187)},
		{Text: strings.Repeat("b", 95)},
		{Text: strings.Repeat("c", 67)},
		{Text: strings.Repeat("d", 38)},
	}

	// Size is larger than input 1, so 1 and 2 should be combined
	result := ingest.CompressChunks(inputTable[:2], 200)
	assert.Equal(t, len(result), 1)
	assert.Equal(t, result[0].Text, inputTable[0].Text+inputTable[1].Text)

	// 187+95=282 > 200 closes the first group, 67+38 is the tail
	result = ingest.CompressChunks(inputTable, 200)
	assert.Equal(t, len(result), 2)
	assert.Equal(t, len(result[0].Text), 282)
	assert.Equal(t, len(result[1].Text), 105)

	// Every chunk on its own is already too long
	result = ingest.CompressChunks(inputTable, 10)
	assert.Equal(t, len(result), 4)
}

func TestCompressChunksEmpty(t *testing.T) {
	assert.Equal(t, len(ingest.CompressChunks(nil, 300)), 0)
}
