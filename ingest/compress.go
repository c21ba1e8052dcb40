package ingest

// CompressChunks joins consecutive chunks until the combined text is longer
// than size. The last group is kept whatever its length.
func CompressChunks(chunks []Chunk, size int) []Chunk {
	result := make([]Chunk, 0, len(chunks))
	combined := ""
	for i, chunk := range chunks {
		combined += chunk.Text
		if len(combined) > size || i == len(chunks)-1 {
			result = append(result, Chunk{Text: combined})
			combined = ""
		}
	}
	return result
}
