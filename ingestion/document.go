// Package ingestion converts heterogeneous sources (local files, fetched web
// pages) into raw documents and bounded, overlapping chunks ready for
// embedding. Individual source failures are absorbed and reported per source;
// they never abort the rest of a batch.
package ingestion

// Metadata keys recognized across the pipeline.
const (
	MetaSource   = "source"
	MetaFilePath = "file_path"
	MetaTitle    = "title"
	MetaRow      = "row"
)

// RawDocument is an immutable unit of loaded text. Metadata always carries at
// least a "source" entry identifying where the content came from.
type RawDocument struct {
	Content  string
	Metadata map[string]string
}

// Chunk is a bounded-size slice of a RawDocument's content. It carries a copy
// of the parent metadata so provenance survives indexing.
type Chunk struct {
	Text     string
	Metadata map[string]string
}

func copyMetadata(src map[string]string) map[string]string {
	if src == nil {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
