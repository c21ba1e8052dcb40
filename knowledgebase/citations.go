package knowledgebase

import (
	"ragkb"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// Metadata keys Bedrock attaches to every retrieved chunk.
const (
	MetadataSourceURI = "x-amz-bedrock-kb-source-uri"
	MetadataTitle     = "x-amz-bedrock-kb-title"
	MetadataUserTitle = "title"
)

// Records converts provider citations, one record per citation.
// The first retrieved reference of a citation identifies the document.
func Records(citations []types.Citation) []ragkb.CitationRecord {
	records := make([]ragkb.CitationRecord, 0, len(citations))
	for _, c := range citations {
		var record ragkb.CitationRecord
		if part := c.GeneratedResponsePart; part != nil && part.TextResponsePart != nil {
			record.Content = part.TextResponsePart.Text
		}
		if len(c.RetrievedReferences) > 0 {
			ref := c.RetrievedReferences[0]
			record.DocumentID = documentID(ref)
			record.Title = title(ref.Metadata)
			if ref.Content != nil {
				record.ChunkText = ref.Content.Text
			}
		}
		records = append(records, record)
	}
	return records
}

func documentID(ref types.RetrievedReference) string {
	if loc := ref.Location; loc != nil {
		switch {
		case loc.S3Location != nil && loc.S3Location.Uri != nil:
			return *loc.S3Location.Uri
		case loc.WebLocation != nil && loc.WebLocation.Url != nil:
			return *loc.WebLocation.Url
		case loc.ConfluenceLocation != nil && loc.ConfluenceLocation.Url != nil:
			return *loc.ConfluenceLocation.Url
		case loc.SalesforceLocation != nil && loc.SalesforceLocation.Url != nil:
			return *loc.SalesforceLocation.Url
		case loc.SharePointLocation != nil && loc.SharePointLocation.Url != nil:
			return *loc.SharePointLocation.Url
		}
	}
	return aws.ToString(metadataString(ref.Metadata, MetadataSourceURI))
}

func title(metadata map[string]document.Interface) *string {
	if t := metadataString(metadata, MetadataUserTitle); t != nil {
		return t
	}
	return metadataString(metadata, MetadataTitle)
}

// metadataString returns nil unless the value is a non empty string.
func metadataString(metadata map[string]document.Interface, key string) *string {
	v, ok := metadata[key]
	if !ok || v == nil {
		return nil
	}
	var s string
	if err := v.UnmarshalSmithyDocument(&s); err != nil || s == "" {
		return nil
	}
	return &s
}
