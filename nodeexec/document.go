package nodeexec

import (
	"context"

	"github.com/ravel-run/agentgraph/document"
	"github.com/ravel-run/agentgraph/graphmodel"
	"github.com/ravel-run/agentgraph/splitter"
	"github.com/ravel-run/agentgraph/wfcontext"
)

// executeDocumentLoader dispatches to the document package's registered
// loader for the node's configured document_type. When the node config
// names a split_strategy, the loaded content is also chunked and attached
// under "chunks" — the document-loader/splitter pairing SPEC_FULL.md's
// embedding pipeline expects upstream of EmbeddingService.
func executeDocumentLoader(ctx context.Context, node graphmodel.Node, wctx *wfcontext.WorkflowContext) (interface{}, error) {
	cfg := NewConfig(node.Config)
	docType, err := cfg.ConfigString("document_type")
	if err != nil {
		return nil, err
	}
	sourcePath, err := cfg.ConfigString("source_path")
	if err != nil {
		return nil, err
	}

	maxFileSize := int64(cfg.ConfigFloatOr("max_file_size", float64(document.DefaultMaxFileSize)))

	doc, err := document.DispatchLoader(ctx, docType, sourcePath, maxFileSize)
	if err != nil {
		return nil, err
	}

	out := map[string]interface{}{
		"source":        doc.Source,
		"document_type": doc.DocumentType,
		"source_path":   doc.Source,
		"content":       doc.Content,
		"file_size":     doc.FileSize,
		"metadata":      doc.Metadata,
		"extracted_at":  doc.ExtractedAt,
	}

	if strategy := cfg.ConfigStringOr("split_strategy", ""); strategy != "" {
		chunkSize := int(cfg.ConfigFloatOr("chunk_size", 1000))
		chunkOverlap := int(cfg.ConfigFloatOr("chunk_overlap", 100))
		s, err := splitter.NewByStrategy(strategy, splitter.Config{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap})
		if err != nil {
			return nil, err
		}
		chunks, err := s.Split(doc.Content)
		if err != nil {
			return nil, err
		}
		out["chunks"] = chunks
	}

	return out, nil
}
