package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/coachkit/coachplane/internal/config"
	"github.com/coachkit/coachplane/internal/knowledge"
	"github.com/spf13/cobra"
)

var (
	knowledgeSource       string
	knowledgeIndexPath    string
	knowledgeChunkSize    int
	knowledgeChunkOverlap int
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the evidence knowledge base",
}

var knowledgeIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index a YAML document source into an on-disk bleve index",
	RunE:  runKnowledgeIndex,
}

func init() {
	defaults := knowledge.DefaultChunkerConfig()
	f := knowledgeIndexCmd.Flags()
	f.StringVar(&knowledgeSource, "source", "", "YAML document source (default KNOWLEDGE_SOURCE)")
	f.StringVar(&knowledgeIndexPath, "index", "", "index directory (default KNOWLEDGE_INDEX_PATH)")
	f.IntVar(&knowledgeChunkSize, "chunk-size", defaults.ChunkSize, "maximum characters per chunk")
	f.IntVar(&knowledgeChunkOverlap, "chunk-overlap", defaults.ChunkOverlap, "characters shared by consecutive chunks")
	knowledgeCmd.AddCommand(knowledgeIndexCmd)
}

func runKnowledgeIndex(cmd *cobra.Command, args []string) error {
	cfg := config.Load().Knowledge
	if knowledgeSource == "" {
		knowledgeSource = cfg.Source
	}
	if knowledgeIndexPath == "" {
		knowledgeIndexPath = cfg.IndexPath
	}
	if knowledgeSource == "" || knowledgeIndexPath == "" {
		return errors.New("both --source and --index are required")
	}

	index, err := knowledge.OpenIndex(knowledgeIndexPath)
	if err != nil {
		return err
	}
	defer index.Close()

	ing := knowledge.NewIngester(index, knowledge.ChunkerConfig{
		ChunkSize:    knowledgeChunkSize,
		ChunkOverlap: knowledgeChunkOverlap,
	})
	res, err := ing.IngestFile(cmd.Context(), knowledgeSource)
	if err != nil {
		return err
	}

	total, err := index.DocCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents as %d chunks in %s (%d chunks in index)\n",
		res.Documents, res.Chunks, res.Elapsed.Round(time.Millisecond), total)
	return nil
}
