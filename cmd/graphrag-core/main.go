// Command graphrag-core is the CLI entrypoint: it wires the loader, the
// knowledge-graph builder/post-processor, community detection,
// summarisation and retrieval packages into two subcommands, "index" and
// "query", the way the teacher's cli/main.go wires its own "rag"
// subcommand on top of krait. krait itself is the teacher's own vendored
// CLI-builder, not a fetchable dependency, so this entrypoint is built
// directly on cobra and pflag instead.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aqua777/graphrag-core/config"
)

var (
	cfgFile      string
	llmProvider  string
	methodName   string
	dataDirFlag  string
	question     string
	mergeMethods []string
)

func main() {
	root := &cobra.Command{
		Use:   "graphrag-core",
		Short: "GraphRAG-style knowledge graph indexing and retrieval",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the sectioned INI config file")
	root.PersistentFlags().StringVar(&llmProvider, "llm-provider", "openai",
		"LLM/embedding provider: openai, anthropic, azure, cohere, deepseek, groq, mistral, ollama, huggingface or bedrock")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newIndexCommand(), newQueryCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [paths...]",
		Short: "Ingest files, extract the knowledge graph, detect communities and summarise them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			core, err := newCoreCommand(cfg, llmProvider)
			if err != nil {
				return err
			}
			return core.Index(cmd.Context(), args)
		},
	}
	return cmd
}

func newQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Answer a question using one or more retrieval strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if question == "" {
				return fmt.Errorf("query: --question is required")
			}
			core, err := newCoreCommand(cfg, llmProvider)
			if err != nil {
				return err
			}
			methods := mergeMethods
			if len(methods) == 0 {
				methods = []string{methodName}
			}
			records, err := core.Query(cmd.Context(), methods, question)
			if err != nil {
				return err
			}
			return printRecords(records)
		},
	}
	cmd.Flags().StringVar(&methodName, "method", "NaiveRAG", "retrieval method: NaiveRAG, NaiveGraphRAG, GARAG or GraphRAG")
	cmd.Flags().StringSliceVar(&mergeMethods, "methods", nil, "multiple retrieval methods to run and rank-merge, overrides --method")
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to ask")
	return cmd
}

func loadConfig(fs *pflag.FlagSet) (*config.Config, error) {
	return config.Load(cfgFile, fs)
}
