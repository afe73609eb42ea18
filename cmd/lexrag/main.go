// Command lexrag runs the legal/compliance answering service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/logger"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "lexrag",
	Short: "Grounded legal and cloud-sovereignty question answering",
	Long: `lexrag indexes a directory of PDF documents and answers
natural-language questions grounded in them, forwarding retrieved
passages to an LLM backend with local fallback.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "lexrag.toml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
