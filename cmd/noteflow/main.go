package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	noColor bool
	userID  string
)

var rootCmd = &cobra.Command{
	Use:           "noteflow",
	Short:         "AI processing for notes: transcripts, summaries, insights and chat",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the noteflow version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("noteflow " + version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")
	rootCmd.PersistentFlags().StringVar(&userID, "user", os.Getenv("NOTEFLOW_USER"), "user ID sent to the server")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(ocrCmd)
	rootCmd.AddCommand(youtubeCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
