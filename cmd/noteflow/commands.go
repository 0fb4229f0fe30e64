package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/noteflow/noteflow/internal/config"
	"github.com/noteflow/noteflow/internal/vision"
)

type noteView struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	SourceType string   `json:"sourceType"`
	Status     string   `json:"status"`
	CreatedAt  string   `json:"createdAt"`
	Transcript string   `json:"transcript"`
	AISummary  string   `json:"aiSummary"`
	Insights   []string `json:"insights"`
}

type processResult struct {
	Transcript string   `json:"transcript"`
	Summary    string   `json:"summary"`
	Insights   []string `json:"insights"`
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// --- process ---

var processCmd = &cobra.Command{
	Use:   "process <note-id>",
	Short: "Transcribe, summarize and extract insights for a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, _ := cmd.Flags().GetString("language")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		printStep("Processing note %s...", args[0])
		res, err := processNote(cmd.Context(), client, args[0], lang)
		if err != nil {
			return err
		}
		printProcessResult(res)
		return nil
	},
}

func processNote(ctx context.Context, c *apiClient, id, lang string) (processResult, error) {
	resp, err := c.post(ctx, "/notes/"+url.PathEscape(id)+"/process", map[string]string{"language": lang})
	if err != nil {
		return processResult{}, err
	}
	var res processResult
	if err := decodeJSON(resp, &res); err != nil {
		return processResult{}, err
	}
	return res, nil
}

func printProcessResult(res processResult) {
	if res.Summary != "" {
		fmt.Println(colorize(styleBold, "Summary"))
		fmt.Println(res.Summary)
	}
	if len(res.Insights) > 0 {
		fmt.Println()
		fmt.Println(colorize(styleBold, "Insights"))
		for _, in := range res.Insights {
			fmt.Printf("  • %s\n", in)
		}
	}
	if res.Summary == "" && res.Transcript == "" {
		printWarning("note has no transcript yet")
	}
}

func init() {
	processCmd.Flags().String("language", "", "language for prompts and messages")
}

// --- ocr ---

var ocrCmd = &cobra.Command{
	Use:   "ocr <image-file>",
	Short: "Read the text in an image, optionally saving it as a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, _ := cmd.Flags().GetString("language")
		save, _ := cmd.Flags().GetBool("save")
		title, _ := cmd.Flags().GetString("title")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if save {
			n, err := scanNote(cmd.Context(), client, data, vision.MIMETypeFromURL(args[0]), lang, title)
			if err != nil {
				return err
			}
			printSuccess("Created note %s (%s)", n.ID, n.Title)
			return nil
		}
		text, err := ocrImage(cmd.Context(), client, data, vision.MIMETypeFromURL(args[0]), lang)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

func ocrImage(ctx context.Context, c *apiClient, image []byte, mimeType, lang string) (string, error) {
	resp, err := c.post(ctx, "/ocr", map[string]string{
		"image":    base64.StdEncoding.EncodeToString(image),
		"mimeType": mimeType,
		"language": lang,
	})
	if err != nil {
		return "", err
	}
	var res struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(resp, &res); err != nil {
		return "", err
	}
	return res.Text, nil
}

func scanNote(ctx context.Context, c *apiClient, image []byte, mimeType, lang, title string) (noteView, error) {
	resp, err := c.post(ctx, "/notes/scan", map[string]string{
		"image":    base64.StdEncoding.EncodeToString(image),
		"mimeType": mimeType,
		"language": lang,
		"title":    title,
	})
	if err != nil {
		return noteView{}, err
	}
	var n noteView
	return n, decodeJSON(resp, &n)
}

func init() {
	ocrCmd.Flags().String("language", "", "language for the OCR prompt")
	ocrCmd.Flags().Bool("save", false, "store the text as a new note")
	ocrCmd.Flags().String("title", "", "title for the new note")
}

// --- youtube ---

var youtubeCmd = &cobra.Command{
	Use:   "youtube <url>",
	Short: "Import a YouTube video's transcript as a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, _ := cmd.Flags().GetString("language")
		title, _ := cmd.Flags().GetString("title")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		n, err := importYouTube(cmd.Context(), client, args[0], lang, title)
		if err != nil {
			return err
		}
		printSuccess("Created note %s (%s)", n.ID, n.Title)
		return nil
	},
}

func importYouTube(ctx context.Context, c *apiClient, rawURL, lang, title string) (noteView, error) {
	resp, err := c.post(ctx, "/notes/youtube", map[string]string{"url": rawURL, "language": lang, "title": title})
	if err != nil {
		return noteView{}, err
	}
	var body struct {
		Note noteView `json:"note"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return noteView{}, err
	}
	return body.Note, nil
}

func init() {
	youtubeCmd.Flags().String("language", "", "preferred transcript language")
	youtubeCmd.Flags().String("title", "", "title for the new note")
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask a question about your notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, _ := cmd.Flags().GetString("language")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		reply, err := chat(cmd.Context(), client, strings.Join(args, " "), lang)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

func chat(ctx context.Context, c *apiClient, message, lang string) (string, error) {
	resp, err := c.post(ctx, "/chat", map[string]string{"message": message, "language": lang})
	if err != nil {
		return "", err
	}
	var body struct {
		Response string `json:"response"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return "", err
	}
	return body.Response, nil
}

func init() {
	chatCmd.Flags().String("language", "", "language of the answer")
}

// --- notes ---

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "List, show, upload, export or delete notes",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		notes, err := listNotes(cmd.Context(), client, limit)
		if err != nil {
			return err
		}
		if len(notes) == 0 {
			fmt.Println("No notes found.")
			return nil
		}
		for _, n := range notes {
			fmt.Printf("%s  %-10s  %-10s  %s\n",
				colorize(styleStep, n.ID[:min(8, len(n.ID))]),
				n.SourceType,
				n.Status,
				truncate(n.Title, 60),
			)
		}
		return nil
	},
}

func listNotes(ctx context.Context, c *apiClient, limit int) ([]noteView, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/notes?limit=%d", limit))
	if err != nil {
		return nil, err
	}
	var notes []noteView
	if err := decodeJSON(resp, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

var notesShowCmd = &cobra.Command{
	Use:   "show <note-id>",
	Short: "Show a note as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/notes/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var n any
		if err := decodeJSON(resp, &n); err != nil {
			return err
		}
		return printJSON(n)
	},
}

var notesUploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Create a note from a PDF document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, _ := cmd.Flags().GetString("language")
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		n, err := uploadDocument(cmd.Context(), client, data, filepath.Base(args[0]), lang)
		if err != nil {
			return err
		}
		printSuccess("Created note %s (%s)", n.ID, n.Title)
		return nil
	},
}

func uploadDocument(ctx context.Context, c *apiClient, doc []byte, fileName, lang string) (noteView, error) {
	resp, err := c.post(ctx, "/notes/upload", map[string]string{
		"document": base64.StdEncoding.EncodeToString(doc),
		"fileName": fileName,
		"language": lang,
	})
	if err != nil {
		return noteView{}, err
	}
	var n noteView
	return n, decodeJSON(resp, &n)
}

var notesExportCmd = &cobra.Command{
	Use:   "export <note-id>",
	Short: "Export a note as HTML or Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		data, err := exportNote(cmd.Context(), client, args[0], format)
		if err != nil {
			return err
		}
		if output == "" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		printSuccess("Note exported to %s", output)
		return nil
	},
}

func exportNote(ctx context.Context, c *apiClient, id, format string) ([]byte, error) {
	path := "/notes/" + url.PathEscape(id) + "/export"
	if format != "" {
		path += "?format=" + url.QueryEscape(format)
	}
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeJSON(resp, nil)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <note-id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/notes/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Deleted note %s", args[0])
		return nil
	},
}

func init() {
	notesListCmd.Flags().Int("limit", 20, "maximum number of notes to list")
	notesUploadCmd.Flags().String("language", "", "language of the document")
	notesExportCmd.Flags().String("format", "html", "html or markdown")
	notesExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesShowCmd)
	notesCmd.AddCommand(notesUploadCmd)
	notesCmd.AddCommand(notesExportCmd)
	notesCmd.AddCommand(notesDeleteCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			hint := "(" + k.EnvVar + ")"
			if k.Source != "" {
				hint = "(from " + k.Source + ")"
			}
			fmt.Printf("  %s = %s  %s\n", colorize(styleBold, k.Key), k.Value, colorize(styleFaint, hint))
		}
		fmt.Println()
		for _, sec := range config.SecretStatus(cfg) {
			state := colorize(styleSuccess, "set")
			if !sec.Set {
				state = colorize(styleWarning, "not set")
			}
			fmt.Printf("  %s: %s  %s\n", colorize(styleBold, sec.Key), state, colorize(styleFaint, "("+sec.EnvVar+")"))
		}
		fmt.Printf("\n  %s\n", colorize(styleFaint, "config file: "+config.ConfigFilePath()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
