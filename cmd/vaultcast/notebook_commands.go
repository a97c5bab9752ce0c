package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vaultcast/internal/api"
)

func newNotebookCommand(ctx *commandContext) *cobra.Command {
	notebookCmd := &cobra.Command{
		Use:     "notebook",
		Aliases: []string{"nb"},
		Short:   "Manage notebooks and their sources",
	}

	notebookCmd.AddCommand(newNotebookCreateCommand(ctx))
	notebookCmd.AddCommand(newNotebookListCommand(ctx))
	notebookCmd.AddCommand(newNotebookShowCommand(ctx))
	notebookCmd.AddCommand(newNotebookAddCommand(ctx))
	notebookCmd.AddCommand(newNotebookDeleteCommand(ctx))

	return notebookCmd
}

func newNotebookCreateCommand(ctx *commandContext) *cobra.Command {
	var personality string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create an empty notebook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(false)
			if err != nil {
				return err
			}
			defer ws.Close()

			nb, err := ws.notebooks.Create(cmd.Context(), api.CreateNotebookRequest{
				Title:       strings.Join(args, " "),
				Personality: personality,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, nb)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created notebook %s (%s)\n", nb.ID, nb.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&personality, "personality", "", "Default host personality for episodes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the notebook as JSON")
	return cmd
}

func newNotebookListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List notebooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(false)
			if err != nil {
				return err
			}
			defer ws.Close()

			notebooks, err := ws.notebooks.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, api.NotebookListResponse{Notebooks: notebooks})
			}

			out := cmd.OutOrStdout()
			if len(notebooks) == 0 {
				fmt.Fprintln(out, "No notebooks")
				return nil
			}
			rows := make([][]string, 0, len(notebooks))
			for _, nb := range notebooks {
				rows = append(rows, []string{
					nb.ID,
					nb.Title,
					nb.Personality,
					strconv.Itoa(nb.SourceCount),
					shortTime(nb.UpdatedAt),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{header: "ID"},
				{header: "Title", width: titleWidth},
				{header: "Personality"},
				{header: "Sources", align: alignRight},
				{header: "Updated"},
			}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output notebooks as JSON")
	return cmd
}

func newNotebookShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <notebook-id>",
		Short: "Show a notebook with its sources and episodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(false)
			if err != nil {
				return err
			}
			defer ws.Close()

			nb, err := ws.notebooks.Describe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, nb)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", nb.Title)
			fmt.Fprintf(out, "  ID:          %s\n", nb.ID)
			fmt.Fprintf(out, "  Personality: %s\n", nb.Personality)
			fmt.Fprintf(out, "  Created:     %s\n", shortTime(nb.CreatedAt))
			if nb.Summary != "" {
				fmt.Fprintf(out, "  Summary:     %s\n", nb.Summary)
			}

			fmt.Fprintln(out)
			if len(nb.Sources) == 0 {
				fmt.Fprintln(out, "No sources")
			} else {
				rows := make([][]string, 0, len(nb.Sources))
				for _, src := range nb.Sources {
					rows = append(rows, []string{src.Kind, src.Title, strconv.Itoa(src.ContentChars), src.Origin})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "Kind"},
					{header: "Title", width: titleWidth},
					{header: "Chars", align: alignRight},
					{header: "Origin", width: originWidth},
				}, rows))
			}

			if len(nb.Media) > 0 {
				fmt.Fprintln(out)
				rows := make([][]string, 0, len(nb.Media))
				for _, item := range nb.Media {
					rows = append(rows, []string{item.Title, item.Duration, strconv.Itoa(item.ChapterCount), shortTime(item.CreatedAt)})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "Episode", width: titleWidth},
					{header: "Duration", align: alignRight},
					{header: "Chapters", align: alignRight},
					{header: "Created"},
				}, rows))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the notebook as JSON")
	return cmd
}

func newNotebookAddCommand(ctx *commandContext) *cobra.Command {
	var (
		text     string
		textFile string
		url      string
		document string
		title    string
	)

	cmd := &cobra.Command{
		Use:   "add <notebook-id>",
		Short: "Add a text, URL or document source to a notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := sourceRequest(text, textFile, url, document, title)
			if err != nil {
				return err
			}

			ws, err := ctx.openWorkspace(false)
			if err != nil {
				return err
			}
			defer ws.Close()

			src, err := ws.notebooks.AddSource(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s source %q (%d chars)\n", src.Kind, src.Title, src.ContentChars)
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Inline text content")
	cmd.Flags().StringVar(&textFile, "text-file", "", "Read text content from a file")
	cmd.Flags().StringVar(&url, "url", "", "Fetch a web page")
	cmd.Flags().StringVar(&document, "file", "", "Ingest a document (pdf, html, markdown or plain text)")
	cmd.Flags().StringVar(&title, "title", "", "Override the source title")
	cmd.MarkFlagsMutuallyExclusive("text", "text-file", "url", "file")
	cmd.MarkFlagsOneRequired("text", "text-file", "url", "file")
	return cmd
}

func sourceRequest(text, textFile, url, document, title string) (api.AddSourceRequest, error) {
	switch {
	case text != "":
		return api.AddSourceRequest{Kind: "text", Title: title, Content: text}, nil
	case textFile != "":
		data, err := os.ReadFile(textFile)
		if err != nil {
			return api.AddSourceRequest{}, fmt.Errorf("read text file: %w", err)
		}
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(textFile), filepath.Ext(textFile))
		}
		return api.AddSourceRequest{Kind: "text", Title: title, Content: string(data)}, nil
	case url != "":
		return api.AddSourceRequest{Kind: "url", Title: title, URL: url}, nil
	case document != "":
		data, err := os.ReadFile(document)
		if err != nil {
			return api.AddSourceRequest{}, fmt.Errorf("read document: %w", err)
		}
		return api.AddSourceRequest{
			Kind:     "document",
			Title:    title,
			FileName: filepath.Base(document),
			Data:     base64.StdEncoding.EncodeToString(data),
		}, nil
	default:
		return api.AddSourceRequest{}, errors.New("one of --text, --text-file, --url or --file is required")
	}
}

func newNotebookDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <notebook-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a notebook, its sources and its episodes",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(true)
			if err != nil {
				return err
			}
			defer ws.Close()

			if err := ws.notebooks.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted notebook %s\n", args[0])
			return nil
		},
	}
}

// shortTime trims an API timestamp to minute precision for tables.
func shortTime(value string) string {
	if len(value) < 16 {
		return value
	}
	return strings.Replace(value[:16], "T", " ", 1)
}
