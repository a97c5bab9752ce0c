package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vaultcast/internal/api"
	"vaultcast/internal/fileutil"
)

const generatePollInterval = 200 * time.Millisecond

func newEpisodeCommand(ctx *commandContext) *cobra.Command {
	episodeCmd := &cobra.Command{
		Use:     "episode",
		Aliases: []string{"ep"},
		Short:   "Generate, inspect and export notebook episodes",
	}

	episodeCmd.AddCommand(newEpisodeGenerateCommand(ctx))
	episodeCmd.AddCommand(newEpisodeShowCommand(ctx))
	episodeCmd.AddCommand(newEpisodeExportCommand(ctx))

	return episodeCmd
}

func newEpisodeGenerateCommand(ctx *commandContext) *cobra.Command {
	var personality string

	cmd := &cobra.Command{
		Use:   "generate <notebook-id>",
		Short: "Generate (or resume) the notebook's episode and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(true)
			if err != nil {
				return err
			}
			defer ws.Close()

			runCtx := cmd.Context()
			notebookID := args[0]
			started, err := ws.episodes.Start(runCtx, notebookID, api.StartEpisodeRequest{Personality: personality})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generating episode (job %s)\n", started.JobID)
			progress := newProgressPrinter(out, isTerminal(out))

			ticker := time.NewTicker(generatePollInterval)
			defer ticker.Stop()
			for {
				episode, err := ws.episodes.Describe(notebookID)
				if err != nil {
					return err
				}
				progress.update(episode)
				if episode.Ready && !ws.manager.IsActive(notebookID) {
					progress.finish()
					fmt.Fprintf(out, "Episode ready: %s, %d chapters (%s)\n",
						api.FormatClock(episode.DurationMs), len(episode.Chapters), episode.Mode)
					fmt.Fprintf(out, "Export it with: vaultcast episode export %s\n", notebookID)
					return nil
				}

				select {
				case <-runCtx.Done():
					progress.finish()
					fmt.Fprintln(out, "Interrupted; completed segments are kept and the next run resumes from them")
					return runCtx.Err()
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().StringVar(&personality, "personality", "", "Host personality for a new episode")
	return cmd
}

func newEpisodeShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var transcript bool

	cmd := &cobra.Command{
		Use:   "show <notebook-id>",
		Short: "Show the notebook's latest episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(false)
			if err != nil {
				return err
			}
			defer ws.Close()

			episode, err := ws.episodes.Describe(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, episode)
			}
			renderEpisode(cmd.OutOrStdout(), episode, transcript)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the episode as JSON")
	cmd.Flags().BoolVar(&transcript, "transcript", false, "Include the transcript")
	return cmd
}

func renderEpisode(out io.Writer, episode api.Episode, transcript bool) {
	fmt.Fprintf(out, "Job %s\n", episode.JobID)
	fmt.Fprintf(out, "  State:       %s\n", episode.State)
	fmt.Fprintf(out, "  Mode:        %s\n", episode.Mode)
	fmt.Fprintf(out, "  Personality: %s\n", episode.Personality)
	fmt.Fprintf(out, "  Progress:    %.0f%% (%d/%d segments)\n", episode.Progress*100, episode.CompletedChunks, episode.TotalChunks)
	if episode.Ready {
		fmt.Fprintf(out, "  Duration:    %s\n", api.FormatClock(episode.DurationMs))
	}
	if episode.ArtworkURL != "" {
		fmt.Fprintf(out, "  Artwork:     %s\n", episode.ArtworkURL)
	}

	if len(episode.Chapters) > 0 {
		fmt.Fprintln(out)
		rows := make([][]string, 0, len(episode.Chapters))
		for i, chapter := range episode.Chapters {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				api.FormatClock(chapter.StartMs),
				api.FormatClock(chapter.EndMs),
				chapter.Title,
			})
		}
		fmt.Fprintln(out, renderTable([]column{
			{header: "#", align: alignRight},
			{header: "Start", align: alignRight},
			{header: "End", align: alignRight},
			{header: "Chapter", width: titleWidth},
		}, rows))
	}

	if transcript && len(episode.Transcript) > 0 {
		fmt.Fprintln(out)
		for _, line := range episode.Transcript {
			fmt.Fprintf(out, "[%s] %s: %s\n", api.FormatClock(line.StartMs), line.Speaker, line.Text)
		}
	}
}

func newEpisodeExportCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <notebook-id>",
		Short: "Write the finished episode to a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(false)
			if err != nil {
				return err
			}
			defer ws.Close()

			wav, name, err := ws.episodes.Audio(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, api.ErrEpisodeNotReady) {
					return fmt.Errorf("%w; run `vaultcast episode generate %s` first", err, args[0])
				}
				return err
			}

			target, err := exportPath(output, name)
			if err != nil {
				return err
			}
			if err := fileutil.WriteFileAtomic(target, wav, 0o644); err != nil {
				return fmt.Errorf("write episode: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", target, len(wav))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file or directory (default: ./<notebook title>.wav)")
	return cmd
}

// exportPath resolves the destination; a directory receives the default name.
func exportPath(output, name string) (string, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return name, nil
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, name), nil
	}
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %q: %w", dir, err)
	}
	return output, nil
}
