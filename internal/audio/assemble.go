package audio

import (
	"fmt"
	"time"

	"vaultcast/internal/jobs"
)

// Assemble merges chunks into a finished episode. Chapter i spans the
// playback time of chunk i; chapters without a chunk collapse to the episode
// end.
func Assemble(chunks []string, transcript []jobs.TranscriptLine, chapters []jobs.Chapter, f Format) (jobs.EpisodeAudio, error) {
	merged, err := Merge(chunks)
	if err != nil {
		return jobs.EpisodeAudio{}, err
	}

	offsets := make([]int64, len(chunks)+1)
	for i, chunk := range chunks {
		raw, err := Decode(chunk)
		if err != nil {
			return jobs.EpisodeAudio{}, fmt.Errorf("assemble chunk %d: %w", i, err)
		}
		offsets[i+1] = offsets[i] + Duration(len(raw), f).Milliseconds()
	}
	total := offsets[len(chunks)]

	timed := make([]jobs.Chapter, len(chapters))
	for i, chapter := range chapters {
		chapter.StartMs, chapter.EndMs = total, total
		if i < len(chunks) {
			chapter.StartMs, chapter.EndMs = offsets[i], offsets[i+1]
		}
		timed[i] = chapter
	}

	return jobs.EpisodeAudio{
		Audio:      merged,
		Chapters:   timed,
		Transcript: append([]jobs.TranscriptLine(nil), transcript...),
		DurationMs: total,
		SampleRate: f.SampleRate,
	}, nil
}

// ChunkDuration returns the playback time of one base64 chunk.
func ChunkDuration(chunk string, f Format) (time.Duration, error) {
	raw, err := Decode(chunk)
	if err != nil {
		return 0, err
	}
	return Duration(len(raw), f), nil
}
