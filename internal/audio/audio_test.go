package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"vaultcast/internal/jobs"
)

func b64(raw ...byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

func TestMergeEmptyListIsSilent(t *testing.T) {
	got, err := Merge(nil)
	if err != nil || got != "" {
		t.Fatalf("Merge(nil) = %q, %v", got, err)
	}
}

func TestMergePreservesLengthAndOrder(t *testing.T) {
	chunks := []string{b64(1, 2), b64(3, 4, 5, 6), "", b64(7, 8)}
	merged, err := Merge(chunks)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(merged)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if string(raw) != string(want) {
		t.Fatalf("merged bytes = %v, want %v", raw, want)
	}
}

func TestMergeRejectsInvalidBase64(t *testing.T) {
	_, err := Merge([]string{b64(1, 2), "!!not-base64!!"})
	if !errors.Is(err, ErrInvalidChunk) {
		t.Fatalf("expected ErrInvalidChunk, got %v", err)
	}
}

func TestSilenceAndDuration(t *testing.T) {
	f := PCM16Mono(24000)
	chunk := Silence(1500*time.Millisecond, f)
	raw, err := Decode(chunk)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(raw) != 72000 {
		t.Fatalf("silence length = %d, want 72000", len(raw))
	}
	for _, b := range raw {
		if b != 0 {
			t.Fatal("silence contains non-zero sample")
		}
	}
	if got := Duration(len(raw), f); got != 1500*time.Millisecond {
		t.Fatalf("Duration = %v", got)
	}
	if Silence(0, f) != "" {
		t.Fatal("zero duration silence should be empty")
	}
}

func TestAssembleDerivesChapterOffsets(t *testing.T) {
	f := PCM16Mono(1000)
	chunks := []string{Silence(2*time.Second, f), Silence(3*time.Second, f)}
	chapters := []jobs.Chapter{{Title: "One"}, {Title: "Two"}, {Title: "Three"}}
	transcript := []jobs.TranscriptLine{{Speaker: jobs.HostA, Text: "hi"}}

	episode, err := Assemble(chunks, transcript, chapters, f)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if episode.DurationMs != 5000 || episode.SampleRate != 1000 {
		t.Fatalf("unexpected episode %+v", episode)
	}
	wantChapters := [][2]int64{{0, 2000}, {2000, 5000}, {5000, 5000}}
	for i, want := range wantChapters {
		got := episode.Chapters[i]
		if got.StartMs != want[0] || got.EndMs != want[1] {
			t.Fatalf("chapter %d = [%d,%d], want %v", i, got.StartMs, got.EndMs, want)
		}
	}
	if len(episode.Transcript) != 1 {
		t.Fatalf("unexpected transcript %v", episode.Transcript)
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	f := PCM16Mono(24000)
	wav := EncodeWAV([]byte{1, 0, 2, 0}, f)
	if len(wav) != 48 {
		t.Fatalf("wav length = %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatalf("unexpected chunk ids %q", wav[:40])
	}
	if size := binary.LittleEndian.Uint32(wav[4:8]); size != 40 {
		t.Fatalf("riff size = %d", size)
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 24000 {
		t.Fatalf("sample rate = %d", rate)
	}
	if byteRate := binary.LittleEndian.Uint32(wav[28:32]); byteRate != 48000 {
		t.Fatalf("byte rate = %d", byteRate)
	}
	if dataLen := binary.LittleEndian.Uint32(wav[40:44]); dataLen != 4 {
		t.Fatalf("data length = %d", dataLen)
	}
}
