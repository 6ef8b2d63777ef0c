package transcript

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/notesmith/config"
)

// Caption file extensions yt-dlp may produce, probed in order.
var captionExtensions = []string{".en.txt", ".txt", ".en.vtt", ".en.srv3"}

// YouTubeSource shells out to yt-dlp and ffmpeg to acquire transcripts:
// existing captions first, and a 16 kHz mono WAV of the audio track for the
// speech-to-text boundary when no captions exist.
type YouTubeSource struct {
	cfg    config.TranscriptConfig
	logger *log.Logger
}

// NewYouTubeSource creates a YouTubeSource.
func NewYouTubeSource(cfg config.TranscriptConfig, logger *log.Logger) *YouTubeSource {
	if logger == nil {
		logger = log.New(log.Writer(), "[TRANSCRIPT] ", log.LstdFlags)
	}
	return &YouTubeSource{cfg: cfg, logger: logger}
}

// Captions downloads existing subtitles for the video and returns them
// cleaned. An empty string with nil error means no usable captions exist and
// the caller should fall through to speech-to-text.
func (y *YouTubeSource) Captions(ctx context.Context, videoURL string) (string, error) {
	base := filepath.Join(y.cfg.WorkDir, "yt_transcript_"+uuid.NewString())

	lang := y.cfg.SubtitleLang
	if lang == "" {
		lang = "en"
	}
	cmd := exec.CommandContext(ctx, y.cfg.YTDLPPath,
		"--write-auto-sub",
		"--write-sub",
		"--skip-download",
		"--sub-lang", lang,
		"--sub-format", "txt",
		"--convert-subs", "txt",
		"-o", base,
		videoURL,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		y.logger.Printf("yt-dlp caption fetch failed: %v (%s)", err, firstLine(out))
		return "", nil
	}

	for _, ext := range captionExtensions {
		path := base + ext
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		_ = os.Remove(path)

		cleaned := CleanCaptions(string(data))
		if Usable(cleaned) {
			y.logger.Printf("found caption file %s (%d chars cleaned)", filepath.Base(path), len(cleaned))
			return cleaned, nil
		}
	}
	return "", nil
}

// Audio downloads the video's audio track as MP3 and converts it to a
// 16 kHz mono WAV suitable for speech recognition. The returned cleanup
// function removes both temp files.
func (y *YouTubeSource) Audio(ctx context.Context, videoURL string) (wavPath string, cleanup func(), err error) {
	mp3Path := filepath.Join(y.cfg.WorkDir, "yt_audio_"+uuid.NewString()+".mp3")

	cmd := exec.CommandContext(ctx, y.cfg.YTDLPPath,
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "5",
		"-o", mp3Path,
		videoURL,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", nil, fmt.Errorf("yt-dlp audio download: %w (%s)", err, firstLine(out))
	}
	if _, err := os.Stat(mp3Path); err != nil {
		return "", nil, fmt.Errorf("audio file missing after download: %w", err)
	}

	wavPath = mp3Path[:len(mp3Path)-len(".mp3")] + ".wav"
	conv := exec.CommandContext(ctx, y.cfg.FFmpegPath,
		"-i", mp3Path,
		"-ar", "16000",
		"-ac", "1",
		"-f", "wav",
		wavPath,
	)
	if out, err := conv.CombinedOutput(); err != nil {
		_ = os.Remove(mp3Path)
		return "", nil, fmt.Errorf("ffmpeg conversion: %w (%s)", err, firstLine(out))
	}

	cleanup = func() {
		_ = os.Remove(mp3Path)
		_ = os.Remove(wavPath)
	}
	return wavPath, cleanup, nil
}

func firstLine(out []byte) string {
	for i, b := range out {
		if b == '\n' {
			return string(out[:i])
		}
	}
	return string(out)
}
