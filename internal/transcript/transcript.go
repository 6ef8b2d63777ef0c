package transcript

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/mohammad-safakhou/notesmith/config"
)

// Recognizer is the pluggable speech-to-text boundary, fed a 16 kHz mono WAV
// file path produced by the audio download step.
type Recognizer interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// Service acquires a transcript for a source URL. YouTube URLs go through
// captions first, then audio download plus speech recognition when captions
// are missing or too short to use. Any other URL is treated as a written
// article and fetched through the readability extractor.
type Service struct {
	youtube    *YouTubeSource
	article    ArticleSource
	recognizer Recognizer
	logger     *log.Logger
	timeout    config.TranscriptConfig
}

// NewService creates a transcript acquisition service. recognizer may be nil
// when no speech-to-text backend is deployed; acquisition then fails once
// captions come up empty.
func NewService(cfg config.TranscriptConfig, recognizer Recognizer, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Writer(), "[TRANSCRIPT] ", log.LstdFlags)
	}
	return &Service{
		youtube:    NewYouTubeSource(cfg, logger),
		article:    ArticleSource{Timeout: cfg.FetchTimeout},
		recognizer: recognizer,
		logger:     logger,
		timeout:    cfg,
	}
}

// Acquire returns a usable transcript for the video or an error when neither
// captions nor speech recognition produced one.
func (s *Service) Acquire(ctx context.Context, videoURL string) (string, error) {
	if strings.TrimSpace(videoURL) == "" {
		return "", fmt.Errorf("invalid video url")
	}
	if s.timeout.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout.FetchTimeout)
		defer cancel()
	}

	if !isVideoURL(videoURL) {
		text, err := s.article.Fetch(ctx, videoURL)
		if err != nil {
			return "", err
		}
		if !Usable(text) {
			return "", fmt.Errorf("article too short to use (%d chars)", len(text))
		}
		return text, nil
	}

	captions, err := s.youtube.Captions(ctx, videoURL)
	if err != nil {
		return "", err
	}
	if Usable(captions) {
		return captions, nil
	}

	if s.recognizer == nil {
		return "", fmt.Errorf("no captions available and no speech recognizer configured")
	}

	s.logger.Printf("no usable captions for %s, transcribing audio", videoURL)
	wavPath, cleanup, err := s.youtube.Audio(ctx, videoURL)
	if err != nil {
		return "", fmt.Errorf("acquire audio: %w", err)
	}
	defer cleanup()

	text, err := s.recognizer.Transcribe(ctx, wavPath)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if !Usable(text) {
		return "", fmt.Errorf("transcription too short to use (%d chars)", len(text))
	}
	return text, nil
}

func isVideoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "youtube.com" || strings.HasSuffix(host, ".youtube.com") || host == "youtu.be"
}
