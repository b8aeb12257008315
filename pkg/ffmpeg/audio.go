package ffmpeg

import (
	"context"
	"fmt"
	"os"
)

// Speech-to-text friendly audio: mono, 16 kHz, constant bitrate MP3.
const (
	SpeechSampleRate = 16000
	SpeechChannels   = 1
	SpeechBitrate    = "64k"
)

// SpeechAudioOptions returns the encoding options ExtractSpeechAudio uses.
func SpeechAudioOptions() []Option {
	return []Option{
		LogLevel("error"),
		NoVideo,
		AudioChannels(SpeechChannels),
		AudioSampleRate(SpeechSampleRate),
		AudioCodec("libmp3lame"),
		AudioBitrate(SpeechBitrate),
		Format("mp3"),
	}
}

// ExtractSpeechAudio transcodes the audio track of input into an MP3 at
// output. The file is written under a temporary name and renamed on success,
// so output only ever exists complete.
func (r *Runner) ExtractSpeechAudio(ctx context.Context, input, output string) error {
	partial := output + ".partial"
	res := r.Run(ctx, NewCommand(input, partial, SpeechAudioOptions()...))
	if res.Err != nil {
		_ = os.Remove(partial)
		return res.Err
	}
	if err := os.Rename(partial, output); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("ffmpeg: move audio into place: %w", err)
	}
	return nil
}
