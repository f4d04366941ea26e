// Package audio decodes uploaded clips into PCM and finds the non-silent
// ranges in them.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/okian/fluency/internal/domain/failure"
)

// Clip is decoded PCM audio. Samples are interleaved by channel and signed.
type Clip struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    []int
}

// Frames returns the number of sample frames.
func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// DurationMS returns the clip length rounded to the nearest millisecond.
func (c *Clip) DurationMS() int64 {
	if c.SampleRate == 0 {
		return 0
	}
	return (int64(c.Frames())*1000 + int64(c.SampleRate)/2) / int64(c.SampleRate)
}

// MaxAmplitude is the largest magnitude a sample of this bit depth can hold.
func (c *Clip) MaxAmplitude() float64 {
	return float64(int64(1) << (c.BitDepth - 1))
}

// ClipFromBuffer builds a Clip from a go-audio PCM buffer.
func ClipFromBuffer(buf *goaudio.IntBuffer, bitDepth int) (*Clip, error) {
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return nil, ErrInvalidWAV
	}
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBits, bitDepth)
	}
	samples := buf.Data
	if bitDepth == 8 {
		// 8-bit PCM is unsigned on disk.
		samples = make([]int, len(buf.Data))
		for i, s := range buf.Data {
			samples[i] = s - 128
		}
	}
	return &Clip{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		BitDepth:   bitDepth,
		Samples:    samples,
	}, nil
}

// DecodeWAV decodes a RIFF/WAVE stream.
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
	}
	return ClipFromBuffer(buf, int(d.BitDepth))
}

// Decoder loads clips from disk, transcoding non-WAV containers with ffmpeg.
type Decoder struct {
	ffmpegPath string
	tmpDir     string
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithFFmpegPath sets the ffmpeg binary.
func WithFFmpegPath(path string) DecoderOption {
	return func(d *Decoder) {
		if path != "" {
			d.ffmpegPath = path
		}
	}
}

// WithTempDir sets where transcoded files are written.
func WithTempDir(dir string) DecoderOption {
	return func(d *Decoder) {
		d.tmpDir = dir
	}
}

// NewDecoder creates a Decoder that uses "ffmpeg" from PATH by default.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{ffmpegPath: "ffmpeg"}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeFile decodes the clip at path. WAV files are read directly; anything
// else, including WAV files the decoder rejects, go through ffmpeg.
func (d *Decoder) DecodeFile(ctx context.Context, path string) (*Clip, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		if clip, err := d.decodeWAVFile(path); err == nil {
			return clip, nil
		}
	}

	wavPath, err := d.transcode(ctx, path)
	if err != nil {
		return nil, failure.New(failure.KindAnalysis, "decode", err)
	}
	defer func() { _ = os.Remove(wavPath) }()

	clip, err := d.decodeWAVFile(wavPath)
	if err != nil {
		return nil, failure.New(failure.KindAnalysis, "decode", err)
	}
	return clip, nil
}

func (d *Decoder) decodeWAVFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return DecodeWAV(f)
}

// transcode converts the input to 16-bit PCM WAV keeping rate and channels.
func (d *Decoder) transcode(ctx context.Context, in string) (string, error) {
	out, err := os.CreateTemp(d.tmpDir, "transcoded-*.wav")
	if err != nil {
		return "", err
	}
	outPath := out.Name()
	_ = out.Close()

	// ffmpeg -y -i input -vn -acodec pcm_s16le -f wav output
	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-y", "-loglevel", "error",
		"-i", in,
		"-vn", "-acodec", "pcm_s16le",
		"-f", "wav",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(outPath)
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("%w: %w", ErrTranscode, err)
		}
		return "", fmt.Errorf("%w: %w: %s", ErrTranscode, err, msg)
	}
	return outPath, nil
}
