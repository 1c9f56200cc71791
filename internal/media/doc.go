// Package media resolves source videos and wraps the ffprobe/ffmpeg
// command line tools used to inspect containers, extract analysis audio,
// and decode PCM WAV payloads.
package media
