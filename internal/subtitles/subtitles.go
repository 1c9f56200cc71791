// Package subtitles re-times transcript cues into clip-local time and
// composes the SRT and ASS payloads burned into rendered clips.
package subtitles

import (
	"fmt"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/transcript"
)

// Retime converts source-time cues overlapping [clipStart, clipEnd) into
// clip-relative cues, clamping partial overlaps at the clip edges.
func Retime(cues []transcript.Cue, clipStart, clipEnd float64) []transcript.Cue {
	out := make([]transcript.Cue, 0, len(cues))
	for _, cue := range cues {
		if cue.End <= clipStart || cue.Start >= clipEnd {
			continue
		}
		start := cue.Start
		end := cue.End
		if start < clipStart {
			start = clipStart
		}
		if end > clipEnd {
			end = clipEnd
		}
		text := strings.TrimSpace(cue.Text)
		if text == "" {
			continue
		}
		out = append(out, transcript.Cue{
			Start: start - clipStart,
			End:   end - clipStart,
			Text:  text,
		})
	}
	return out
}

// ChunkText wraps text into lines of at most maxLen characters without
// splitting words. Words longer than maxLen get their own line.
func ChunkText(text string, maxLen int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxLen <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	current := ""
	for _, word := range words {
		switch {
		case current == "":
			current = word
		case len([]rune(current))+1+len([]rune(word)) <= maxLen:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	lines = append(lines, current)
	return lines
}

// ComposeSRT renders clip-relative cues as an SRT document.
func ComposeSRT(cues []transcript.Cue, maxLineLength int) string {
	var b strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", srtTime(cue.Start), srtTime(cue.End))
		b.WriteString(strings.Join(ChunkText(cue.Text, maxLineLength), "\n"))
		b.WriteString("\n\n")
	}
	return b.String()
}

// ComposeASS renders clip-relative cues as an ASS document styled by the
// configured subtitle appearance. playResX/playResY should match the render
// target so margins and font sizes scale as configured.
func ComposeASS(cues []transcript.Cue, style config.SubtitleStyle, playResX, playResY int) string {
	var b strings.Builder
	bold := 0
	if style.Bold {
		bold = 1
	}

	fmt.Fprintf(&b, "[Script Info]\n")
	fmt.Fprintf(&b, "ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", playResX)
	fmt.Fprintf(&b, "PlayResY: %d\n", playResY)
	fmt.Fprintf(&b, "ScaledBorderAndShadow: yes\n\n")

	fmt.Fprintf(&b, "[V4+ Styles]\n")
	fmt.Fprintf(&b, "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Clip,%s,%d,%s,&H00FFFFFF,%s,&H64000000,%d,0,0,0,100,100,0,0,1,%d,0,%d,40,40,%d,1\n\n",
		style.FontName, style.FontSize, style.PrimaryColor, style.OutlineColor, bold, style.OutlineWidth, style.Alignment, style.MarginVertical)

	fmt.Fprintf(&b, "[Events]\n")
	fmt.Fprintf(&b, "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, cue := range cues {
		text := strings.Join(ChunkText(sanitizeASS(cue.Text), style.MaxLineLength), "\\N")
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Clip,,0,0,0,,%s\n", assTime(cue.Start), assTime(cue.End), text)
	}
	return b.String()
}

func srtTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int(seconds*1000 + 0.5)
	h := millis / 3600000
	millis -= h * 3600000
	m := millis / 60000
	millis -= m * 60000
	s := millis / 1000
	millis -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, millis)
}

func assTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int(seconds*100 + 0.5)
	h := centis / 360000
	centis -= h * 360000
	m := centis / 6000
	centis -= m * 6000
	s := centis / 100
	centis -= s * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, centis)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
