// Package analysis detects audio excitement peaks. It computes a short-time
// RMS envelope over decoded PCM audio and selects local maxima that exceed a
// sliding-window adaptive threshold, merging nearby peaks and expanding each
// into a buffered candidate window.
package analysis
