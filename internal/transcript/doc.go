// Package transcript turns source audio into speech segments and reconciles
// them with detected audio peaks into scored clip candidates. The production
// engine shells out to a whisper.cpp-style binary; a missing binary or model
// downgrades the pipeline to peaks-only candidates instead of failing it.
package transcript
