package config

import "strings"

// normalize expands path fields and trims free-form string values so the rest
// of the program can rely on clean absolute paths.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Transcript.Model, err = expandPath(strings.TrimSpace(c.Transcript.Model)); err != nil {
		return err
	}

	c.Transcript.Binary = strings.TrimSpace(c.Transcript.Binary)
	c.Transcript.Language = strings.TrimSpace(c.Transcript.Language)
	c.Transcript.Chunking = strings.ToLower(strings.TrimSpace(c.Transcript.Chunking))
	c.Transcript.IncludeKeywords = cleanKeywords(c.Transcript.IncludeKeywords)
	c.Transcript.ExcludeKeywords = cleanKeywords(c.Transcript.ExcludeKeywords)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

func cleanKeywords(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
