package sessionfs

import (
	"context"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/argus/internal/tokens"
)

// Probe is the answer to "would this configuration file occupy context if
// the CLI loaded it": existence, character count, estimated token count.
type Probe struct {
	Exists bool
	Chars  int
	Tokens int
}

// ConfigReader answers probes for candidate configuration and mentioned
// files. It exists as its own collaborator so the tracker can be tested
// without touching a real disk.
type ConfigReader interface {
	Probe(ctx context.Context, path string) (Probe, error)
}

// configReader is the default ConfigReader over a Provider.
type configReader struct {
	fs Provider
}

// NewConfigReader returns a ConfigReader that reads candidate files
// through the given provider.
func NewConfigReader(fs Provider) ConfigReader {
	return configReader{fs: fs}
}

func (c configReader) Probe(ctx context.Context, path string) (Probe, error) {
	info, err := c.fs.Stat(ctx, path)
	if err != nil {
		// Missing is the common case, not a failure.
		return Probe{}, nil
	}
	if info.IsDir || info.Size == 0 {
		return Probe{Exists: !info.IsDir}, nil
	}
	data, err := c.fs.ReadFile(ctx, path)
	if err != nil {
		return Probe{}, err
	}
	chars := utf8.RuneCount(data)
	return Probe{
		Exists: true,
		Chars:  chars,
		Tokens: tokens.EstimateBytes(data),
	}, nil
}
