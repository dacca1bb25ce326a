// Package blob stores generated artifact files.
package blob

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/cypherlabdev/odds-analytics-service/internal/models"
)

// Store writes and reads artifact files by relative path. Get returns an
// error wrapping models.ErrNotFound for missing paths.
type Store interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
}

// ArtifactPath builds the content addressed path of an artifact, e.g.
// "2026/01/odds-123-totals-3f2a9c01d4e5.json"
func ArtifactPath(fp models.Fingerprint, contentHash string, at time.Time) string {
	short := contentHash
	if len(short) > 12 {
		short = short[:12]
	}
	at = at.UTC()
	name := fmt.Sprintf("%s-%s-%s-%s.json", fp.ArtifactKind, sanitize(fp.EventID), fp.MarketKind, short)
	return path.Join(fmt.Sprintf("%04d", at.Year()), fmt.Sprintf("%02d", int(at.Month())), name)
}

func sanitize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func notFound(p string) error {
	return models.NewError(models.KindNotFound, "artifact file "+p+" not found", nil)
}
