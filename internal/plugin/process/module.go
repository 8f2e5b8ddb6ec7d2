package process

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	goplugin "github.com/hashicorp/go-plugin"

	"github.com/yndnr/sabertooth-go/pkg/site"
)

// module is a running plugin process.
type module struct {
	client  *goplugin.Client
	bin     string
	decls   []site.Declaration
	refresh time.Duration
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func (m *module) Sites() []site.Declaration      { return m.decls }
func (m *module) RefreshInterval() time.Duration { return m.refresh }

// Close kills the process and deletes its binary.
func (m *module) Close() error {
	m.closeOnce.Do(func() {
		m.client.Kill()
		if err := os.Remove(m.bin); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.closeErr = err
		}
		m.logger.Info("plugin stopped", "binary", m.bin)
	})
	return m.closeErr
}
