package truthordare

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jxucoder/truthordare/content"
	"github.com/jxucoder/truthordare/engine"
	"github.com/jxucoder/truthordare/eventbus"
	sqliteStore "github.com/jxucoder/truthordare/store/sqlite"
)

// applyDefaults fills in missing fields on the builder.
func applyDefaults(b *Builder) error {
	if b.config.ServerAddr == "" {
		b.config.ServerAddr = ":7080"
	}
	if b.config.DrawDelay == 0 {
		b.config.DrawDelay = engine.DefaultDrawDelay
	}
	if b.config.SpinDuration == 0 {
		b.config.SpinDuration = engine.DefaultSpinDuration
	}
	if b.config.IdleTimeout == 0 {
		b.config.IdleTimeout = 30 * time.Minute
	}
	if b.config.MaxSessions == 0 {
		b.config.MaxSessions = 1000
	}

	if b.logger == nil {
		b.logger = zap.NewNop()
	}

	if b.content == nil {
		table, err := LoadContent(b.config.ContentDB, b.config.ContentFile)
		if err != nil {
			return err
		}
		b.content = table
	}

	if b.bus == nil {
		b.bus = eventbus.NewInMemoryBus()
	}
	return nil
}

// LoadContent resolves the prompt table: the SQLite database at dbPath if
// set, else the JSON or YAML pack at file if set, else the bundled pack.
func LoadContent(dbPath, file string) (content.Table, error) {
	switch {
	case dbPath != "":
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("content database: %w", err)
		}
		st, err := sqliteStore.New(dbPath)
		if err != nil {
			return nil, fmt.Errorf("opening content database: %w", err)
		}
		defer st.Close()
		table, err := st.Load()
		if err != nil {
			return nil, fmt.Errorf("loading content database: %w", err)
		}
		return table, nil
	case file != "":
		table, err := content.LoadFile(file)
		if err != nil {
			return nil, fmt.Errorf("loading content file: %w", err)
		}
		return table, nil
	default:
		return content.Default(), nil
	}
}
