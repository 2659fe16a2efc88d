package utils

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
)

// FillAudit appends executed fills to a CSV file, one row per fill. It
// implements ports.FillRepository so it can mirror the database audit log.
// The file is opened in append mode and survives restarts.
type FillAudit struct {
	mu   sync.Mutex
	path string
}

// NewFillAudit creates the audit file (and its directory) if needed and
// writes the header row on first creation.
func NewFillAudit(path string) (*FillAudit, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}

	info, err := os.Stat(path)
	needHeader := os.IsNotExist(err) || (err == nil && info.Size() == 0)

	if needHeader {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("creating audit log %s: %w", path, err)
		}
		w := csv.NewWriter(file)
		w.Write([]string{"timestamp", "symbol", "side", "price", "quantity", "realized_pnl", "mode"})
		w.Flush()
		if err := file.Close(); err != nil {
			return nil, err
		}
		if err := w.Error(); err != nil {
			return nil, err
		}
	}

	return &FillAudit{path: path}, nil
}

// AppendFill writes one fill row. Each call opens, appends and closes so a
// crash never loses more than the in-flight row.
func (a *FillAudit) AppendFill(_ context.Context, fill *domain.Fill) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening audit log %s: %w", a.path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	w.Write([]string{
		fill.Timestamp.Format(time.RFC3339),
		fill.Symbol,
		string(fill.Side),
		strconv.FormatFloat(fill.Price, 'f', -1, 64),
		strconv.FormatFloat(fill.Quantity, 'f', -1, 64),
		strconv.FormatFloat(fill.RealizedPNL, 'f', -1, 64),
		fill.Mode,
	})
	w.Flush()
	return w.Error()
}
