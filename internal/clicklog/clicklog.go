package clicklog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/models"
)

// Log appends and reads per-advertiser click logs. Each advertiser owns one
// append-only file of tab-separated records; writers hold an exclusive
// advisory lock for the single append, readers a shared lock for the full
// scan. Locks are never held across anything but local file I/O.
type Log struct {
	dir    string
	logger *zap.Logger
}

// New creates the log directory if needed and returns a Log rooted there.
func New(dir string, logger *zap.Logger) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create click log dir: %w", err)
	}
	return &Log{dir: dir, logger: logger}, nil
}

// Path returns the log file path for an advertiser. Only the final
// '/'-delimited component of the advertiser id names the file, so compound
// advertiser tokens map onto a flat directory.
func (l *Log) Path(advertiserID string) string {
	parts := strings.Split(advertiserID, "/")
	return filepath.Join(l.dir, parts[len(parts)-1])
}

// Record appends one click event for the advertiser. An empty user token is
// recorded as-is; an empty user agent is recorded as the literal "unknown".
// A lock acquisition failure aborts the write: an unlocked append could
// interleave with a concurrent writer's line.
func (l *Log) Record(advertiserID, adID, userToken, userAgent string) error {
	if userAgent == "" {
		userAgent = "unknown"
	}
	path := l.Path(advertiserID)

	lock := flock.New(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock click log: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			l.logger.Error("unlock click log", zap.Error(err))
		}
	}()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open click log: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%s\t%s\t%s\n", adID, userToken, userAgent); err != nil {
		_ = f.Close()
		return fmt.Errorf("append click log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close click log: %w", err)
	}
	return nil
}

// Events reads the advertiser's full log under a shared lock and returns the
// decoded events grouped by ad id, in append order. A missing file means no
// clicks were ever recorded.
func (l *Log) Events(advertiserID string) (map[string][]models.ClickEvent, error) {
	result := map[string][]models.ClickEvent{}
	path := l.Path(advertiserID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return result, nil
	}

	lock := flock.New(path)
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock click log: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			l.logger.Error("unlock click log", zap.Error(err))
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open click log: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			l.logger.Error("close click log", zap.Error(err))
		}
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 3 {
			// A torn line can only come from a crash mid-append.
			l.logger.Warn("skipping malformed click log line",
				zap.String("advertiser", advertiserID))
			continue
		}
		ev := models.ClickEvent{AdID: fields[0], UserToken: fields[1], Agent: fields[2]}
		if ev.Agent == "" {
			ev.Agent = "unknown"
		}
		result[ev.AdID] = append(result[ev.AdID], ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan click log: %w", err)
	}
	return result, nil
}

// Reset removes every advertiser log. Only the environment reset boundary
// operation uses this.
func (l *Log) Reset() error {
	if err := os.RemoveAll(l.dir); err != nil {
		return fmt.Errorf("remove click log dir: %w", err)
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("recreate click log dir: %w", err)
	}
	return nil
}
