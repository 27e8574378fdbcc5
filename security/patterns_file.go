package security

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/pondpilot/cors-proxy/domain"
	"github.com/pondpilot/cors-proxy/utils/logger"
)

// AllowlistWatcher reloads domain patterns from a file into a MatcherSet
// whenever the file changes. The file format is one pattern per line (commas
// also accepted); blank lines and lines starting with '#' are ignored.
type AllowlistWatcher struct {
	path    string
	set     *domain.MatcherSet
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// LoadAllowedDomainsFile reads and compiles the pattern file. Patterns go
// through the same complexity limits as the ALLOWED_DOMAINS string; an
// unreadable or entirely invalid file falls back to the default set.
func LoadAllowedDomainsFile(path string) ([]domain.DomainMatcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allowlist file: %w", err)
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}

	return ParseAllowedDomains(strings.Join(patterns, ",")), nil
}

// WatchAllowedDomainsFile loads path into set and keeps it in sync with
// file writes until Close is called.
func WatchAllowedDomainsFile(path string, set *domain.MatcherSet) (*AllowlistWatcher, error) {
	matchers, err := LoadAllowedDomainsFile(path)
	if err != nil {
		return nil, err
	}
	set.Replace(matchers)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch allowlist file: %w", err)
	}

	aw := &AllowlistWatcher{
		path:    path,
		set:     set,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go aw.run()

	logger.Logger.Info("watching domain allowlist file", "path", path, "patterns", set.Len())
	return aw, nil
}

func (aw *AllowlistWatcher) run() {
	for {
		select {
		case event, ok := <-aw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			matchers, err := LoadAllowedDomainsFile(aw.path)
			if err != nil {
				logger.Logger.Warn("failed to reload allowlist file", "path", aw.path, "error", err)
				continue
			}
			aw.set.Replace(matchers)
			logger.Logger.Info("reloaded domain allowlist", "path", aw.path, "patterns", len(matchers))
		case err, ok := <-aw.watcher.Errors:
			if !ok {
				return
			}
			logger.Logger.Warn("allowlist file watcher error", "error", err)
		case <-aw.done:
			return
		}
	}
}

// Close stops the watcher. The last loaded matcher set stays active.
func (aw *AllowlistWatcher) Close() error {
	close(aw.done)
	return aw.watcher.Close()
}
