package delivery

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoRecipients is returned when the recipients file contains no usable
// entries.
var ErrNoRecipients = errors.New("no recipients")

// LoadRecipients reads a recipients file wholesale: one recipient per line,
// blank lines skipped, order and duplicates preserved. The ledger, not the
// loader, decides what actually gets sent.
func LoadRecipients(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recipients file: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRecipients, path)
	}
	return out, nil
}
