package dispatch

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// CommandClear is queued in place of a blank command-file line. A blank
// line in a command script is the clear-screen convention.
const CommandClear = "CLEAR"

// LoadCommandFile reads a command script and enqueues its commands in file
// order. Lines starting with '#' are comments and dropped; a blank line
// queues CommandClear; every other line is trimmed and queued verbatim.
// A missing file is not an error, merely zero commands loaded.
func LoadCommandFile(path string, q *Queue, logger *slog.Logger) (int, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("no command file found", slog.String("path", path))
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open command file %s: %w", path, err)
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "#") {
			continue
		}

		command := line
		if command == "" {
			command = CommandClear
		}

		q.Enqueue(command)
		count++
	}

	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read command file %s: %w", path, err)
	}

	logger.Info("command file loaded",
		slog.String("path", path),
		slog.Int("commands", count),
	)

	return count, nil
}
