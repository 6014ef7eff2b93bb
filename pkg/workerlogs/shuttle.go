package workerlogs

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/brandonh-msft/azure-functions-host/pkg/services/logsink"
	"github.com/brandonh-msft/azure-functions-host/pkg/synq"
	"github.com/brandonh-msft/azure-functions-host/pkg/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// consoleLogPrefix marks a structured worker log line. The level sits in
	// brackets directly after the prefix: "WorkerConsoleLog[info] message".
	consoleLogPrefix = "WorkerConsoleLog"

	// systemLogPrefix marks host-internal worker diagnostics, routed to the
	// configured log sink instead of user-visible output.
	systemLogPrefix = "WorkerSystemLog"

	drainTimeout = 5 * time.Second
)

var (
	shuttledLines = telemetry.Counter(
		"host_worker_log_lines",
		telemetry.WithDescription("Worker console lines routed through the host"),
		telemetry.WithLabels("kind"),
	)
	droppedLines = telemetry.Counter(
		"host_worker_log_dropped",
		telemetry.WithDescription("Worker console lines dropped because the shuttle was stopped"),
	)
)

// Shuttle moves worker console output into the host logging subsystem.
// Reader goroutines parse lines from worker pipes and push entries onto an
// unbounded queue; one consumer goroutine forwards them to the host logger
// and the configured sink, so a slow sink never blocks a worker pipe.
type Shuttle struct {
	logger *zap.Logger
	sink   logsink.LogSink
	queue  *synq.Queue[logsink.Entry]

	wg       sync.WaitGroup
	consumer sync.WaitGroup
}

// NewShuttle starts the consumer goroutine. The sink receives system-log
// entries; may be nil when no sink is configured.
func NewShuttle(ctx context.Context, logger *zap.Logger, sink logsink.LogSink) *Shuttle {
	s := &Shuttle{
		logger: logger,
		sink:   sink,
		queue:  synq.NewQueue[logsink.Entry](ctx),
	}

	s.consumer.Add(1)
	go s.consume(ctx)

	return s
}

// Attach reads a worker's stdout or stderr pipe until EOF, shuttling each
// line. Blocks; callers run it in a goroutine per pipe.
func (s *Shuttle) Attach(workerID string, pipe io.Reader) {
	s.wg.Add(1)
	defer s.wg.Done()

	scanner := bufio.NewScanner(pipe)
	// worker lines can exceed the default token size
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		s.shuttle(workerID, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		s.logger.Warn("worker pipe read failed",
			zap.String("worker_id", workerID),
			zap.Error(err),
		)
	}
}

// Stop waits for attached pipes to finish, drains queued entries, and stops
// the consumer.
func (s *Shuttle) Stop() {
	s.wg.Wait()

	if err := s.queue.Drain(drainTimeout); err != nil {
		s.logger.Warn("worker log queue drain timed out", zap.Error(err))
	}
	if err := s.queue.Close(); err != nil {
		s.logger.Warn("worker log queue closed with entries remaining", zap.Error(err))
	}

	s.consumer.Wait()
}

func (s *Shuttle) shuttle(workerID, line string) {
	entry := parseLine(workerID, line)

	switch {
	case entry.System:
		shuttledLines(1, "system")
	case entry.Level != "":
		shuttledLines(1, "console")
	default:
		shuttledLines(1, "raw")
	}

	if err := s.queue.Push(entry); err != nil {
		droppedLines(1)
	}
}

func (s *Shuttle) consume(ctx context.Context) {
	defer s.consumer.Done()

	for {
		entry, ok := s.queue.Next()
		if !ok {
			return
		}
		s.forward(ctx, entry)
	}
}

func (s *Shuttle) forward(ctx context.Context, entry logsink.Entry) {
	if entry.System {
		if s.sink != nil {
			s.sink.Write(ctx, entry)
		}
		return
	}

	level := zapcore.InfoLevel
	if entry.Level != "" {
		if err := level.UnmarshalText([]byte(entry.Level)); err != nil {
			level = zapcore.InfoLevel
		}
	}

	if ce := s.logger.Check(level, entry.Message); ce != nil {
		ce.Write(zap.String("worker_id", entry.WorkerID))
	}
}

// parseLine classifies one worker output line. Console-prefixed lines carry
// a level in brackets; system-prefixed lines go to the sink; everything else
// is surfaced as plain worker output at info.
func parseLine(workerID, line string) logsink.Entry {
	entry := logsink.Entry{
		Timestamp: time.Now(),
		WorkerID:  workerID,
	}

	switch {
	case strings.HasPrefix(line, consoleLogPrefix):
		rest := line[len(consoleLogPrefix):]
		if level, message, ok := splitLevel(rest); ok {
			entry.Level = level
			entry.Message = message
			return entry
		}
		// malformed prefix, surface as-is
		entry.Message = line

	case strings.HasPrefix(line, systemLogPrefix):
		entry.System = true
		entry.Message = strings.TrimSpace(line[len(systemLogPrefix):])

	default:
		entry.Message = line
	}

	return entry
}

// splitLevel parses "[level] message" into its parts.
func splitLevel(rest string) (string, string, bool) {
	if !strings.HasPrefix(rest, "[") {
		return "", "", false
	}

	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return "", "", false
	}

	level := strings.ToLower(strings.TrimSpace(rest[1:end]))
	message := strings.TrimSpace(rest[end+1:])
	if level == "" {
		return "", "", false
	}

	return level, message, true
}
