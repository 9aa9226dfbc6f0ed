// Package logger prints category-tagged lines to the terminal and, for the
// service process, appends the same entries as JSON to a daily log file.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (lv Level) String() string {
	if lv < DEBUG || lv > FATAL {
		return "INFO"
	}
	return levelNames[lv]
}

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	for i, name := range levelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Level(i)
		}
	}
	return INFO
}

type palette struct {
	level, category *color.Color
}

var palettes = map[Level]palette{
	DEBUG: {color.New(color.FgCyan), color.New(color.FgCyan, color.Bold)},
	INFO:  {color.New(color.FgGreen), color.New(color.FgGreen, color.Bold)},
	WARN:  {color.New(color.FgYellow), color.New(color.FgYellow, color.Bold)},
	ERROR: {color.New(color.FgRed), color.New(color.FgRed, color.Bold)},
	FATAL: {color.New(color.FgRed, color.Bold), color.New(color.FgRed, color.Bold)},
}

var (
	timeColor   = color.New(color.FgBlue)
	sourceColor = color.New(color.FgMagenta)
)

type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
}

type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	file     *os.File
	colorize bool
	min      Level
}

// NewLogger writes coloured lines to stdout and JSON lines to
// logs/ticketing-<date>.log. LOG_LEVEL sets the lowest level printed.
func NewLogger() *Logger {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Fatal("Failed to create logs directory:", err)
	}

	path := filepath.Join("logs", fmt.Sprintf("ticketing-%s.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}

	l := &Logger{
		out:      os.Stdout,
		file:     file,
		colorize: true,
		min:      ParseLevel(os.Getenv("LOG_LEVEL")),
	}
	l.Info("LOGGER", fmt.Sprintf("Logging to stdout and %s at level %s", path, l.min))
	return l
}

// New returns a logger that writes plain terminal lines to out and keeps no log file.
func New(out io.Writer) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{out: out, min: DEBUG}
}

func (l *Logger) SetLevel(lv Level) {
	l.mu.Lock()
	l.min = lv
	l.mu.Unlock()
}

func (l *Logger) write(lv Level, category, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lv < l.min {
		return
	}

	entry := Entry{
		Timestamp: time.Now().UTC(),
		Level:     lv.String(),
		Category:  strings.ToUpper(category),
		Message:   message,
	}
	// skip write and the public level method
	if _, file, line, ok := runtime.Caller(2); ok {
		entry.Source = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	fmt.Fprintln(l.out, l.terminalLine(lv, entry))
	if l.file != nil {
		if raw, err := json.Marshal(entry); err == nil {
			l.file.Write(append(raw, '\n'))
		}
	}
}

func (l *Logger) terminalLine(lv Level, e Entry) string {
	clock := e.Timestamp.Format("15:04:05")
	level := fmt.Sprintf("%-5s", e.Level)
	category := fmt.Sprintf("[%-10s]", e.Category)
	source := ""
	if e.Source != "" {
		source = fmt.Sprintf(" (%s)", e.Source)
	}

	if l.colorize {
		p := palettes[lv]
		clock = timeColor.Sprint(clock)
		level = p.level.Sprint(level)
		category = p.category.Sprint(category)
		if source != "" {
			source = sourceColor.Sprint(source)
		}
	}
	return fmt.Sprintf("%s %s %s %s%s", clock, level, category, e.Message, source)
}

func (l *Logger) Debug(category, message string) { l.write(DEBUG, category, message) }
func (l *Logger) Info(category, message string)  { l.write(INFO, category, message) }
func (l *Logger) Warn(category, message string)  { l.write(WARN, category, message) }
func (l *Logger) Error(category, message string) { l.write(ERROR, category, message) }

func (l *Logger) Fatal(category, message string) {
	l.write(FATAL, category, message)
	l.Close()
	os.Exit(1)
}

func (l *Logger) LogTicket(action, ticketID, message string) {
	l.write(INFO, "TICKET", fmt.Sprintf("[%s] %s - %s", action, ticketID, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.write(INFO, "API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogKafka(action, topic, message string) {
	l.write(INFO, "KAFKA", fmt.Sprintf("[%s] %s - %s", action, topic, message))
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.write(INFO, "DATABASE", fmt.Sprintf("[%s] %s - %s", operation, table, message))
}

func (l *Logger) LogSecurity(event, message string) {
	l.write(WARN, "SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

// Close flushes and releases the log file. The logger keeps printing to the terminal.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Sync()
		l.file.Close()
		l.file = nil
	}
}
