package display

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/qaznotquaz/aLexA/internal/envelope"
	"github.com/qaznotquaz/aLexA/internal/event"
	"github.com/qaznotquaz/aLexA/internal/logging"
)

var testCast = []envelope.Identity{
	{Name: "Lexa", Color: "#00FFFF", Port: 4000},
	{Name: "Xander", Color: "#FF5555", Port: 4001},
}

func TestConsole_Lines(t *testing.T) {
	tests := []struct {
		name  string
		write func(c *Console)
		want  string
	}{
		{
			name:  "local speech",
			write: func(c *Console) { c.LocalSpeech("Hello there.") },
			want:  "Lexa: Hello there.\n",
		},
		{
			name:  "outgoing",
			write: func(c *Console) { c.OutgoingMessage("Xander", "hi") },
			want:  "Lexa → Xander: hi\n",
		},
		{
			name:  "incoming",
			write: func(c *Console) { c.IncomingMessage("Xander", "hey") },
			want:  "Lexa ← Xander: hey\n",
		},
		{
			name:  "unknown peer",
			write: func(c *Console) { c.IncomingMessage("Stranger", "boo") },
			want:  "Lexa ← Stranger: boo\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := NewConsole(&buf, "Lexa", testCast)
			tt.write(c)
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestConsole_ConcurrentWritesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, "Lexa", testCast)

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() { c.IncomingMessage("Xander", "line") })
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 50 {
		t.Fatalf("got %d lines, want 50", len(lines))
	}
	for _, line := range lines {
		if line != "Lexa ← Xander: line" {
			t.Errorf("interleaved line %q", line)
		}
	}
}

func TestRenderCast(t *testing.T) {
	var buf bytes.Buffer
	out := RenderCast(&buf, testCast)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("RenderCast() = %q, want 2 lines", out)
	}
	if !strings.HasPrefix(lines[0], "Lexa    ") || !strings.Contains(lines[0], "4000") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "#FF5555") {
		t.Errorf("second line = %q, missing color", lines[1])
	}
}

func TestRecorder_LogsEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriterLogger(&buf, logging.LevelInfo)
	bus := event.NewBus()
	NewRecorder(logger).Attach(bus)

	bus.Publish(event.NewCueEnteredEvent("Lexa", "intro", "1", "leading", "monologue", []string{"Xander"}))
	bus.Publish(event.NewProtocolViolationEvent("Lexa", "Xander", "dm", "content before roll-call"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2: %s", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if first["event_type"] != event.TypeCueEntered || first["scene"] != "intro" || first["level"] != "INFO" {
		t.Errorf("first record = %v", first)
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if second["level"] != "WARN" {
		t.Errorf("protocol violation logged at %v, want WARN", second["level"])
	}
}

func TestConsole_WithWidthWraps(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, "Lexa", testCast, WithWidth(10))
	c.LocalSpeech("one two three four")

	out := buf.String()
	if strings.Count(out, "\n") < 2 {
		t.Errorf("expected wrapped output, got %q", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasSuffix(line, " ") {
			t.Errorf("line %q has trailing padding", line)
		}
	}
}
