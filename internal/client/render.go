package client

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/vovakirdan/roomchat-server/internal/chat"
)

// DefaultWidth is the terminal width assumed when none is given.
const DefaultWidth = 80

// Renderer prints messages: the local user's own messages right-aligned,
// everyone else's left-aligned. Ownership is decided by display name only.
type Renderer struct {
	mu    sync.Mutex
	out   io.Writer
	self  string
	width int
}

// NewRenderer creates a renderer writing to out for the local display name self.
func NewRenderer(out io.Writer, self string, width int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Renderer{out: out, self: self, width: width}
}

// Render prints msgs in order.
func (r *Renderer) Render(msgs []chat.MessageView) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range msgs {
		fmt.Fprintln(r.out, r.Format(m))
	}
}

// Info prints a status line.
func (r *Renderer) Info(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "* "+format+"\n", args...)
}

// Format returns the line printed for m.
func (r *Renderer) Format(m chat.MessageView) string {
	stamp := m.CreatedAt.Local().Format("15:04")
	if m.UserName == r.self {
		line := fmt.Sprintf("%s [%s]", m.Content, stamp)
		if pad := r.width - utf8.RuneCountInString(line); pad > 0 {
			return strings.Repeat(" ", pad) + line
		}
		return line
	}
	return fmt.Sprintf("[%s] %s: %s", stamp, m.UserName, m.Content)
}
