package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"chatbot-client/internal/chat"
	"chatbot-client/internal/config"
	"chatbot-client/internal/session"
	"chatbot-client/internal/terminal"
)

// Color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Options configures a Display
type Options struct {
	Width   int
	// TTY enables colors, the spinner and terminal-aware markdown styles.
	TTY     bool
	Verbose bool
}

// Display renders the chat to a terminal
type Display struct {
	out      io.Writer
	width    int
	tty      bool
	verbose  bool
	renderer *glamour.TermRenderer
	spinner  *terminal.Spinner
}

// NewDisplay creates a new display writing to out
func NewDisplay(out io.Writer, opts Options) *Display {
	width := opts.Width
	if width <= 0 {
		width = 80
	}

	style := glamour.WithStandardStyle("notty")
	if opts.TTY {
		style = glamour.WithAutoStyle()
	}
	// Create markdown renderer
	renderer, _ := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(max(width-10, 20)),
	)

	d := &Display{
		out:      out,
		width:    width,
		tty:      opts.TTY,
		verbose:  opts.Verbose,
		renderer: renderer,
	}
	if opts.TTY {
		d.spinner = terminal.NewSpinner(out)
	}
	return d
}

// Writer returns the destination of the display
func (d *Display) Writer() io.Writer {
	return d.out
}

func (d *Display) color(code string) string {
	if !d.tty {
		return ""
	}
	return code
}

func (d *Display) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

// ClearScreen clears the terminal
func (d *Display) ClearScreen() {
	if d.tty {
		d.printf("\033[2J\033[H")
	}
}

// PrintWelcome displays the welcome message
func (d *Display) PrintWelcome(settings config.Settings, backendURL string) {
	bold, cyan, gray, reset := d.color(colorBold), d.color(colorCyan), d.color(colorGray), d.color(colorReset)
	d.printf("%s%schatbot-client%s\n", bold, cyan, reset)
	d.printf("%sBackend:%s %s\n", gray, reset, backendURL)
	d.printf("%sModel:%s %s/%s %s(%s)%s\n", gray, reset, settings.Provider, settings.Model, gray, settings.Language, reset)
	d.printf("%sCommands:%s /new | /create <name> | /upload <name> @file... | /sessions | /switch <id>\n", gray, reset)
	d.printf("          /rename <id> <name> | /autorename <id> | /delete <id> | /feedback <msg> <1-5> [comment]\n")
	d.printf("          /model <provider> <model> [language] | /history | /state | /clear | /exit\n\n")
}

// PrintSeparator prints a visual separator
func (d *Display) PrintSeparator() {
	line := strings.Repeat("─", min(d.width, 80))
	d.printf("%s%s%s\n", d.color(colorDim), line, d.color(colorReset))
}

// PrintPrompt displays user input prompt
func (d *Display) PrintPrompt(sessionName string) {
	if sessionName != "" {
		d.printf("\n%s[%s]%s", d.color(colorGray), sessionName, d.color(colorReset))
	} else {
		d.printf("\n")
	}
	d.printf("%s%s❯%s ", d.color(colorBold), d.color(colorGreen), d.color(colorReset))
}

// PrintUserMessage displays a user message with timestamp
func (d *Display) PrintUserMessage(m chat.Message) {
	d.printUserMessage(m, "")
}

func (d *Display) printUserMessage(m chat.Message, note string) {
	gray, reset := d.color(colorGray), d.color(colorReset)
	d.printf("\n%s┌─ You · %s%s%s\n", gray, formatTime(m.CreatedAt), note, reset)
	d.printf("%s│%s %s\n", gray, reset, m.Content)
	d.printf("%s└%s\n", gray, reset)
}

// PrintAssistantMessage renders an answer as markdown followed by its
// citations and usage figures
func (d *Display) PrintAssistantMessage(m chat.Message) {
	gray, reset := d.color(colorGray), d.color(colorReset)
	d.printf("\n%s┌─ Assistant · %s%s\n", gray, formatTime(m.CreatedAt), reset)

	for _, line := range strings.Split(d.render(PlainText(m.Content)), "\n") {
		d.printf("%s│%s %s\n", gray, reset, line)
	}

	// Show sources if available
	if docs := m.Metadata.Documents; len(docs) > 0 {
		d.printf("%s│%s\n", gray, reset)
		d.printf("%s│ 📚 Sources:%s\n", gray, reset)
		for _, doc := range docs {
			d.printf("%s│    • %s, p. %d%s\n", gray, truncate(doc.DocName, 60), doc.DocPage, reset)
			if d.verbose && doc.DocContent != "" {
				d.printf("%s│      %s%s\n", gray, truncateWords(PlainText(doc.DocContent), 30), reset)
			}
		}
	}

	d.printf("%s│%s\n", gray, reset)
	d.printf("%s│ %s%s\n", gray, messageFooter(m), reset)
	d.printf("%s└%s\n", gray, reset)
}

func (d *Display) render(content string) string {
	if d.renderer == nil || strings.TrimSpace(content) == "" {
		return content
	}
	rendered, err := d.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

func messageFooter(m chat.Message) string {
	parts := []string{"id " + m.ID}
	if m.ResponseTime != nil {
		parts = append(parts, fmt.Sprintf("⏱️  %s", formatDuration(time.Duration(*m.ResponseTime*float64(time.Second)))))
	}
	if m.PromptTokens != nil || m.CompletionTokens != nil {
		parts = append(parts, fmt.Sprintf("tokens %d/%d", deref(m.PromptTokens), deref(m.CompletionTokens)))
	}
	if m.Feedback != nil {
		parts = append(parts, fmt.Sprintf("rated %d/5", m.Feedback.Rating))
	}
	return strings.Join(parts, " · ")
}

// PrintHistory shows the full message history of a session
func (d *Display) PrintHistory(sess *chat.Session) {
	if sess == nil {
		d.PrintInfo("No active session")
		return
	}
	if len(sess.Messages) == 0 {
		d.PrintInfo(fmt.Sprintf("%q has no messages yet", sess.Name))
		return
	}

	d.PrintSeparator()
	d.printf("%s%s%s\n", d.color(colorBold), sess.Name, d.color(colorReset))
	d.PrintSeparator()
	for _, m := range sess.Messages {
		if m.Role == chat.RoleUser {
			note := ""
			// The backend never confirmed it, usually because the send failed.
			if m.Pending() {
				note = " · not delivered"
			}
			d.printUserMessage(m, note)
		} else {
			d.PrintAssistantMessage(m)
		}
	}
	d.PrintSeparator()
}

// PrintSessions lists sessions, marking the active one
func (d *Display) PrintSessions(sessions []*chat.Session, activeID string) {
	if len(sessions) == 0 {
		d.PrintInfo("No sessions yet. Type a message to start one.")
		return
	}
	for _, s := range sessions {
		marker := " "
		if s.ID == activeID {
			marker = d.color(colorGreen) + "*" + d.color(colorReset)
		}
		files := ""
		if s.HasFiles {
			files = " 📎"
		}
		updated := ""
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		d.printf("%s %s%-8s%s %s%s %s%s%s\n", marker,
			d.color(colorGray), s.ID, d.color(colorReset),
			s.Name, files,
			d.color(colorDim), updated, d.color(colorReset))
	}
}

// PrintState shows the controller's lifecycle state
func (d *Display) PrintState(st session.State) {
	d.printf("%ssession=%s creation=%s interaction=%s%s\n",
		d.color(colorGray), st.Session, st.Creation, st.Interaction, d.color(colorReset))
}

// PrintInfo displays info message
func (d *Display) PrintInfo(msg string) {
	d.printf("%sℹ %s%s\n", d.color(colorCyan), msg, d.color(colorReset))
}

// PrintWarning displays warning message
func (d *Display) PrintWarning(msg string) {
	d.printf("%s⚠ %s%s\n", d.color(colorYellow), msg, d.color(colorReset))
}

// PrintError displays error message
func (d *Display) PrintError(err error) {
	d.printf("%s✗ Error: %v%s\n", d.color(colorRed), err, d.color(colorReset))
}

// PrintSuccess displays success message
func (d *Display) PrintSuccess(msg string) {
	d.printf("%s✓ %s%s\n", d.color(colorGreen), msg, d.color(colorReset))
}

// PrintGoodbye displays goodbye message
func (d *Display) PrintGoodbye() {
	d.printf("\n%s%sGoodbye! 👋%s\n", d.color(colorBold), d.color(colorCyan), d.color(colorReset))
}

// Cleanup ensures the display is in a good state before exit
func (d *Display) Cleanup() {
	if d.spinner != nil {
		d.spinner.Stop()
	}
}

func (d *Display) startSpinner(msg string) {
	if d.spinner != nil {
		d.spinner.Start(msg)
	}
}

func (d *Display) stopSpinner() {
	if d.spinner != nil {
		d.spinner.Stop()
	}
}

// Helper functions

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.Local().Format("15:04:05")
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
