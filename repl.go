package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"chatbot-client/internal/backend"
	"chatbot-client/internal/chat"
	"chatbot-client/internal/session"
	"chatbot-client/internal/terminal"
	"chatbot-client/internal/ui"
)

// repl runs the interactive loop on top of the session controller
type repl struct {
	ctx          context.Context
	controller   *session.Controller
	display      *ui.Display
	backendURL   string
	settingsPath string
	workingDir   string
	log          *zap.Logger
}

// command is a parsed slash command
type command struct {
	name string
	args []string
	// raw is the unsplit argument text
	raw string
}

// parseCommand splits "/name a b c" into its parts. Lines that do not start
// with a slash are not commands.
func parseCommand(line string) (command, bool) {
	if !strings.HasPrefix(line, "/") {
		return command{}, false
	}
	fields := strings.Fields(line)
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	raw := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	return command{name: name, args: fields[1:], raw: raw}, true
}

// restAfter returns the raw argument text after the first n arguments
func (c command) restAfter(n int) string {
	s := c.raw
	for i := 0; i < n; i++ {
		s = strings.TrimSpace(s)
		if j := strings.IndexAny(s, " \t"); j >= 0 {
			s = s[j:]
		} else {
			return ""
		}
	}
	return strings.TrimSpace(s)
}

type lineReader interface {
	ReadUserInput() (string, error)
}

func (r *repl) run(in lineReader) {
	for {
		if r.ctx.Err() != nil {
			return
		}

		name := ""
		if active := r.controller.Store().Active(); active != nil {
			name = active.Name
		}
		r.display.PrintPrompt(name)

		line, err := in.ReadUserInput()
		if err != nil {
			return
		}
		if line == "" {
			continue
		}
		if r.handle(line) {
			return
		}
	}
}

// handle executes one line of input. It reports whether the loop should end.
func (r *repl) handle(line string) (quit bool) {
	cmd, ok := parseCommand(line)
	if !ok {
		if line == "exit" || line == "quit" {
			return true
		}
		r.sendMessage(line)
		return false
	}

	var err error
	switch cmd.name {
	case "exit", "quit":
		return true
	case "clear":
		r.display.ClearScreen()
		r.display.PrintWelcome(r.controller.Settings(), r.backendURL)
	case "new":
		err = r.controller.StartSessionCreation()
		if err == nil {
			r.display.PrintInfo("Type your first message to start a new session")
		}
	case "create":
		err = r.createSession(cmd)
	case "upload":
		err = r.uploadSession(cmd)
	case "sessions":
		err = r.listSessions()
	case "switch":
		err = r.switchSession(cmd)
	case "rename":
		err = r.renameSession(cmd)
	case "autorename":
		err = r.autoRename(cmd)
	case "delete":
		err = r.deleteSession(cmd)
	case "feedback":
		err = r.sendFeedback(cmd)
	case "model":
		err = r.updateModel(cmd)
	case "history":
		r.display.PrintHistory(r.controller.Store().Active())
	case "state":
		r.display.PrintState(r.controller.State())
	default:
		r.display.PrintWarning(fmt.Sprintf("Unknown command /%s", cmd.name))
	}

	if err != nil {
		r.printError(err)
	}
	return false
}

// printError reports err with a hint for the backend errors a user can act on
func (r *repl) printError(err error) {
	r.display.PrintError(err)
	switch {
	case backend.IsNotFound(err):
		r.display.PrintInfo("That session no longer exists, run /sessions to refresh the list")
	case backend.IsUnauthorized(err):
		r.display.PrintInfo("The backend rejected the token, check -token or CHATBOT_TOKEN")
	}
}

func (r *repl) sendMessage(text string) {
	r.controller.SetTyping(true)
	r.display.PrintUserMessage(chat.NewUserMessage(text, time.Now()))

	answer, err := r.controller.SendMessage(r.ctx, text)
	if answer != nil {
		r.display.PrintAssistantMessage(*answer)
	}
	if err != nil {
		r.printError(err)
	}
	r.controller.SetTyping(false)
}

func (r *repl) createSession(cmd command) error {
	sess, err := r.controller.CreateSession(r.ctx, cmd.raw)
	if err != nil {
		return err
	}
	r.display.PrintSuccess(fmt.Sprintf("Created %q (%s). Use /switch %s to open it", sess.Name, sess.ID, sess.ID))
	return nil
}

func (r *repl) uploadSession(cmd command) error {
	refs, name := terminal.SplitAttachmentRefs(cmd.raw)
	if len(refs) == 0 {
		return errors.New("usage: /upload <name> @file [@file...]")
	}

	r.controller.SetDragging(true)
	files, err := terminal.ResolveAttachments(r.workingDir, refs)
	r.controller.SetDragging(false)
	if err != nil {
		var ambiguous *terminal.AmbiguousRefError
		if errors.As(err, &ambiguous) {
			terminal.ShowFileSuggestions(r.display.Writer(), ambiguous.Ref, ambiguous.Matches)
		}
		return err
	}

	sess, err := r.controller.CreateSessionWithFiles(r.ctx, name, files)
	if err != nil {
		return err
	}
	r.display.PrintSuccess(fmt.Sprintf("Created %q with %d files (%s)", sess.Name, len(files), sess.ID))
	return nil
}

func (r *repl) listSessions() error {
	sessions, err := r.controller.LoadSessions(r.ctx)
	if err != nil {
		return err
	}
	r.display.PrintSessions(sessions, r.controller.Store().ActiveID())
	return nil
}

func (r *repl) switchSession(cmd command) error {
	if len(cmd.args) != 1 {
		return errors.New("usage: /switch <id>")
	}
	sess, err := r.controller.SwitchSession(r.ctx, cmd.args[0])
	if err != nil {
		return err
	}
	if r.controller.State().Session == session.Creating {
		r.display.PrintInfo(fmt.Sprintf("%q is empty, type a message to start it", sess.Name))
	}
	return nil
}

func (r *repl) renameSession(cmd command) error {
	name := cmd.restAfter(1)
	if len(cmd.args) < 2 || name == "" {
		return errors.New("usage: /rename <id> <name>")
	}
	sess, err := r.controller.RenameSession(r.ctx, cmd.args[0], name)
	if err != nil {
		return err
	}
	r.display.PrintSuccess(fmt.Sprintf("Renamed to %q", sess.Name))
	return nil
}

func (r *repl) autoRename(cmd command) error {
	if len(cmd.args) != 1 {
		return errors.New("usage: /autorename <id>")
	}
	sess, err := r.controller.RenameSessionBasedOnFirstMessage(r.ctx, cmd.args[0])
	if err != nil {
		return err
	}
	r.display.PrintSuccess(fmt.Sprintf("Renamed to %q", sess.Name))
	return nil
}

func (r *repl) deleteSession(cmd command) error {
	if len(cmd.args) != 1 {
		return errors.New("usage: /delete <id>")
	}
	if err := r.controller.DeleteSession(r.ctx, cmd.args[0]); err != nil {
		return err
	}
	r.display.PrintSuccess(fmt.Sprintf("Deleted session %s", cmd.args[0]))
	return nil
}

func (r *repl) sendFeedback(cmd command) error {
	if len(cmd.args) < 2 {
		return errors.New("usage: /feedback <messageId> <1-5> [comments]")
	}
	rating, err := strconv.Atoi(cmd.args[1])
	if err != nil {
		return fmt.Errorf("rating must be a number: %w", err)
	}
	_, err = r.controller.SendFeedback(r.ctx, cmd.args[0], rating, cmd.restAfter(2))
	return err
}

func (r *repl) updateModel(cmd command) error {
	settings := r.controller.Settings()
	if len(cmd.args) == 0 {
		r.display.PrintInfo(fmt.Sprintf("%s/%s (%s)", settings.Provider, settings.Model, settings.Language))
		return nil
	}
	if len(cmd.args) < 2 || len(cmd.args) > 3 {
		return errors.New("usage: /model <provider> <model> [language]")
	}

	settings.Provider = cmd.args[0]
	settings.Model = cmd.args[1]
	if len(cmd.args) == 3 {
		settings.Language = cmd.args[2]
	}
	if err := r.controller.UpdateSettings(settings); err != nil {
		return err
	}
	if err := settings.Save(r.settingsPath); err != nil {
		r.log.Warn("failed to save settings", zap.String("path", r.settingsPath), zap.Error(err))
		return err
	}
	r.display.PrintSuccess(fmt.Sprintf("Using %s/%s", settings.Provider, settings.Model))
	return nil
}
