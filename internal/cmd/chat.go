package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hupe1980/memora"
	"github.com/hupe1980/memora/model"
)

// NewChatCommand creates the interactive chat command
func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive goal loop",
		Long: `Read goals line by line and run each one as a new agent.

Commands:
  switch [model]  select another model (by id or list number)
  exit, quit      leave the loop`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}

	cmd.Flags().String("model", "", "Model id to start with (default: configured default model)")

	return cmd
}

// chatSession holds the REPL state.
type chatSession struct {
	m      *memora.Memora
	in     *bufio.Scanner
	out    io.Writer
	model  string
	prompt bool
}

func runChat(cmd *cobra.Command, _ []string) error {
	m, _, err := newMemora(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	s := &chatSession{
		m:      m,
		in:     bufio.NewScanner(cmd.InOrStdin()),
		out:    cmd.OutOrStdout(),
		prompt: isInteractive(cmd.InOrStdin()),
	}

	if m.Router() == nil {
		return errors.New("chat requires a model router")
	}
	s.model, _ = cmd.Flags().GetString("model")
	if s.model == "" {
		s.model = m.DefaultModel()
	}
	if _, err := m.Router().Get(s.model); err != nil {
		return err
	}

	hint := color.New(color.FgHiBlack)
	fmt.Fprintf(s.out, "Model: %s\n", s.model)
	hint.Fprintln(s.out, "Type 'exit' or 'quit' to leave, 'switch' to change the model.")

	for {
		line, ok := s.readLine("\n> ")
		if !ok {
			return s.in.Err()
		}
		if line == "" {
			continue
		}

		switch fields := strings.Fields(line); strings.ToLower(fields[0]) {
		case "exit", "quit":
			fmt.Fprintln(s.out, "Bye!")
			return nil
		case "switch":
			if len(fields) > 1 {
				s.switchModel(fields[1])
				continue
			}
			s.listModels()
			choice, ok := s.readLine("Model: ")
			if !ok {
				return s.in.Err()
			}
			s.switchModel(choice)
			continue
		}

		res := m.RunWithResult(cmd.Context(), line, s.model, "")
		printResult(cmd, res)
	}
}

func (s *chatSession) readLine(prompt string) (string, bool) {
	if s.prompt {
		fmt.Fprint(s.out, prompt)
	}
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *chatSession) listModels() {
	for i, e := range s.m.Models() {
		fmt.Fprintf(s.out, "  [%d] %-15s : %s\n", i+1, e.ID, e.Description)
	}
}

// switchModel accepts a model id or a 1-based index into the model list.
func (s *chatSession) switchModel(choice string) {
	id, err := resolveModel(s.m.Models(), choice)
	if err != nil {
		color.New(color.FgRed).Fprintf(s.out, "%v\n", err)
		return
	}
	s.model = id
	fmt.Fprintf(s.out, "Switched to %s\n", id)
}

func resolveModel(entries []model.Entry, choice string) (string, error) {
	choice = strings.TrimSpace(choice)
	if n, err := strconv.Atoi(choice); err == nil {
		if n >= 1 && n <= len(entries) {
			return entries[n-1].ID, nil
		}
		return "", fmt.Errorf("no model number %d", n)
	}
	for _, e := range entries {
		if e.ID == choice {
			return e.ID, nil
		}
	}
	return "", fmt.Errorf("unknown model: %s", choice)
}

func isInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
