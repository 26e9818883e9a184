package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter reads answers line by line from the command's stdin.
type prompter struct {
	in   *bufio.Reader
	out  io.Writer
	file *os.File // stdin when it is a file, for no-echo reads
}

func newPrompter(cmd *cobra.Command) *prompter {
	stdin := cmd.InOrStdin()
	p := &prompter{in: bufio.NewReader(stdin), out: cmd.ErrOrStderr()}
	if f, ok := stdin.(*os.File); ok {
		p.file = f
	}
	return p
}

// password is ask without echo when stdin is a terminal. Pipes and other
// readers fall back to a plain line read.
func (p *prompter) password(label string) (string, error) {
	if p.file == nil || !term.IsTerminal(int(p.file.Fd())) {
		return p.ask(label)
	}
	fmt.Fprint(p.out, label)
	secret, err := term.ReadPassword(int(p.file.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// ask prints label and returns the trimmed answer.
func (p *prompter) ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question; anything but y/yes is no.
func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.ask(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
