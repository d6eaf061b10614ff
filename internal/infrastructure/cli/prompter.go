package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

// Prompter implements ConfirmationPrompter using stdin/stdout.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewPrompter constructs a prompter referencing stdio. It is only enabled
// when stdin is a terminal, unless explicit streams are given.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	interactive := in != nil
	if in == nil {
		in = os.Stdin
		interactive = term.IsTerminal(int(os.Stdin.Fd()))
	}
	if out == nil {
		out = os.Stderr
	}
	return &Prompter{in: bufio.NewReader(in), out: out, interactive: interactive}
}

// Enabled indicates the prompter can ask the user.
func (p *Prompter) Enabled() bool {
	return p.interactive
}

// Confirm shows the verdict and asks. High risk requires typing "yes".
func (p *Prompter) Confirm(risk domain.RiskAssessment, command string) (bool, error) {
	if risk.Level != domain.RiskLow {
		fmt.Fprintf(p.out, "\n%s risk detected\n", strings.ToUpper(string(risk.Level)))
		for _, reason := range risk.Reasons {
			fmt.Fprintf(p.out, " - %s\n", reason)
		}
	}
	fmt.Fprintf(p.out, "Command:\n  %s\n", command)

	if risk.Level == domain.RiskHigh {
		return p.askExplicit()
	}
	return p.ask()
}

func (p *Prompter) ask() (bool, error) {
	fmt.Fprint(p.out, "Execute? [y/N]: ")
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	line = strings.ToLower(line)
	return line == "y" || line == "yes", nil
}

func (p *Prompter) askExplicit() (bool, error) {
	fmt.Fprint(p.out, "Type 'yes' to execute (anything else cancels): ")
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	return line == "yes", nil
}

// readLine treats EOF without input as a refusal.
func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

var _ ports.ConfirmationPrompter = (*Prompter)(nil)
