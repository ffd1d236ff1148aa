package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/semmy-space/vlt/internal/output"
)

// maxValueSize bounds a credential value read from stdin.
const maxValueSize = 1 << 20

// readValue reads a credential value from r, dropping one trailing "\n" or
// "\r\n".
func readValue(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxValueSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read value: %w", err)
	}
	if len(data) > maxValueSize {
		return "", fmt.Errorf("value exceeds %d bytes", maxValueSize)
	}

	value := string(data)
	if trimmed, ok := strings.CutSuffix(value, "\n"); ok {
		value = strings.TrimSuffix(trimmed, "\r")
	}
	return value, nil
}

// readSecret prompts on stderr and reads a value from the terminal without
// echo.
func readSecret(streams *Streams, prompt string) (string, error) {
	in, ok := streams.In.(*os.File)
	if !ok || !term.IsTerminal(int(in.Fd())) {
		return "", output.NewCLIError(output.ExitUsage, "No value given and stdin is not a terminal").
			WithHint("Pass the value as an argument or pipe it with --stdin")
	}

	fmt.Fprint(streams.Err, prompt)
	data, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(streams.Err)
	if err != nil {
		return "", fmt.Errorf("failed to read value: %w", err)
	}
	return string(data), nil
}

// confirm prints a prompt and reads a y/N answer
func confirm(streams *Streams, text string) bool {
	fmt.Fprint(streams.Err, text+" [y/N]: ")
	line, _ := bufio.NewReader(streams.In).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
