package orchestrator

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/core-tools/hsu-deploy/pkg/errors"
)

// ReadTokens lists the valid tokens and reads one space-separated line of
// tokens from in. The prompt itself is written only when interactive.
func ReadTokens(in io.Reader, out io.Writer, interactive bool, validTokens []string) ([]string, error) {
	fmt.Fprintf(out, "Valid services: %s\n", strings.Join(validTokens, " "))
	if interactive {
		fmt.Fprint(out, "Services to use (space separated): ")
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.NewIOError("failed to read services", err)
	}

	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, errors.NewValidationError("no services specified", nil)
	}
	return tokens, nil
}
