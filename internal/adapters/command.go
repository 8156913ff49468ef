package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
)

// URLPlaceholder is replaced by the visited page address in command
// arguments and HTTP engine URLs.
const URLPlaceholder = "{url}"

// CommandEngine runs an external engine program once per test. The program
// receives the page address as an argument and the fetched document on
// stdin, and prints its result as JSON on stdout.
type CommandEngine struct {
	Command string
	Args    []string
	Env     map[string]string
	Shape   model.Shape
}

var _ ports.TestEngine = (*CommandEngine)(nil)

// Run implements ports.TestEngine.
func (e *CommandEngine) Run(ctx context.Context, category string, page ports.Page) (model.RawResult, error) {
	if strings.TrimSpace(e.Command) == "" {
		return nil, fmt.Errorf("engine command for %s is empty", category)
	}

	cmd := exec.CommandContext(ctx, e.Command, e.args(page)...)
	cmd.Env = buildEnv(e.Env, category)
	if len(page.Body) > 0 {
		cmd.Stdin = bytes.NewReader(page.Body)
	}

	res, err := runCaptured(cmd)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if out := res.primaryOutput(); out != "" {
			return nil, fmt.Errorf("%w: %s", err, out)
		}
		return nil, err
	}
	if res.Stdout == "" {
		return nil, errors.New("engine printed no result")
	}
	return Decode(e.Shape, []byte(res.Stdout))
}

func (e *CommandEngine) args(page ports.Page) []string {
	target := page.FinalURL
	if target == "" {
		target = page.URL
	}

	args := make([]string, 0, len(e.Args)+1)
	substituted := false
	for _, arg := range e.Args {
		if strings.Contains(arg, URLPlaceholder) {
			substituted = true
			arg = strings.ReplaceAll(arg, URLPlaceholder, target)
		}
		args = append(args, arg)
	}
	if !substituted {
		args = append(args, target)
	}
	return args
}

func buildEnv(custom map[string]string, category string) []string {
	env := os.Environ()
	env = append(env, "AUTOTEST_CATEGORY="+category)
	for k, v := range custom {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

// captured holds the output of a finished engine process.
type captured struct {
	Stdout string
	Stderr string
}

func runCaptured(cmd *exec.Cmd) (captured, error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()

	return captured{
		Stdout: strings.TrimSpace(stdoutBuf.String()),
		Stderr: strings.TrimSpace(stderrBuf.String()),
	}, err
}

// primaryOutput returns stderr if present, otherwise stdout.
func (c captured) primaryOutput() string {
	if c.Stderr != "" {
		return c.Stderr
	}
	return c.Stdout
}
