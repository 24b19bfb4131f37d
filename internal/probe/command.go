package probe

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/CZERTAINLY/dfswatch/internal/model"
)

type Command struct {
	Path    string
	Args    []string
	Env     []string
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// ParseCommand splits the configured command line with shell quoting rules.
// No shell is involved, pipes need an explicit `sh -c '...'`. Environment
// values starting with $ are expanded from the current process environment.
func ParseCommand(cfg model.Probe) (Command, error) {
	argv, err := shlex.Split(cfg.Command)
	if err != nil {
		return Command{}, fmt.Errorf("parsing probe.command: %w", err)
	}
	if len(argv) == 0 {
		return Command{}, errors.New("parsing probe.command: empty command")
	}

	var env []string
	if len(cfg.Env) > 0 {
		env = os.Environ()
		for k, v := range cfg.Env {
			if strings.HasPrefix(v, "$") {
				v = os.ExpandEnv(v)
			}
			env = append(env, strings.ToUpper(k)+"="+v)
		}
	}

	return Command{
		Path:    argv[0],
		Args:    argv[1:],
		Env:     env,
		Timeout: cfg.TimeoutDuration(),
	}, nil
}
