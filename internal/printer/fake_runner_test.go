package printer

import (
	"context"
	"errors"
	"strings"
	"sync"
)

type fakeResponse struct {
	match string // substring of the joined command line
	out   string
	err   error
}

// fakeRunner answers commands from a script; unknown commands fail.
type fakeRunner struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     []string
}

func (f *fakeRunner) on(match, out string, err error) *fakeRunner {
	f.responses = append(f.responses, fakeResponse{match: match, out: out, err: err})
	return f
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	f.mu.Lock()
	f.calls = append(f.calls, line)
	f.mu.Unlock()
	for _, r := range f.responses {
		if strings.Contains(line, r.match) {
			return []byte(r.out), r.err
		}
	}
	return nil, errors.New("unexpected command: " + line)
}

func (f *fakeRunner) called(match string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.Contains(c, match) {
			return true
		}
	}
	return false
}
