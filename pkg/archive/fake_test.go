package archive

import (
	"context"
	"strings"
	"sync"
)

type call struct {
	name string
	args []string
}

type response struct {
	out string
	err error
}

// fakeRunner records invocations and replies per command name
type fakeRunner struct {
	mu        sync.Mutex
	calls     []call
	responses map[string][]response
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: make(map[string][]response)}
}

func (f *fakeRunner) on(name, out string, err error) *fakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[name] = append(f.responses[name], response{out: out, err: err})
	return f
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{name: name, args: append([]string(nil), args...)})

	queue := f.responses[name]
	if len(queue) == 0 {
		return nil, nil
	}
	r := queue[0]
	if len(queue) > 1 {
		f.responses[name] = queue[1:]
	}
	return []byte(r.out), r.err
}

func (f *fakeRunner) commandLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.calls))
	for i, c := range f.calls {
		lines[i] = strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
	}
	return lines
}
