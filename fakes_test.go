package civers

import "context"

// fakeGit is a scripted Git that records the calls it receives
type fakeGit struct {
	shallow     bool
	shallowErr  error
	fetchErr    error
	describe    string
	describeErr error

	calls     []string
	unshallow bool
}

func (f *fakeGit) IsShallow(context.Context) (bool, error) {
	f.calls = append(f.calls, "is-shallow")
	return f.shallow, f.shallowErr
}

func (f *fakeGit) FetchHistory(_ context.Context, unshallow bool) error {
	f.calls = append(f.calls, "fetch")
	f.unshallow = unshallow
	return f.fetchErr
}

func (f *fakeGit) Describe(context.Context) (string, error) {
	f.calls = append(f.calls, "describe")
	return f.describe, f.describeErr
}

// recordingSink keeps outputs in the order they were set
type recordingSink struct {
	outputs []Output
}

func (s *recordingSink) SetOutput(key, value string) error {
	s.outputs = append(s.outputs, Output{Key: key, Value: value})
	return nil
}

func (s *recordingSink) get(key string) (string, bool) {
	for _, o := range s.outputs {
		if o.Key == key {
			return o.Value, true
		}
	}
	return "", false
}
