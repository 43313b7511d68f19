package namespace

import (
	"context"
	"encoding/base64"
	"sort"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

type fakeCall struct {
	method string
	params map[string]interface{}
}

// fakeServer answers namespace calls from memory. Params and results pass
// through JSON so wire shapes are exercised.
type fakeServer struct {
	mu     sync.Mutex
	files  map[string][]byte
	dirs   map[string]bool
	mounts []types.Mount
	saved  map[string]types.SavedMount
	calls  []fakeCall

	// failures keyed by "method path"
	failures map[string]error
	// raw answers keyed by method
	answers map[string]interface{}
	// hooks run before a method is answered
	hooks map[string]func()
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		files:    make(map[string][]byte),
		dirs:     map[string]bool{"/": true},
		saved:    make(map[string]types.SavedMount),
		failures: make(map[string]error),
		answers:  make(map[string]interface{}),
		hooks:    make(map[string]func()),
	}
}

func (f *fakeServer) failOn(method, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = err
}

func (f *fakeServer) has(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[path]
	return ok || f.dirs[path]
}

func (f *fakeServer) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.method)
	}
	return out
}

func (f *fakeServer) lastParams(method string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i].params
		}
	}
	return nil
}

func (f *fakeServer) Call(ctx context.Context, method string, params rpc.Params, result interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var wire map[string]interface{}
	if params != nil {
		data, err := rpc.Marshal(params)
		if err != nil {
			return err
		}
		if err := rpc.Unmarshal(data, &wire); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{method: method, params: wire})
	hook := f.hooks[method]
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	out, err := f.answer(method, wire)
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	data, err := rpc.Marshal(out)
	if err != nil {
		return err
	}
	return rpc.Unmarshal(data, result)
}

func (f *fakeServer) answer(method string, p map[string]interface{}) (interface{}, error) {
	path, _ := p["path"].(string)
	if err, ok := f.failures[method+" "+path]; ok {
		return nil, err
	}
	if out, ok := f.answers[method]; ok {
		return out, nil
	}

	switch method {
	case methodRead:
		data, ok := f.files[path]
		if !ok {
			return nil, types.NewError(types.KindNotFound, method, path, "no such file")
		}
		return data, nil
	case methodWrite:
		content, _ := p["content"].(map[string]interface{})
		if content["__type__"] != rpc.BytesTag {
			return nil, types.NewError(types.KindValidation, method, path, "content must be a bytes envelope")
		}
		data, err := base64.StdEncoding.DecodeString(content["data"].(string))
		if err != nil {
			return nil, err
		}
		f.files[path] = data
		return nil, nil
	case methodDelete:
		if _, ok := f.files[path]; !ok {
			return nil, types.NewError(types.KindNotFound, method, path, "no such file")
		}
		delete(f.files, path)
		return nil, nil
	case methodExists:
		_, ok := f.files[path]
		return map[string]bool{"exists": ok || f.dirs[path]}, nil
	case methodIsDirectory:
		return map[string]bool{"is_directory": f.dirs[path]}, nil
	case methodMkdir:
		f.dirs[path] = true
		return nil, nil
	case methodList:
		return map[string]interface{}{"files": f.children(path)}, nil
	case methodListMounts, methodListConnectors:
		return f.mounts, nil
	case methodListSavedMounts, methodListSavedConnectors:
		out := make([]types.SavedMount, 0, len(f.saved))
		for _, s := range f.saved {
			out = append(out, s)
		}
		return out, nil
	case methodDeleteSavedMount:
		mp := p["mount_point"].(string)
		_, ok := f.saved[mp]
		delete(f.saved, mp)
		return ok, nil
	case methodRemoveMount:
		mp := p["mount_point"].(string)
		for i, m := range f.mounts {
			if m.MountPoint == mp {
				f.mounts = append(f.mounts[:i], f.mounts[i+1:]...)
				return true, nil
			}
		}
		return nil, types.NewError(types.KindNotFound, method, mp, "mount not active")
	}
	return nil, types.Errorf(types.KindUnsupported, method, "", "method %s not implemented", method)
}

func (f *fakeServer) children(dir string) []map[string]interface{} {
	var out []map[string]interface{}
	for p, data := range f.files {
		if paths.Parent(p) == dir {
			out = append(out, map[string]interface{}{"path": p, "size": len(data), "mime_type": "text/plain"})
		}
	}
	for p := range f.dirs {
		if p != dir && paths.Parent(p) == dir {
			out = append(out, map[string]interface{}{"path": p, "is_directory": true})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i]["path"].(string), out[j]["path"].(string)) < 0
	})
	return out
}

// mockCaller records calls for exact parameter assertions.
type mockCaller struct {
	mock.Mock
}

func (m *mockCaller) Call(ctx context.Context, method string, params rpc.Params, result interface{}) error {
	args := m.Called(ctx, method, params, result)
	return args.Error(0)
}
