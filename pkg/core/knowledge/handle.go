package knowledge

import "sync"

// Status is the lifecycle state of an index path within this process.
type Status int

const (
	StatusMissing Status = iota
	StatusBuilding
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusBuilding:
		return "BUILDING"
	case StatusReady:
		return "READY"
	}
	return "MISSING"
}

// IndexHandle serializes open-or-build for one canonical path.
type IndexHandle struct {
	Path string

	mu     sync.Mutex // held for the whole open-or-build
	state  sync.Mutex // guards status and snap
	status Status
	snap   *Snapshot
}

// Status reports the handle's current state.
func (h *IndexHandle) Status() Status {
	h.state.Lock()
	defer h.state.Unlock()
	return h.status
}

func (h *IndexHandle) set(status Status, snap *Snapshot) {
	h.state.Lock()
	h.status = status
	h.snap = snap
	h.state.Unlock()
}

func (h *IndexHandle) cached() *Snapshot {
	h.state.Lock()
	defer h.state.Unlock()
	if h.status != StatusReady {
		return nil
	}
	return h.snap
}

var handles = struct {
	sync.Mutex
	m map[string]*IndexHandle
}{m: make(map[string]*IndexHandle)}

// Handle returns the process-wide handle for path.
func Handle(path string) *IndexHandle {
	handles.Lock()
	defer handles.Unlock()

	h, ok := handles.m[path]
	if !ok {
		h = &IndexHandle{Path: path}
		handles.m[path] = h
	}
	return h
}
