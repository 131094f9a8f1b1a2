package mux

import (
	"fmt"
	"os"
)

// PipeRole names a pipe wired into the muxer process.
type PipeRole int

const (
	PipeProgress PipeRole = iota
	PipeVideoIn
	PipeAudioIn
)

func (r PipeRole) String() string {
	switch r {
	case PipeProgress:
		return "progress"
	case PipeVideoIn:
		return "video"
	case PipeAudioIn:
		return "audio"
	default:
		return fmt.Sprintf("pipe(%d)", int(r))
	}
}

// firstExtraFD is the descriptor number of the first entry in exec.Cmd.ExtraFiles.
const firstExtraFD = 3

// pipeSet maps pipe roles to the file descriptors inherited by the child.
//
// For the progress pipe the child holds the write end; for inputs it holds
// the read end.
type pipeSet struct {
	roles  []PipeRole
	child  []*os.File
	parent []*os.File
}

// newPipeSet opens one OS pipe per role, in descriptor order.
func newPipeSet(roles ...PipeRole) (*pipeSet, error) {
	ps := &pipeSet{roles: roles}
	for _, role := range roles {
		r, w, err := os.Pipe()
		if err != nil {
			ps.closeAll()
			return nil, fmt.Errorf("failed to open %s pipe: %w", role, err)
		}
		if role == PipeProgress {
			ps.child = append(ps.child, w)
			ps.parent = append(ps.parent, r)
		} else {
			ps.child = append(ps.child, r)
			ps.parent = append(ps.parent, w)
		}
	}
	return ps, nil
}

func (ps *pipeSet) index(role PipeRole) int {
	for i, r := range ps.roles {
		if r == role {
			return i
		}
	}
	panic(fmt.Sprintf("pipe role %s not wired", role))
}

// fd returns the child's descriptor number for role.
func (ps *pipeSet) fd(role PipeRole) int {
	return firstExtraFD + ps.index(role)
}

// arg returns the ffmpeg "pipe:N" URL for role.
func (ps *pipeSet) arg(role PipeRole) string {
	return fmt.Sprintf("pipe:%d", ps.fd(role))
}

// parentEnd returns the parent's end of the pipe for role.
func (ps *pipeSet) parentEnd(role PipeRole) *os.File {
	return ps.parent[ps.index(role)]
}

// closeChild closes the descriptors handed to the child once it has started.
func (ps *pipeSet) closeChild() {
	for _, f := range ps.child {
		f.Close()
	}
}

func (ps *pipeSet) closeAll() {
	for _, f := range ps.child {
		f.Close()
	}
	for _, f := range ps.parent {
		f.Close()
	}
}
