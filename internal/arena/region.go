package arena

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Magic is "TUGA" read as a big-endian word.
const Magic uint32 = 0x54554741

const LayoutVersion uint32 = 1

// Header: magic u32 | version u32 | teams u32 | players u32 | seq u64
const (
	offMagic   = 0
	offVersion = 4
	offTeams   = 8
	offPlayers = 12
	offSeq     = 16
	headerSize = 24
)

const readAttempts = 64

// Region is a file-backed shared mapping holding two snapshot slots. The
// single writer fills the slot the readers are not looking at and then
// bumps the sequence number; readers copy the current slot and retry when
// the sequence moved underneath them.
type Region struct {
	path     string
	mem      []byte
	teams    int
	players  int
	slot     int
	writable bool
	scratch  []byte
}

// DefaultPath names the arena file for a match. tmpfs is used when present.
func DefaultPath(matchID string) string {
	dir := os.TempDir()
	if fi, err := os.Stat("/dev/shm"); err == nil && fi.IsDir() {
		dir = "/dev/shm"
	}
	return filepath.Join(dir, "tugofwar-"+matchID+".arena")
}

// Create makes a writable region sized for teams x players, truncating any
// existing file at path.
func Create(path string, teams, players int) (*Region, error) {
	if teams <= 0 || players <= 0 {
		return nil, fmt.Errorf("%w: %d teams of %d players", ErrLayout, teams, players)
	}
	slot := slotSize(teams, players)
	size := headerSize + 2*slot

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create arena: %w", err)
	}
	defer f.Close()
	if err := f.Truncate(int64(size)); err != nil {
		return nil, fmt.Errorf("size arena: %w", err)
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("map arena: %w", err)
	}

	binary.LittleEndian.PutUint32(mem[offMagic:], Magic)
	binary.LittleEndian.PutUint32(mem[offVersion:], LayoutVersion)
	binary.LittleEndian.PutUint32(mem[offTeams:], uint32(teams))
	binary.LittleEndian.PutUint32(mem[offPlayers:], uint32(players))

	r := &Region{
		path:     path,
		mem:      mem,
		teams:    teams,
		players:  players,
		slot:     slot,
		writable: true,
	}
	r.seq().Store(0)
	return r, nil
}

// Open maps an existing region read-only.
func Open(path string) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open arena: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat arena: %w", err)
	}
	if fi.Size() < headerSize {
		return nil, fmt.Errorf("%w: file is %d bytes", ErrLayout, fi.Size())
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("map arena: %w", err)
	}

	r := &Region{path: path, mem: mem}
	if err := r.checkHeader(len(mem)); err != nil {
		_ = unix.Munmap(mem)
		return nil, err
	}
	r.scratch = make([]byte, r.slot)
	return r, nil
}

func (r *Region) checkHeader(size int) error {
	if m := binary.LittleEndian.Uint32(r.mem[offMagic:]); m != Magic {
		return fmt.Errorf("%w: bad magic %#x", ErrLayout, m)
	}
	if v := binary.LittleEndian.Uint32(r.mem[offVersion:]); v != LayoutVersion {
		return fmt.Errorf("%w: version %d", ErrLayout, v)
	}
	r.teams = int(binary.LittleEndian.Uint32(r.mem[offTeams:]))
	r.players = int(binary.LittleEndian.Uint32(r.mem[offPlayers:]))
	r.slot = slotSize(r.teams, r.players)
	if want := headerSize + 2*r.slot; size < want {
		return fmt.Errorf("%w: %d bytes, need %d", ErrLayout, size, want)
	}
	return nil
}

func (r *Region) seq() *atomic.Uint64 {
	return (*atomic.Uint64)(unsafe.Pointer(&r.mem[offSeq]))
}

func (r *Region) slotBytes(seq uint64) []byte {
	off := headerSize + int(seq&1)*r.slot
	return r.mem[off : off+r.slot]
}

func (r *Region) Path() string { return r.path }
func (r *Region) Teams() int   { return r.teams }
func (r *Region) Players() int { return r.players }

// Publish writes s into the idle slot and makes it current.
func (r *Region) Publish(s Snapshot) error {
	if !r.writable {
		return ErrReadOnly
	}
	if r.mem == nil {
		return os.ErrClosed
	}
	next := r.seq().Load() + 1
	encode(r.slotBytes(next), &s, r.teams, r.players)
	r.seq().Store(next)
	return nil
}

// Read returns the most recently published snapshot.
func (r *Region) Read() (Snapshot, error) {
	if r.mem == nil {
		return Snapshot{}, os.ErrClosed
	}
	buf := r.scratch
	if buf == nil {
		buf = make([]byte, r.slot)
	}
	for i := 0; i < readAttempts; i++ {
		before := r.seq().Load()
		if before == 0 {
			return Snapshot{}, ErrNotPublished
		}
		copy(buf, r.slotBytes(before))
		if r.seq().Load() != before {
			continue
		}
		snap := decode(buf, r.teams, r.players)
		snap.Version = before
		return snap, nil
	}
	return Snapshot{}, ErrTorn
}

// Close unmaps the region. The writer also removes the backing file.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem = nil
	if r.writable {
		if rmErr := os.Remove(r.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = rmErr
		}
	}
	return err
}
