// Package node identifies the host a vesflix process runs on. The identity
// tags logs and the health report so that multiple nodes sharing one Redis
// can be told apart.
package node

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"

	"github.com/denisbrodbeck/machineid"
	"github.com/jaypipes/ghw"
)

const appID = "vesflix"

// Identity describes the current host.
type Identity struct {
	ID          string `json:"id"`
	Hostname    string `json:"hostname"`
	Platform    string `json:"platform"`
	MemoryBytes int64  `json:"memory_bytes,omitempty"`
	CPUModel    string `json:"cpu_model,omitempty"`
}

// Identifier collects host information. The funcs are swappable for tests.
type Identifier struct {
	machineID func(appID string) (string, error)
	memory    func() (*ghw.MemoryInfo, error)
	cpu       func() (*ghw.CPUInfo, error)
	hostname  func() (string, error)
}

// New creates a new Identifier
func New() *Identifier {
	return &Identifier{
		machineID: machineid.ProtectedID,
		memory:    func() (*ghw.MemoryInfo, error) { return ghw.Memory() },
		cpu:       func() (*ghw.CPUInfo, error) { return ghw.CPU() },
		hostname:  os.Hostname,
	}
}

// Identify never fails: hardware probes are best effort and the ID falls back
// to a hash of the hostname when no machine id is available (containers).
func (n *Identifier) Identify() Identity {
	hostname, err := n.hostname()
	if err != nil {
		hostname = "unknown"
	}

	id := Identity{
		Hostname: hostname,
		Platform: fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	if mid, err := n.machineID(appID); err == nil && mid != "" {
		id.ID = shortID(mid)
	} else {
		id.ID = shortID(hostname)
	}

	if mem, err := n.memory(); err == nil && mem != nil {
		id.MemoryBytes = mem.TotalPhysicalBytes
	}
	if cpu, err := n.cpu(); err == nil && cpu != nil && len(cpu.Processors) > 0 {
		id.CPUModel = cpu.Processors[0].Model
	}

	return id
}

func shortID(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:12]
}
