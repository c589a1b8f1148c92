package config

import (
	"os"
	"sync"
)

// dockerMarker is the file Docker creates at the root of every container.
var dockerMarker = "/.dockerenv"

var (
	inContainerOnce sync.Once
	inContainer     bool
)

// IsRunningInDocker reports whether the process runs inside a Docker
// container. The answer is computed once.
func IsRunningInDocker() bool {
	inContainerOnce.Do(func() {
		_, err := os.Stat(dockerMarker)
		inContainer = err == nil
	})
	return inContainer
}

// ResolveHostForDocker maps loopback database hosts to host.docker.internal
// when running in a container, so `ontoschema apply` can reach a database
// on the host machine.
func ResolveHostForDocker(host string) string {
	return resolveHost(host, IsRunningInDocker())
}

func resolveHost(host string, containerized bool) string {
	if !containerized {
		return host
	}
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return "host.docker.internal"
	default:
		return host
	}
}
