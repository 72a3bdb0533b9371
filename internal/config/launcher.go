package config

import (
	"context"
	"fmt"

	"golang.org/x/crypto/ssh"

	"github.com/pydron/pydron/internal/rpcworker"
)

// Launcher starts one worker process and returns a client for it.
// Grounded on the teacher's WorkerStarter/smartstarter pairing
// (pydron/backend/worker.py, remoot.smartstarter): a starter's job is
// purely "produce a connected RemoteWorker," with process supervision
// handled elsewhere.
//
// None of the launchers in this port starts a worker process. The
// multicore launcher's Launch returns an error. SSH and cloud process
// launching is out of scope per the Non-goals, so those two are modeled as
// Launchers that validate their configuration (including, for SSH, that a
// supplied private key actually parses) and then report that starting a
// remote process is unsupported here.
type Launcher interface {
	Launch(ctx context.Context, nicename string) (*rpcworker.RPCClient, error)
}

// MulticoreLauncher is the launcher for multicore (local machine) worker
// groups. Its Launch does not start a subprocess or dial one: it returns
// an error. cmd/pydron's "run" creates its workers in-process instead.
type MulticoreLauncher struct {
	// Command builds the subprocess command line for one worker; callers
	// typically point this at the same binary this process was started
	// from, running in a "worker" subcommand.
	Command func(nicename string) (name string, args []string)
}

func (l *MulticoreLauncher) Launch(ctx context.Context, nicename string) (*rpcworker.RPCClient, error) {
	return nil, fmt.Errorf("config: multicore subprocess launching is not implemented by this runtime")
}

// SSHLauncher validates an ssh worker-group entry's configuration. It
// deliberately does not open any network connection: remote process
// launching is explicitly out of scope (see DESIGN.md), but validating
// that the configuration is well-formed before a real launcher would use
// it is cheap and gives golang.org/x/crypto/ssh a genuine job.
type SSHLauncher struct {
	Group WorkerGroup
}

// Validate parses every configured private key with
// golang.org/x/crypto/ssh to confirm it is well-formed, and checks that
// the fields _ssh_starter requires are present.
func (l *SSHLauncher) Validate() error {
	g := l.Group
	if g.Hostname == "" {
		return fmt.Errorf("config: ssh worker group missing hostname")
	}
	if g.Username == "" {
		return fmt.Errorf("config: ssh worker group missing username")
	}
	for i, pem := range g.PrivateKeys {
		if _, err := ssh.ParsePrivateKey([]byte(pem)); err != nil {
			return fmt.Errorf("config: ssh worker group private_keys[%d] is not a valid key: %w", i, err)
		}
	}
	return nil
}

func (l *SSHLauncher) Launch(ctx context.Context, nicename string) (*rpcworker.RPCClient, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("config: ssh process launching is not implemented by this runtime")
}

// CloudLauncher validates a cloud worker-group entry's configuration.
// Like SSHLauncher, it never actually launches anything.
type CloudLauncher struct {
	Group WorkerGroup
}

func (l *CloudLauncher) Validate() error {
	g := l.Group
	required := map[string]string{
		"provider":    g.Provider,
		"accesskeyid": g.AccessKeyID,
		"accesskey":   g.AccessKey,
		"imageid":     g.ImageID,
		"sizeid":      g.SizeID,
	}
	for name, v := range required {
		if v == "" {
			return fmt.Errorf("config: cloud worker group missing %s", name)
		}
	}
	return nil
}

func (l *CloudLauncher) Launch(ctx context.Context, nicename string) (*rpcworker.RPCClient, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("config: cloud process launching is not implemented by this runtime")
}

// NewLauncher picks the right Launcher for one worker-group entry,
// mirroring _create_starters's type dispatch.
func NewLauncher(g WorkerGroup) (Launcher, error) {
	switch g.Type {
	case LauncherMulticore, "":
		return &MulticoreLauncher{}, nil
	case LauncherSSH:
		return &SSHLauncher{Group: g}, nil
	case LauncherCloud:
		return &CloudLauncher{Group: g}, nil
	default:
		return nil, fmt.Errorf("config: unsupported worker type %q", g.Type)
	}
}
