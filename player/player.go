// Package player starts and stops the wallpaper player process.
package player

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
)

type Player struct {
	// Name is the process name looked up with pidof.
	Name string
	// Command starts the player, program first.
	Command []string
	// DiscardLogs pipes the player's I/O to /dev/null instead of ours.
	DiscardLogs bool
}

func New(command ...string) *Player {
	if len(command) == 0 {
		command = []string{"hidamari"}
	}
	return &Player{
		Name:        command[0],
		Command:     command,
		DiscardLogs: true,
	}
}

// Returns the PIDs of running processes named name.
// If no processes are found, it returns an empty slice.
func pids(name string) ([]int, error) {
	output, err := exec.Command("pidof", name).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return []int{}, nil
		}
		return nil, fmt.Errorf("failed to check running processes: %w", err)
	}
	return parsePids(string(output))
}

func parsePids(output string) ([]int, error) {
	result := []int{}
	for _, field := range strings.Fields(output) {
		pid, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("unexpected pid %q: %w", field, err)
		}
		result = append(result, pid)
	}
	return result, nil
}

// Running reports whether any process named p.Name exists.
func (p *Player) Running() (bool, error) {
	running, err := pids(p.Name)
	if err != nil {
		return false, err
	}
	return len(running) > 0, nil
}

// Start runs the player in its own process group so it outlives the panel.
//
// Returns the PID of the detached process.
func (p *Player) Start() (int, error) {
	if len(p.Command) == 0 {
		return -1, errors.New("no player command configured")
	}

	cmd := exec.Command(p.Command[0], p.Command[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if p.DiscardLogs {
		devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		if err != nil {
			log.Warn().Err(err).Msg("Could not open /dev/null for detaching process I/O")
		} else {
			cmd.Stdin = devNull
			cmd.Stdout = devNull
			cmd.Stderr = devNull
			defer devNull.Close()
		}
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("error starting detached process: %w", err)
	}

	pid := cmd.Process.Pid
	// reap it if it exits while we are still around
	go cmd.Wait()

	log.Info().Int("pid", pid).Strs("command", p.Command).Msg("Player started")
	return pid, nil
}

// Stop sends SIGTERM to every running instance.
func (p *Player) Stop() error {
	running, err := pids(p.Name)
	if err != nil {
		return err
	}
	if len(running) == 0 {
		log.Debug().Str("name", p.Name).Msg("No running player found")
		return nil
	}

	var errs []error
	for _, pid := range running {
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
			log.Error().Err(err).Int("pid", pid).Msg("Error killing process")
			errs = append(errs, err)
			continue
		}
		log.Info().Int("pid", pid).Msg("Successfully killed process")
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to kill one or more processes: %w", errors.Join(errs...))
	}
	return nil
}

// Restart stops running instances and starts a fresh one.
func (p *Player) Restart() (int, error) {
	if err := p.Stop(); err != nil {
		return -1, err
	}
	return p.Start()
}
