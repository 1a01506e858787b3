// Package installer provisions the billboard daemon as a systemd
// service: application directory, payload, isolated runtime, unit file,
// and activation. The procedure is a single forward pass; any failing
// step aborts the rest, and re-running converges to the same end state.
package installer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/multiverse-display/billboard/internal/runner"
	"github.com/multiverse-display/billboard/internal/systemd"
)

// Options configures an install. Zero-valued fields are filled in by
// applyDefaults.
type Options struct {
	// ServiceName is the unit name without the ".service" suffix.
	ServiceName string

	// Dir is the application directory the payload is installed into.
	Dir string

	// ScriptPath is the daemon source file to copy (python mode).
	ScriptPath string

	// RequirementsPath is the pip dependency manifest (python mode).
	RequirementsPath string

	// Python is the interpreter used to create the venv (python mode).
	Python string

	// BinaryMode installs the current executable instead of a Python
	// script and skips the venv and pip steps.
	BinaryMode bool

	// BinaryPath is the executable to copy in binary mode. Defaults to
	// the running binary.
	BinaryPath string

	// ConfigPath is the daemon config file installed alongside the
	// binary in binary mode.
	ConfigPath string

	// User and Group are the unit's run-as identity.
	User  string
	Group string

	// UnitDir is where the unit file is written.
	UnitDir string

	// LogPath receives the daemon's stdout and stderr.
	LogPath string
}

func (o *Options) applyDefaults() {
	if o.ServiceName == "" {
		o.ServiceName = "billboard"
	}
	if o.Dir == "" {
		o.Dir = "/opt/billboard"
	}
	if o.Python == "" {
		o.Python = "python3"
	}
	if o.User == "" {
		o.User = "pi"
	}
	if o.Group == "" {
		o.Group = o.User
	}
	if o.UnitDir == "" {
		o.UnitDir = "/etc/systemd/system"
	}
	if o.LogPath == "" {
		o.LogPath = "/var/log/" + o.ServiceName + ".log"
	}
}

// Installer performs the provisioning procedure. Process invocation and
// init-system calls go through injected interfaces so the sequencing
// logic runs unprivileged in tests.
type Installer struct {
	opts    Options
	runner  runner.Runner
	manager systemd.Manager
	log     *slog.Logger
}

// New creates an Installer. A nil logger defaults to slog.Default().
func New(opts Options, r runner.Runner, m systemd.Manager, log *slog.Logger) *Installer {
	opts.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Installer{opts: opts, runner: r, manager: m, log: log}
}

// UnitName returns the full unit name, e.g. "billboard.service".
func (inst *Installer) UnitName() string {
	return inst.opts.ServiceName + ".service"
}

// UnitPath returns where the unit file is (or will be) written.
func (inst *Installer) UnitPath() string {
	return filepath.Join(inst.opts.UnitDir, inst.UnitName())
}

// Install runs the full procedure. The dependency steps precede the
// unit write, so a bad manifest never leaves a descriptor behind.
func (inst *Installer) Install(ctx context.Context) error {
	if unix.Geteuid() != 0 {
		inst.log.Warn("not running as root; privileged steps will likely fail",
			"euid", unix.Geteuid())
	}

	if err := inst.ensureDir(); err != nil {
		return err
	}
	if err := inst.installPayload(ctx); err != nil {
		return err
	}
	if err := inst.writeUnit(); err != nil {
		return err
	}
	return inst.activate(ctx)
}

// Uninstall stops and disables the service, removes the unit file, and
// reloads systemd. The application directory is left in place.
func (inst *Installer) Uninstall(ctx context.Context) error {
	unit := inst.UnitName()

	// Stop/disable failures are tolerated: the unit may not exist.
	if err := inst.manager.Stop(ctx, unit); err != nil {
		inst.log.Warn("stopping unit", "unit", unit, "error", err)
	}
	if err := inst.manager.Disable(ctx, []string{unit}); err != nil {
		inst.log.Warn("disabling unit", "unit", unit, "error", err)
	}

	if err := os.Remove(inst.UnitPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing unit file: %w", err)
	}

	if err := inst.manager.Reload(ctx); err != nil {
		return err
	}
	return nil
}

// Status reports the unit's current state.
func (inst *Installer) Status(ctx context.Context) (*systemd.UnitStatus, error) {
	return inst.manager.Status(ctx, inst.UnitName())
}

func (inst *Installer) ensureDir() error {
	if err := os.MkdirAll(inst.opts.Dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", inst.opts.Dir, err)
	}
	return nil
}

// installPayload copies the daemon into the application directory and,
// in python mode, builds the venv and installs dependencies into it.
func (inst *Installer) installPayload(ctx context.Context) error {
	if inst.opts.BinaryMode {
		return inst.installBinary()
	}
	return inst.installPython(ctx)
}

func (inst *Installer) installPython(ctx context.Context) error {
	dest := filepath.Join(inst.opts.Dir, filepath.Base(inst.opts.ScriptPath))
	if err := copyFile(inst.opts.ScriptPath, dest, 0644); err != nil {
		return fmt.Errorf("copying daemon script: %w", err)
	}
	inst.log.Info("installed daemon script", "path", dest)

	venv := inst.venvDir()
	if err := inst.runner.Run(ctx, []string{inst.opts.Python, "-m", "venv", venv}); err != nil {
		return fmt.Errorf("creating venv: %w", err)
	}

	// Surface a missing manifest here rather than as a pip usage error.
	if _, err := os.Stat(inst.opts.RequirementsPath); err != nil {
		return fmt.Errorf("reading dependency manifest: %w", err)
	}

	pip := filepath.Join(venv, "bin", "pip")
	if err := inst.runner.Run(ctx, []string{pip, "install", "--upgrade", "pip"}); err != nil {
		return fmt.Errorf("upgrading pip: %w", err)
	}
	if err := inst.runner.Run(ctx, []string{pip, "install", "-r", inst.opts.RequirementsPath}); err != nil {
		return fmt.Errorf("installing dependencies: %w", err)
	}
	inst.log.Info("installed dependencies", "venv", venv)
	return nil
}

func (inst *Installer) installBinary() error {
	src := inst.opts.BinaryPath
	if src == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("finding executable: %w", err)
		}
		exe, err = filepath.EvalSymlinks(exe)
		if err != nil {
			return fmt.Errorf("resolving executable path: %w", err)
		}
		src = exe
	}

	dest := filepath.Join(inst.opts.Dir, inst.opts.ServiceName)
	if err := copyFile(src, dest, 0755); err != nil {
		return fmt.Errorf("copying binary: %w", err)
	}
	inst.log.Info("installed binary", "path", dest)

	if inst.opts.ConfigPath != "" {
		cfgDest := filepath.Join(inst.opts.Dir, "config.yaml")
		if err := copyFile(inst.opts.ConfigPath, cfgDest, 0644); err != nil {
			return fmt.Errorf("copying config: %w", err)
		}
		inst.log.Info("installed config", "path", cfgDest)
	}
	return nil
}

func (inst *Installer) venvDir() string {
	return filepath.Join(inst.opts.Dir, "venv")
}

// execStart builds the unit's start command. Both modes point inside
// the application directory, never at a system-wide interpreter.
func (inst *Installer) execStart() string {
	if inst.opts.BinaryMode {
		bin := filepath.Join(inst.opts.Dir, inst.opts.ServiceName)
		return bin + " run --config " + filepath.Join(inst.opts.Dir, "config.yaml")
	}
	python := filepath.Join(inst.venvDir(), "bin", "python")
	script := filepath.Join(inst.opts.Dir, filepath.Base(inst.opts.ScriptPath))
	return python + " " + script
}

func (inst *Installer) writeUnit() error {
	params := unitParams{
		Description:      "Billboard display daemon",
		ExecStart:        inst.execStart(),
		WorkingDirectory: inst.opts.Dir,
		User:             inst.opts.User,
		Group:            inst.opts.Group,
		LogPath:          inst.opts.LogPath,
	}
	if !inst.opts.BinaryMode {
		params.Environment = []string{"PYTHONUNBUFFERED=1"}
	}

	text, err := renderUnit(params)
	if err != nil {
		return err
	}

	path := inst.UnitPath()
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}
	inst.log.Info("wrote unit file", "path", path)
	return nil
}

func (inst *Installer) activate(ctx context.Context) error {
	unit := inst.UnitName()

	if err := inst.manager.Reload(ctx); err != nil {
		return err
	}
	if err := inst.manager.Enable(ctx, []string{unit}); err != nil {
		return err
	}
	if err := inst.manager.Start(ctx, unit); err != nil {
		return err
	}
	inst.log.Info("service started", "unit", unit)
	return nil
}

// copyFile writes to a temp file next to dest and renames it into
// place. Rename swaps the inode, so a re-install can replace the
// installed binary while the service is running it (no ETXTBSY).
func copyFile(src, dest string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
