package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
)

// StatusRecord is one published DF classification for one interface. The
// Interface field carries the raw, unsanitized name.
type StatusRecord struct {
	Interface string   `json:"interface"`
	Status    DFStatus `json:"df_status"`
}

// StatusSink makes a status record observable outside the process. Each
// Publish replaces whatever was published before for the same interface.
type StatusSink interface {
	Publish(record StatusRecord) error
}

const StatusFilePrefix = "evpn_df_status_"
const StatusFileSuffix = ".json"

// FileSink writes one single-line JSON document per interface into Dir.
// Dir must already exist; it is owned by deployment tooling.
type FileSink struct {
	Dir string
}

func StatusFileName(interfaceName string) string {
	return StatusFilePrefix + SanitizeInterfaceName(interfaceName) + StatusFileSuffix
}

func (s FileSink) path(interfaceName string) string {
	return filepath.Join(s.Dir, StatusFileName(interfaceName))
}

func (s FileSink) Publish(record StatusRecord) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	err := encoder.Encode(record)
	if err != nil {
		return errors.Wrap(err, "could not encode status record")
	}
	// Encode terminates the document with a newline, so the file is exactly
	// one line. WriteFile truncates, making each publish a whole-file
	// replace with last-write-wins semantics.
	err = os.WriteFile(s.path(record.Interface), buf.Bytes(), 0644)
	if err != nil {
		return errors.Wrap(err, "could not write status file")
	}
	return nil
}

type spawner interface {
	Spawn(path string, args ...string) error
}

type systemSpawner struct{}

func (systemSpawner) Spawn(path string, args ...string) error {
	cmd := exec.Command(path, args...)
	err := cmd.Start()
	if err != nil {
		return errors.Wrap(err, "could not start helper")
	}
	// Fire and forget: the helper is reaped from a separate goroutine so the
	// caller never blocks on it. Its output and exit status are discarded.
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// ExecSink spawns a detached helper process with the interface name and the
// classification ("1" for non-DF, "0" for DF) as positional arguments.
// Arguments are passed as a discrete argv vector, so an interface name
// containing shell metacharacters stays one literal argument.
type ExecSink struct {
	Helper string
	spawn  spawner
}

func NewExecSink(helper string) *ExecSink {
	return &ExecSink{Helper: helper, spawn: systemSpawner{}}
}

func (s *ExecSink) Publish(record StatusRecord) error {
	status := "0"
	if record.Status == NonDF {
		status = "1"
	}
	return s.spawn.Spawn(s.Helper, record.Interface, status)
}
