// Package mpv implements the playback device capability on top of an mpv
// subprocess driven over its JSON IPC socket.
package mpv

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/anuragpy07/Sausico/logger"
	"github.com/anuragpy07/Sausico/player"
)

const (
	dialRetries  = 20
	dialInterval = 100 * time.Millisecond
)

// Device drives one mpv process.
type Device struct {
	cmd  *exec.Cmd
	conn net.Conn

	writeMu sync.Mutex
	reqID   int64

	stateMu    sync.RWMutex
	handler    player.EventHandler
	positionMs int64
	durationMs int64
	paused     bool

	done chan struct{}
}

// NewDevice spawns mpv in idle audio-only mode and connects to its IPC
// socket.
func NewDevice(mpvPath, socketPath string) (*Device, error) {
	cmd := exec.Command(mpvPath,
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--really-quiet",
		"--input-ipc-server="+socketPath,
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start mpv: %w", err)
	}

	// The socket appears once mpv finishes initializing.
	var conn net.Conn
	var err error
	for i := 0; i < dialRetries; i++ {
		conn, err = net.Dial("unix", socketPath)
		if err == nil {
			break
		}
		time.Sleep(dialInterval)
	}
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("failed to connect to mpv socket %s: %w", socketPath, err)
	}

	d := &Device{
		cmd:  cmd,
		conn: conn,
		done: make(chan struct{}),
	}

	for id, prop := range map[int]string{
		1: "time-pos",
		2: "duration",
		3: "pause",
		4: "paused-for-cache",
	} {
		if err := d.command("observe_property", id, prop); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("failed to observe %s: %w", prop, err)
		}
	}

	go d.readLoop()
	return d, nil
}

// ipcMessage covers both mpv events and property-change notifications.
type ipcMessage struct {
	Event  string          `json:"event"`
	ID     int             `json:"id"`
	Name   string          `json:"name"`
	Data   json.RawMessage `json:"data"`
	Reason string          `json:"reason"`
	Error  string          `json:"error"`
}

func (d *Device) command(args ...interface{}) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	d.reqID++
	payload, err := json.Marshal(map[string]interface{}{
		"command":    args,
		"request_id": d.reqID,
	})
	if err != nil {
		return err
	}
	payload = append(payload, '\n')
	if _, err := d.conn.Write(payload); err != nil {
		return fmt.Errorf("mpv command failed: %w", err)
	}
	return nil
}

func (d *Device) readLoop() {
	scanner := bufio.NewScanner(d.conn)
	for scanner.Scan() {
		select {
		case <-d.done:
			return
		default:
		}

		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		d.dispatch(msg)
	}
}

func (d *Device) dispatch(msg ipcMessage) {
	switch msg.Event {
	case "property-change":
		d.handlePropertyChange(msg)
	case "file-loaded":
		d.emit(player.EventLoadedMetadata, nil)
		d.emit(player.EventCanPlay, nil)
	case "playback-restart":
		d.emit(player.EventCanPlay, nil)
	case "end-file":
		switch msg.Reason {
		case "eof":
			d.emit(player.EventEnded, nil)
		case "error":
			d.emit(player.EventError, fmt.Errorf("mpv playback error: %s", msg.Error))
		}
	}
}

func (d *Device) handlePropertyChange(msg ipcMessage) {
	switch msg.Name {
	case "time-pos":
		var seconds float64
		if json.Unmarshal(msg.Data, &seconds) == nil {
			d.stateMu.Lock()
			d.positionMs = int64(seconds * 1000)
			d.stateMu.Unlock()
		}
	case "duration":
		var seconds float64
		if json.Unmarshal(msg.Data, &seconds) == nil {
			d.stateMu.Lock()
			d.durationMs = int64(seconds * 1000)
			d.stateMu.Unlock()
		}
	case "pause":
		var paused bool
		if json.Unmarshal(msg.Data, &paused) == nil {
			d.stateMu.Lock()
			changed := d.paused != paused
			d.paused = paused
			d.stateMu.Unlock()
			if changed {
				if paused {
					d.emit(player.EventPause, nil)
				} else {
					d.emit(player.EventPlay, nil)
				}
			}
		}
	case "paused-for-cache":
		var buffering bool
		if json.Unmarshal(msg.Data, &buffering) == nil && buffering {
			d.emit(player.EventWaiting, nil)
		}
	}
}

func (d *Device) emit(event player.DeviceEvent, err error) {
	d.stateMu.RLock()
	handler := d.handler
	d.stateMu.RUnlock()
	if handler != nil {
		handler(event, err)
	}
}

// Load replaces the current source and leaves it paused; Play starts it.
func (d *Device) Load(url string) error {
	if err := d.command("loadfile", url, "replace"); err != nil {
		return err
	}
	return d.command("set_property", "pause", true)
}

func (d *Device) Play() error {
	return d.command("set_property", "pause", false)
}

func (d *Device) Pause() error {
	return d.command("set_property", "pause", true)
}

func (d *Device) SeekTo(positionMs int64) error {
	return d.command("set_property", "time-pos", float64(positionMs)/1000)
}

func (d *Device) PositionMs() int64 {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.positionMs
}

func (d *Device) DurationMs() int64 {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.durationMs
}

// Stop halts playback and clears the loaded source.
func (d *Device) Stop() error {
	if err := d.command("stop"); err != nil {
		return err
	}
	d.stateMu.Lock()
	d.positionMs = 0
	d.durationMs = 0
	d.stateMu.Unlock()
	return nil
}

func (d *Device) SetEventHandler(handler player.EventHandler) {
	d.stateMu.Lock()
	d.handler = handler
	d.stateMu.Unlock()
}

// Close shuts mpv down and releases the socket.
func (d *Device) Close() error {
	close(d.done)
	if err := d.command("quit"); err != nil {
		logger.Warn("mpv quit command failed", logger.ErrorField(err))
	}
	_ = d.conn.Close()

	if d.cmd != nil && d.cmd.Process != nil {
		if pgid, err := syscall.Getpgid(d.cmd.Process.Pid); err == nil {
			_ = syscall.Kill(-pgid, syscall.SIGTERM)
		}
		_ = d.cmd.Wait()
	}
	return nil
}

var _ player.Device = (*Device)(nil)
