package hardware

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	logx "moodybell/pkg/logx"
)

// GPIO drives one output pin through the Linux sysfs interface.
type GPIO struct {
	log      logx.Logger
	root     string
	pin      int
	exported bool

	mu    sync.Mutex
	value *os.File
}

// OpenGPIO exports pin under root if needed, sets it as an output and
// drives it low.
func OpenGPIO(root string, pin int, log logx.Logger) (*GPIO, error) {
	if strings.TrimSpace(root) == "" {
		root = DefaultGPIOPath
	}
	if pin <= 0 {
		pin = DefaultGPIOPin
	}
	g := &GPIO{log: log.With(logx.Int("pin", pin)), root: root, pin: pin}

	dir := g.pinDir()
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := writeFile(filepath.Join(root, "export"), strconv.Itoa(pin)); err != nil {
			return nil, fmt.Errorf("export gpio%d: %w", pin, err)
		}
		g.exported = true
	}
	if err := writeFile(filepath.Join(dir, "direction"), "out"); err != nil {
		return nil, fmt.Errorf("gpio%d direction: %w", pin, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "value"), os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("gpio%d value: %w", pin, err)
	}
	g.value = f
	g.set(false)
	return g, nil
}

func (g *GPIO) pinDir() string { return filepath.Join(g.root, "gpio"+strconv.Itoa(g.pin)) }

func (g *GPIO) Activate()       { g.set(true) }
func (g *GPIO) Deactivate()     { g.set(false) }
func (g *GPIO) Available() bool { return true }
func (g *GPIO) Name() string    { return "gpio" }

func (g *GPIO) set(high bool) {
	v := "0"
	if high {
		v = "1"
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.value == nil {
		return
	}
	if _, err := g.value.WriteAt([]byte(v), 0); err != nil {
		g.log.Error("gpio write failed", logx.String("value", v), logx.Err(err))
	}
}

// Close drives the pin low, releases the value file and unexports the pin
// if OpenGPIO exported it.
func (g *GPIO) Close() error {
	g.set(false)
	g.mu.Lock()
	f := g.value
	g.value = nil
	g.mu.Unlock()
	if f == nil {
		return nil
	}
	err := f.Close()
	if g.exported {
		if uerr := writeFile(filepath.Join(g.root, "unexport"), strconv.Itoa(g.pin)); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

func writeFile(path, v string) error {
	return os.WriteFile(path, []byte(v), 0o644)
}
