package scanner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	"github.com/pilebones/go-udev/crawler"
	"github.com/pilebones/go-udev/netlink"

	"shelfscan/internal/logging"
)

// ErrNoCaptureDevices is returned when a session cannot find any device to
// read barcodes from.
var ErrNoCaptureDevices = errors.New("no capture devices available")

// CaptureDevice is a device node a scanner can bind to.
type CaptureDevice struct {
	Path      string
	Subsystem string
	SysPath   string
}

// Enumerator lists capture devices currently attached.
type Enumerator interface {
	Devices(ctx context.Context) ([]CaptureDevice, error)
}

// StaticEnumerator reports a fixed device list.
type StaticEnumerator []CaptureDevice

// Devices implements Enumerator.
func (s StaticEnumerator) Devices(context.Context) ([]CaptureDevice, error) {
	return slices.Clone([]CaptureDevice(s)), nil
}

// Kernel uevent files name device nodes relative to /dev and carry no
// SUBSYSTEM key, so subsystems are recognised by node name.
var devnamePatterns = map[string]string{
	"video4linux": `^video[0-9]+$`,
	"input":       `^input/event[0-9]+$`,
	"hidraw":      `^hidraw[0-9]+$`,
	"tty":         `^tty(?:USB|ACM)[0-9]+$`,
}

// UdevEnumerator walks sysfs for device nodes in the configured subsystems.
type UdevEnumerator struct {
	subsystems []string
	logger     *slog.Logger
}

// NewUdevEnumerator builds an enumerator for the given subsystems. Unknown
// subsystems are skipped with a warning when Devices runs.
func NewUdevEnumerator(subsystems []string, logger *slog.Logger) *UdevEnumerator {
	return &UdevEnumerator{
		subsystems: slices.Clone(subsystems),
		logger:     logging.NewComponentLogger(logger, "device-enumerator"),
	}
}

// Devices implements Enumerator.
func (e *UdevEnumerator) Devices(ctx context.Context) ([]CaptureDevice, error) {
	matcher, known := e.buildMatcher()
	if len(known) == 0 {
		return nil, nil
	}

	queue := make(chan crawler.Device)
	errs := make(chan error, 1)
	quit := crawler.ExistingDevices(queue, errs, matcher)

	var (
		devices []CaptureDevice
		walkErr error
	)
	for {
		select {
		case <-ctx.Done():
			close(quit)
			go func() {
				for range queue {
				}
			}()
			return nil, ctx.Err()
		case err := <-errs:
			walkErr = err
		case dev, ok := <-queue:
			if !ok {
				select {
				case err := <-errs:
					walkErr = err
				default:
				}
				if walkErr != nil && len(devices) == 0 {
					return nil, fmt.Errorf("enumerate capture devices: %w", walkErr)
				}
				if walkErr != nil {
					e.logger.Debug("device walk ended with error", logging.Error(walkErr))
				}
				slices.SortFunc(devices, func(a, b CaptureDevice) int {
					return cmp.Compare(a.Path, b.Path)
				})
				return devices, nil
			}
			if device, ok := captureDeviceFromEnv(dev.KObj, dev.Env, known); ok {
				devices = append(devices, device)
			}
		}
	}
}

func (e *UdevEnumerator) buildMatcher() (netlink.Matcher, map[string]*regexp.Regexp) {
	rules := &netlink.RuleDefinitions{}
	known := make(map[string]*regexp.Regexp, len(e.subsystems))
	for _, subsystem := range e.subsystems {
		pattern, ok := devnamePatterns[subsystem]
		if !ok {
			e.logger.Warn("unsupported capture subsystem",
				logging.String("subsystem", subsystem),
				logging.String(logging.FieldEventType, "capture_subsystem_unsupported"),
				logging.String(logging.FieldErrorHint, "use video4linux, input, hidraw or tty"),
				logging.String(logging.FieldImpact, "devices in this subsystem are ignored"),
			)
			continue
		}
		known[subsystem] = regexp.MustCompile(pattern)
		rules.AddRule(netlink.RuleDefinition{
			Env: map[string]string{"DEVNAME": pattern},
		})
	}
	return rules, known
}

func captureDeviceFromEnv(sysPath string, env map[string]string, known map[string]*regexp.Regexp) (CaptureDevice, bool) {
	devname := env["DEVNAME"]
	if devname == "" {
		return CaptureDevice{}, false
	}
	for subsystem, pattern := range known {
		if pattern.MatchString(devname) {
			return CaptureDevice{
				Path:      "/dev/" + devname,
				Subsystem: subsystem,
				SysPath:   sysPath,
			}, true
		}
	}
	return CaptureDevice{}, false
}
