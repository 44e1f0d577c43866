package scanner

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"shelfscan/internal/config"
	"shelfscan/internal/logging"
)

// DeviceMonitor listens for udev hotplug events on capture subsystems and
// reports when the bound device is removed or a new one appears.
type DeviceMonitor struct {
	logger     *slog.Logger
	subsystems []string
	bound      func() string
	onRemoved  func(ctx context.Context, device string)
	onAdded    func(ctx context.Context, device string)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewDeviceMonitor creates a monitor for the configured capture subsystems.
// bound returns the device path the session currently reads from.
func NewDeviceMonitor(
	cfg *config.Config,
	logger *slog.Logger,
	bound func() string,
	onRemoved func(ctx context.Context, device string),
	onAdded func(ctx context.Context, device string),
) *DeviceMonitor {
	if cfg == nil || len(cfg.Scanner.DeviceSubsystems) == 0 {
		return nil
	}
	return &DeviceMonitor{
		logger:     logging.NewComponentLogger(logger, "device-monitor"),
		subsystems: append([]string(nil), cfg.Scanner.DeviceSubsystems...),
		bound:      bound,
		onRemoved:  onRemoved,
		onAdded:    onAdded,
	}
}

// Start begins listening for udev netlink events. A socket failure is logged
// and the session keeps running without hotplug detection.
func (m *DeviceMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; capture device removal will not be detected",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the process may open netlink sockets"),
			logging.String(logging.FieldImpact, "unplugging the scanner will not stop the session"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Debug("device monitor started",
		logging.String(logging.FieldEventType, "device_monitor_started"),
		logging.String("subsystems", strings.Join(m.subsystems, ",")),
	)
	return nil
}

// Stop shuts down the monitor.
func (m *DeviceMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Debug("device monitor stopped",
		logging.String(logging.FieldEventType, "device_monitor_stopped"),
	)
}

// Running reports whether the monitor is active.
func (m *DeviceMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *DeviceMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	matcher := m.buildMatcher()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, matcher)
	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("device monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "device_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "capture device hotplug may be missed"),
			)
		}
	}
}

// buildMatcher matches add and remove events in the capture subsystems.
func (m *DeviceMonitor) buildMatcher() netlink.Matcher {
	action := "^(?:add|remove)$"
	quoted := make([]string, 0, len(m.subsystems))
	for _, subsystem := range m.subsystems {
		quoted = append(quoted, regexp.QuoteMeta(subsystem))
	}
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "^(?:" + strings.Join(quoted, "|") + ")$",
		},
	})
	return rules
}

func (m *DeviceMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}

	switch uevent.Action {
	case netlink.REMOVE:
		bound := ""
		if m.bound != nil {
			bound = m.bound()
		}
		if bound == "" || devname != bound {
			m.logger.Debug("ignoring removal of unbound device",
				logging.String("device", devname),
				logging.String("bound_device", bound),
			)
			return
		}
		m.logger.Warn("capture device removed",
			logging.String(logging.FieldEventType, "capture_device_removed"),
			logging.String("device", devname),
			logging.String(logging.FieldErrorHint, "reconnect the scanner and start a new session"),
			logging.String(logging.FieldImpact, "scanning stopped"),
		)
		if m.onRemoved != nil {
			m.onRemoved(ctx, devname)
		}
	case netlink.ADD:
		m.logger.Info("capture device attached",
			logging.String(logging.FieldEventType, "capture_device_attached"),
			logging.String("device", devname),
		)
		if m.onAdded != nil {
			m.onAdded(ctx, devname)
		}
	}
}

// extractDeviceName gets the device node path from a uevent.
func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			return "/dev/" + devname
		}
		return devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return ""
	}
	return "/dev/" + last
}
