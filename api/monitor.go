/*
monitor.go - Background low-stock monitor

PURPOSE:
  Periodically scans the catalog for products below the low-stock
  threshold and keeps the latest report for the UI. Products that newly
  drop below the threshold are logged once, not on every pass.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Trigger() requests an immediate pass (after a sale or catalog load)
    without blocking the caller
  - The report is replaced atomically at the end of each pass

CONFIGURATION:
  - CheckInterval: How often to check (default: 5 minutes)
  - Threshold: Stock below which a product is reported (default: 10)

USAGE:
  monitor := NewStockMonitor(store, logger)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - handlers.go: GET /api/stock/alerts
  - pos/types.go: LowStockThreshold
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
)

// StockMonitor reports products at or near stock-out.
type StockMonitor struct {
	Lister        pos.ProductLister
	CheckInterval time.Duration
	Threshold     int
	Logger        logrus.FieldLogger

	trigger chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	running bool
	report  StockReportDTO
	flagged map[pos.ProductID]bool
}

// NewStockMonitor creates a monitor over lister.
func NewStockMonitor(lister pos.ProductLister, logger logrus.FieldLogger) *StockMonitor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StockMonitor{
		Lister:        lister,
		CheckInterval: 5 * time.Minute,
		Threshold:     pos.LowStockThreshold,
		Logger:        logger.WithField("component", "stock-monitor"),
		trigger:       make(chan struct{}, 1),
		report:        StockReportDTO{Alerts: []StockAlertDTO{}},
		flagged:       make(map[pos.ProductID]bool),
	}
}

// Start begins the monitor loop. Calling Start twice is a no-op.
func (m *StockMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.run(m.stop)

	m.Logger.WithField("interval", m.CheckInterval.String()).Info("stock monitor started")
}

// Stop stops the monitor and waits for the current pass to finish.
func (m *StockMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	m.mu.Unlock()

	m.wg.Wait()
	m.Logger.Info("stock monitor stopped")
}

// Trigger asks the running loop for an immediate pass.
func (m *StockMonitor) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

func (m *StockMonitor) run(stop <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.CheckInterval)
	defer ticker.Stop()

	// Run immediately on start
	m.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			m.RunNow(context.Background())
		case <-m.trigger:
			m.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs a pass synchronously.
func (m *StockMonitor) RunNow(ctx context.Context) error {
	products, err := m.Lister.List(ctx, pos.ProductFilter{})
	if err != nil {
		m.Logger.WithError(err).Error("failed to list products")
		return err
	}

	alerts := []StockAlertDTO{}
	low := make(map[pos.ProductID]bool)
	for _, p := range products {
		if p.Stock >= m.Threshold {
			continue
		}
		low[p.ID] = true
		alerts = append(alerts, StockAlertDTO{
			ProductID: string(p.ID),
			Name:      p.Name,
			Stock:     p.Stock,
			SoldOut:   p.Stock <= 0,
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range alerts {
		if m.flagged[pos.ProductID(a.ProductID)] {
			continue
		}
		m.Logger.WithFields(logrus.Fields{
			"product_id": a.ProductID,
			"name":       a.Name,
			"stock":      a.Stock,
		}).Warn("product below stock threshold")
	}
	m.flagged = low
	m.report = StockReportDTO{
		CheckedAt: time.Now().UTC().Format(time.RFC3339),
		Alerts:    alerts,
	}
	return nil
}

// Report returns the latest pass.
func (m *StockMonitor) Report() StockReportDTO {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.report
	out.Alerts = append([]StockAlertDTO(nil), m.report.Alerts...)
	if out.Alerts == nil {
		out.Alerts = []StockAlertDTO{}
	}
	return out
}
