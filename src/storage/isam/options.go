package isam

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
)

// OverflowPolicy decides what happens when an insert overflows a page.
// One store instance uses a single policy for its whole life.
type OverflowPolicy string

const (
	// PolicySplit moves the upper half of an overflowing page to a new
	// primary page with its own index entry.
	PolicySplit OverflowPolicy = "split"
	// PolicyChain links an overflow page that only the full page points to.
	PolicyChain OverflowPolicy = "chain"
)

const DefaultBlockFactor = 3

func (p OverflowPolicy) Validate() error {
	if p != PolicySplit && p != PolicyChain {
		return fmt.Errorf("overflow policy must be %q or %q, got %q", PolicySplit, PolicyChain, p)
	}
	return nil
}

type Options struct {
	// DataPath is the page file.
	DataPath string
	// IndexPath persists the sparse index when set.
	IndexPath string
	// CatalogPath records the layout settings when set; reopening with
	// different settings fails.
	CatalogPath string

	Schema      record.Schema
	BlockFactor int
	Policy      OverflowPolicy

	// CachePages enables a write-through LRU page cache of that many pages.
	CachePages int

	// TracerProvider and MeterProvider default to no-op implementations.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

func (o Options) Validate() error {
	if o.DataPath == "" {
		return errors.New("data path is required")
	}
	if o.BlockFactor <= 0 {
		return fmt.Errorf("block factor must be positive, got %d", o.BlockFactor)
	}
	if o.CachePages < 0 {
		return fmt.Errorf("cache pages must not be negative, got %d", o.CachePages)
	}
	if err := o.Policy.Validate(); err != nil {
		return err
	}
	return o.Schema.Validate()
}
