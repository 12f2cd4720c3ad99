package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewWithRegistererRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewWithRegisterer(registry)

	if m.TransactionsProcessed == nil || m.HTTPRequests == nil || m.CardsCreated == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.TransactionsProcessed.WithLabelValues("DEBIT", "COMPLETED").Inc()
	m.CardsCreated.Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() != "cardledger_transactions_processed_total" {
			continue
		}

		found = true
		if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 1 {
			t.Fatalf("expected 1 processed debit, got %v", got)
		}
	}

	if !found {
		t.Fatal("expected cardledger_transactions_processed_total to be gathered")
	}
}

func TestNewWithRegistererTwiceOnSameRegistryPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewWithRegisterer(registry)

	defer func() {
		if recover() == nil {
			t.Fatal("expected duplicate registration to panic")
		}
	}()

	NewWithRegisterer(registry)
}
