package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if fetchesTotal == nil || fetchRetriesTotal == nil || cardsDroppedTotal == nil ||
		postingsUpsertedTotal == nil || httpRequestsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveFetchCountsRetries(t *testing.T) {
	Init()
	before := testutil.ToFloat64(fetchRetriesTotal.WithLabelValues("listing"))

	ObserveFetch("listing", "ok", 2, 150*time.Millisecond)
	ObserveFetch("listing", "retries_exhausted", 0, time.Second)

	if got := testutil.ToFloat64(fetchRetriesTotal.WithLabelValues("listing")) - before; got != 2 {
		t.Errorf("expected 2 retries recorded, got %f", got)
	}
	if val := testutil.ToFloat64(fetchesTotal.WithLabelValues("listing", "retries_exhausted")); val < 1 {
		t.Errorf("expected exhausted fetch to be counted, got %f", val)
	}
}

func TestObserveUpsertIgnoresZero(t *testing.T) {
	Init()
	ObserveUpsert("golang", 0)
	ObserveUpsert("golang", 3)
	if val := testutil.ToFloat64(postingsUpsertedTotal.WithLabelValues("golang")); val != 3 {
		t.Errorf("expected 3 upserted postings, got %f", val)
	}
}

func TestObserveDropped(t *testing.T) {
	Init()
	before := testutil.ToFloat64(cardsDroppedTotal)
	ObserveDropped(0)
	ObserveDropped(4)
	if got := testutil.ToFloat64(cardsDroppedTotal) - before; got != 4 {
		t.Errorf("expected 4 dropped cards, got %f", got)
	}
}
