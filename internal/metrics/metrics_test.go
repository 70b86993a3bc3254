package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if httpRequestsTotal == nil || crawlCombinationsTotal == nil ||
		crawlJobsTotal == nil || extractionAttemptsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveCrawlCounters(t *testing.T) {
	Init()
	combos := testutil.ToFloat64(crawlCombinationsTotal.WithLabelValues(OutcomeSucceeded))
	inserted := testutil.ToFloat64(crawlJobsTotal.WithLabelValues(OutcomeSucceeded))
	purged := testutil.ToFloat64(crawlJobsPurgedTotal)
	rotations := testutil.ToFloat64(extractionCredentialRotates)

	ObserveCombination(OutcomeSucceeded)
	ObserveJob(OutcomeSucceeded)
	ObserveJob(OutcomeSucceeded)
	ObservePurged(3)
	ObservePurged(0)
	ObserveCredentialRotation()
	ObserveRun(OutcomeSucceeded, 2*time.Second)

	if got := testutil.ToFloat64(crawlCombinationsTotal.WithLabelValues(OutcomeSucceeded)); got != combos+1 {
		t.Errorf("combinations = %f, want %f", got, combos+1)
	}
	if got := testutil.ToFloat64(crawlJobsTotal.WithLabelValues(OutcomeSucceeded)); got != inserted+2 {
		t.Errorf("jobs = %f, want %f", got, inserted+2)
	}
	if got := testutil.ToFloat64(crawlJobsPurgedTotal); got != purged+3 {
		t.Errorf("purged = %f, want %f", got, purged+3)
	}
	if got := testutil.ToFloat64(extractionCredentialRotates); got != rotations+1 {
		t.Errorf("rotations = %f, want %f", got, rotations+1)
	}
	if n := testutil.CollectAndCount(crawlRunDurationSeconds); n == 0 {
		t.Error("expected run duration to be observed")
	}
}
