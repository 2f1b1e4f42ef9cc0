package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if !strings.HasPrefix(rec.Name(), "elaspic_service_metrics_") {
		t.Fatalf("unexpected generated name %q", rec.Name())
	}
	ctx := context.Background()
	rec.Observe(ctx, "get_domain", true, 2*time.Millisecond)
	rec.Observe(ctx, "get_domain", false, 3*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	if snap.Results["get_domain"]["success"] != 1 || snap.Results["get_domain"]["error"] != 1 {
		t.Fatalf("unexpected results %+v", snap.Results)
	}
	if snap.DurationsMS["get_domain"] != 5 {
		t.Fatalf("durations = %v", snap.DurationsMS)
	}
	if _, ok := snap.Results[""]; ok {
		t.Fatalf("empty operation must be ignored")
	}
	v := expvar.Get(rec.Name())
	if v == nil || !strings.Contains(v.String(), "get_domain") {
		t.Fatalf("expvar export missing: %v", v)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusMetricsRecorder(reg)
	ctx := context.Background()
	rec.Observe(ctx, "merge_domain_model", true, 10*time.Millisecond)
	rec.Observe(ctx, "merge_domain_model", true, 20*time.Millisecond)
	rec.Observe(ctx, "merge_domain_model", false, time.Millisecond)

	if got := testutil.ToFloat64(rec.results.WithLabelValues("merge_domain_model", statusSuccess)); got != 2 {
		t.Fatalf("success count = %v", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("merge_domain_model", statusError)); got != 1 {
		t.Fatalf("error count = %v", got)
	}
	if n := testutil.CollectAndCount(rec.durations, "elaspic_service_operation_duration_seconds"); n != 1 {
		t.Fatalf("histogram series = %d", n)
	}
}

func TestJSONTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	ctx := context.Background()
	_, span := tracer.Start(ctx, "get_uniprot_domain")
	span.End(nil)
	_, span = tracer.Start(ctx, "merge_provean")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Status != statusSuccess || entries[1].Status != statusError || entries[1].Error != "boom" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if _, err := uuid.Parse(entries[0].SpanID); err != nil {
		t.Fatalf("span id is not a uuid: %v", err)
	}
	if entries[0].SpanID == entries[1].SpanID {
		t.Fatalf("span ids must be unique")
	}

	dec := json.NewDecoder(&buf)
	for i := 0; i < 2; i++ {
		var e JSONTraceEntry
		if err := dec.Decode(&e); err != nil {
			t.Fatalf("decode line %d: %v", i, err)
		}
		if e.SpanID != entries[i].SpanID {
			t.Fatalf("line %d span id mismatch", i)
		}
	}

	silent := NewJSONTracer(nil)
	_, span = silent.Start(ctx, "noop")
	span.End(nil)
	if len(silent.Entries()) != 1 {
		t.Fatalf("tracer without writer should still retain spans")
	}
}

func TestServiceWithExporters(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	metrics := NewExpvarMetricsRecorder("")
	env := newTestEnv(t, WithTracer(tracer), WithMetricsRecorder(metrics))
	if _, err := env.svc.GetUniprotSequence(context.Background(), "P04637", false); err != nil {
		t.Fatalf("get sequence: %v", err)
	}
	if metrics.Snapshot().Results["get_uniprot_sequence"]["success"] != 1 {
		t.Fatalf("expvar recorder not invoked")
	}
	if len(tracer.Entries()) != 1 || tracer.Entries()[0].Operation != "get_uniprot_sequence" {
		t.Fatalf("unexpected spans %+v", tracer.Entries())
	}
}
